package source

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// candidateTags are the DBLP elements that can become papers.
var candidateTags = map[string]bool{
	"article":       true,
	"inproceedings": true,
	"proceedings":   true,
}

// DBLPAuthor is one <author> element in byline order.
type DBLPAuthor struct {
	Name  string
	ORCID string
}

// DBLPRecord is a raw DBLP paper element. Text fields hold the first
// occurrence of the element, or "" when it is absent.
type DBLPRecord struct {
	Tag          string
	Key          string
	SyntheticKey bool // Key was generated by the reader, not taken from the document

	Title     string
	Year      string
	Volume    string
	Booktitle string
	Journals  []string
	EE        []string // identifier URLs in document order
	Authors   []DBLPAuthor
}

// innerText collects all character data of an element, including text
// nested in inline markup such as <i> or <sub>.
type innerText string

func (t *innerText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	for depth := 1; depth > 0; {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tt := tok.(type) {
		case xml.CharData:
			b.Write(tt)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	*t = innerText(b.String())
	return nil
}

// dblpAuthor decodes <author orcid="...">name</author>.
type dblpAuthor DBLPAuthor

func (a *dblpAuthor) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "orcid" {
			a.ORCID = attr.Value
		}
	}
	var name innerText
	if err := name.UnmarshalXML(d, start); err != nil {
		return err
	}
	a.Name = string(name)
	return nil
}

// dblpElement is the decoding target for one candidate element.
type dblpElement struct {
	Key        string       `xml:"key,attr"`
	Titles     []innerText  `xml:"title"`
	Years      []string     `xml:"year"`
	Volumes    []string     `xml:"volume"`
	Booktitles []string     `xml:"booktitle"`
	Journals   []string     `xml:"journal"`
	EE         []string     `xml:"ee"`
	Authors    []dblpAuthor `xml:"author"`
}

// DBLPReader streams paper records out of a DBLP XML document one
// top-level element at a time.
type DBLPReader struct {
	dec    *xml.Decoder
	closer io.Closer

	doctype    string // root element declared by <!DOCTYPE>
	rootSeen   bool
	rootClosed bool
	done       bool

	// counter numbers synthetic keys for elements without a key attribute.
	// It starts at zero for every reader, so synthetic keys are not stable
	// across runs.
	counter int
}

// OpenDBLP opens a DBLP XML file for streaming.
func OpenDBLP(path string) (*DBLPReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dblp file: %w", err)
	}
	r := NewDBLPReader(bufio.NewReaderSize(f, 1<<20))
	r.closer = f
	return r, nil
}

// NewDBLPReader reads a DBLP document from rd. The caller owns rd.
func NewDBLPReader(rd io.Reader) *DBLPReader {
	dec := xml.NewDecoder(rd)
	dec.Strict = true
	// dblp.dtd declares the ISO Latin-1 entity set, which HTMLEntity covers.
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader
	return &DBLPReader{dec: dec}
}

// Close releases the underlying file, if the reader owns one.
func (r *DBLPReader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Next returns the next candidate record. Top-level elements that are not
// papers yield a *SkipError; the end of the document yields io.EOF. Any
// other error wraps ErrSchema and ends the stream.
func (r *DBLPReader) Next() (*DBLPRecord, error) {
	if r.done {
		return nil, io.EOF
	}

	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			r.done = true
			if !r.rootSeen {
				return nil, fmt.Errorf("%w: document has no root element", ErrSchema)
			}
			if !r.rootClosed {
				return nil, fmt.Errorf("%w: root element <%s> is not closed", ErrSchema, r.doctype)
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, r.fail(err)
		}

		switch t := tok.(type) {
		case xml.Directive:
			if name, ok := doctypeRoot(t); ok {
				r.doctype = name
			}

		case xml.StartElement:
			if r.rootClosed {
				return nil, r.fail(fmt.Errorf("element <%s> after the root element", t.Name.Local))
			}
			if !r.rootSeen {
				r.rootSeen = true
				if r.doctype != "" && t.Name.Local != r.doctype {
					return nil, r.fail(fmt.Errorf("root element <%s> does not match DOCTYPE %q", t.Name.Local, r.doctype))
				}
				if r.doctype == "" {
					r.doctype = t.Name.Local
				}
				continue
			}

			// Every element seen here is a direct child of the root: the
			// branches below consume it entirely.
			if !candidateTags[t.Name.Local] {
				if err := r.dec.Skip(); err != nil {
					return nil, r.fail(err)
				}
				return nil, &SkipError{Element: t.Name.Local, Reason: "not a paper element"}
			}

			var el dblpElement
			if err := r.dec.DecodeElement(&el, &t); err != nil {
				return nil, r.fail(fmt.Errorf("decoding <%s>: %w", t.Name.Local, err))
			}
			return r.record(t.Name.Local, &el), nil

		case xml.EndElement:
			r.rootClosed = true
		}
	}
}

func (r *DBLPReader) fail(err error) error {
	r.done = true
	return fmt.Errorf("%w: %v", ErrSchema, err)
}

func (r *DBLPReader) record(tag string, el *dblpElement) *DBLPRecord {
	rec := &DBLPRecord{
		Tag:       tag,
		Key:       el.Key,
		Title:     first(el.Titles),
		Year:      first(el.Years),
		Volume:    first(el.Volumes),
		Booktitle: first(el.Booktitles),
		Journals:  el.Journals,
		EE:        el.EE,
	}

	if rec.Key == "" {
		rec.Key = "id" + strconv.Itoa(r.counter)
		rec.SyntheticKey = true
		r.counter++
	}

	rec.Authors = make([]DBLPAuthor, len(el.Authors))
	for i, a := range el.Authors {
		rec.Authors[i] = DBLPAuthor(a)
	}

	return rec
}

func first[T ~string](values []T) string {
	if len(values) == 0 {
		return ""
	}
	return string(values[0])
}

// doctypeRoot extracts the root element name from <!DOCTYPE name ...>.
func doctypeRoot(d xml.Directive) (string, bool) {
	fields := strings.Fields(string(d))
	if len(fields) < 2 || !strings.EqualFold(fields[0], "DOCTYPE") {
		return "", false
	}
	return strings.TrimSuffix(fields[1], "["), true
}

// charsetReader decodes the legacy encodings DBLP dumps have shipped in.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1", "l1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}
