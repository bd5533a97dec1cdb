package source

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// S2Options controls which Semantic Scholar lines count as usable records.
type S2Options struct {
	// RequirePaperFields skips records that lack a venue or a title.
	// The paper pass sets it; the citation pass does not.
	RequirePaperFields bool
}

// S2Record is one decoded line of a Semantic Scholar corpus file.
// Title and Venue are nil when the key is absent or null, which is distinct
// from an empty string.
type S2Record struct {
	ID            string          `json:"id"`
	Title         *FlexibleString `json:"title"`
	Abstract      FlexibleString  `json:"paperAbstract"`
	Venue         *FlexibleString `json:"venue"`
	Year          FlexibleString  `json:"year"`
	JournalVolume FlexibleString  `json:"journalVolume"`
	DOI           FlexibleString  `json:"doi"`
	DOIURL        FlexibleString  `json:"doiUrl"`
	InCitations   []string        `json:"inCitations"`
	OutCitations  []string        `json:"outCitations"`

	// Line is the 1-based line number the record was read from.
	Line int `json:"-"`
}

// S2Reader streams records from a JSON-lines file, optionally gzip-compressed.
type S2Reader struct {
	rd      *bufio.Reader
	closers []io.Closer
	opts    S2Options
	line    int
	done    bool
}

// OpenS2 opens a corpus file. Names ending in "gz" are read through gzip.
func OpenS2(path string, opts S2Options) (*S2Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening s2 file: %w", err)
	}

	if !strings.HasSuffix(path, "gz") {
		r := NewS2Reader(f, opts)
		r.closers = []io.Closer{f}
		return r, nil
	}

	zr, err := gzip.NewReader(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
	}
	r := NewS2Reader(zr, opts)
	r.closers = []io.Closer{zr, f}
	return r, nil
}

// NewS2Reader reads JSON lines from rd. The caller owns rd.
func NewS2Reader(rd io.Reader, opts S2Options) *S2Reader {
	return &S2Reader{rd: bufio.NewReaderSize(rd, 1<<16), opts: opts}
}

// Close releases the file and decompressor, if the reader owns them.
func (r *S2Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Next returns the next record. A line that does not decode, or that lacks
// required fields, yields a *SkipError. The end of input yields io.EOF; a
// read or decompression failure is returned as is and ends the stream.
func (r *S2Reader) Next() (*S2Record, error) {
	for {
		if r.done {
			return nil, io.EOF
		}

		// ReadBytes has no line length limit, unlike bufio.Scanner.
		raw, err := r.rd.ReadBytes('\n')
		if err != nil && err != io.EOF {
			r.done = true
			return nil, fmt.Errorf("reading line %d: %w", r.line+1, err)
		}
		if err == io.EOF {
			r.done = true
			if len(raw) == 0 {
				return nil, io.EOF
			}
		}
		r.line++

		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		var rec S2Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &SkipError{Line: r.line, Reason: "malformed json", Err: err}
		}
		rec.Line = r.line

		if r.opts.RequirePaperFields {
			if rec.Venue == nil {
				return nil, &SkipError{Line: r.line, Reason: "missing venue"}
			}
			if rec.Title == nil {
				return nil, &SkipError{Line: r.line, Reason: "missing title"}
			}
		}
		return &rec, nil
	}
}

// TitleText returns the title, or "" when it is absent.
func (r *S2Record) TitleText() string {
	if r.Title == nil {
		return ""
	}
	return r.Title.String()
}

// VenueText returns the venue, or "" when it is absent.
func (r *S2Record) VenueText() string {
	if r.Venue == nil {
		return ""
	}
	return r.Venue.String()
}
