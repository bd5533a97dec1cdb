package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aipdata/aip/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (16MB per line).
// Semantic Scholar abstracts can be long.
const MaxJSONLLineCapacity = 16 * 1024 * 1024

// PapersWithAuthors returns every paper ordered by id with its byline attached.
func (d *DB) PapersWithAuthors(ctx context.Context) ([]reference.Paper, error) {
	papers, err := d.ListPapers(ctx, 0)
	if err != nil {
		return nil, err
	}

	for i := range papers {
		edges, err := d.PaperAuthorships(ctx, papers[i].ID)
		if err != nil {
			return nil, fmt.Errorf("loading authors of %s: %w", papers[i].ID, err)
		}
		for _, e := range edges {
			papers[i].Authors = append(papers[i].Authors, reference.Author{
				Name:     e.AuthorID,
				ORCID:    e.ORCID,
				Position: e.Position,
			})
		}
	}
	return papers, nil
}

// ExportPapers writes every paper, with its byline, as one JSON object per line.
// It returns the number of papers written.
func (d *DB) ExportPapers(ctx context.Context, w io.Writer) (int, error) {
	papers, err := d.PapersWithAuthors(ctx)
	if err != nil {
		return 0, err
	}
	return len(papers), WritePapersJSONL(w, papers)
}

// WritePapersJSONL writes papers to w, one per line.
func WritePapersJSONL(w io.Writer, papers []reference.Paper) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, p := range papers {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding paper %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// PaperReader streams papers written by WritePapersJSONL.
type PaperReader struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// NewPaperReader reads papers from r.
func NewPaperReader(r io.Reader) *PaperReader {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	scanner.Buffer(make([]byte, 64*1024), MaxJSONLLineCapacity)
	return &PaperReader{scanner: scanner}
}

// OpenPapersFile opens a JSONL papers file.
func OpenPapersFile(path string) (*PaperReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening papers file: %w", err)
	}
	r := NewPaperReader(f)
	r.closer = f
	return r, nil
}

// Next returns the next paper, or io.EOF after the last one.
func (r *PaperReader) Next() (reference.Paper, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p reference.Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return reference.Paper{}, fmt.Errorf("parsing line %d: %w", r.line, err)
		}
		return p, nil
	}
	if err := r.scanner.Err(); err != nil {
		return reference.Paper{}, fmt.Errorf("reading papers: %w", err)
	}
	return reference.Paper{}, io.EOF
}

// Close closes the underlying file, if any.
func (r *PaperReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadPapersJSONL reads every paper from r.
func ReadPapersJSONL(r io.Reader) ([]reference.Paper, error) {
	pr := NewPaperReader(r)
	var papers []reference.Paper
	for {
		p, err := pr.Next()
		if err == io.EOF {
			return papers, nil
		}
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
}
