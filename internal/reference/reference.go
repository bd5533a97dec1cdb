// Package reference defines the core domain types for normalized bibliographic records.
package reference

import (
	"errors"
	"fmt"
)

// Source identifies which feed produced (or last touched) a paper.
type Source string

const (
	SourceDBLP            Source = "dblp"
	SourceSemanticScholar Source = "s2"
)

// Paper is a normalized bibliographic record keyed by its external identifier.
type Paper struct {
	// Identity
	ID string `json:"id"` // DBLP key or Semantic Scholar id

	// Metadata
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Venue    string `json:"venue"`            // Raw venue string as given by the source
	Year     int    `json:"year,omitempty"`   // 0 if unknown
	Volume   string `json:"volume,omitempty"` // Integer text (DBLP) or token (S2), "" if unknown
	DOI      string `json:"doi,omitempty"`

	Source Source `json:"source"`

	// Maintained by aggregation, never by ingestion.
	Citations int `json:"n_citations"`

	// Byline, only populated by sources that carry one at ingestion time.
	Authors []Author `json:"authors,omitempty"`
}

// Validation errors.
var (
	ErrEmptyID    = errors.New("paper id is required")
	ErrEmptyTitle = errors.New("paper title is required")
	ErrEmptyVenue = errors.New("paper venue is required")
	ErrBadSource  = errors.New("unknown paper source")
)

// HasYear reports whether the publication year is known.
func (p *Paper) HasYear() bool {
	return p.Year != 0
}

// Validate checks the fields every stored paper must carry.
func (p *Paper) Validate() error {
	if p.ID == "" {
		return ErrEmptyID
	}
	if p.Title == "" {
		return ErrEmptyTitle
	}
	if p.Venue == "" {
		return ErrEmptyVenue
	}
	switch p.Source {
	case SourceDBLP, SourceSemanticScholar:
	default:
		return fmt.Errorf("%w: %q", ErrBadSource, p.Source)
	}
	for i, a := range p.Authors {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("author %d: %w", i+1, err)
		}
	}
	return nil
}
