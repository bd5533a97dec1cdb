package reference

import "errors"

// Author is one entry of a paper's byline.
type Author struct {
	Name     string `json:"name"`            // Also the author's key
	ORCID    string `json:"orcid,omitempty"` // ORCID identifier as given by the source
	Position int    `json:"position"`        // 1-based ordinal in the byline
}

// Authorship is the immutable edge between a paper and one of its authors.
type Authorship struct {
	PaperID  string `json:"paper_id"`
	AuthorID string `json:"author_id"`
	Position int    `json:"position"`
	ORCID    string `json:"orcid,omitempty"`
}

var (
	ErrEmptyAuthorName = errors.New("author name is required")
	ErrBadPosition     = errors.New("author position must be >= 1")
)

// Validate checks that an author entry can be stored.
func (a *Author) Validate() error {
	if a.Name == "" {
		return ErrEmptyAuthorName
	}
	if a.Position < 1 {
		return ErrBadPosition
	}
	return nil
}

// EdgeFor builds the authorship edge linking this author to paperID.
func (a Author) EdgeFor(paperID string) Authorship {
	return Authorship{
		PaperID:  paperID,
		AuthorID: a.Name,
		Position: a.Position,
		ORCID:    a.ORCID,
	}
}
