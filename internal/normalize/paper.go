package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aipdata/aip/internal/reference"
	"github.com/aipdata/aip/internal/source"
	"golang.org/x/text/unicode/norm"
)

// ErrRejected marks a record that cannot become a paper.
var ErrRejected = errors.New("record rejected")

func reject(id, field string) error {
	return fmt.Errorf("%w: %s: missing %s", ErrRejected, id, field)
}

// DBLP normalizes a DBLP element. Title, year and venue are required.
func DBLP(rec *source.DBLPRecord) (reference.Paper, error) {
	title, ok := Title(rec.Title)
	if !ok {
		return reference.Paper{}, reject(rec.Key, "title")
	}
	year, ok := Year(rec.Year)
	if !ok {
		return reference.Paper{}, reject(rec.Key, "year")
	}
	venue := strings.TrimSpace(rec.Booktitle)
	if venue == "" && len(rec.Journals) > 0 {
		venue = strings.TrimSpace(rec.Journals[0])
	}
	if venue == "" {
		return reference.Paper{}, reject(rec.Key, "venue")
	}

	p := reference.Paper{
		ID:      rec.Key,
		Title:   title,
		Venue:   venue,
		Year:    year,
		Volume:  DBLPVolume(rec.Volume),
		Source:  reference.SourceDBLP,
		Authors: dblpAuthors(rec.Authors),
	}
	for _, ee := range rec.EE {
		if doi := DOIFromURL(ee); doi != "" {
			p.DOI = doi
			break
		}
	}
	return p, nil
}

// dblpAuthors keeps byline positions even when an entry has no usable name,
// so the remaining authors are not renumbered.
func dblpAuthors(raw []source.DBLPAuthor) []reference.Author {
	authors := make([]reference.Author, 0, len(raw))
	for i, a := range raw {
		name := AuthorName(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, reference.Author{
			Name:     name,
			ORCID:    strings.TrimSpace(a.ORCID),
			Position: i + 1,
		})
	}
	return authors
}

// AuthorName returns the NFC form of name with surrounding space removed.
// Author rows are keyed by this string.
func AuthorName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// S2 normalizes a Semantic Scholar record. Id, venue and title are required;
// the year may be unknown.
func S2(rec *source.S2Record) (reference.Paper, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return reference.Paper{}, fmt.Errorf("%w: line %d: missing id", ErrRejected, rec.Line)
	}
	venue := strings.TrimSpace(rec.VenueText())
	if venue == "" {
		return reference.Paper{}, reject(id, "venue")
	}
	title, ok := Title(rec.TitleText())
	if !ok {
		return reference.Paper{}, reject(id, "title")
	}

	p := reference.Paper{
		ID:       id,
		Title:    title,
		Abstract: rec.Abstract.String(),
		Venue:    venue,
		Volume:   S2Volume(rec.JournalVolume.String()),
		DOI:      strings.TrimSpace(rec.DOI.String()),
		Source:   reference.SourceSemanticScholar,
	}
	if year, ok := Year(rec.Year.String()); ok {
		p.Year = year
	}
	if p.DOI == "" {
		p.DOI = DOIFromURL(rec.DOIURL.String())
	}
	return p, nil
}
