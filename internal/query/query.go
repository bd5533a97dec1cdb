// Package query implements the read-side shapes consumed by downstream
// analysis. Every function takes the connection to run on.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aipdata/aip/internal/reference"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PaperText is a paper's id with its lower-cased title and abstract.
type PaperText struct {
	ID       string `json:"name"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// Papers returns every paper's id, title and abstract, lower-cased.
func Papers(ctx context.Context, q Queryer) ([]PaperText, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, title, abstract FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []PaperText
	for rows.Next() {
		var p PaperText
		var title, abstract sql.NullString
		if err := rows.Scan(&p.ID, &title, &abstract); err != nil {
			return nil, err
		}
		p.Title = strings.ToLower(title.String)
		p.Abstract = strings.ToLower(abstract.String)
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// CitationPairs returns every citation edge.
func CitationPairs(ctx context.Context, q Queryer) ([]reference.Citation, error) {
	rows, err := q.QueryContext(ctx, `SELECT paper_id, cited_paper_id FROM cites ORDER BY paper_id, cited_paper_id`)
	if err != nil {
		return nil, fmt.Errorf("querying citation pairs: %w", err)
	}
	defer rows.Close()

	var pairs []reference.Citation
	for rows.Next() {
		var c reference.Citation
		if err := rows.Scan(&c.CitingID, &c.CitedID); err != nil {
			return nil, err
		}
		pairs = append(pairs, c)
	}
	return pairs, rows.Err()
}

// PaperAuthors returns the author ids of a paper in byline order.
func PaperAuthors(ctx context.Context, q Queryer, paperID string) ([]string, error) {
	return queryStrings(ctx, q, `
		SELECT author_id FROM author_paper_pairs
		WHERE paper_id = ? ORDER BY position`, paperID)
}

// Authors returns every author id.
func Authors(ctx context.Context, q Queryer) ([]string, error) {
	return queryStrings(ctx, q, `SELECT id FROM authors ORDER BY id`)
}

func queryStrings(ctx context.Context, q Queryer, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PaperCitations maps paper ids to their citation counts.
func PaperCitations(ctx context.Context, q Queryer) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, n_citations FROM papers`)
	if err != nil {
		return nil, fmt.Errorf("querying citation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CitationsYear is a paper's citation count and publication year (0 if unknown).
type CitationsYear struct {
	Citations int `json:"n_citations"`
	Year      int `json:"year"`
}

// PaperCitationsYears maps paper ids to their citation count and year.
func PaperCitationsYears(ctx context.Context, q Queryer) (map[string]CitationsYear, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, n_citations, year FROM papers`)
	if err != nil {
		return nil, fmt.Errorf("querying citation years: %w", err)
	}
	defer rows.Close()

	out := make(map[string]CitationsYear)
	for rows.Next() {
		var id string
		var cy CitationsYear
		var year sql.NullInt64
		if err := rows.Scan(&id, &cy.Citations, &year); err != nil {
			return nil, err
		}
		cy.Year = int(year.Int64)
		out[id] = cy
	}
	return out, rows.Err()
}

// PaperYears maps paper ids to their publication year (0 if unknown).
func PaperYears(ctx context.Context, q Queryer) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, year FROM papers`)
	if err != nil {
		return nil, fmt.Errorf("querying paper years: %w", err)
	}
	defer rows.Close()

	years := make(map[string]int)
	for rows.Next() {
		var id string
		var year sql.NullInt64
		if err := rows.Scan(&id, &year); err != nil {
			return nil, err
		}
		years[id] = int(year.Int64)
	}
	return years, rows.Err()
}

// AuthorCitationSums maps author ids to the summed citation counts of their papers.
func AuthorCitationSums(ctx context.Context, q Queryer) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.id, SUM(p.n_citations)
		FROM authors a
		JOIN author_paper_pairs ap ON ap.author_id = a.id
		JOIN papers p ON p.id = ap.paper_id
		GROUP BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("querying author citations: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		sums[id] = n
	}
	return sums, rows.Err()
}

// PapersAuthors maps every paper id to its author ids in byline order.
// Papers without authors map to an empty list.
func PapersAuthors(ctx context.Context, q Queryer) (map[string][]string, error) {
	out := make(map[string][]string)

	ids, err := queryStrings(ctx, q, `SELECT id FROM papers`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	for _, id := range ids {
		out[id] = []string{}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT p.id, ap.author_id
		FROM papers p
		JOIN author_paper_pairs ap ON ap.paper_id = p.id
		ORDER BY p.id, ap.position`)
	if err != nil {
		return nil, fmt.Errorf("querying paper authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, author string
		if err := rows.Scan(&id, &author); err != nil {
			return nil, err
		}
		out[id] = append(out[id], author)
	}
	return out, rows.Err()
}
