package query

import (
	"context"
	"database/sql"
	"fmt"
)

// yearCounts runs a (year, count) query into a map.
func yearCounts(ctx context.Context, q Queryer, query string, args ...interface{}) (map[int]int, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var year, n int
		if err := rows.Scan(&year, &n); err != nil {
			return nil, err
		}
		out[year] = n
	}
	return out, rows.Err()
}

// PublicationsPerYear counts papers per known year.
func PublicationsPerYear(ctx context.Context, q Queryer) (map[int]int, error) {
	out, err := yearCounts(ctx, q, `
		SELECT year, COUNT(*) FROM papers
		WHERE year IS NOT NULL
		GROUP BY year`)
	if err != nil {
		return nil, fmt.Errorf("querying publications per year: %w", err)
	}
	return out, nil
}

// CitationsPerYear sums citation counts of papers per known year.
func CitationsPerYear(ctx context.Context, q Queryer) (map[int]int, error) {
	out, err := yearCounts(ctx, q, `
		SELECT year, SUM(n_citations) FROM papers
		WHERE year IS NOT NULL
		GROUP BY year`)
	if err != nil {
		return nil, fmt.Errorf("querying citations per year: %w", err)
	}
	return out, nil
}

// WordPopularity sums the occurrences of word per publication year.
func WordPopularity(ctx context.Context, q Queryer, word string) (map[int]int, error) {
	out, err := yearCounts(ctx, q, `
		SELECT p.year, SUM(w.cnt)
		FROM paper_word_pairs w
		JOIN papers p ON p.id = w.paper_id
		WHERE w.word_id = ? AND p.year IS NOT NULL
		GROUP BY p.year`, word)
	if err != nil {
		return nil, fmt.Errorf("querying popularity of %q: %w", word, err)
	}
	return out, nil
}

// CitationsInYearRange counts citations to papers published in year-dt made
// by papers published between year-dt and year inclusive.
func CitationsInYearRange(ctx context.Context, q Queryer, year, dt int) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cites c
		JOIN papers citing ON citing.id = c.paper_id
		JOIN papers cited ON cited.id = c.cited_paper_id
		WHERE citing.year BETWEEN ? AND ?
		AND cited.year = ?`, year-dt, year, year-dt).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting citations in range: %w", err)
	}
	return n, nil
}

// CitationMatrix maps paper id -> year -> citations received that year.
type CitationMatrix map[string]map[int]int

// EmptyCitationMatrix returns a zero-filled matrix with one row per paper of
// known year, spanning its publication year through the corpus maximum year.
func EmptyCitationMatrix(ctx context.Context, q Queryer) (CitationMatrix, error) {
	var maxYear sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(year) FROM papers`).Scan(&maxYear); err != nil {
		return nil, fmt.Errorf("querying max year: %w", err)
	}

	m := make(CitationMatrix)
	if !maxYear.Valid {
		return m, nil
	}

	rows, err := q.QueryContext(ctx, `SELECT id, year FROM papers WHERE year IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying paper years: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var year int
		if err := rows.Scan(&id, &year); err != nil {
			return nil, err
		}
		row := make(map[int]int)
		for y := year; y <= int(maxYear.Int64); y++ {
			row[y] = 0
		}
		m[id] = row
	}
	return m, rows.Err()
}

// CitationsByYearMatrix fills EmptyCitationMatrix with citations, bucketed by
// the citing paper's year. Citations to papers outside the matrix, or from
// years outside a row's range, are ignored.
func CitationsByYearMatrix(ctx context.Context, q Queryer) (CitationMatrix, error) {
	m, err := EmptyCitationMatrix(ctx, q)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT c.cited_paper_id, p.year
		FROM cites c
		JOIN papers p ON p.id = c.paper_id
		WHERE p.year IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying citation years: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cited string
		var year int
		if err := rows.Scan(&cited, &year); err != nil {
			return nil, err
		}
		row, ok := m[cited]
		if !ok {
			continue
		}
		if _, ok := row[year]; !ok {
			continue
		}
		row[year]++
	}
	return m, rows.Err()
}
