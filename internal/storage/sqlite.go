// Package storage persists normalized papers, authors and citation edges in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aipdata/aip/internal/reference"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectPaperFields contains the standard field list for SELECT queries on papers.
const selectPaperFields = `id, title, abstract, raw_venue_string,
	year, volume, doi, source, n_citations`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A transaction holds the only connection, so nothing may query the
	// DB directly while a Tx is open.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Conn exposes the connection for read-side queries.
func (d *DB) Conn() *sql.DB {
	return d.db
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL DEFAULT '',
			raw_venue_string TEXT NOT NULL,
			year INTEGER,
			volume TEXT,
			doi TEXT,
			source TEXT NOT NULL,
			n_citations INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year) WHERE year IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi) WHERE doi IS NOT NULL;

		-- Authors are keyed by name
		CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS author_paper_pairs (
			paper_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			orcid TEXT,
			UNIQUE (paper_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_author_paper_pairs_author ON author_paper_pairs(author_id);

		-- Citation edges; either endpoint may be missing from papers
		CREATE TABLE IF NOT EXISTS cites (
			paper_id TEXT NOT NULL,
			cited_paper_id TEXT NOT NULL,
			UNIQUE (paper_id, cited_paper_id)
		);

		CREATE INDEX IF NOT EXISTS idx_cites_cited ON cites(cited_paper_id);

		-- Ingestion ledger, keyed by content hash
		CREATE TABLE IF NOT EXISTS parsed_files (
			hash TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			ingested_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS paper_word_pairs (
			paper_id TEXT NOT NULL,
			word_id TEXT NOT NULL,
			cnt INTEGER NOT NULL,
			PRIMARY KEY (paper_id, word_id)
		);

		CREATE INDEX IF NOT EXISTS idx_paper_word_pairs_word ON paper_word_pairs(word_id);
	`

	_, err := db.Exec(schema)
	return err
}

// GetPaper retrieves a paper by its ID. It returns nil, nil when absent.
func (d *DB) GetPaper(ctx context.Context, id string) (*reference.Paper, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectPaperFields+` FROM papers WHERE id = ?`, id)
	return scanPaper(row)
}

// ListPapers returns papers ordered by id, optionally limited.
func (d *DB) ListPapers(ctx context.Context, limit int) ([]reference.Paper, error) {
	query := `SELECT ` + selectPaperFields + ` FROM papers ORDER BY id`
	var args []interface{}

	if limit > 0 {
		query += " LIMIT ?"
		args = []interface{}{limit}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// CountPapers returns the total number of papers.
func (d *DB) CountPapers(ctx context.Context) (int, error) {
	return d.count(ctx, "papers")
}

// CountAuthors returns the total number of authors.
func (d *DB) CountAuthors(ctx context.Context) (int, error) {
	return d.count(ctx, "authors")
}

// CountAuthorships returns the total number of authorship edges.
func (d *DB) CountAuthorships(ctx context.Context) (int, error) {
	return d.count(ctx, "author_paper_pairs")
}

// CountCitations returns the total number of citation edges.
func (d *DB) CountCitations(ctx context.Context) (int, error) {
	return d.count(ctx, "cites")
}

func (d *DB) count(ctx context.Context, table string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// PaperAuthorships returns the authorship edges of a paper in byline order.
func (d *DB) PaperAuthorships(ctx context.Context, paperID string) ([]reference.Authorship, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT paper_id, author_id, position, orcid
		FROM author_paper_pairs
		WHERE paper_id = ?
		ORDER BY position`, paperID)
	if err != nil {
		return nil, fmt.Errorf("listing authorships: %w", err)
	}
	defer rows.Close()

	var edges []reference.Authorship
	for rows.Next() {
		var e reference.Authorship
		var orcid sql.NullString
		if err := rows.Scan(&e.PaperID, &e.AuthorID, &e.Position, &orcid); err != nil {
			return nil, err
		}
		e.ORCID = orcid.String
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// IsFileIngested reports whether a file with this content hash is in the ledger.
func (d *DB) IsFileIngested(ctx context.Context, hash string) (bool, error) {
	return fileIngested(ctx, d.db, hash)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func fileIngested(ctx context.Context, q queryRower, hash string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM parsed_files WHERE hash = ?`, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking ledger: %w", err)
	}
	return true, nil
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPaper(s scanner) (*reference.Paper, error) {
	var p reference.Paper
	var year sql.NullInt64
	var volume, doi sql.NullString
	var source string

	err := s.Scan(
		&p.ID, &p.Title, &p.Abstract, &p.Venue,
		&year, &volume, &doi, &source, &p.Citations,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.Year = int(year.Int64)
	p.Volume = volume.String
	p.DOI = doi.String
	p.Source = reference.Source(source)

	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]reference.Paper, error) {
	var papers []reference.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			papers = append(papers, *p)
		}
	}
	return papers, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableYear stores an unknown year (0) as NULL.
func nullableYear(year int) sql.NullInt64 {
	if year == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(year), Valid: true}
}
