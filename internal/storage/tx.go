package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aipdata/aip/internal/reference"
)

// Tx is a write transaction. Ingestion performs every write through one,
// committing in batches.
type Tx struct {
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

// Begin starts a write transaction.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Tx{tx: tx, stmts: make(map[string]*sql.Stmt)}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. It is safe to call after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// prepared returns a statement prepared once per transaction.
// Statements are closed by the driver when the transaction ends.
func (t *Tx) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := t.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	t.stmts[query] = stmt
	return stmt, nil
}

func (t *Tx) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmt, err := t.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

const (
	insertPaperSQL = `
		INSERT INTO papers (id, title, abstract, raw_venue_string, year, volume, doi, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	// n_citations belongs to aggregation and is never overwritten here.
	updatePaperSQL = `
		UPDATE papers
		SET title = ?, abstract = ?, raw_venue_string = ?, year = ?, volume = ?, doi = ?, source = ?
		WHERE id = ?`

	insertAuthorSQL     = `INSERT OR IGNORE INTO authors (id) VALUES (?)`
	insertAuthorshipSQL = `
		INSERT OR IGNORE INTO author_paper_pairs (paper_id, author_id, position, orcid)
		VALUES (?, ?, ?, ?)`
	insertCitationSQL = `INSERT OR IGNORE INTO cites (paper_id, cited_paper_id) VALUES (?, ?)`
	markFileSQL       = `INSERT OR IGNORE INTO parsed_files (hash, path, ingested_at) VALUES (?, ?, ?)`
)

// PaperExists reports whether a paper row exists for id.
func (t *Tx) PaperExists(ctx context.Context, id string) (bool, error) {
	stmt, err := t.prepared(ctx, `SELECT 1 FROM papers WHERE id = ?`)
	if err != nil {
		return false, fmt.Errorf("preparing paper lookup: %w", err)
	}
	var one int
	err = stmt.QueryRowContext(ctx, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up paper %s: %w", id, err)
	}
	return true, nil
}

// InsertPaper writes a new paper row.
func (t *Tx) InsertPaper(ctx context.Context, p reference.Paper) error {
	_, err := t.exec(ctx, insertPaperSQL,
		p.ID, p.Title, p.Abstract, p.Venue,
		nullableYear(p.Year), nullableStringValue(p.Volume), nullableStringValue(p.DOI),
		string(p.Source),
	)
	if err != nil {
		return fmt.Errorf("inserting paper %s: %w", p.ID, err)
	}
	return nil
}

// UpdatePaper overwrites every non-identity field of an existing paper.
func (t *Tx) UpdatePaper(ctx context.Context, p reference.Paper) error {
	_, err := t.exec(ctx, updatePaperSQL,
		p.Title, p.Abstract, p.Venue,
		nullableYear(p.Year), nullableStringValue(p.Volume), nullableStringValue(p.DOI),
		string(p.Source), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating paper %s: %w", p.ID, err)
	}
	return nil
}

// EnsureAuthor creates the author row for name unless it exists.
func (t *Tx) EnsureAuthor(ctx context.Context, name string) error {
	if _, err := t.exec(ctx, insertAuthorSQL, name); err != nil {
		return fmt.Errorf("inserting author %q: %w", name, err)
	}
	return nil
}

// InsertAuthorship writes an authorship edge. An edge already present at the
// same (paper, position) is left untouched.
func (t *Tx) InsertAuthorship(ctx context.Context, e reference.Authorship) error {
	_, err := t.exec(ctx, insertAuthorshipSQL, e.PaperID, e.AuthorID, e.Position, nullableStringValue(e.ORCID))
	if err != nil {
		return fmt.Errorf("inserting authorship %s/%d: %w", e.PaperID, e.Position, err)
	}
	return nil
}

// InsertCitation writes a citation edge and reports whether it was new.
func (t *Tx) InsertCitation(ctx context.Context, c reference.Citation) (bool, error) {
	res, err := t.exec(ctx, insertCitationSQL, c.CitingID, c.CitedID)
	if err != nil {
		return false, fmt.Errorf("inserting citation %s -> %s: %w", c.CitingID, c.CitedID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsFileIngested reports whether the ledger holds hash.
func (t *Tx) IsFileIngested(ctx context.Context, hash string) (bool, error) {
	return fileIngested(ctx, t.tx, hash)
}

// MarkFileIngested adds hash to the ledger. Marking twice is a no-op.
func (t *Tx) MarkFileIngested(ctx context.Context, hash, path string) error {
	_, err := t.exec(ctx, markFileSQL, hash, path, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("marking %s ingested: %w", path, err)
	}
	return nil
}
