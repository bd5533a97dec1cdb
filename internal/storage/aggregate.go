package storage

import (
	"context"
	"fmt"
)

// RefreshCitationCounts recomputes papers.n_citations from the cites table.
// It returns the number of papers whose row was rewritten.
func (d *DB) RefreshCitationCounts(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE papers
		SET n_citations = (SELECT COUNT(*) FROM cites WHERE cites.cited_paper_id = papers.id)`)
	if err != nil {
		return 0, fmt.Errorf("refreshing citation counts: %w", err)
	}
	return res.RowsAffected()
}

// WordCounter counts index terms in a piece of text.
type WordCounter func(text string) map[string]int

// wordIndexPage bounds how many papers are held in memory while rebuilding.
const wordIndexPage = 1000

// RebuildWordIndex replaces paper_word_pairs with counts produced by count
// over each paper's title and abstract. It returns the number of pairs written.
func (d *DB) RebuildWordIndex(ctx context.Context, count WordCounter) (int, error) {
	tx, err := d.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.tx.ExecContext(ctx, `DELETE FROM paper_word_pairs`); err != nil {
		return 0, fmt.Errorf("clearing word index: %w", err)
	}

	type doc struct{ id, text string }

	written := 0
	after := ""
	for {
		// Read one page, close the cursor, then write.
		rows, err := tx.tx.QueryContext(ctx, `
			SELECT id, title, abstract FROM papers
			WHERE id > ? ORDER BY id LIMIT ?`, after, wordIndexPage)
		if err != nil {
			return 0, fmt.Errorf("reading papers: %w", err)
		}
		var page []doc
		for rows.Next() {
			var id, title, abstract string
			if err := rows.Scan(&id, &title, &abstract); err != nil {
				rows.Close()
				return 0, err
			}
			page = append(page, doc{id: id, text: title + "\n" + abstract})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return 0, err
		}
		if len(page) == 0 {
			break
		}

		for _, p := range page {
			for word, cnt := range count(p.text) {
				if _, err := tx.exec(ctx,
					`INSERT INTO paper_word_pairs (paper_id, word_id, cnt) VALUES (?, ?, ?)`,
					p.id, word, cnt); err != nil {
					return 0, fmt.Errorf("indexing %s: %w", p.id, err)
				}
				written++
			}
		}
		after = page[len(page)-1].id
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing word index: %w", err)
	}
	return written, nil
}
