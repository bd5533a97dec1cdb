package ingest

import (
	"context"
	"fmt"

	"github.com/aipdata/aip/internal/storage"
)

// batch commits its transaction every size writes and opens the next one.
type batch struct {
	db      *storage.DB
	tx      *storage.Tx
	size    int
	pending int
}

func (p *Pipeline) newBatch(ctx context.Context) (*batch, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &batch{db: p.db, tx: tx, size: p.batchSize}, nil
}

// tick counts one write and rotates the transaction when the batch is full.
func (b *batch) tick(ctx context.Context) error {
	b.pending++
	if b.pending < b.size {
		return nil
	}
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	tx, err := b.db.Begin(ctx)
	if err != nil {
		b.tx = nil
		return err
	}
	b.tx = tx
	b.pending = 0
	return nil
}

func (b *batch) commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// rollback discards uncommitted writes. It is a no-op after commit.
func (b *batch) rollback() {
	if b.tx != nil {
		b.tx.Rollback()
	}
}
