package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aipdata/aip/internal/reference"
	"github.com/aipdata/aip/internal/source"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CitationResult summarizes one citation pass over a file.
type CitationResult struct {
	RunID      string `json:"run_id"`
	Path       string `json:"path"`
	Records    int    `json:"records"`
	Skipped    int    `json:"skipped"`
	Written    int    `json:"written"`
	Duplicates int    `json:"duplicates"`
}

// LoadCitations writes the citation edges of every record in a Semantic
// Scholar file. The ledger does not gate this pass and cited papers need
// not exist. Edges already stored are counted as duplicates.
func (p *Pipeline) LoadCitations(ctx context.Context, path string) (*CitationResult, error) {
	res := &CitationResult{RunID: uuid.NewString(), Path: path}
	log := p.log.With(zap.String("run_id", res.RunID), zap.String("path", path))

	r, err := source.OpenS2(path, source.S2Options{})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	b, err := p.newBatch(ctx)
	if err != nil {
		return nil, err
	}
	defer b.rollback()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, source.ErrSkip) {
			res.Skipped++
			log.Debug("Record skipped", zap.Error(err))
			continue
		}
		if err != nil {
			log.Error("Citation pass aborted", zap.Error(err))
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if rec.ID == "" {
			res.Skipped++
			log.Debug("Record without id skipped", zap.Int("line", rec.Line))
			continue
		}
		res.Records++

		for _, c := range reference.CitationsOf(rec.ID, rec.InCitations, rec.OutCitations) {
			written, err := b.tx.InsertCitation(ctx, c)
			if err != nil {
				return nil, err
			}
			if written {
				res.Written++
				p.metrics.CitationEdges.WithLabelValues("written").Inc()
			} else {
				res.Duplicates++
				p.metrics.CitationEdges.WithLabelValues("duplicate").Inc()
			}
			if err := b.tick(ctx); err != nil {
				return nil, err
			}
		}
	}

	if err := b.commit(); err != nil {
		return nil, err
	}

	log.Info("Citations loaded",
		zap.Int("records", res.Records),
		zap.Int("written", res.Written),
		zap.Int("duplicates", res.Duplicates),
	)
	return res, nil
}
