// Package ingest drives source files through normalization and merge into the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/aipdata/aip/internal/ledger"
	"github.com/aipdata/aip/internal/merge"
	"github.com/aipdata/aip/internal/normalize"
	"github.com/aipdata/aip/internal/reference"
	"github.com/aipdata/aip/internal/source"
	"github.com/aipdata/aip/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of upserts committed per transaction.
const DefaultBatchSize = 1000

// DefaultCorpusPattern selects Semantic Scholar corpus parts in a directory.
const DefaultCorpusPattern = `s2-corpus-\d+`

// Options configures a Pipeline.
type Options struct {
	BatchSize     int
	CorpusPattern string
}

// Pipeline ingests one file at a time, sequentially.
type Pipeline struct {
	db        *storage.DB
	engine    *merge.Engine
	log       *zap.Logger
	metrics   *Metrics
	batchSize int
	pattern   *regexp.Regexp
}

// New creates a pipeline writing to db. A nil logger or metrics is replaced
// by a no-op one.
func New(db *storage.DB, log *zap.Logger, metrics *Metrics, opts Options) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.CorpusPattern == "" {
		opts.CorpusPattern = DefaultCorpusPattern
	}
	pattern, err := regexp.Compile(opts.CorpusPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling corpus pattern: %w", err)
	}

	return &Pipeline{
		db:        db,
		engine:    merge.New(),
		log:       log,
		metrics:   metrics,
		batchSize: opts.BatchSize,
		pattern:   pattern,
	}, nil
}

// Result summarizes the ingestion of one file.
type Result struct {
	RunID           string           `json:"run_id"`
	Path            string           `json:"path"`
	Source          reference.Source `json:"source"`
	Hash            string           `json:"hash"`
	AlreadyIngested bool             `json:"already_ingested"`
	Inserted        int              `json:"inserted"`
	Updated         int              `json:"updated"`
	Rejected        int              `json:"rejected"`
	Skipped         int              `json:"skipped"`
}

// IngestDBLP ingests a DBLP XML dump.
func (p *Pipeline) IngestDBLP(ctx context.Context, path string) (*Result, error) {
	open := func(path string) (recordReader[*source.DBLPRecord], error) {
		r, err := source.OpenDBLP(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return ingestFile(ctx, p, path, reference.SourceDBLP, open, normalize.DBLP)
}

// IngestS2File ingests one Semantic Scholar corpus file.
func (p *Pipeline) IngestS2File(ctx context.Context, path string) (*Result, error) {
	open := func(path string) (recordReader[*source.S2Record], error) {
		r, err := source.OpenS2(path, source.S2Options{RequirePaperFields: true})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return ingestFile(ctx, p, path, reference.SourceSemanticScholar, open, normalize.S2)
}

// sourceExport labels runs that replay a JSONL export. Each paper keeps
// the source recorded in the export.
const sourceExport reference.Source = "export"

// ImportPapers merges a JSONL export back into the store. The export is
// gated by the ledger like any source file, and bylines are restored.
// Citation counts are not; run the aggregation afterwards.
func (p *Pipeline) ImportPapers(ctx context.Context, path string) (*Result, error) {
	open := func(path string) (recordReader[reference.Paper], error) {
		r, err := storage.OpenPapersFile(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return ingestFile(ctx, p, path, sourceExport, open, func(paper reference.Paper) (reference.Paper, error) {
		paper.Citations = 0
		return paper, nil
	})
}

type recordReader[T any] interface {
	Next() (T, error)
	Close() error
}

// ingestFile runs the per-file sequence: ledger check, stream, normalize,
// upsert in batches, then mark the ledger in the last transaction.
func ingestFile[T any](
	ctx context.Context,
	p *Pipeline,
	path string,
	kind reference.Source,
	open func(string) (recordReader[T], error),
	norm func(T) (reference.Paper, error),
) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Path: path, Source: kind}
	log := p.log.With(
		zap.String("run_id", res.RunID),
		zap.String("path", path),
		zap.String("source", string(kind)),
	)
	src := string(kind)

	hash, done, err := ledger.Check(ctx, p.db, path)
	if err != nil {
		return nil, fmt.Errorf("checking ledger for %s: %w", path, err)
	}
	res.Hash = hash
	if done {
		res.AlreadyIngested = true
		p.metrics.Files.WithLabelValues(src, "already_ingested").Inc()
		log.Info("File already ingested", zap.String("hash", hash))
		return res, nil
	}

	r, err := open(path)
	if err != nil {
		p.metrics.Files.WithLabelValues(src, "failed").Inc()
		return nil, err
	}
	defer r.Close()

	b, err := p.newBatch(ctx)
	if err != nil {
		return nil, err
	}
	defer b.rollback()

	fail := func(err error) (*Result, error) {
		p.metrics.Files.WithLabelValues(src, "failed").Inc()
		log.Error("Ingestion aborted", zap.Error(err), zap.Int("inserted", res.Inserted), zap.Int("updated", res.Updated))
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, source.ErrSkip) {
			res.Skipped++
			p.metrics.Records.WithLabelValues(src, "skipped").Inc()
			log.Debug("Record skipped", zap.Error(err))
			continue
		}
		if err != nil {
			return fail(fmt.Errorf("reading %s: %w", path, err))
		}

		paper, err := norm(rec)
		if err != nil {
			res.Rejected++
			p.metrics.Records.WithLabelValues(src, "rejected").Inc()
			log.Debug("Record rejected", zap.Error(err))
			continue
		}

		action, err := p.engine.Apply(ctx, b.tx, paper)
		if errors.Is(err, merge.ErrInvalidPaper) {
			res.Rejected++
			p.metrics.Records.WithLabelValues(src, "rejected").Inc()
			log.Debug("Record rejected", zap.Error(err))
			continue
		}
		if err != nil {
			return fail(fmt.Errorf("upserting %s: %w", paper.ID, err))
		}
		switch action {
		case merge.ActionInsert:
			res.Inserted++
			p.metrics.Records.WithLabelValues(src, "inserted").Inc()
		case merge.ActionUpdate:
			res.Updated++
			p.metrics.Records.WithLabelValues(src, "updated").Inc()
		}

		if err := b.tick(ctx); err != nil {
			return fail(err)
		}
	}

	if err := ledger.Mark(ctx, b.tx, hash, path); err != nil {
		return fail(err)
	}
	if err := b.commit(); err != nil {
		return fail(err)
	}

	p.metrics.Files.WithLabelValues(src, "ingested").Inc()
	log.Info("File ingested",
		zap.String("hash", hash),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("rejected", res.Rejected),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
