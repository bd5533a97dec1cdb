package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// CorpusFiles lists the regular files in dir whose names match the corpus
// pattern, in lexical order.
func (p *Pipeline) CorpusFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !p.pattern.MatchString(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// IngestS2Corpus ingests every corpus file in dir. A failing file does not
// stop the scan; all failures are joined into the returned error. Files
// that disappear after the scan are skipped.
func (p *Pipeline) IngestS2Corpus(ctx context.Context, dir string) ([]*Result, error) {
	var results []*Result
	err := p.eachCorpusFile(ctx, dir, func(path string) error {
		res, err := p.IngestS2File(ctx, path)
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	})
	return results, err
}

// LoadCitationsCorpus runs the citation pass over every corpus file in dir.
func (p *Pipeline) LoadCitationsCorpus(ctx context.Context, dir string) ([]*CitationResult, error) {
	var results []*CitationResult
	err := p.eachCorpusFile(ctx, dir, func(path string) error {
		res, err := p.LoadCitations(ctx, path)
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	})
	return results, err
}

func (p *Pipeline) eachCorpusFile(ctx context.Context, dir string, fn func(path string) error) error {
	paths, err := p.CorpusFiles(dir)
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := fn(path)
		if errors.Is(err, fs.ErrNotExist) {
			p.log.Debug("Corpus file vanished", zap.String("path", path))
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
		}
	}
	return errors.Join(errs...)
}
