package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/aipdata/aip/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher mirrors matching objects under a bucket prefix into a directory.
type Fetcher struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	pattern *regexp.Regexp
	limiter *rate.Limiter
	log     *zap.Logger
}

// FetchResult describes one corpus object.
type FetchResult struct {
	Key     string `json:"key"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Skipped bool   `json:"skipped"` // already present with the same size
}

// ErrNoBucket is returned when no bucket is configured.
var ErrNoBucket = errors.New("s3.bucket is not configured")

// NewFetcher creates a fetcher for objects whose base name matches pattern.
// S3 requests are throttled to cfg.RequestsPerSecond; zero means unlimited.
func NewFetcher(client ObjectAPI, cfg config.S3Config, pattern string, log *zap.Logger) (*Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling corpus pattern: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Fetcher{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		pattern: re,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}, nil
}

// Fetch downloads every matching object into destDir. Files already present
// with the object's size are left alone. Downloads go to a temporary file
// that is renamed into place when complete.
func (f *Fetcher) Fetch(ctx context.Context, destDir string) ([]FetchResult, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destDir, err)
	}

	in := &s3.ListObjectsV2Input{Bucket: aws.String(f.bucket)}
	if f.prefix != "" {
		in.Prefix = aws.String(f.prefix)
	}
	pages := s3.NewListObjectsV2Paginator(f.client, in)

	var results []FetchResult
	for pages.HasMorePages() {
		if err := f.limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("rate limiter: %w", err)
		}
		page, err := pages.NextPage(ctx)
		if err != nil {
			return results, fmt.Errorf("listing s3://%s/%s: %w", f.bucket, f.prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(key)
			if !f.pattern.MatchString(name) {
				continue
			}

			res := FetchResult{Key: key, Path: filepath.Join(destDir, name), Size: aws.ToInt64(obj.Size)}
			if st, err := os.Stat(res.Path); err == nil && st.Size() == res.Size {
				res.Skipped = true
				f.log.Debug("Corpus file up to date", zap.String("key", key))
				results = append(results, res)
				continue
			}

			if err := f.download(ctx, key, res.Path); err != nil {
				return results, err
			}
			f.log.Info("Corpus file downloaded", zap.String("key", key), zap.Int64("size", res.Size))
			results = append(results, res)
		}
	}
	return results, nil
}

func (f *Fetcher) download(ctx context.Context, key, dest string) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("getting %s: %w", key, err)
	}
	defer out.Body.Close()

	// The temp name must not match the corpus pattern.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".aip-download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("moving %s into place: %w", key, err)
	}
	return nil
}
