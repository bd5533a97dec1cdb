// Package ledger records which source files have been fully ingested,
// keyed by a hash of their content.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Lookup answers whether a content hash has been ingested.
type Lookup interface {
	IsFileIngested(ctx context.Context, hash string) (bool, error)
}

// Marker records a content hash as ingested.
type Marker interface {
	MarkFileIngested(ctx context.Context, hash, path string) error
}

// HashFile computes the SHA256 hash of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Check hashes path and reports whether that content was already ingested.
// Identical bytes at another path count as ingested.
func Check(ctx context.Context, l Lookup, path string) (string, bool, error) {
	hash, err := HashFile(path)
	if err != nil {
		return "", false, err
	}
	ok, err := l.IsFileIngested(ctx, hash)
	if err != nil {
		return hash, false, err
	}
	return hash, ok, nil
}

// Mark records hash as ingested. Callers mark only after the file was read
// to the end, in the same transaction as its last batch.
func Mark(ctx context.Context, m Marker, hash, path string) error {
	if hash == "" {
		return fmt.Errorf("marking %s: empty hash", path)
	}
	return m.MarkFileIngested(ctx, hash, path)
}
