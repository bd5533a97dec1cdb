// Package merge reconciles normalized papers against the store.
package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/aipdata/aip/internal/reference"
)

// Store is the write surface the engine needs. *storage.Tx implements it.
type Store interface {
	PaperExists(ctx context.Context, id string) (bool, error)
	InsertPaper(ctx context.Context, p reference.Paper) error
	UpdatePaper(ctx context.Context, p reference.Paper) error
	EnsureAuthor(ctx context.Context, name string) error
	InsertAuthorship(ctx context.Context, e reference.Authorship) error
}

// Policy names how an existing row is reconciled with a new sighting.
type Policy string

// LastWriterWins overwrites every non-identity field with the newest
// record's values, whichever source it came from. Authorship edges are
// never touched on update.
const LastWriterWins Policy = "last-writer-wins"

// Action is what Upsert did with a paper.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
)

// ErrInvalidPaper marks a paper that failed validation before any write.
var ErrInvalidPaper = errors.New("invalid paper")

// Engine upserts papers by external identifier.
type Engine struct {
	Policy Policy
}

// New returns an engine using the LastWriterWins policy.
func New() *Engine {
	return &Engine{Policy: LastWriterWins}
}

// Upsert inserts p when no row exists for p.ID, fanning out its authors in
// byline order, or overwrites the existing row otherwise. It reports
// whether a new row was inserted.
func (e *Engine) Upsert(ctx context.Context, s Store, p reference.Paper) (bool, error) {
	action, err := e.Apply(ctx, s, p)
	return action == ActionInsert, err
}

// Apply is Upsert reporting the action taken.
func (e *Engine) Apply(ctx context.Context, s Store, p reference.Paper) (Action, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidPaper, p.ID, err)
	}

	exists, err := s.PaperExists(ctx, p.ID)
	if err != nil {
		return "", err
	}

	if exists {
		if e.Policy != LastWriterWins {
			return "", fmt.Errorf("unsupported merge policy %q", e.Policy)
		}
		if err := s.UpdatePaper(ctx, p); err != nil {
			return "", err
		}
		return ActionUpdate, nil
	}

	if err := s.InsertPaper(ctx, p); err != nil {
		return "", err
	}
	for _, a := range p.Authors {
		if err := s.EnsureAuthor(ctx, a.Name); err != nil {
			return "", err
		}
		if err := s.InsertAuthorship(ctx, a.EdgeFor(p.ID)); err != nil {
			return "", err
		}
	}
	return ActionInsert, nil
}
