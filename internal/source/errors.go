// Package source streams raw records out of DBLP XML dumps and Semantic Scholar corpus files.
package source

import (
	"errors"
	"fmt"
)

var (
	// ErrSkip marks a unit that was read but carries no usable record.
	// Callers count it and move on; it never aborts a file.
	ErrSkip = errors.New("record skipped")

	// ErrSchema marks a structural violation of the DBLP document.
	// It is fatal for the file being read.
	ErrSchema = errors.New("document violates schema")
)

// SkipError describes why a unit was skipped.
type SkipError struct {
	Line    int    // 1-based line (S2) or 0 when unknown
	Element string // XML element name (DBLP) or "" for JSON lines
	Reason  string
	Err     error // underlying decode error, if any
}

func (e *SkipError) Error() string {
	where := e.Element
	if e.Line > 0 {
		where = fmt.Sprintf("line %d", e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("skipped %s: %s: %v", where, e.Reason, e.Err)
	}
	return fmt.Sprintf("skipped %s: %s", where, e.Reason)
}

// Is makes errors.Is(err, ErrSkip) hold for every SkipError.
func (e *SkipError) Is(target error) bool {
	return target == ErrSkip
}

func (e *SkipError) Unwrap() error {
	return e.Err
}
