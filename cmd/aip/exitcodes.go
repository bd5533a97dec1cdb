package main

import (
	"errors"

	"github.com/aipdata/aip/internal/config"
	"github.com/aipdata/aip/internal/source"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad config file, env or schedule)
	ExitDataError   = 3 // Data error (input violates the source schema)
	ExitNotFound    = 4 // Requested paper or input file does not exist
)

// exitCodeFor maps a pipeline error to an exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, source.ErrSchema):
		return ExitDataError
	case errors.Is(err, config.ErrBadBatchSize), errors.Is(err, config.ErrBadLogFormat), errors.Is(err, config.ErrBadRate):
		return ExitConfigError
	default:
		return ExitError
	}
}
