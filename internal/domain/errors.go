package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSource marks an unparseable or unsupported source URL. It is a
// client error; callers must not retry.
var ErrInvalidSource = errors.New("invalid source url")

// StrategyError records one failed acquisition attempt by one strategy.
type StrategyError struct {
	Err      error
	Strategy string
	Attempt  int
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s (attempt %d): %v", e.Strategy, e.Attempt, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every acquisition strategy has failed. It
// carries the full list of attempted-strategy failures rather than only the
// last one, so the record's error message tells the whole story.
type ExhaustedError struct {
	Attempts []*StrategyError
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all acquisition strategies failed"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return "all acquisition strategies failed: " + strings.Join(parts, "; ")
}

// UploadError marks a failure while pushing an acquired file to storage.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload failed: %v", e.Err) }

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError marks a record-store write that failed after exhausting
// retries. It is fatal to the owning job.
type PersistenceError struct {
	Err error
	Op  string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
