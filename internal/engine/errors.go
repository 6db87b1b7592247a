package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned when work is submitted to a stopped engine.
var ErrStopped = errors.New("engine stopped")

// JobError reports a failed recompute job.
type JobError struct {
	// JobID identifies the failed job.
	JobID string

	// CharacterID identifies the character whose recompute failed.
	CharacterID int64

	// Reason is the cause recorded on the job.
	Reason string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *JobError) Error() string {
	return fmt.Sprintf("recompute job %s (character=%d, reason=%s): %v", e.JobID, e.CharacterID, e.Reason, e.Err)
}

// Unwrap returns the underlying failure.
func (e *JobError) Unwrap() error {
	return e.Err
}

// IsJobError returns true if err contains a JobError.
// Uses errors.As to handle wrapped and joined errors.
func IsJobError(err error) bool {
	var je *JobError
	return errors.As(err, &je)
}
