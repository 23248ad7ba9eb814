package errs

import (
	"errors"
	"fmt"
)

var (
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptExpired      = errors.New("attempt time is over")
	ErrStaleDeadline       = fmt.Errorf("deadline moved into the past: %w", ErrAttemptExpired)
	ErrAlreadyFinalized    = errors.New("attempt already finalized")
	ErrCorruptLocalState   = errors.New("stored attempt state is corrupt")
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	ErrNotExpired          = errors.New("attempt still has time remaining")
	ErrAttemptInProgress   = errors.New("attempt is still in progress")
	ErrNoDeadline          = errors.New("activity has neither a duration nor a close date")
)

var (
	ErrActivityNotFound    = errors.New("activity not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrTestCaseNotFound    = errors.New("test case not found")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrRunInProgress       = errors.New("a run is already in progress")
	ErrRunKilled           = errors.New("run was killed")
	ErrNoRunInProgress     = errors.New("no run in progress")
)

// NetworkError reports a failed call to a remote collaborator
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func NewNetworkError(op string, statusCode int, err error) *NetworkError {
	if err == nil {
		err = errors.New("request failed")
	}
	return &NetworkError{Op: op, StatusCode: statusCode, Err: err}
}

// IsNetwork reports whether err is or wraps a NetworkError
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
