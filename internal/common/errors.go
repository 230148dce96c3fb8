package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error kinds. Each is fatal to a single file's run only; the
// controller catches, logs and counts them without touching other runs.
var (
	ErrDocumentOpen = errors.New("document open error")
	ErrExtraction   = errors.New("extraction error")

	ErrSinkUnavailable = errors.New("sink unavailable")
	ErrSinkWrite       = errors.New("sink write error")
)

// Watch-session error kinds, surfaced to the control surface as request
// failures rather than crashes.
var (
	ErrAlreadyWatching    = errors.New("already watching")
	ErrNotWatching        = errors.New("not watching")
	ErrDirectoryNotFound  = errors.New("directory not found")
	ErrWatcherStart       = errors.New("watcher start failed")
	ErrWatcherStopTimeout = errors.New("watcher stop timed out")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
