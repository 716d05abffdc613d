package scraper

import (
	"errors"
	"fmt"
)

// Common scraper errors
var (
	ErrNoPosts       = errors.New("no posts found")
	ErrInvalidTarget = errors.New("invalid target")
	ErrLayout        = errors.New("unknown page layout")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeNavigation   ErrorCode = "NAVIGATION"
	ErrCodeLayout       ErrorCode = "LAYOUT"
	ErrCodeSessionError ErrorCode = "SESSION_ERROR"
	ErrCodeBrowser      ErrorCode = "BROWSER"
)

// ScrapeError wraps orchestration failures with a code and the target
type ScrapeError struct {
	Code       ErrorCode
	Message    string
	Target     string
	Underlying error
	Retry      bool
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Target != "" {
		msg += " (" + e.Target + ")"
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *ScrapeError) Is(target error) bool {
	if t, ok := target.(*ScrapeError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewScrapeError creates a new ScrapeError
func NewScrapeError(code ErrorCode, target, message string, err error) *ScrapeError {
	return &ScrapeError{
		Code:       code,
		Message:    message,
		Target:     target,
		Underlying: err,
	}
}

// WithRetry marks the error as retryable
func (e *ScrapeError) WithRetry() *ScrapeError {
	e.Retry = true
	return e
}

// CodeOf returns the code of the first ScrapeError in err's chain, "" if none
func CodeOf(err error) ErrorCode {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
