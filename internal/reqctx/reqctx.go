// Package reqctx tags a scrape run with an id that follows it through logs.
package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const requestKey key = 0

// RequestContext identifies one scrape run
type RequestContext struct {
	RequestID string
	Target    string
	StartTime time.Time
}

// WithRequestContext starts a run for target and attaches a logger carrying its id
func WithRequestContext(ctx context.Context, target string) context.Context {
	rc := &RequestContext{
		RequestID: uuid.NewString(),
		Target:    target,
		StartTime: time.Now(),
	}
	ctx = context.WithValue(ctx, requestKey, rc)

	logger := log.With().Str("request_id", rc.RequestID).Str("target", target).Logger()
	return logger.WithContext(ctx)
}

// GetRequestContext returns the run attached to ctx, or a placeholder
func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// Logger returns the run logger, falling back to the global one
func Logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}

// RequestError wraps an error with the id of the run that produced it
type RequestError struct {
	RequestID string
	Err       error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RequestID, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError from context
func NewRequestError(ctx context.Context, err error) error {
	rc := GetRequestContext(ctx)
	return &RequestError{
		RequestID: rc.RequestID,
		Err:       err,
	}
}
