// Package retry repeats page loads, passage fetches and media downloads with
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls how often and how slowly an operation is repeated
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Jitter spreads each wait by up to this fraction, 0 disables it
	Jitter float64
	// RetryableStatusCodes are the HTTP statuses worth another attempt
	RetryableStatusCodes []int
}

// DefaultConfig returns three attempts starting at one second
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		Jitter:         0.2,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// WithRetry calls fn until it succeeds, fails permanently, runs out of
// attempts or ctx is done. The last error is wrapped.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := max(1, cfg.MaxAttempts)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				log.Debug().Int("attempts", attempt+1).Msg("Retry succeeded")
			}
			return nil
		}
		lastErr = err

		if !cfg.retryable(err) {
			log.Debug().Err(err).Msg("Error is not retryable")
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := cfg.backoff(attempt)
		log.Debug().
			Int("attempt", attempt+1).
			Int("max_attempts", attempts).
			Dur("backoff", wait).
			Err(err).
			Msg("Retrying after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	log.Warn().Int("attempts", attempts).Err(lastErr).Msg("Max retry attempts exceeded")
	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}

func (cfg Config) backoff(attempt int) time.Duration {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(cfg.InitialBackoff) * math.Pow(mult, float64(attempt))
	if cfg.MaxBackoff > 0 && d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter > 0 {
		d += d * cfg.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(d)
}

func (cfg Config) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return slices.Contains(cfg.RetryableStatusCodes, sc.GetStatusCode())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) {
		return timeout.Timeout()
	}
	return true
}

// StatusCoder is an error carrying an HTTP status
type StatusCoder interface {
	GetStatusCode() int
}

// HTTPError is a non-2xx response from Facebook or its CDN
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

// NewHTTPError creates an HTTPError
func NewHTTPError(statusCode int, status, url string) HTTPError {
	return HTTPError{StatusCode: statusCode, Status: status, URL: url}
}

func (e HTTPError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("HTTP %s: %s", e.Status, e.URL)
	}
	return "HTTP " + e.Status
}

func (e HTTPError) GetStatusCode() int { return e.StatusCode }

// PermanentError marks a failure that retrying cannot fix
type PermanentError struct {
	Err error
}

// Permanent wraps err so WithRetry gives up at once
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }
