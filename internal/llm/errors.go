package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrEmptyResponse indica que el proveedor respondio sin contenido de texto.
var ErrEmptyResponse = errors.New("llm empty response")

// ErrRateLimit indica un 429 del proveedor.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indica un 5xx o un fallo de red.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("llm provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

func statusError(status int, retryAfter string) error {
	base := fmt.Errorf("llm http error: status=%d", status)
	switch {
	case status == http.StatusTooManyRequests:
		wait := time.Duration(0)
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		return &ErrRateLimit{RetryAfter: wait, Err: base}
	case status >= 500:
		return &ErrProviderUnavailable{Err: base}
	default:
		return base
	}
}
