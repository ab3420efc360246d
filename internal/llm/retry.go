package llm

import (
	"context"
	"errors"
	"time"
)

// RetryClient reintenta errores transitorios (429, 5xx, red) con espera lineal.
type RetryClient struct {
	inner       LLMClient
	maxAttempts int
	wait        time.Duration
}

// WithRetry envuelve un LLMClient. maxAttempts < 1 se trata como 1.
func WithRetry(inner LLMClient, maxAttempts int, wait time.Duration) *RetryClient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryClient{inner: inner, maxAttempts: maxAttempts, wait: wait}
}

func (r *RetryClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		out, err := r.inner.Generate(ctx, system, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) || attempt == r.maxAttempts-1 {
			break
		}

		wait := r.wait * time.Duration(attempt+1)
		var rl *ErrRateLimit
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return true
	}
	var unavailable *ErrProviderUnavailable
	return errors.As(err, &unavailable)
}
