// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-02
// Last Modified: 2026-10-09

// Package retry provides exponential backoff for transient I/O failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrExhausted is wrapped into the error returned once every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Config holds configuration for exponential backoff retry.
type Config struct {
	MaxRetries  int           // Maximum number of retry attempts (default: 3)
	BaseDelay   time.Duration // Initial delay before first retry (default: 500ms)
	MaxDelay    time.Duration // Maximum delay cap (default: 10s)
	JitterRatio float64       // Jitter as fraction of delay, 0.0-1.0 (default: 0.25)
}

// DefaultConfig returns the defaults used for tracker API calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		JitterRatio: 0.25,
	}
}

// Classifier reports whether err is transient and worth another attempt.
type Classifier func(err error) bool

// Do executes fn with exponential backoff. Only errors accepted by retryable
// are retried; anything else is returned immediately.
func Do[T any](ctx context.Context, cfg Config, operation string, retryable Classifier, fn func() (T, error)) (T, error) {
	var zero T

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", operation, err)
		}

		if retryable == nil || !retryable(err) {
			return zero, err
		}

		if attempt == cfg.MaxRetries {
			return zero, fmt.Errorf("%s failed after %d retries: %w: %w", operation, cfg.MaxRetries, ErrExhausted, err)
		}

		delay := Backoff(cfg, attempt)
		log.Debug().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("transient failure, retrying")

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: context cancelled during retry: %w", operation, ctx.Err())
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%s: retry loop exited unexpectedly", operation)
}

// Backoff returns the delay before retry number attempt+1:
// base * 2^attempt plus jitter, capped at MaxDelay.
func Backoff(cfg Config, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
	if cfg.JitterRatio > 0 {
		delay += time.Duration(rand.Float64() * cfg.JitterRatio * float64(delay))
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
