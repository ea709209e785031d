// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notion

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetryExhausted marks a terminal remote failure: every attempt of a
// retried operation failed. The last underlying error is wrapped alongside.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryConfig configures the fixed-wait retry policy applied to query and
// create calls.
type RetryConfig struct {
	// Attempts is the total number of attempts, including the first.
	Attempts int

	// Wait is the fixed delay between attempts.
	Wait time.Duration
}

// DefaultRetryConfig mirrors the service defaults: three attempts, five
// seconds apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Wait: 5 * time.Second}
}

// transientError wraps an error that is worth retrying: a transport
// failure, a 429, or a 5xx response.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// markTransient tags err as retryable.
func markTransient(err error) error {
	return &transientError{err: err}
}

// isTransient reports whether err was tagged by markTransient.
func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// retry runs fn up to config.Attempts times, sleeping config.Wait between
// attempts. Non-transient errors return immediately. When every attempt
// fails the last error is returned wrapped in ErrRetryExhausted. The sleep
// function is injectable so tests run without real delays; a nil sleep
// waits on the context clock via time.After.
func retry(ctx context.Context, config RetryConfig, sleep func(time.Duration), fn func(ctx context.Context) error) error {
	attempts := config.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		if sleep != nil {
			sleep(config.Wait)
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.Wait):
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
