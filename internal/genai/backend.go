// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genai abstracts the generative AI API used for diagram generation,
// document authoring, and validation passes. The core never assumes the
// returned text complies with any format; callers parse what they need.
// Implements: prd007-generation (R1, R2);
//
//	docs/ARCHITECTURE § Generation Adapter.
package genai

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Backend sends one prompt to the generative model and returns the raw
// response text. Implementations handle transport; tests supply mocks.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// backoffBase controls the base duration for exponential backoff between
// retry attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

const defaultMaxRetries = 3

// Retrying wraps a Backend with bounded retries and exponential backoff.
// Retries happen here, at the adapter boundary; the refinement core sees a
// single failure signal once attempts are exhausted (R2.2).
type Retrying struct {
	Backend    Backend
	MaxRetries int
}

// Generate calls the wrapped backend, retrying failed calls up to
// MaxRetries times. Context cancellation aborts the wait immediately.
func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := r.Backend.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		// Do not burn retries on a cancelled context.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
