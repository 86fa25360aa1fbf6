// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
	response  string
}

func (f *failNTimesBackend) Generate(_ context.Context, _ string) (string, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return "", fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return f.response, nil
}

func TestRetryingSucceedsAfterFailures(t *testing.T) {
	backend := &failNTimesBackend{failures: 2, response: "ok"}
	r := &Retrying{Backend: backend, MaxRetries: 3}

	got, err := r.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("Generate = %q, want %q", got, "ok")
	}
	if backend.callCount != 3 {
		t.Errorf("callCount = %d, want 3", backend.callCount)
	}
}

func TestRetryingExhaustsRetries(t *testing.T) {
	backend := &failNTimesBackend{failures: 10}
	r := &Retrying{Backend: backend, MaxRetries: 2}

	_, err := r.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// 1 initial + 2 retries = 3 total calls.
	if backend.callCount != 3 {
		t.Errorf("callCount = %d, want 3", backend.callCount)
	}
}

func TestRetryingDefaultMaxRetries(t *testing.T) {
	backend := &failNTimesBackend{failures: 10}
	r := &Retrying{Backend: backend}

	_, err := r.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if backend.callCount != 4 {
		t.Errorf("callCount = %d, want 4 (1 initial + 3 default retries)", backend.callCount)
	}
}

func TestRetryingStopsOnCancelledContext(t *testing.T) {
	backend := &failNTimesBackend{failures: 10}
	r := &Retrying{Backend: backend, MaxRetries: 5}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Generate(ctx, "prompt")
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if backend.callCount > 1 {
		t.Errorf("callCount = %d, want at most 1 after cancellation", backend.callCount)
	}
}
