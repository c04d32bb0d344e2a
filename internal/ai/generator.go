package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Prompt is one request to the generative text service.
type Prompt struct {
	System string
	User   string
}

// Constraints tune a single generation call.
type Constraints struct {
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a JSON object reply where supported.
	JSON bool
	// TargetChars is a length hint; real providers only see it through the prompt.
	TargetChars int
}

// Generator is the generative text service.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt, c Constraints) (string, error)
}

// ErrTimeout marks a call that ran past its deadline.
var ErrTimeout = errors.New("generation timed out")

// TransientError is a provider or network failure that may succeed on a later call.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient generation error: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// classify maps a raw provider error onto the package error taxonomy.
// Caller cancellation is passed through untouched.
func classify(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", provider, ErrTimeout)
	}
	return &TransientError{Provider: provider, Err: err}
}

// IsTimeout reports whether err is a generation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func defaultMaxTokens(n int) int {
	if n <= 0 {
		return 1024
	}
	return n
}

// GenerateWithTimeout runs one call under its own deadline. A call that
// outlives timeout reports ErrTimeout; cancellation of ctx itself is
// returned as ctx.Err().
func GenerateWithTimeout(ctx context.Context, g Generator, timeout time.Duration, prompt Prompt, c Constraints) (string, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	text, err := g.Generate(callCtx, prompt, c)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(err, ErrTimeout) {
		return "", err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return "", err
}
