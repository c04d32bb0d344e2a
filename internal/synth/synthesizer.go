// Package synth generates the text of every slot under hard character
// bounds. Slots run concurrently; each slot retries a bounded number of
// times with corrective feedback.
package synth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kayz/slidefit/internal/ai"
	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/plan"
	"github.com/kayz/slidefit/internal/promptbuild"
	"github.com/kayz/slidefit/internal/variant"
)

// SlotEvent is reported after every attempt and once when a slot settles.
type SlotEvent struct {
	SlotID    string `json:"slot_id"`
	Attempt   int    `json:"attempt"`
	CharCount int    `json:"char_count"`
	State     State  `json:"state"`
	Feedback  string `json:"feedback,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Observer receives slot events. It may be called from several goroutines.
type Observer func(SlotEvent)

type options struct {
	maxConcurrency int
	observer       Observer
}

type Option func(*options)

// WithConcurrency bounds the number of slots in flight. 1 runs slots one by one.
func WithConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// Synthesizer is the ContentSynthesizer.
type Synthesizer struct {
	gen     ai.Generator
	cfg     config.GenerationConfig
	prompts *promptbuild.Builder
}

func NewSynthesizer(gen ai.Generator, cfg config.GenerationConfig, prompts *promptbuild.Builder) *Synthesizer {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Synthesizer{gen: gen, cfg: cfg, prompts: prompts}
}

// MaxAttempts is the call limit of a single slot.
func (s *Synthesizer) MaxAttempts() int {
	return 1 + s.cfg.MaxRetries
}

// Synthesize generates every slot and returns them in declaration order.
// A slot with unusable bounds is rejected alone; its siblings still run.
// If ctx is canceled the partial results are discarded and ctx.Err() is
// returned.
func (s *Synthesizer) Synthesize(ctx context.Context, slots []variant.SlotSpec, p plan.StructurePlan, budget layout.SpaceBudget, shared SharedContext, opts ...Option) ([]GeneratedSlot, error) {
	o := options{maxConcurrency: s.cfg.MaxConcurrency}
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]GeneratedSlot, len(slots))

	var workersWg sync.WaitGroup
	var throttle chan struct{}
	if o.maxConcurrency > 0 {
		throttle = make(chan struct{}, o.maxConcurrency)
	}

	for i, slot := range slots {
		bounds, warning, err := ResolveBounds(slot, budget)
		if err != nil {
			logger.Error("[Synth] rejecting slot %s: %v", slot.ID, err)
			results[i] = GeneratedSlot{SlotID: slot.ID, Kind: slot.Kind, Bounds: bounds, State: StateRejected, Err: err}
			o.emit(SlotEvent{SlotID: slot.ID, State: StateRejected, Error: err.Error()})
			continue
		}
		if warning != "" {
			logger.Warn("[Synth] %s", warning)
		}

		if throttle != nil {
			select {
			case throttle <- struct{}{}:
			case <-ctx.Done():
				workersWg.Wait()
				return nil, ctx.Err()
			}
		}

		workersWg.Add(1)
		go func(i int, slot variant.SlotSpec, bounds variant.CharBounds, warning string) {
			defer workersWg.Done()
			if throttle != nil {
				defer func() { <-throttle }()
			}
			res := s.runSlot(ctx, slot, bounds, p, shared, o)
			if res.Warning == "" {
				res.Warning = warning
			} else if warning != "" {
				res.Warning = warning + "; " + res.Warning
			}
			results[i] = res
		}(i, slot, bounds, warning)
	}

	workersWg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn("[Synth] request canceled, discarding %d slots", len(slots))
		return nil, err
	}
	return results, nil
}

// runSlot is the per-slot state machine: Pending until a reply fits the
// bounds (Validated) or the attempts run out (Exhausted).
func (s *Synthesizer) runSlot(ctx context.Context, slot variant.SlotSpec, bounds variant.CharBounds, p plan.StructurePlan, shared SharedContext, o options) GeneratedSlot {
	out := GeneratedSlot{SlotID: slot.ID, Kind: slot.Kind, Bounds: bounds, State: StatePending}
	maxAttempts := s.MaxAttempts()

	var feedback string
	var lastErr error
	haveText := false

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			out.Err = ctx.Err()
			return out
		}

		prompt := BuildPrompt(SlotPromptContext{
			Slot:     slot,
			Bounds:   bounds,
			Plan:     p,
			Shared:   shared,
			Attempt:  attempt,
			Previous: out.Text,
			Feedback: feedback,
		})
		if err := s.prompts.Record(promptbuild.Entry{
			Stage:     "content",
			Key:       slot.ID,
			Attempt:   attempt,
			System:    prompt.System,
			User:      prompt.User,
			RequestID: shared.RequestID,
		}); err != nil {
			logger.Warn("[Synth] prompt audit failed: %v", err)
		}

		text, err := ai.GenerateWithTimeout(ctx, s.gen, s.cfg.CallTimeout, prompt, ai.Constraints{
			Temperature: s.cfg.ContentTemperature,
			MaxTokens:   s.cfg.MaxTokens,
			TargetChars: target(bounds),
		})
		out.Attempts = attempt
		if err != nil {
			if ctx.Err() != nil {
				out.Err = ctx.Err()
				return out
			}
			lastErr = err
			logger.Warn("[Synth] slot %s attempt %d/%d failed: %v", slot.ID, attempt, maxAttempts, err)
			o.emit(SlotEvent{SlotID: slot.ID, Attempt: attempt, State: StatePending, Error: err.Error()})
			continue
		}

		text = strings.TrimSpace(text)
		n := CountChars(text)
		out.Text, out.CharCount = text, n
		haveText = true

		if bounds.Contains(n) {
			out.WithinBounds = true
			out.State = StateValidated
			logger.Debug("[Synth] slot %s validated: %d chars in [%d, %d] after %d attempt(s)", slot.ID, n, bounds.Min, bounds.Max, attempt)
			o.emit(SlotEvent{SlotID: slot.ID, Attempt: attempt, CharCount: n, State: StateValidated})
			return out
		}

		feedback = Feedback(n, bounds)
		logger.Debug("[Synth] slot %s attempt %d/%d: %d chars, %s", slot.ID, attempt, maxAttempts, n, feedback)
		o.emit(SlotEvent{SlotID: slot.ID, Attempt: attempt, CharCount: n, State: StatePending, Feedback: feedback})
	}

	out.State = StateExhausted
	if haveText {
		out.Warning = fmt.Sprintf("slot %s: %d characters outside [%d, %d] after %d attempts", slot.ID, out.CharCount, bounds.Min, bounds.Max, out.Attempts)
	} else {
		out.Warning = fmt.Sprintf("slot %s: no text generated after %d attempts: %v", slot.ID, out.Attempts, lastErr)
	}
	logger.Warn("[Synth] %s", out.Warning)
	o.emit(SlotEvent{SlotID: slot.ID, Attempt: out.Attempts, CharCount: out.CharCount, State: StateExhausted})
	return out
}

func (o options) emit(ev SlotEvent) {
	if o.observer != nil {
		o.observer(ev)
	}
}
