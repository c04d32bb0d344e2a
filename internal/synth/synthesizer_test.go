package synth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kayz/slidefit/internal/ai"
	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/plan"
	"github.com/kayz/slidefit/internal/variant"
)

// funcGenerator answers with reply(slotID, attempt) and records every call.
type funcGenerator struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string
	reply   func(ctx context.Context, slotID string, attempt int) (string, error)
}

func newFuncGenerator(reply func(ctx context.Context, slotID string, attempt int) (string, error)) *funcGenerator {
	return &funcGenerator{calls: map[string]int{}, prompts: map[string][]string{}, reply: reply}
}

func (g *funcGenerator) Generate(ctx context.Context, p ai.Prompt, _ ai.Constraints) (string, error) {
	id := slotIDFromPrompt(p.User)
	g.mu.Lock()
	g.calls[id]++
	attempt := g.calls[id]
	g.prompts[id] = append(g.prompts[id], p.User)
	g.mu.Unlock()
	return g.reply(ctx, id, attempt)
}

func (g *funcGenerator) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func slotIDFromPrompt(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "- id: ") {
			return strings.TrimPrefix(line, "- id: ")
		}
	}
	return ""
}

func chars(n int) string {
	return strings.Repeat("x", n)
}

func testSynthesizer(gen ai.Generator) *Synthesizer {
	cfg := config.DefaultConfig().Generation
	cfg.CallTimeout = 30 * time.Millisecond
	return NewSynthesizer(gen, cfg, nil)
}

func fixedSlot(id string, baseline, min, max int) variant.SlotSpec {
	return variant.SlotSpec{
		ID:      id,
		Kind:    variant.KindHeading,
		Purpose: "slide title",
		Bounds:  variant.CharBounds{Baseline: baseline, Min: min, Max: max},
	}
}

var testPlan = plan.StructurePlan{
	LayoutShape: plan.SingleColumn,
	Sections:    []plan.Section{{TitleHint: "Overview", PointCount: 3}},
	Pattern:     plan.PatternStandard,
}

func TestTitleWithinBoundsPassesFirstAttempt(t *testing.T) {
	gen := newFuncGenerator(func(_ context.Context, id string, _ int) (string, error) {
		return "  " + chars(31) + "\n", nil
	})
	slots := []variant.SlotSpec{
		fixedSlot("title", 30, 27, 32),
		fixedSlot("subtitle", 30, 27, 32),
		fixedSlot("left_title", 30, 27, 32),
		fixedSlot("right_title", 30, 27, 32),
	}

	got, err := testSynthesizer(gen).Synthesize(context.Background(), slots, testPlan, layout.SpaceBudget{}, SharedContext{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	for _, s := range got {
		if s.Attempts != 1 || !s.WithinBounds || s.CharCount != 31 || s.State != StateValidated {
			t.Fatalf("unexpected slot result: %#v", s)
		}
		if s.CharCount < s.Bounds.Min || s.CharCount > s.Bounds.Max {
			t.Fatalf("validated slot outside its bounds: %#v", s)
		}
	}
	if gen.total() != 4 {
		t.Fatalf("expected 4 calls, got %d", gen.total())
	}
}

func TestShortTextExhaustsRetries(t *testing.T) {
	gen := newFuncGenerator(func(_ context.Context, _ string, _ int) (string, error) {
		return chars(10), nil
	})
	slots := []variant.SlotSpec{fixedSlot("body", 110, 100, 120)}

	got, err := testSynthesizer(gen).Synthesize(context.Background(), slots, testPlan, layout.SpaceBudget{}, SharedContext{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	s := got[0]
	if s.WithinBounds || s.State != StateExhausted || s.Attempts != 3 || s.CharCount != 10 {
		t.Fatalf("unexpected slot result: %#v", s)
	}
	if s.Text != chars(10) || s.Warning == "" || s.Err != nil {
		t.Fatalf("last attempt should be kept with a warning: %#v", s)
	}
	if gen.calls["body"] != 3 {
		t.Fatalf("expected 1+max_retries=3 calls, got %d", gen.calls["body"])
	}
	retry := gen.prompts["body"][1]
	if !strings.Contains(retry, "too short by 90 characters, add detail") {
		t.Fatalf("retry prompt lacks corrective feedback:\n%s", retry)
	}
	if strings.Contains(gen.prompts["body"][0], "### Correction") {
		t.Fatalf("first prompt must not carry feedback")
	}
}

func TestLongTextFeedbackThenSuccess(t *testing.T) {
	gen := newFuncGenerator(func(_ context.Context, _ string, attempt int) (string, error) {
		if attempt == 1 {
			return chars(40), nil
		}
		return chars(30), nil
	})
	got, err := testSynthesizer(gen).Synthesize(context.Background(), []variant.SlotSpec{fixedSlot("title", 30, 27, 32)}, testPlan, layout.SpaceBudget{}, SharedContext{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got[0].Attempts != 2 || !got[0].WithinBounds || !got[0].Retried() {
		t.Fatalf("unexpected slot result: %#v", got[0])
	}
	if !strings.Contains(gen.prompts["title"][1], "too long by 8 characters, be concise") {
		t.Fatalf("retry prompt lacks corrective feedback:\n%s", gen.prompts["title"][1])
	}
}

func TestRetryBoundOnTransportFailures(t *testing.T) {
	for _, retries := range []int{0, 1, 2, 4} {
		gen := newFuncGenerator(func(_ context.Context, _ string, _ int) (string, error) {
			return "", &ai.TransientError{Provider: "test", Err: errors.New("503")}
		})
		cfg := config.DefaultConfig().Generation
		cfg.MaxRetries = retries
		s := NewSynthesizer(gen, cfg, nil)

		got, err := s.Synthesize(context.Background(), []variant.SlotSpec{fixedSlot("title", 30, 27, 32)}, testPlan, layout.SpaceBudget{}, SharedContext{})
		if err != nil {
			t.Fatalf("synthesize: %v", err)
		}
		if gen.calls["title"] != 1+retries {
			t.Fatalf("max_retries=%d: expected %d calls, got %d", retries, 1+retries, gen.calls["title"])
		}
		if got[0].Text != "" || got[0].WithinBounds || got[0].Warning == "" {
			t.Fatalf("unexpected slot result: %#v", got[0])
		}
	}
}

func TestTimeoutConsumesAttempt(t *testing.T) {
	gen := newFuncGenerator(func(ctx context.Context, _ string, attempt int) (string, error) {
		if attempt == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return chars(30), nil
	})
	got, err := testSynthesizer(gen).Synthesize(context.Background(), []variant.SlotSpec{fixedSlot("title", 30, 27, 32)}, testPlan, layout.SpaceBudget{}, SharedContext{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got[0].Attempts != 2 || !got[0].WithinBounds {
		t.Fatalf("timeout should consume one attempt: %#v", got[0])
	}
}

func TestMinAboveMaxRejectsOnlyThatSlot(t *testing.T) {
	gen := newFuncGenerator(func(_ context.Context, _ string, _ int) (string, error) {
		return chars(30), nil
	})
	slots := []variant.SlotSpec{fixedSlot("bad", 30, 40, 20), fixedSlot("good", 30, 27, 32)}

	got, err := testSynthesizer(gen).Synthesize(context.Background(), slots, testPlan, layout.SpaceBudget{}, SharedContext{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	var cfgErr *SlotConfigError
	if got[0].State != StateRejected || !errors.As(got[0].Err, &cfgErr) {
		t.Fatalf("expected rejected slot, got %#v", got[0])
	}
	if gen.calls["bad"] != 0 {
		t.Fatalf("rejected slot must not call the generator")
	}
	if !got[1].WithinBounds {
		t.Fatalf("sibling slot should still be generated: %#v", got[1])
	}
}

func TestResultsFollowDeclarationOrder(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	delay := map[string]time.Duration{"a": 25 * time.Millisecond, "b": 20 * time.Millisecond, "c": 15 * time.Millisecond, "d": 5 * time.Millisecond, "e": 0}
	gen := newFuncGenerator(func(_ context.Context, id string, _ int) (string, error) {
		time.Sleep(delay[id])
		return chars(30), nil
	})
	var slots []variant.SlotSpec
	for _, id := range ids {
		slots = append(slots, fixedSlot(id, 30, 27, 32))
	}
	cfg := config.DefaultConfig().Generation
	cfg.CallTimeout = time.Second
	got, err := NewSynthesizer(gen, cfg, nil).Synthesize(context.Background(), slots, testPlan, layout.SpaceBudget{}, SharedContext{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	for i, id := range ids {
		if got[i].SlotID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].SlotID, id)
		}
	}
}

func TestConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	gen := newFuncGenerator(func(_ context.Context, _ string, _ int) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return chars(30), nil
	})
	var slots []variant.SlotSpec
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		slots = append(slots, fixedSlot(id, 30, 27, 32))
	}
	cfg := config.DefaultConfig().Generation
	cfg.CallTimeout = time.Second

	var events int32
	_, err := NewSynthesizer(gen, cfg, nil).Synthesize(context.Background(), slots, testPlan, layout.SpaceBudget{}, SharedContext{},
		WithConcurrency(2),
		WithObserver(func(SlotEvent) { atomic.AddInt32(&events, 1) }))
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if peak > 2 {
		t.Fatalf("expected at most 2 slots in flight, saw %d", peak)
	}
	if events != 6 {
		t.Fatalf("expected one event per slot, got %d", events)
	}
}

func TestCancellationDiscardsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := newFuncGenerator(func(ctx context.Context, id string, _ int) (string, error) {
		if id == "a" {
			cancel()
		}
		<-ctx.Done()
		return "", ctx.Err()
	})
	cfg := config.DefaultConfig().Generation
	cfg.CallTimeout = time.Second
	got, err := NewSynthesizer(gen, cfg, nil).Synthesize(ctx, []variant.SlotSpec{fixedSlot("a", 30, 27, 32), fixedSlot("b", 30, 27, 32)}, testPlan, layout.SpaceBudget{}, SharedContext{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if got != nil {
		t.Fatalf("partial results must be discarded")
	}
	if gen.total() > 2 {
		t.Fatalf("canceled slots must not retry, got %d calls", gen.total())
	}
}

func TestResolveBounds(t *testing.T) {
	budget := layout.SpaceBudget{
		HeadingChars:    71,
		SubheadingChars: 123,
		Sections: []layout.SectionBudget{
			{Index: 0, TitleChars: 71, BodyLines: 30, CharsPerLine: 94, PointCharLimit: 188},
		},
	}

	b, warning, err := ResolveBounds(variant.SlotSpec{ID: "point", Kind: variant.KindListItem}, budget)
	if err != nil || warning != "" {
		t.Fatalf("resolve: %v %q", err, warning)
	}
	if b.Max > 188 || b.Min <= 0 || b.Min > b.Max {
		t.Fatalf("derived bounds %#v should fit inside 188 chars", b)
	}

	_, warning, err = ResolveBounds(fixedSlot("title", 90, 0, 0), budget)
	if err != nil || warning == "" {
		t.Fatalf("expected overflow warning, got %q, %v", warning, err)
	}

	_, _, err = ResolveBounds(variant.SlotSpec{ID: "empty", Kind: variant.KindHeading}, layout.SpaceBudget{})
	var cfgErr *SlotConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected SlotConfigError for a slot with no space, got %v", err)
	}
}

func TestFeedback(t *testing.T) {
	b := variant.CharBounds{Baseline: 30, Min: 27, Max: 32}
	tests := []struct {
		n    int
		want string
	}{
		{20, "too short by 7 characters, add detail"},
		{27, ""},
		{32, ""},
		{40, "too long by 8 characters, be concise"},
	}
	for _, tc := range tests {
		if got := Feedback(tc.n, b); got != tc.want {
			t.Fatalf("Feedback(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
	if CountChars("  héllo wörld \n") != 11 {
		t.Fatalf("char count should use runes of trimmed text")
	}
}
