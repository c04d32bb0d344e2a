package structure

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kayz/slidefit/internal/ai"
	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/plan"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	block   bool
	calls   int
	prompts []ai.Prompt
	cons    []ai.Constraints
}

func (g *scriptedGenerator) Generate(ctx context.Context, p ai.Prompt, c ai.Constraints) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, p)
	g.cons = append(g.cons, c)
	idx := g.calls - 1
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if g.err != nil {
		return "", g.err
	}
	if idx >= len(g.replies) {
		idx = len(g.replies) - 1
	}
	return g.replies[idx], nil
}

func newTestAnalyzer(gen ai.Generator) *Analyzer {
	cfg := config.DefaultConfig().Generation
	cfg.CallTimeout = 50 * time.Millisecond
	return NewAnalyzer(gen, cfg, config.DefaultLayout(), nil)
}

func TestSmallContainerForcesSingleColumn(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{`{"layout_shape":"two-column","sections":[{"title_hint":"A","point_count":3},{"title_hint":"B","point_count":3},{"title_hint":"C","point_count":3}],"structure_pattern":"standard"}`}}
	a := newTestAnalyzer(gen)

	p, err := a.Analyze(context.Background(), Input{
		Narrative: "Quarterly results",
		Topics:    []string{"revenue", "costs", "hiring", "outlook"},
		Container: layout.Container{Width: 10, Height: 10, Unit: layout.UnitGrids},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if p.LayoutShape != plan.SingleColumn {
		t.Fatalf("expected single-column for a small container, got %s", p.LayoutShape)
	}
	if len(p.Sections) > 2 {
		t.Fatalf("single column allows at most 2 sections, got %d", len(p.Sections))
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one generation call, got %d", gen.calls)
	}
	if gen.cons[0].Temperature != config.DefaultConfig().Generation.StructureTemperature || !gen.cons[0].JSON {
		t.Fatalf("unexpected constraints: %#v", gen.cons[0])
	}
	if !strings.Contains(gen.prompts[0].User, "at most 1 column(s)") {
		t.Fatalf("prompt should carry the column limit:\n%s", gen.prompts[0].User)
	}
}

func TestAnalyzeClampsPointsToEffectiveCap(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"Here is the plan:\n```json\n" +
		`{"layout_shape":"two-column","sections":[{"title_hint":"Now","point_count":9},{"title_hint":"Next","point_count":0}],"structure_pattern":"comparison","include_cta":true}` +
		"\n```"}}
	a := newTestAnalyzer(gen)

	p, err := a.Analyze(context.Background(), Input{
		Topics:    []string{"now", "next"},
		Container: layout.Container{Width: 1280, Height: 720},
		Signals:   Signals{Audience: "academic", Purpose: "compare", TimeMinutes: 10},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if p.LayoutShape != plan.TwoColumn || p.Pattern != plan.PatternComparison || !p.IncludeCTA {
		t.Fatalf("unexpected plan: %#v", p)
	}
	// academic allows 7 but 10 minutes caps at 4
	if p.Sections[0].PointCount != 4 || p.Sections[1].PointCount != 1 {
		t.Fatalf("unexpected point counts: %#v", p.Sections)
	}
	if p.VocabularyLevel != "technical" {
		t.Fatalf("expected vocabulary from audience, got %q", p.VocabularyLevel)
	}
}

func TestShortTalkCapsTotalPoints(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{`{"layout_shape":"two-column","sections":[` +
		`{"title_hint":"A","point_count":2},{"title_hint":"B","point_count":2},` +
		`{"title_hint":"C","point_count":2},{"title_hint":"D","point_count":2}],"structure_pattern":"standard"}`}}
	a := newTestAnalyzer(gen)

	p, err := a.Analyze(context.Background(), Input{
		Topics:    []string{"a", "b", "c", "d"},
		Container: layout.Container{Width: 1920, Height: 1080},
		Signals:   Signals{Audience: "general", TimeMinutes: 5},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got := p.TotalPoints(); got > 3 {
		t.Fatalf("a five minute talk allows at most 3 points, got %d: %#v", got, p.Sections)
	}
	if len(p.Sections) != 3 || p.Sections[0].TitleHint != "A" {
		t.Fatalf("expected the leading sections to survive: %#v", p.Sections)
	}
	for _, s := range p.Sections {
		if s.PointCount != 1 {
			t.Fatalf("expected headline points only: %#v", p.Sections)
		}
	}
	if !strings.Contains(gen.prompts[0].User, "at most 3 points in total") {
		t.Fatalf("prompt should carry the total cap:\n%s", gen.prompts[0].User)
	}
}

func TestEnforceTotalCap(t *testing.T) {
	h := Hints{MaxColumns: 2, SuggestedLayout: plan.TwoColumn, PointCap: 5}
	tests := []struct {
		name     string
		total    int
		points   []int
		expected []int
	}{
		{"unbounded", 0, []int{5, 5, 5}, []int{5, 5, 5}},
		{"fits", 8, []int{3, 2}, []int{3, 2}},
		{"largest gives first", 6, []int{5, 2, 1}, []int{3, 2, 1}},
		{"ties give from the end", 4, []int{3, 3}, []int{2, 2}},
		{"sections dropped", 2, []int{1, 1, 1, 1}, []int{1, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := RawPlan{LayoutShape: "two-column"}
			for _, n := range tc.points {
				raw.Sections = append(raw.Sections, plan.Section{TitleHint: "s", PointCount: n})
			}
			h.TotalCap = tc.total
			p, err := Enforce(raw, h)
			if err != nil {
				t.Fatalf("enforce: %v", err)
			}
			if len(p.Sections) != len(tc.expected) {
				t.Fatalf("expected %d sections, got %#v", len(tc.expected), p.Sections)
			}
			for i, n := range tc.expected {
				if p.Sections[i].PointCount != n {
					t.Fatalf("section %d: expected %d points, got %d", i, n, p.Sections[i].PointCount)
				}
			}
		})
	}
}

func TestAnalyzeMalformedReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no json", "I think two columns would be nice."},
		{"bad json", `{"layout_shape": "two-column", "sections": [}`},
		{"no sections", `{"layout_shape":"single-column","sections":[]}`},
		{"unknown layout", `{"layout_shape":"diagonal","sections":[{"title_hint":"A","point_count":2}]}`},
		{"unknown pattern", `{"layout_shape":"single-column","sections":[{"title_hint":"A","point_count":2}],"structure_pattern":"haiku"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &scriptedGenerator{replies: []string{tc.reply}}
			_, err := newTestAnalyzer(gen).Analyze(context.Background(), Input{
				Container: layout.Container{Width: 1920, Height: 1080},
			})
			var malformed *MalformedPlanError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedPlanError, got %v", err)
			}
			if gen.calls != 1 {
				t.Fatalf("malformed replies must not be retried, got %d calls", gen.calls)
			}
		})
	}
}

func TestAnalyzeTimeoutIsFatal(t *testing.T) {
	gen := &scriptedGenerator{block: true}
	_, err := newTestAnalyzer(gen).Analyze(context.Background(), Input{
		Container: layout.Container{Width: 1920, Height: 1080},
	})
	if !ai.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected one call, got %d", gen.calls)
	}
}

func TestAnalyzeRejectsInvalidContainerWithoutCalling(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"{}"}}
	_, err := newTestAnalyzer(gen).Analyze(context.Background(), Input{
		Container: layout.Container{Width: -1, Height: 10},
	})
	var invalid *layout.InvalidContainerError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidContainerError, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generation calls, got %d", gen.calls)
	}
}

func TestDeriveHints(t *testing.T) {
	cfg := config.DefaultLayout()
	tests := []struct {
		name      string
		container layout.Container
		topics    int
		signals   Signals
		layout    plan.LayoutShape
		pattern   plan.Pattern
		pointCap  int
		totalCap  int
		depth     Depth
	}{
		{"small", layout.Container{Width: 800, Height: 600}, 4, Signals{}, plan.SingleColumn, plan.PatternStandard, 5, 0, DepthStandard},
		{"medium many topics", layout.Container{Width: 1280, Height: 720}, 3, Signals{Audience: "executive"}, plan.TwoColumn, plan.PatternStandard, 4, 0, DepthStandard},
		{"medium few topics", layout.Container{Width: 1280, Height: 720}, 2, Signals{}, plan.SingleColumn, plan.PatternStandard, 5, 0, DepthStandard},
		{"large compare", layout.Container{Width: 1920, Height: 1080}, 3, Signals{Purpose: "compare", TimeMinutes: 60}, plan.ThreeColumn, plan.PatternComparison, 5, 24, DepthDetailed},
		{"short talk", layout.Container{Width: 1920, Height: 1080}, 1, Signals{Audience: "academic", Purpose: "persuade", TimeMinutes: 5}, plan.SingleColumn, plan.PatternProblemSolution, 2, 3, DepthHeadline},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, err := DeriveHints(tc.container, tc.topics, tc.signals, cfg)
			if err != nil {
				t.Fatalf("derive: %v", err)
			}
			if h.SuggestedLayout != tc.layout || h.Pattern != tc.pattern || h.PointCap != tc.pointCap || h.Depth != tc.depth {
				t.Fatalf("got layout=%s pattern=%s cap=%d depth=%s", h.SuggestedLayout, h.Pattern, h.PointCap, h.Depth)
			}
			if h.TotalCap != tc.totalCap {
				t.Fatalf("expected total cap %d, got %d", tc.totalCap, h.TotalCap)
			}
		})
	}
}

func TestBuildPromptIsPure(t *testing.T) {
	pc := PromptContext{
		Narrative: "Launch plan",
		Topics:    []string{"scope", "dates"},
		Signals:   Signals{Audience: "general", Purpose: "inform", TimeMinutes: 20},
		Hints:     Hints{SizeCategory: layout.SizeLarge, WidthPx: 1920, MaxColumns: 3, PointCap: 5, Pattern: plan.PatternStandard},
	}
	first := BuildPrompt(pc)
	if second := BuildPrompt(pc); first != second {
		t.Fatalf("prompt differs between calls")
	}
	for _, want := range []string{"### Narrative", "1. scope", "2. dates", "20 minutes", "at most 5 points per section"} {
		if !strings.Contains(first.User, want) {
			t.Fatalf("prompt missing %q:\n%s", want, first.User)
		}
	}
}
