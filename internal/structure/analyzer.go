// Package structure decides the layout shape of a slide with one call to the
// generative service, then enforces the deterministic limits on the reply.
package structure

import (
	"context"
	"fmt"
	"strings"

	"github.com/kayz/slidefit/internal/ai"
	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/plan"
	"github.com/kayz/slidefit/internal/promptbuild"
)

// Input is everything the analyzer looks at.
type Input struct {
	Narrative string
	Topics    []string
	Container layout.Container
	Signals   Signals
	RequestID string
}

// Analyzer is the StructureAnalyzer.
type Analyzer struct {
	gen     ai.Generator
	cfg     config.GenerationConfig
	layout  config.LayoutConfig
	prompts *promptbuild.Builder
}

func NewAnalyzer(gen ai.Generator, cfg config.GenerationConfig, layoutCfg config.LayoutConfig, prompts *promptbuild.Builder) *Analyzer {
	return &Analyzer{gen: gen, cfg: cfg, layout: layoutCfg, prompts: prompts}
}

// Analyze issues exactly one generation call. Timeouts and service errors
// are returned unchanged and are not retried here.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (plan.StructurePlan, error) {
	hints, err := DeriveHints(in.Container, len(in.Topics), in.Signals, a.layout)
	if err != nil {
		return plan.StructurePlan{}, err
	}

	prompt := BuildPrompt(PromptContext{
		Narrative: in.Narrative,
		Topics:    in.Topics,
		Signals:   in.Signals,
		Hints:     hints,
	})
	if err := a.prompts.Record(promptbuild.Entry{
		Stage:     "structure",
		Key:       "plan",
		Attempt:   1,
		System:    prompt.System,
		User:      prompt.User,
		RequestID: in.RequestID,
	}); err != nil {
		logger.Warn("[Structure] prompt audit failed: %v", err)
	}

	logger.Debug("[Structure] size=%s width=%.0fpx topics=%d cap=%d pattern=%s",
		hints.SizeCategory, hints.WidthPx, hints.TopicCount, hints.PointCap, hints.Pattern)

	reply, err := ai.GenerateWithTimeout(ctx, a.gen, a.cfg.CallTimeout, prompt, ai.Constraints{
		Temperature: a.cfg.StructureTemperature,
		MaxTokens:   a.cfg.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return plan.StructurePlan{}, fmt.Errorf("structure analysis: %w", err)
	}

	raw, err := ParseReply(reply)
	if err != nil {
		return plan.StructurePlan{}, err
	}
	p, err := Enforce(raw, hints)
	if err != nil {
		return plan.StructurePlan{}, err
	}
	logger.Info("[Structure] plan: %s, %d sections, pattern %s", p.LayoutShape, len(p.Sections), p.Pattern)
	return p, nil
}

// PromptContext is the typed input of the planning prompt.
type PromptContext struct {
	Narrative string
	Topics    []string
	Signals   Signals
	Hints     Hints
}

const planSystemPrompt = "You plan the structure of a single presentation slide. Reply with one JSON object and nothing else."

const planReplyFormat = `{"layout_shape": "single-column|two-column|three-column",
 "sections": [{"title_hint": "short label", "point_count": 3}],
 "structure_pattern": "standard|comparison|problem-solution|process|narrative",
 "include_cta": false,
 "vocabulary_level": "general"}`

// BuildPrompt renders the planning prompt. It has no side effects.
func BuildPrompt(pc PromptContext) ai.Prompt {
	h := pc.Hints
	var topics []string
	for i, t := range pc.Topics {
		topics = append(topics, fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(t)))
	}

	audience := pc.Signals.Audience
	if audience == "" {
		audience = "general"
	}
	timeLine := "presentation time: unspecified"
	if pc.Signals.TimeMinutes > 0 {
		timeLine = fmt.Sprintf("presentation time: %d minutes (%s depth)", pc.Signals.TimeMinutes, h.Depth)
	}
	totalLine := ""
	if h.TotalCap > 0 {
		totalLine = fmt.Sprintf("at most %d points in total", h.TotalCap)
	}

	user := promptbuild.Render(
		promptbuild.Section{Title: "Narrative", Content: pc.Narrative},
		promptbuild.Section{Title: "Topics", Content: strings.Join(topics, "\n")},
		promptbuild.Section{Title: "Audience and purpose", Content: promptbuild.Lines(
			"audience: "+audience,
			"purpose: "+orDefault(pc.Signals.Purpose, "inform"),
			timeLine,
		)},
		promptbuild.Section{Title: "Constraints", Content: promptbuild.Lines(
			fmt.Sprintf("container is %s (%.0fpx wide): at most %d column(s)", h.SizeCategory, h.WidthPx, h.MaxColumns),
			fmt.Sprintf("topic count: %d, suggested layout: %s", h.TopicCount, h.SuggestedLayout),
			fmt.Sprintf("at most %d points per section", h.PointCap),
			totalLine,
			fmt.Sprintf("at most %d sections", maxSections(h.MaxColumns)),
			fmt.Sprintf("preferred structure pattern: %s", h.Pattern),
			fmt.Sprintf("vocabulary level: %s", h.Vocabulary),
		)},
		promptbuild.Section{Title: "Reply format", Content: planReplyFormat},
	)
	return ai.Prompt{System: planSystemPrompt, User: user}
}

func maxSections(columns int) int {
	if columns < 1 {
		columns = 1
	}
	return columns * 2
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
