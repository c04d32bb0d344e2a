package synth

import (
	"fmt"
	"strings"

	"github.com/kayz/slidefit/internal/ai"
	"github.com/kayz/slidefit/internal/plan"
	"github.com/kayz/slidefit/internal/promptbuild"
	"github.com/kayz/slidefit/internal/variant"
)

// SharedContext is fixed for the whole request and read by every slot.
type SharedContext struct {
	RequestID   string
	Title       string
	KeyMessage  string
	Narrative   string
	Audience    string
	Purpose     string
	TimeMinutes int
	Tone        string
	// Style is theme-derived writing guidance.
	Style string
}

// SlotPromptContext is the typed input of one slot prompt.
type SlotPromptContext struct {
	Slot     variant.SlotSpec
	Bounds   variant.CharBounds
	Plan     plan.StructurePlan
	Shared   SharedContext
	Attempt  int
	Previous string
	Feedback string
}

const slotSystemPrompt = "You write text for one slot of a presentation slide. " +
	"Reply with the slot text only: no quotes, no labels, no explanations."

// BuildPrompt renders a slot prompt. It has no side effects.
func BuildPrompt(pc SlotPromptContext) ai.Prompt {
	s := pc.Shared
	slot := pc.Slot

	var sectionHint string
	if slot.Section >= 0 && slot.Section < len(pc.Plan.Sections) {
		sec := pc.Plan.Sections[slot.Section]
		sectionHint = fmt.Sprintf("section %d of %d: %s (%d points)", slot.Section+1, len(pc.Plan.Sections), sec.TitleHint, sec.PointCount)
	}

	format := "plain text"
	if slot.Format == variant.FormatMarkdown {
		format = "inline markdown (bold and italics only)"
	}

	sections := []promptbuild.Section{
		{Title: "Slide", Content: promptbuild.Lines(
			labeled("title", s.Title),
			labeled("key message", s.KeyMessage),
			labeled("narrative", s.Narrative),
			labeled("structure", string(pc.Plan.Pattern)),
		)},
		{Title: "Slot", Content: promptbuild.Lines(
			labeled("id", slot.ID),
			labeled("kind", string(slot.Kind)),
			labeled("purpose", slot.Purpose),
			sectionHint,
			labeled("format", format),
		)},
		{Title: "Tone", Content: promptbuild.Lines(
			labeled("audience", s.Audience),
			labeled("purpose", s.Purpose),
			minutes(s.TimeMinutes),
			labeled("tone", s.Tone),
			labeled("vocabulary", pc.Plan.VocabularyLevel),
			labeled("style", s.Style),
		)},
		{Title: "Length", Content: promptbuild.Lines(
			fmt.Sprintf("between %d and %d characters, ideally %d", pc.Bounds.Min, pc.Bounds.Max, target(pc.Bounds)),
			"characters are counted after trimming surrounding whitespace",
		)},
	}
	if pc.Feedback != "" {
		sections = append(sections, promptbuild.Section{Title: "Correction", Content: promptbuild.Lines(
			fmt.Sprintf("attempt %d: your previous reply was %s", pc.Attempt-1, pc.Feedback),
			labeled("previous reply", pc.Previous),
		)})
	}

	return ai.Prompt{System: slotSystemPrompt, User: promptbuild.Render(sections...)}
}

func target(b variant.CharBounds) int {
	if b.Baseline >= b.Min && b.Baseline <= b.Max && b.Baseline > 0 {
		return b.Baseline
	}
	return (b.Min + b.Max) / 2
}

func labeled(label, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func minutes(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("time: %d minutes", n)
}
