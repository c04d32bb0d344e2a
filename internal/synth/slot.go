package synth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/variant"
)

// State is where a slot sits in its retry loop.
type State string

const (
	StatePending   State = "pending"
	StateValidated State = "validated"
	StateExhausted State = "exhausted"
	StateRejected  State = "rejected"
)

// GeneratedSlot is the final content of one slot.
type GeneratedSlot struct {
	SlotID       string             `json:"slot_id"`
	Kind         variant.SlotKind   `json:"slot_kind"`
	Text         string             `json:"text"`
	CharCount    int                `json:"char_count"`
	Attempts     int                `json:"attempts"`
	WithinBounds bool               `json:"within_bounds"`
	Bounds       variant.CharBounds `json:"char_bounds"`
	State        State              `json:"state"`
	Warning      string             `json:"warning,omitempty"`
	Err          error              `json:"-"`
}

// Retried reports whether the slot needed more than one call.
func (g GeneratedSlot) Retried() bool {
	return g.Attempts > 1
}

// SlotConfigError rejects a slot whose bounds cannot be satisfied.
type SlotConfigError struct {
	SlotID string
	Bounds variant.CharBounds
	Reason string
}

func (e *SlotConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("slot %s: %s", e.SlotID, e.Reason)
	}
	return fmt.Sprintf("slot %s: min %d exceeds max %d", e.SlotID, e.Bounds.Min, e.Bounds.Max)
}

// CountChars is the character count used for every bound check.
func CountChars(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// Feedback is the corrective instruction sent on a retry, or "" when n fits.
func Feedback(n int, b variant.CharBounds) string {
	switch {
	case n < b.Min:
		return fmt.Sprintf("too short by %d characters, add detail", b.Min-n)
	case n > b.Max:
		return fmt.Sprintf("too long by %d characters, be concise", n-b.Max)
	default:
		return ""
	}
}

// BudgetChars is the space budget available to a slot of the given kind.
func BudgetChars(slot variant.SlotSpec, budget layout.SpaceBudget) int {
	section := budget.Section(slot.Section)
	switch slot.Kind {
	case variant.KindHeading:
		return budget.HeadingChars
	case variant.KindSubheading:
		return budget.SubheadingChars
	case variant.KindSectionTitle:
		return section.TitleChars
	case variant.KindListItem:
		return section.PointCharLimit
	case variant.KindCTA:
		if budget.CTAChars > 0 {
			return budget.CTAChars
		}
		return budget.SubheadingChars
	case variant.KindCaption:
		return section.CharsPerLine
	default:
		return section.BodyChars()
	}
}

// ResolveBounds returns the effective bounds of a slot. Slots without a
// baseline take it from the space budget. A registry baseline larger than
// the budget is kept and reported as a warning.
func ResolveBounds(slot variant.SlotSpec, budget layout.SpaceBudget) (variant.CharBounds, string, error) {
	available := BudgetChars(slot, budget)

	if slot.Bounds.Dynamic() {
		if available <= 0 {
			return variant.CharBounds{}, "", &SlotConfigError{SlotID: slot.ID, Reason: "no space left in the container"}
		}
		// keep the upper band inside the container
		baseline := available * 100 / (100 + variant.TolerancePercent)
		if baseline < 1 {
			baseline = 1
		}
		return variant.BoundsFromBaseline(baseline), "", nil
	}

	b := slot.Bounds.Normalize()
	if b.Min > b.Max {
		return b, "", &SlotConfigError{SlotID: slot.ID, Bounds: b}
	}
	if err := b.Validate(); err != nil {
		return b, "", &SlotConfigError{SlotID: slot.ID, Bounds: b, Reason: err.Error()}
	}

	var warning string
	if available > 0 && b.Baseline > available {
		warning = fmt.Sprintf("slot %s baseline %d exceeds the %d characters the container fits", slot.ID, b.Baseline, available)
	}
	return b, warning, nil
}
