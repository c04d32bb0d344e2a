// Package variant describes slide layouts: a template plus the text slots it
// exposes, each with a character-count contract.
package variant

import "fmt"

// SlotKind classifies a slot by typographic role.
type SlotKind string

const (
	KindHeading      SlotKind = "heading"
	KindSubheading   SlotKind = "subheading"
	KindSectionTitle SlotKind = "section-title"
	KindBody         SlotKind = "body"
	KindListItem     SlotKind = "list-item"
	KindCTA          SlotKind = "cta"
	KindCaption      SlotKind = "caption"
)

// Format controls how generated text is rendered into the template.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// TolerancePercent is the default band around the baseline.
const TolerancePercent = 5

// CharBounds is the accepted character-count band for a slot.
// Baseline 0 means the bound is derived from the space budget at request time.
type CharBounds struct {
	Baseline int `yaml:"baseline" json:"baseline"`
	Min      int `yaml:"min,omitempty" json:"min"`
	Max      int `yaml:"max,omitempty" json:"max"`
}

// BoundsFromBaseline applies the ±5% rule, rounding half up.
func BoundsFromBaseline(baseline int) CharBounds {
	return CharBounds{
		Baseline: baseline,
		Min:      roundPercent(baseline, 100-TolerancePercent),
		Max:      roundPercent(baseline, 100+TolerancePercent),
	}
}

func roundPercent(n, pct int) int {
	return (n*pct + 50) / 100
}

// Normalize fills in min/max that the registry left unset.
func (b CharBounds) Normalize() CharBounds {
	if b.Baseline <= 0 {
		return b
	}
	derived := BoundsFromBaseline(b.Baseline)
	if b.Min <= 0 {
		b.Min = derived.Min
	}
	if b.Max <= 0 {
		b.Max = derived.Max
	}
	return b
}

// Dynamic reports whether the bounds must come from the space budget.
func (b CharBounds) Dynamic() bool {
	return b.Baseline <= 0
}

// Contains reports whether n is within [Min, Max].
func (b CharBounds) Contains(n int) bool {
	return n >= b.Min && n <= b.Max
}

// Validate checks the bounds are usable.
func (b CharBounds) Validate() error {
	if b.Min <= 0 || b.Max <= 0 {
		return fmt.Errorf("bounds must be positive (min=%d, max=%d)", b.Min, b.Max)
	}
	if b.Min > b.Max {
		return fmt.Errorf("min %d exceeds max %d", b.Min, b.Max)
	}
	return nil
}

// SlotSpec is one content slot of a variant.
type SlotSpec struct {
	ID      string     `yaml:"slot_id" json:"slot_id"`
	Kind    SlotKind   `yaml:"slot_kind" json:"slot_kind"`
	Purpose string     `yaml:"purpose" json:"purpose"`
	Section int        `yaml:"section,omitempty" json:"section,omitempty"`
	Format  Format     `yaml:"format,omitempty" json:"format,omitempty"`
	Bounds  CharBounds `yaml:"char_bounds" json:"char_bounds"`
}

// Spec is an immutable variant definition.
type Spec struct {
	ID         string     `yaml:"variant_id" json:"variant_id"`
	TemplateID string     `yaml:"template_id" json:"template_id"`
	ThemeID    string     `yaml:"theme_id,omitempty" json:"theme_id,omitempty"`
	Slots      []SlotSpec `yaml:"slots" json:"slots"`
}

// NotFoundError is returned for an unknown variant id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Invalid variant_id: %s", e.ID)
}
