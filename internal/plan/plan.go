// Package plan holds the structural plan decided for one slide before any
// content is generated.
package plan

import "fmt"

type LayoutShape string

const (
	SingleColumn LayoutShape = "single-column"
	TwoColumn    LayoutShape = "two-column"
	ThreeColumn  LayoutShape = "three-column"
)

// Columns returns the column count, or 0 for an unknown shape.
func (s LayoutShape) Columns() int {
	switch s {
	case SingleColumn:
		return 1
	case TwoColumn:
		return 2
	case ThreeColumn:
		return 3
	default:
		return 0
	}
}

// ShapeForColumns maps a column count onto a shape, clamping to [1,3].
func ShapeForColumns(n int) LayoutShape {
	switch {
	case n <= 1:
		return SingleColumn
	case n == 2:
		return TwoColumn
	default:
		return ThreeColumn
	}
}

// ParseLayoutShape accepts the canonical names plus underscore spellings.
func ParseLayoutShape(s string) (LayoutShape, error) {
	switch s {
	case "single-column", "single_column", "single":
		return SingleColumn, nil
	case "two-column", "two_column", "two":
		return TwoColumn, nil
	case "three-column", "three_column", "three":
		return ThreeColumn, nil
	}
	return "", fmt.Errorf("unknown layout_shape %q", s)
}

type Pattern string

const (
	PatternStandard        Pattern = "standard"
	PatternComparison      Pattern = "comparison"
	PatternProblemSolution Pattern = "problem-solution"
	PatternProcess         Pattern = "process"
	PatternNarrative       Pattern = "narrative"
)

func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "standard":
		return PatternStandard, nil
	case "comparison", "compare":
		return PatternComparison, nil
	case "problem-solution", "problem_solution":
		return PatternProblemSolution, nil
	case "process":
		return PatternProcess, nil
	case "narrative":
		return PatternNarrative, nil
	}
	return "", fmt.Errorf("unknown structure_pattern %q", s)
}

// Section is one content group of the slide.
type Section struct {
	TitleHint  string `json:"title_hint"`
	PointCount int    `json:"point_count"`
}

// StructurePlan is created once per request and never mutated afterwards.
type StructurePlan struct {
	LayoutShape     LayoutShape `json:"layout_shape"`
	Sections        []Section   `json:"sections"`
	Pattern         Pattern     `json:"structure_pattern"`
	IncludeCTA      bool        `json:"include_cta"`
	VocabularyLevel string      `json:"vocabulary_level"`
}

// TotalPoints sums point counts across sections.
func (p StructurePlan) TotalPoints() int {
	total := 0
	for _, s := range p.Sections {
		total += s.PointCount
	}
	return total
}
