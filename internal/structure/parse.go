package structure

import (
	"encoding/json"
	"strings"

	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/plan"
)

// MalformedPlanError means the service reply could not be read as a plan.
type MalformedPlanError struct {
	Reason string
	Reply  string
}

func (e *MalformedPlanError) Error() string {
	return "malformed structure plan: " + e.Reason
}

// RawPlan is the reply exactly as the service wrote it.
type RawPlan struct {
	LayoutShape     string         `json:"layout_shape"`
	Sections        []plan.Section `json:"sections"`
	Pattern         string         `json:"structure_pattern"`
	IncludeCTA      bool           `json:"include_cta"`
	VocabularyLevel string         `json:"vocabulary_level"`
}

// ParseReply extracts the JSON object from a reply, fenced or bare.
func ParseReply(reply string) (RawPlan, error) {
	body, ok := extractJSONObject(reply)
	if !ok {
		return RawPlan{}, &MalformedPlanError{Reason: "no JSON object in reply", Reply: reply}
	}
	var raw RawPlan
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return RawPlan{}, &MalformedPlanError{Reason: err.Error(), Reply: reply}
	}
	if len(raw.Sections) == 0 {
		return RawPlan{}, &MalformedPlanError{Reason: "plan has no sections", Reply: reply}
	}
	return raw, nil
}

func extractJSONObject(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// Enforce turns a raw reply into a plan that respects the hints: the layout
// never exceeds the container's column limit, point counts stay in
// [1, PointCap], there are between 1 and columns*2 sections and the plan
// holds at most TotalCap points.
func Enforce(raw RawPlan, h Hints) (plan.StructurePlan, error) {
	shape := h.SuggestedLayout
	if raw.LayoutShape != "" {
		parsed, err := plan.ParseLayoutShape(normalize(raw.LayoutShape))
		if err != nil {
			return plan.StructurePlan{}, &MalformedPlanError{Reason: err.Error()}
		}
		shape = parsed
	}
	if shape == "" {
		shape = plan.SingleColumn
	}
	if h.MaxColumns > 0 && shape.Columns() > h.MaxColumns {
		logger.Debug("[Structure] %s exceeds %s container, using %d column(s)", shape, h.SizeCategory, h.MaxColumns)
		shape = plan.ShapeForColumns(h.MaxColumns)
	}

	pattern := h.Pattern
	if raw.Pattern != "" {
		parsed, err := plan.ParsePattern(normalize(raw.Pattern))
		if err != nil {
			return plan.StructurePlan{}, &MalformedPlanError{Reason: err.Error()}
		}
		pattern = parsed
	}

	limit := maxSections(shape.Columns())
	sections := raw.Sections
	if len(sections) > limit {
		logger.Debug("[Structure] trimming %d sections to %d", len(sections), limit)
		sections = sections[:limit]
	}

	pointCap := h.PointCap
	if pointCap < 1 {
		pointCap = defaultAudienceCap
	}
	out := make([]plan.Section, len(sections))
	for i, s := range sections {
		n := s.PointCount
		if n < 1 {
			n = 1
		}
		if n > pointCap {
			n = pointCap
		}
		out[i] = plan.Section{TitleHint: strings.TrimSpace(s.TitleHint), PointCount: n}
	}
	out = capTotalPoints(out, h.TotalCap)

	vocab := strings.TrimSpace(raw.VocabularyLevel)
	if vocab == "" {
		vocab = h.Vocabulary
	}

	return plan.StructurePlan{
		LayoutShape:     shape,
		Sections:        out,
		Pattern:         pattern,
		IncludeCTA:      raw.IncludeCTA,
		VocabularyLevel: vocab,
	}, nil
}

// capTotalPoints drops trailing sections until each remaining one can keep a
// point, then takes points from the largest sections until the total fits.
func capTotalPoints(sections []plan.Section, total int) []plan.Section {
	if total < 1 {
		return sections
	}
	if len(sections) > total {
		logger.Debug("[Structure] trimming %d sections to %d for the time slot", len(sections), total)
		sections = sections[:total]
	}
	sum := 0
	for _, s := range sections {
		sum += s.PointCount
	}
	for sum > total {
		largest := 0
		for i, s := range sections {
			if s.PointCount >= sections[largest].PointCount {
				largest = i
			}
		}
		sections[largest].PointCount--
		sum--
	}
	return sections
}
