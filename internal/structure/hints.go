package structure

import (
	"strings"

	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/plan"
)

const defaultAudienceCap = 5

var audienceCaps = map[string]int{
	"executive": 4,
	"general":   5,
	"technical": 6,
	"academic":  7,
	"students":  5,
}

var purposePatterns = map[string]plan.Pattern{
	"inform":   plan.PatternStandard,
	"compare":  plan.PatternComparison,
	"persuade": plan.PatternProblemSolution,
	"instruct": plan.PatternProcess,
	"teach":    plan.PatternProcess,
	"inspire":  plan.PatternNarrative,
	"story":    plan.PatternNarrative,
}

// Signals are the audience, purpose and time inputs of a request.
type Signals struct {
	Audience    string `json:"audience,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	TimeMinutes int    `json:"time,omitempty"`
}

// Depth is how much detail the time slot allows.
type Depth string

const (
	DepthHeadline Depth = "headline"
	DepthStandard Depth = "standard"
	DepthDetailed Depth = "detailed"
)

// Hints are the deterministic decisions fed to the planning prompt and
// enforced on its reply.
type Hints struct {
	SizeCategory    layout.SizeCategory
	WidthPx         float64
	MaxColumns      int
	TopicCount      int
	SuggestedLayout plan.LayoutShape
	AudienceCap     int
	TimeCap         int
	PointCap        int
	// TotalCap bounds the points across all sections; 0 means unbounded.
	TotalCap        int
	Pattern         plan.Pattern
	Depth           Depth
	Vocabulary      string
}

// AudienceCap returns the max points per section for an audience.
func AudienceCap(audience string) int {
	if n, ok := audienceCaps[normalize(audience)]; ok {
		return n
	}
	return defaultAudienceCap
}

// TimeCap returns the max points per section the time slot allows, or 0
// when no time was given.
func TimeCap(minutes int) int {
	switch {
	case minutes <= 0:
		return 0
	case minutes <= 5:
		return 2
	case minutes <= 15:
		return 4
	case minutes <= 30:
		return 5
	case minutes < 45:
		return 6
	default:
		return 8
	}
}

// TotalPointCap returns the max points across the whole slide the time slot
// allows, or 0 when no time was given. A talk of five minutes or less gets
// headline points only.
func TotalPointCap(minutes int) int {
	switch {
	case minutes <= 0:
		return 0
	case minutes <= 5:
		return 3
	case minutes <= 15:
		return 8
	case minutes <= 30:
		return 12
	case minutes < 45:
		return 16
	default:
		return 24
	}
}

func depthFor(minutes int) Depth {
	switch {
	case minutes > 0 && minutes <= 5:
		return DepthHeadline
	case minutes >= 45:
		return DepthDetailed
	default:
		return DepthStandard
	}
}

// PatternFor maps a purpose onto a structure pattern. Unknown purposes are standard.
func PatternFor(purpose string) plan.Pattern {
	p := normalize(purpose)
	if pattern, ok := purposePatterns[p]; ok {
		return pattern
	}
	if pattern, err := plan.ParsePattern(p); err == nil {
		return pattern
	}
	return plan.PatternStandard
}

func vocabularyFor(audience string) string {
	switch normalize(audience) {
	case "executive":
		return "business"
	case "technical", "academic":
		return "technical"
	case "students":
		return "simple"
	default:
		return "general"
	}
}

// DeriveHints applies the decision table to the request signals.
func DeriveHints(container layout.Container, topics int, s Signals, cfg config.LayoutConfig) (Hints, error) {
	widthPx, _, err := container.Pixels(cfg)
	if err != nil {
		return Hints{}, err
	}
	category := layout.Categorize(widthPx, cfg)

	h := Hints{
		SizeCategory: category,
		WidthPx:      widthPx,
		MaxColumns:   category.MaxColumns(),
		TopicCount:   topics,
		AudienceCap:  AudienceCap(s.Audience),
		TimeCap:      TimeCap(s.TimeMinutes),
		TotalCap:     TotalPointCap(s.TimeMinutes),
		Pattern:      PatternFor(s.Purpose),
		Depth:        depthFor(s.TimeMinutes),
		Vocabulary:   vocabularyFor(s.Audience),
	}
	h.PointCap = h.AudienceCap
	if h.TimeCap > 0 && h.TimeCap < h.PointCap {
		h.PointCap = h.TimeCap
	}

	switch category {
	case layout.SizeSmall:
		h.SuggestedLayout = plan.SingleColumn
	case layout.SizeMedium:
		if topics >= 3 {
			h.SuggestedLayout = plan.TwoColumn
		} else {
			h.SuggestedLayout = plan.SingleColumn
		}
	default:
		switch {
		case topics == 3 && h.Pattern == plan.PatternComparison:
			h.SuggestedLayout = plan.ThreeColumn
		case topics >= 2:
			h.SuggestedLayout = plan.TwoColumn
		default:
			h.SuggestedLayout = plan.SingleColumn
		}
	}
	return h, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
