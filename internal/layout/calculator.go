// Package layout converts a structural plan and physical container into
// per-slot character budgets. Everything here is pure and deterministic.
package layout

import (
	"fmt"
	"math"

	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/plan"
	"github.com/kayz/slidefit/internal/typography"
)

// SectionBudget is the space allowance of one plan section.
type SectionBudget struct {
	Index          int `json:"index"`
	Column         int `json:"column"`
	TitleChars     int `json:"title_chars"`
	BodyLines      int `json:"body_lines"`
	CharsPerLine   int `json:"chars_per_line"`
	PointCharLimit int `json:"point_char_limit"`
}

// BodyChars is the full text capacity of the section body.
func (s SectionBudget) BodyChars() int {
	return s.BodyLines * s.CharsPerLine
}

// SpaceBudget is recomputed for every request and never cached.
type SpaceBudget struct {
	WidthPx         float64         `json:"width_px"`
	HeightPx        float64         `json:"height_px"`
	Columns         int             `json:"columns"`
	ColumnWidthPx   float64         `json:"column_width_px"`
	HeadingChars    int             `json:"heading_chars"`
	SubheadingChars int             `json:"subheading_chars"`
	CTAChars        int             `json:"cta_chars"`
	Sections        []SectionBudget `json:"sections"`
	TotalBodyChars  int             `json:"total_body_chars"`
}

// Section returns the budget for section index i, clamped into range.
func (b SpaceBudget) Section(i int) SectionBudget {
	if len(b.Sections) == 0 {
		return SectionBudget{}
	}
	if i < 0 {
		i = 0
	}
	if i >= len(b.Sections) {
		i = len(b.Sections) - 1
	}
	return b.Sections[i]
}

// Calculator computes space budgets from named layout constants.
type Calculator struct {
	cfg config.LayoutConfig
}

func NewCalculator(cfg config.LayoutConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config exposes the constants in use.
func (c *Calculator) Config() config.LayoutConfig {
	return c.cfg
}

// Compute derives the character budget. Pixel-to-character conversions
// always floor so text never overflows the physical container.
func (c *Calculator) Compute(p plan.StructurePlan, container Container, typo typography.Set) (SpaceBudget, error) {
	if c.cfg.FillFactor <= 0 || c.cfg.FillFactor > 1 {
		return SpaceBudget{}, fmt.Errorf("layout fill_factor must be in (0,1], got %v", c.cfg.FillFactor)
	}
	for name, m := range map[string]typography.Metrics{
		"title": typo.Title, "subtitle": typo.Subtitle, "section": typo.Section, "body": typo.Body,
	} {
		if m.CharPx() <= 0 || m.LinePx() <= 0 {
			return SpaceBudget{}, fmt.Errorf("typography level %s has non-positive metrics", name)
		}
	}

	widthPx, heightPx, err := container.Pixels(c.cfg)
	if err != nil {
		return SpaceBudget{}, err
	}

	usableW := widthPx * c.cfg.FillFactor
	usableH := heightPx * c.cfg.FillFactor
	margin := c.cfg.BlockMarginPx

	bodyH := usableH - (typo.Title.LinePx() + margin) - (typo.Subtitle.LinePx() + margin)
	if p.IncludeCTA {
		bodyH -= typo.Body.LinePx() + margin
	}
	bodyH = math.Max(bodyH, 0)

	cols := p.LayoutShape.Columns()
	if cols == 0 {
		cols = 1
	}
	colW := math.Max((usableW-c.cfg.ColumnGapPx*float64(cols-1))/float64(cols), 0)

	budget := SpaceBudget{
		WidthPx:         widthPx,
		HeightPx:        heightPx,
		Columns:         cols,
		ColumnWidthPx:   colW,
		HeadingChars:    floorDiv(usableW, typo.Title.CharPx()),
		SubheadingChars: floorDiv(usableW, typo.Subtitle.CharPx()),
	}
	if p.IncludeCTA {
		budget.CTAChars = floorDiv(usableW, typo.Body.CharPx())
	}

	sections := len(p.Sections)
	if sections == 0 {
		sections = 1
	}
	perColumn := make([]int, cols)
	for i := 0; i < sections; i++ {
		perColumn[i%cols]++
	}

	charsPerLine := floorDiv(colW, typo.Body.CharPx())
	titleChars := floorDiv(colW, typo.Section.CharPx())
	sectionTitleH := typo.Section.LinePx() + margin

	budget.Sections = make([]SectionBudget, 0, sections)
	for i := 0; i < sections; i++ {
		col := i % cols
		available := math.Max(bodyH/float64(perColumn[col])-sectionTitleH, 0)
		lines := floorDiv(available, typo.Body.LinePx())
		sb := SectionBudget{
			Index:          i,
			Column:         col,
			TitleChars:     titleChars,
			BodyLines:      lines,
			CharsPerLine:   charsPerLine,
			PointCharLimit: charsPerLine * c.cfg.LinesPerPoint,
		}
		budget.Sections = append(budget.Sections, sb)
		budget.TotalBodyChars += sb.BodyChars()
	}

	return budget, nil
}

func floorDiv(a, b float64) int {
	if b <= 0 || a <= 0 {
		return 0
	}
	return int(math.Floor(a / b))
}
