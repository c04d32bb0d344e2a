// Package typography supplies font metrics per theme and typographic level.
package typography

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kayz/slidefit/internal/logger"
	"gopkg.in/yaml.v3"
)

type Level string

const (
	LevelTitle    Level = "title"
	LevelSubtitle Level = "subtitle"
	LevelSection  Level = "section"
	LevelBody     Level = "body"
	LevelCaption  Level = "caption"
)

const DefaultThemeID = "default"

// Metrics are the numeric inputs to space budgeting. Size is in pixels,
// LineHeight is a multiplier of Size.
type Metrics struct {
	Size           float64 `yaml:"size" json:"size"`
	LineHeight     float64 `yaml:"line_height" json:"line_height"`
	CharWidthRatio float64 `yaml:"char_width_ratio,omitempty" json:"char_width_ratio"`
}

// LinePx is the height of one rendered line.
func (m Metrics) LinePx() float64 {
	return m.Size * m.LineHeight
}

// CharPx is the average width of one rendered character.
func (m Metrics) CharPx() float64 {
	return m.Size * m.CharWidthRatio
}

// Theme is a named set of level metrics plus prose style guidance for prompts.
type Theme struct {
	ID     string            `yaml:"theme_id"`
	Style  string            `yaml:"style,omitempty"`
	Levels map[Level]Metrics `yaml:"levels"`
}

// Set is the resolved metrics needed to budget one slide.
type Set struct {
	Title    Metrics `json:"title"`
	Subtitle Metrics `json:"subtitle"`
	Section  Metrics `json:"section"`
	Body     Metrics `json:"body"`
}

// DefaultTheme is used when no theme is configured or a theme id is unknown.
func DefaultTheme() *Theme {
	return &Theme{
		ID:    DefaultThemeID,
		Style: "Professional and clean. Short declarative sentences, no filler.",
		Levels: map[Level]Metrics{
			LevelTitle:    {Size: 44, LineHeight: 1.2, CharWidthRatio: 0.55},
			LevelSubtitle: {Size: 28, LineHeight: 1.3, CharWidthRatio: 0.5},
			LevelSection:  {Size: 24, LineHeight: 1.3, CharWidthRatio: 0.5},
			LevelBody:     {Size: 18, LineHeight: 1.5, CharWidthRatio: 0.5},
			LevelCaption:  {Size: 14, LineHeight: 1.4, CharWidthRatio: 0.5},
		},
	}
}

// Source resolves typography by theme id and level.
type Source struct {
	themes       map[string]*Theme
	defaultRatio float64
}

// NewSource builds a source from themes; the built-in default theme is always present.
func NewSource(defaultCharWidthRatio float64, themes ...*Theme) *Source {
	s := &Source{
		themes:       map[string]*Theme{DefaultThemeID: DefaultTheme()},
		defaultRatio: defaultCharWidthRatio,
	}
	for _, t := range themes {
		s.themes[t.ID] = t
	}
	return s
}

// LoadSource reads every YAML theme file in dir. A missing dir yields only the default theme.
func LoadSource(dir string, defaultCharWidthRatio float64) (*Source, error) {
	s := NewSource(defaultCharWidthRatio)
	if strings.TrimSpace(dir) == "" {
		return s, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read themes dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read theme %s: %w", path, err)
		}
		var t Theme
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse theme %s: %w", path, err)
		}
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("theme %s: theme_id is required", path)
		}
		for lvl, m := range t.Levels {
			if m.Size <= 0 || m.LineHeight <= 0 {
				return nil, fmt.Errorf("theme %s: level %s needs positive size and line_height", t.ID, lvl)
			}
		}
		s.themes[t.ID] = &t
	}
	return s, nil
}

// Theme returns the theme, falling back to the default for unknown ids.
func (s *Source) Theme(themeID string) *Theme {
	if themeID == "" {
		themeID = DefaultThemeID
	}
	if t, ok := s.themes[themeID]; ok {
		return t
	}
	logger.Warn("[Typography] unknown theme %s, using default", themeID)
	return s.themes[DefaultThemeID]
}

// Typography returns the metrics of one level. Levels a theme omits come from
// the default theme; a missing char-width ratio uses the configured default.
func (s *Source) Typography(themeID string, level Level) (Metrics, error) {
	m, ok := s.Theme(themeID).Levels[level]
	if !ok {
		m, ok = s.themes[DefaultThemeID].Levels[level]
		if !ok {
			return Metrics{}, fmt.Errorf("unknown typography level: %s", level)
		}
	}
	if m.CharWidthRatio <= 0 {
		m.CharWidthRatio = s.defaultRatio
	}
	return m, nil
}

// Resolve returns the metrics set used for budgeting.
func (s *Source) Resolve(themeID string) (Set, error) {
	var set Set
	var err error
	if set.Title, err = s.Typography(themeID, LevelTitle); err != nil {
		return Set{}, err
	}
	if set.Subtitle, err = s.Typography(themeID, LevelSubtitle); err != nil {
		return Set{}, err
	}
	if set.Section, err = s.Typography(themeID, LevelSection); err != nil {
		return Set{}, err
	}
	if set.Body, err = s.Typography(themeID, LevelBody); err != nil {
		return Set{}, err
	}
	return set, nil
}
