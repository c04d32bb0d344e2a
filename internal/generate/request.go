package generate

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/structure"
)

// DefaultContainer is used when a request gives no available_space.
var DefaultContainer = layout.Container{Width: 1920, Height: 1080, Unit: layout.UnitPixels}

type SlideSpec struct {
	Title        string   `json:"title"`
	Purpose      string   `json:"purpose,omitempty"`
	KeyMessage   string   `json:"key_message,omitempty"`
	TargetPoints []string `json:"target_points,omitempty"`
	Tone         string   `json:"tone,omitempty"`
	Audience     string   `json:"audience,omitempty"`
}

type ThemeConfig struct {
	ThemeID string `json:"theme_id,omitempty"`
	Style   string `json:"style,omitempty"`
}

type ContentContext struct {
	Audience string `json:"audience,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	// Time is the presentation length in minutes.
	Time int `json:"time,omitempty"`
}

// Request is one slide generation request.
type Request struct {
	VariantID               string            `json:"variant_id"`
	SlideSpec               SlideSpec         `json:"slide_spec"`
	PresentationContext     json.RawMessage   `json:"presentation_context,omitempty"`
	ThemeConfig             *ThemeConfig      `json:"theme_config,omitempty"`
	ContentContext          *ContentContext   `json:"content_context,omitempty"`
	AvailableSpace          *layout.Container `json:"available_space,omitempty"`
	EnableParallel          *bool             `json:"enable_parallel,omitempty"`
	ValidateCharacterCounts *bool             `json:"validate_character_counts,omitempty"`
}

// Parallel reports whether slots may be generated concurrently. Defaults to true.
func (r *Request) Parallel() bool {
	return r.EnableParallel == nil || *r.EnableParallel
}

// ValidateCounts reports whether violations are listed. Defaults to true.
func (r *Request) ValidateCounts() bool {
	return r.ValidateCharacterCounts == nil || *r.ValidateCharacterCounts
}

// Container returns the available space or DefaultContainer.
func (r *Request) Container() layout.Container {
	if r.AvailableSpace == nil {
		return DefaultContainer
	}
	return *r.AvailableSpace
}

// Signals merges content_context over the slide spec's audience and purpose.
func (r *Request) Signals() structure.Signals {
	s := structure.Signals{
		Audience: r.SlideSpec.Audience,
		Purpose:  r.SlideSpec.Purpose,
	}
	if cc := r.ContentContext; cc != nil {
		if cc.Audience != "" {
			s.Audience = cc.Audience
		}
		if cc.Purpose != "" {
			s.Purpose = cc.Purpose
		}
		s.TimeMinutes = cc.Time
	}
	return s
}

// Narrative is the free text the planner and writers work from.
func (r *Request) Narrative() string {
	parts := []string{r.SlideSpec.Title, r.SlideSpec.KeyMessage, r.presentationText()}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// presentationText renders presentation_context, which may be a string or
// any JSON value.
func (r *Request) presentationText() string {
	raw := bytes.TrimSpace(r.PresentationContext)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
