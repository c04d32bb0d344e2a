package generate

import (
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/plan"
)

type CharacterCounts struct {
	Actual       int  `json:"actual"`
	Baseline     int  `json:"baseline"`
	Min          int  `json:"min"`
	Max          int  `json:"max"`
	Attempts     int  `json:"attempts"`
	WithinBounds bool `json:"within_bounds"`
}

// Element is one generated slot as seen by the caller.
type Element struct {
	ElementID        string          `json:"element_id"`
	ElementType      string          `json:"element_type"`
	Placeholders     []string        `json:"placeholders"`
	GeneratedContent string          `json:"generated_content"`
	CharacterCounts  CharacterCounts `json:"character_counts"`
}

type Metadata struct {
	VariantID      string              `json:"variant_id"`
	TemplatePath   string              `json:"template_path"`
	ElementCount   int                 `json:"element_count"`
	GenerationMode string              `json:"generation_mode"`
	RequestID      string              `json:"request_id"`
	ElapsedMS      int64               `json:"elapsed_ms"`
	RetriedSlots   []string            `json:"retried_slots"`
	Warnings       []string            `json:"warnings"`
	UnusedSlots    []string            `json:"unused_slots,omitempty"`
	Structure      *plan.StructurePlan `json:"structure,omitempty"`
	Budget         *layout.SpaceBudget `json:"budget,omitempty"`
}

type Violation struct {
	ElementID   string `json:"element_id"`
	Field       string `json:"field"`
	ActualCount int    `json:"actual_count"`
	RequiredMin int    `json:"required_min"`
	RequiredMax int    `json:"required_max"`
}

type Validation struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// Response is the outcome of one request. Success is false for every fatal
// error, with Error set.
type Response struct {
	Success    bool        `json:"success"`
	HTML       string      `json:"html,omitempty"`
	Elements   []Element   `json:"elements,omitempty"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
	Validation *Validation `json:"validation,omitempty"`
	Error      string      `json:"error,omitempty"`
	VariantID  string      `json:"variant_id,omitempty"`
}

const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"
)
