// Package generate runs the whole slide pipeline for one request: plan the
// structure, budget the space, write every slot and assemble the template.
package generate

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kayz/slidefit/internal/assemble"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/structure"
	"github.com/kayz/slidefit/internal/synth"
	"github.com/kayz/slidefit/internal/typography"
	"github.com/kayz/slidefit/internal/variant"
)

// VariantSource is the variant registry.
type VariantSource interface {
	Get(variantID string) (*variant.Spec, error)
}

// TypographySource supplies theme metrics and style guidance.
type TypographySource interface {
	Resolve(themeID string) (typography.Set, error)
	Theme(themeID string) *typography.Theme
}

// Record is a completed document handed to a Recorder.
type Record struct {
	RequestID    string
	VariantID    string
	TemplateID   string
	HTML         string
	Slots        []synth.GeneratedSlot
	ElapsedMS    int64
	RetriedSlots []string
	Warnings     []string
	CreatedAt    time.Time
}

// Recorder stores completed documents. Failed requests are never recorded.
type Recorder interface {
	RecordGeneration(ctx context.Context, rec Record) error
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Variants     VariantSource
	Typography   TypographySource
	Analyzer     *structure.Analyzer
	Calculator   *layout.Calculator
	Synthesizer  *synth.Synthesizer
	Assembler    *assemble.Assembler
	Recorder     Recorder
	TemplatesDir string
}

// Orchestrator is the GenerationOrchestrator.
type Orchestrator struct {
	deps Deps
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Generate runs the pipeline. The returned Response is never nil; on a
// fatal error it has Success=false and err is an *Error.
func (o *Orchestrator) Generate(ctx context.Context, req Request, opts ...synth.Option) (*Response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	resp, err := o.run(ctx, req, requestID, start, opts)
	if err != nil {
		kind := Classify(err)
		logger.Error("[Generate] request %s (%s) failed [%s]: %v", requestID, req.VariantID, kind, err)
		return &Response{Success: false, Error: err.Error(), VariantID: req.VariantID},
			&Error{Kind: kind, VariantID: req.VariantID, Err: err}
	}
	return resp, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, requestID string, start time.Time, opts []synth.Option) (*Response, error) {
	if strings.TrimSpace(req.VariantID) == "" {
		return nil, &RequestError{Reason: "variant_id is required"}
	}
	spec, err := o.deps.Variants.Get(req.VariantID)
	if err != nil {
		return nil, err
	}
	if len(spec.Slots) == 0 {
		return nil, &RequestError{Reason: fmt.Sprintf("variant %s has no slots", spec.ID)}
	}
	if err := checkStaticBounds(spec); err != nil {
		return nil, err
	}

	themeID := spec.ThemeID
	style := ""
	if tc := req.ThemeConfig; tc != nil {
		if tc.ThemeID != "" {
			themeID = tc.ThemeID
		}
		style = tc.Style
	}
	typo, err := o.deps.Typography.Resolve(themeID)
	if err != nil {
		return nil, err
	}
	if style == "" {
		if theme := o.deps.Typography.Theme(themeID); theme != nil {
			style = theme.Style
		}
	}

	container := req.Container()
	signals := req.Signals()
	logger.Info("[Generate] request %s: variant=%s slots=%d container=%vx%v%s",
		requestID, spec.ID, len(spec.Slots), container.Width, container.Height, container.Unit)

	p, err := o.deps.Analyzer.Analyze(ctx, structure.Input{
		Narrative: req.Narrative(),
		Topics:    req.SlideSpec.TargetPoints,
		Container: container,
		Signals:   signals,
		RequestID: requestID,
	})
	if err != nil {
		return nil, err
	}

	budget, err := o.deps.Calculator.Compute(p, container, typo)
	if err != nil {
		return nil, err
	}

	mode := ModeParallel
	if !req.Parallel() {
		mode = ModeSequential
		opts = append(opts, synth.WithConcurrency(1))
	}
	slots, err := o.deps.Synthesizer.Synthesize(ctx, spec.Slots, p, budget, synth.SharedContext{
		RequestID:   requestID,
		Title:       req.SlideSpec.Title,
		KeyMessage:  req.SlideSpec.KeyMessage,
		Narrative:   req.presentationText(),
		Audience:    signals.Audience,
		Purpose:     signals.Purpose,
		TimeMinutes: signals.TimeMinutes,
		Tone:        req.SlideSpec.Tone,
		Style:       style,
	}, opts...)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if s.State == synth.StateRejected {
			return nil, s.Err
		}
	}

	texts := make(map[string]string, len(slots))
	formats := make(map[string]variant.Format, len(spec.Slots))
	for i, s := range slots {
		texts[s.SlotID] = s.Text
		formats[s.SlotID] = spec.Slots[i].Format
	}
	assembled, err := o.deps.Assembler.Assemble(spec.TemplateID, texts, formats)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Success: true,
		HTML:    assembled.HTML,
		Metadata: &Metadata{
			VariantID:      spec.ID,
			TemplatePath:   path.Join(o.deps.TemplatesDir, spec.TemplateID+".html"),
			ElementCount:   len(slots),
			GenerationMode: mode,
			RequestID:      requestID,
			RetriedSlots:   []string{},
			Warnings:       []string{},
			UnusedSlots:    assembled.UnusedSlots,
			Structure:      &p,
			Budget:         &budget,
		},
	}
	validation := &Validation{Valid: true, Violations: []Violation{}}

	for _, s := range slots {
		resp.Elements = append(resp.Elements, Element{
			ElementID:        s.SlotID,
			ElementType:      string(s.Kind),
			Placeholders:     []string{assemble.Token(s.SlotID)},
			GeneratedContent: s.Text,
			CharacterCounts: CharacterCounts{
				Actual:       s.CharCount,
				Baseline:     s.Bounds.Baseline,
				Min:          s.Bounds.Min,
				Max:          s.Bounds.Max,
				Attempts:     s.Attempts,
				WithinBounds: s.WithinBounds,
			},
		})
		if s.Retried() {
			resp.Metadata.RetriedSlots = append(resp.Metadata.RetriedSlots, s.SlotID)
		}
		if s.Warning != "" {
			resp.Metadata.Warnings = append(resp.Metadata.Warnings, s.Warning)
		}
		if !s.WithinBounds {
			validation.Valid = false
			validation.Violations = append(validation.Violations, Violation{
				ElementID:   s.SlotID,
				Field:       "text",
				ActualCount: s.CharCount,
				RequiredMin: s.Bounds.Min,
				RequiredMax: s.Bounds.Max,
			})
		}
	}
	for _, id := range assembled.UnusedSlots {
		resp.Metadata.Warnings = append(resp.Metadata.Warnings,
			fmt.Sprintf("slot %s has no placeholder in template %s", id, spec.TemplateID))
	}
	if req.ValidateCounts() {
		resp.Validation = validation
	}
	resp.Metadata.ElapsedMS = time.Since(start).Milliseconds()

	logger.Info("[Generate] request %s done in %dms: %d slots, %d retried, %d violations",
		requestID, resp.Metadata.ElapsedMS, len(slots), len(resp.Metadata.RetriedSlots), len(validation.Violations))

	if o.deps.Recorder != nil {
		rec := Record{
			RequestID:    requestID,
			VariantID:    spec.ID,
			TemplateID:   spec.TemplateID,
			HTML:         resp.HTML,
			Slots:        slots,
			ElapsedMS:    resp.Metadata.ElapsedMS,
			RetriedSlots: resp.Metadata.RetriedSlots,
			Warnings:     resp.Metadata.Warnings,
			CreatedAt:    time.Now(),
		}
		if err := o.deps.Recorder.RecordGeneration(ctx, rec); err != nil {
			logger.Warn("[Generate] failed to record request %s: %v", requestID, err)
		}
	}
	return resp, nil
}

// checkStaticBounds rejects registry bounds that no text can satisfy before
// any generation call is made. Budget-derived bounds are checked per slot
// by the synthesizer.
func checkStaticBounds(spec *variant.Spec) error {
	for _, slot := range spec.Slots {
		if slot.Bounds.Dynamic() {
			continue
		}
		if b := slot.Bounds.Normalize(); b.Min > b.Max {
			return &synth.SlotConfigError{SlotID: slot.ID, Bounds: b}
		}
	}
	return nil
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
