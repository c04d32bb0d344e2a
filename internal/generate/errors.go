package generate

import (
	"context"
	"errors"

	"github.com/kayz/slidefit/internal/assemble"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/synth"
	"github.com/kayz/slidefit/internal/variant"
)

// Kind groups fatal errors by who has to act on them.
type Kind string

const (
	// KindConfig is a caller or registry mistake. Never retried.
	KindConfig Kind = "config"
	// KindUpstream is a generative service failure at the structure stage.
	KindUpstream Kind = "upstream"
	// KindAssembly is a template left with unresolved placeholders.
	KindAssembly Kind = "assembly"
	KindCanceled Kind = "canceled"
)

// Error is a fatal request error.
type Error struct {
	Kind      Kind
	VariantID string
	Err       error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Classify assigns a Kind to a pipeline error.
func Classify(err error) Kind {
	var (
		notFound   *variant.NotFoundError
		container  *layout.InvalidContainerError
		slotCfg    *synth.SlotConfigError
		noTemplate *assemble.TemplateNotFoundError
		duplicate  *assemble.DuplicatePlaceholderError
		incomplete *assemble.IncompleteAssemblyError
		requestErr *RequestError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &notFound), errors.As(err, &container), errors.As(err, &slotCfg),
		errors.As(err, &noTemplate), errors.As(err, &duplicate), errors.As(err, &requestErr):
		return KindConfig
	case errors.As(err, &incomplete):
		return KindAssembly
	default:
		return KindUpstream
	}
}

// RequestError rejects a request before any generation.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return "invalid request: " + e.Reason
}
