package layout

import (
	"fmt"
	"strings"

	"github.com/kayz/slidefit/internal/config"
)

type Unit string

const (
	UnitPixels      Unit = "px"
	UnitPoints      Unit = "pt"
	UnitInches      Unit = "in"
	UnitCentimeters Unit = "cm"
	UnitGrids       Unit = "grids"
)

const cssPixelsPerInch = 96.0

// Container is the physical box the slide content must fit.
type Container struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   Unit    `json:"unit"`
}

// InvalidContainerError rejects unusable container input.
type InvalidContainerError struct {
	Reason string
}

func (e *InvalidContainerError) Error() string {
	return "invalid container: " + e.Reason
}

// Pixels converts the container to CSS pixels. An empty unit means pixels.
func (c Container) Pixels(cfg config.LayoutConfig) (width, height float64, err error) {
	if c.Width <= 0 || c.Height <= 0 {
		return 0, 0, &InvalidContainerError{Reason: fmt.Sprintf("dimensions must be positive, got %vx%v", c.Width, c.Height)}
	}
	var factor float64
	switch Unit(strings.ToLower(string(c.Unit))) {
	case UnitPixels, "":
		factor = 1
	case UnitPoints:
		factor = cssPixelsPerInch / 72
	case UnitInches:
		factor = cssPixelsPerInch
	case UnitCentimeters:
		factor = cssPixelsPerInch / 2.54
	case UnitGrids, "grid":
		factor = cfg.GridUnitPx
	default:
		return 0, 0, &InvalidContainerError{Reason: fmt.Sprintf("unknown unit %q", c.Unit)}
	}
	if factor <= 0 {
		return 0, 0, &InvalidContainerError{Reason: fmt.Sprintf("unit %q has no pixel size configured", c.Unit)}
	}
	return c.Width * factor, c.Height * factor, nil
}

type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
)

// Categorize buckets a pixel width by the configured thresholds.
func Categorize(widthPx float64, cfg config.LayoutConfig) SizeCategory {
	switch {
	case widthPx < cfg.SmallWidthPx:
		return SizeSmall
	case widthPx < cfg.LargeWidthPx:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// MaxColumns is the widest layout a size category can hold.
func (s SizeCategory) MaxColumns() int {
	switch s {
	case SizeSmall:
		return 1
	case SizeMedium:
		return 2
	default:
		return 3
	}
}
