package render

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/locrender/internal/monitoring"
)

// Options configures a single Render call.
type Options struct {
	// Oversampling converts native pixels to grid cells. Must be positive.
	Oversampling float64

	// Viewport selects the native-pixel crop. Nil renders the full frame.
	Viewport *Viewport

	// Method selects the rendering strategy.
	Method BlurMethod

	// Workers bounds the adaptive splat worker pool. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultOptions returns oversampling 1, full frame, no blur.
func DefaultOptions() Options {
	return Options{Oversampling: 1}
}

// Validate checks the options without looking at any localization.
func (o Options) Validate() error {
	if !o.Method.Valid() {
		return fmt.Errorf("%w: unknown blur method %s", ErrInvalidConfiguration, o.Method)
	}
	if !(o.Oversampling > 0) || math.IsInf(o.Oversampling, 0) {
		return fmt.Errorf("%w: oversampling must be positive and finite, got %v", ErrInvalidConfiguration, o.Oversampling)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfiguration, o.Workers)
	}
	return nil
}

// Render draws locs into a new image. Configuration errors are returned
// before any work is done. A viewport with no points in it is not an error:
// the result is an all-zero grid of the computed shape.
//
// ctx is only consulted between stages, never inside the per-point or
// per-cell loops.
func Render(ctx context.Context, locs Localizations, info FrameInfo, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := locs.Validate(); err != nil {
		return nil, err
	}
	if opts.Method.NeedsPrecision() && locs.Len() > 0 && !locs.HasPrecision() {
		return nil, fmt.Errorf("%w: blur method %s needs lpx and lpy", ErrInvalidConfiguration, opts.Method)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := MapViewport(locs, info, opts.Oversampling, opts.Viewport)
	im := NewImage(m.Rows, m.Cols)
	res := &Result{
		Image:        im,
		Viewport:     m.Viewport,
		Oversampling: opts.Oversampling,
		Method:       opts.Method,
		Stats: Stats{
			Total:  locs.Len(),
			InView: m.Len(),
		},
	}

	if m.Empty() {
		monitoring.Logf("render: no localizations inside viewport %s, returning empty %dx%d grid", m.Viewport, m.Rows, m.Cols)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch opts.Method {
	case BlurNone:
		res.Stats.Clamped = Histogram(im, m)
	case BlurConvolve:
		k := ConvolveBlur(im, m)
		res.Stats.Clamped = k.Clamped
		res.Stats.SigmaY, res.Stats.SigmaX = k.SigmaY, k.SigmaX
		res.Stats.KernelH, res.Stats.KernelW = k.Height, k.Width
		if k.Identity() {
			monitoring.Logf("render: degenerate convolution kernel (sigma_y=%g sigma_x=%g), output is the plain histogram", k.SigmaY, k.SigmaX)
		}
	case BlurAdaptive:
		s, err := AdaptiveSplat(ctx, im, m, opts.Workers)
		if err != nil {
			return nil, fmt.Errorf("adaptive splat: %w", err)
		}
		res.Stats.Skipped = s.Skipped
		res.Stats.Workers = s.Workers
		if s.Skipped > 0 {
			monitoring.Logf("render: skipped %d localizations with non-positive precision", s.Skipped)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.Stats.Clamped > 0 {
		monitoring.Logf("render: clamped %d histogram indices onto the last row/column", res.Stats.Clamped)
	}
	res.Stats.TotalMass = im.Sum()

	monitoring.Logf("render: method=%s grid=%dx%d oversampling=%g in_view=%d/%d mass=%.3f took=%s",
		opts.Method, m.Rows, m.Cols, opts.Oversampling, m.Len(), locs.Len(), res.Stats.TotalMass, time.Since(start))
	return res, nil
}
