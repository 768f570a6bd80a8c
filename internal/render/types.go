package render

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned before any computation when the render
// options cannot be honoured (unknown blur method, bad oversampling).
var ErrInvalidConfiguration = errors.New("invalid render configuration")

// ErrColumnLength is returned when the localization columns differ in length.
var ErrColumnLength = errors.New("localization columns have different lengths")

// Localizations is a column-oriented, ordered set of localization records.
// All coordinates are in native (camera) pixels relative to the full movie.
// LPX and LPY hold the per-axis localization precision (standard deviation)
// and may be nil when only the histogram method is used.
type Localizations struct {
	X   []float64
	Y   []float64
	LPX []float64
	LPY []float64
}

// Len returns the number of localizations.
func (l Localizations) Len() int { return len(l.X) }

// HasPrecision reports whether both precision columns are populated.
func (l Localizations) HasPrecision() bool {
	return l.LPX != nil && l.LPY != nil
}

// Validate checks that the position columns, and the precision columns when
// present, have equal length.
func (l Localizations) Validate() error {
	n := len(l.X)
	if len(l.Y) != n {
		return fmt.Errorf("%w: x=%d y=%d", ErrColumnLength, n, len(l.Y))
	}
	if l.LPX != nil && len(l.LPX) != n {
		return fmt.Errorf("%w: x=%d lpx=%d", ErrColumnLength, n, len(l.LPX))
	}
	if l.LPY != nil && len(l.LPY) != n {
		return fmt.Errorf("%w: x=%d lpy=%d", ErrColumnLength, n, len(l.LPY))
	}
	return nil
}

// Append adds a single localization to the column set.
func (l *Localizations) Append(x, y, lpx, lpy float64) {
	l.X = append(l.X, x)
	l.Y = append(l.Y, y)
	l.LPX = append(l.LPX, lpx)
	l.LPY = append(l.LPY, lpy)
}

// FrameInfo is the movie frame geometry in native pixels.
type FrameInfo struct {
	Width  int
	Height int
}

// Viewport is the native-pixel rectangle [(YMin, XMin), (YMax, XMax)].
type Viewport struct {
	YMin, XMin float64
	YMax, XMax float64
}

// DefaultViewport returns the full-frame viewport [(0,0), (Width, Height)].
// Width lands in YMax and Height in XMax; rendered-image consumers depend on
// this positional order, so it must not be swapped.
func DefaultViewport(info FrameInfo) Viewport {
	return Viewport{
		YMin: 0,
		XMin: 0,
		YMax: float64(info.Width),
		XMax: float64(info.Height),
	}
}

// Contains reports whether (x, y) lies strictly inside the viewport. Points
// on any of the four edges are outside, so tiled viewports never count a
// point twice.
func (v Viewport) Contains(x, y float64) bool {
	return x > v.XMin && y > v.YMin && x < v.XMax && y < v.YMax
}

// Valid reports whether both extents are positive.
func (v Viewport) Valid() bool {
	return v.YMax > v.YMin && v.XMax > v.XMin
}

func (v Viewport) String() string {
	return fmt.Sprintf("[(%g, %g), (%g, %g)]", v.YMin, v.XMin, v.YMax, v.XMax)
}

// Stats summarises what a render call did.
type Stats struct {
	Total     int     // localizations supplied
	InView    int     // localizations strictly inside the viewport
	Clamped   int     // histogram indices clamped onto the last row/column
	Skipped   int     // adaptive points dropped for non-positive precision
	SigmaX    float64 // convolution kernel sigma along columns, grid units
	SigmaY    float64 // convolution kernel sigma along rows, grid units
	KernelW   int
	KernelH   int
	Workers   int
	TotalMass float64
}

// Result is a rendered image together with the mapping needed to convert
// grid positions back to native pixels.
type Result struct {
	Image        *Image
	Viewport     Viewport
	Oversampling float64
	Method       BlurMethod
	Stats        Stats
}

// ToNative converts a grid position to native-pixel coordinates:
// native = grid/oversampling + offset.
func (r *Result) ToNative(row, col float64) (y, x float64) {
	y = row/r.Oversampling + r.Viewport.YMin
	x = col/r.Oversampling + r.Viewport.XMin
	return y, x
}

// PixelSize returns the size of one grid cell in native pixels.
func (r *Result) PixelSize() float64 {
	return 1 / r.Oversampling
}
