package render

import "math"

// Mapping is the viewport mapper's output: the grid shape and the in-view
// points remapped into oversampled grid units.
type Mapping struct {
	Viewport     Viewport
	Oversampling float64
	Rows         int
	Cols         int

	// InView flags each input localization that survived the filter.
	InView []bool

	// Remapped coordinates of the surviving points, in input order.
	X []float64
	Y []float64

	// Native-unit precisions of the surviving points. Nil when the input had
	// no precision columns.
	LPX []float64
	LPY []float64
}

// Len returns the number of in-view points.
func (m *Mapping) Len() int { return len(m.X) }

// Empty reports whether no point landed inside the viewport.
func (m *Mapping) Empty() bool { return len(m.X) == 0 }

// GridShape returns the output grid shape for a viewport and oversampling
// factor. Both dimensions round half to even.
func GridShape(vp Viewport, oversampling float64) (rows, cols int) {
	rows = int(math.RoundToEven(oversampling * (vp.YMax - vp.YMin)))
	cols = int(math.RoundToEven(oversampling * (vp.XMax - vp.XMin)))
	return max(rows, 0), max(cols, 0)
}

// MapViewport resolves the viewport (nil selects DefaultViewport(info)),
// computes the grid shape, keeps the localizations strictly inside the
// viewport and remaps them to grid units: x' = k(x - x_min), y' = k(y - y_min).
func MapViewport(locs Localizations, info FrameInfo, oversampling float64, viewport *Viewport) *Mapping {
	vp := DefaultViewport(info)
	if viewport != nil {
		vp = *viewport
	}
	rows, cols := GridShape(vp, oversampling)

	n := locs.Len()
	m := &Mapping{
		Viewport:     vp,
		Oversampling: oversampling,
		Rows:         rows,
		Cols:         cols,
		InView:       make([]bool, n),
	}

	count := 0
	for i := 0; i < n; i++ {
		if vp.Contains(locs.X[i], locs.Y[i]) {
			m.InView[i] = true
			count++
		}
	}
	if count == 0 {
		return m
	}

	m.X = make([]float64, 0, count)
	m.Y = make([]float64, 0, count)
	withPrecision := locs.HasPrecision()
	if withPrecision {
		m.LPX = make([]float64, 0, count)
		m.LPY = make([]float64, 0, count)
	}
	for i, in := range m.InView {
		if !in {
			continue
		}
		m.X = append(m.X, oversampling*(locs.X[i]-vp.XMin))
		m.Y = append(m.Y, oversampling*(locs.Y[i]-vp.YMin))
		if withPrecision {
			m.LPX = append(m.LPX, locs.LPX[i])
			m.LPY = append(m.LPY, locs.LPY[i])
		}
	}
	return m
}
