package render

// gridIndex truncates a remapped coordinate toward zero and clamps an index
// that lands on the upper edge (n) back onto the last cell. This happens when
// the grid dimension was rounded down or when float rounding pushes a point
// just below the viewport edge up to n.
func gridIndex(v float64, n int) (idx int, clamped bool) {
	idx = int(v)
	if idx >= n {
		return n - 1, true
	}
	return idx, false
}

// Histogram accumulates one count per point into im at
// (trunc(y'), trunc(x')). It returns the number of indices that had to be
// clamped onto the last row or column.
func Histogram(im *Image, m *Mapping) (clamped int) {
	if im.Rows == 0 || im.Cols == 0 {
		return 0
	}
	for i := range m.X {
		col, cx := gridIndex(m.X[i], im.Cols)
		row, cy := gridIndex(m.Y[i], im.Rows)
		if cx || cy {
			clamped++
		}
		im.Add(row, col, 1)
	}
	return clamped
}
