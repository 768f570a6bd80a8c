package render

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Image is the dense output grid. Pix is row-major: the cell at (row, col)
// is Pix[row*Cols+col]. An Image is owned by a single render call and is not
// safe for concurrent writes.
type Image struct {
	Rows int
	Cols int
	Pix  []float64
}

var _ mat.Matrix = (*Image)(nil)

// NewImage allocates a zeroed rows×cols grid. Negative dimensions are
// treated as zero.
func NewImage(rows, cols int) *Image {
	rows = max(rows, 0)
	cols = max(cols, 0)
	return &Image{Rows: rows, Cols: cols, Pix: make([]float64, rows*cols)}
}

// Add adds w to the cell at (row, col). Out-of-range cells are ignored.
func (im *Image) Add(row, col int, w float64) {
	if row < 0 || row >= im.Rows || col < 0 || col >= im.Cols {
		return
	}
	im.Pix[row*im.Cols+col] += w
}

// Dims returns the number of rows and columns.
func (im *Image) Dims() (r, c int) { return im.Rows, im.Cols }

// At returns the value at (row, col). It panics when out of range, as
// mat.Matrix implementations do.
func (im *Image) At(row, col int) float64 {
	if uint(row) >= uint(im.Rows) {
		panic(mat.ErrRowAccess)
	}
	if uint(col) >= uint(im.Cols) {
		panic(mat.ErrColAccess)
	}
	return im.Pix[row*im.Cols+col]
}

// Set overwrites the value at (row, col).
func (im *Image) Set(row, col int, v float64) {
	if uint(row) >= uint(im.Rows) {
		panic(mat.ErrRowAccess)
	}
	if uint(col) >= uint(im.Cols) {
		panic(mat.ErrColAccess)
	}
	im.Pix[row*im.Cols+col] = v
}

// T returns the transpose view.
func (im *Image) T() mat.Matrix { return mat.Transpose{Matrix: im} }

// Row returns the backing slice of one row.
func (im *Image) Row(row int) []float64 {
	return im.Pix[row*im.Cols : (row+1)*im.Cols]
}

// Sum returns the integrated intensity.
func (im *Image) Sum() float64 {
	if len(im.Pix) == 0 {
		return 0
	}
	return floats.Sum(im.Pix)
}

// Max returns the brightest cell value, or 0 for an empty grid.
func (im *Image) Max() float64 {
	if len(im.Pix) == 0 {
		return 0
	}
	return floats.Max(im.Pix)
}

// Scale multiplies every cell by f.
func (im *Image) Scale(f float64) {
	floats.Scale(f, im.Pix)
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	out := &Image{Rows: im.Rows, Cols: im.Cols, Pix: make([]float64, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// AddImage adds other into im cell by cell. Both grids must have the same
// shape.
func (im *Image) AddImage(other *Image) error {
	if other.Rows != im.Rows || other.Cols != im.Cols {
		return fmt.Errorf("image shape mismatch: %dx%d vs %dx%d", im.Rows, im.Cols, other.Rows, other.Cols)
	}
	floats.Add(im.Pix, other.Pix)
	return nil
}

// Crop returns a copy of the sub-grid [r0, r1) × [c0, c1), clipped to the
// image bounds.
func (im *Image) Crop(r0, c0, r1, c1 int) *Image {
	r0, c0 = max(r0, 0), max(c0, 0)
	r1, c1 = min(r1, im.Rows), min(c1, im.Cols)
	r1, c1 = max(r1, r0), max(c1, c0)
	out := NewImage(r1-r0, c1-c0)
	for r := 0; r < out.Rows; r++ {
		copy(out.Row(r), im.Pix[(r0+r)*im.Cols+c0:(r0+r)*im.Cols+c1])
	}
	return out
}

// Dense copies the image into a gonum dense matrix. It returns nil for an
// empty grid, which mat.NewDense cannot represent.
func (im *Image) Dense() *mat.Dense {
	if im.Rows == 0 || im.Cols == 0 {
		return nil
	}
	data := make([]float64, len(im.Pix))
	copy(data, im.Pix)
	return mat.NewDense(im.Rows, im.Cols, data)
}
