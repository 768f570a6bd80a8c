// Package testutil provides shared test fixtures and assertion helpers for
// the renderer, the localization store and the exporters.
package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/locrender/internal/render"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Locs builds a column set from (x, y) pairs with a uniform precision.
func Locs(precision float64, xy ...[2]float64) render.Localizations {
	var l render.Localizations
	for _, p := range xy {
		l.Append(p[0], p[1], precision, precision)
	}
	return l
}

// RandomLocs returns n localizations uniformly spread over
// (margin, w-margin) × (margin, h-margin) with precisions in [lpMin, lpMax).
// The generator is seeded, so fixtures are reproducible.
func RandomLocs(seed uint64, n int, w, h, margin, lpMin, lpMax float64) render.Localizations {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var l render.Localizations
	for i := 0; i < n; i++ {
		x := margin + rng.Float64()*(w-2*margin)
		y := margin + rng.Float64()*(h-2*margin)
		lpx := lpMin + rng.Float64()*(lpMax-lpMin)
		lpy := lpMin + rng.Float64()*(lpMax-lpMin)
		l.Append(x, y, lpx, lpy)
	}
	return l
}

// Grid converts an image to nested rows for readable diffs.
func Grid(im *render.Image) [][]float64 {
	out := make([][]float64, im.Rows)
	for r := range out {
		out[r] = append([]float64(nil), im.Row(r)...)
	}
	return out
}

// AssertGridEqual fails the test with a cell diff when got differs from want
// by more than tol in any cell.
func AssertGridEqual(t testing.TB, want [][]float64, got *render.Image, tol float64) {
	t.Helper()
	opt := cmpopts.EquateApprox(0, tol)
	if diff := cmp.Diff(want, Grid(got), opt); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

// NonZeroCells lists the coordinates of every non-zero cell.
func NonZeroCells(im *render.Image) [][2]int {
	var out [][2]int
	for r := 0; r < im.Rows; r++ {
		for c, v := range im.Row(r) {
			if v != 0 {
				out = append(out, [2]int{r, c})
			}
		}
	}
	return out
}

// AssertNonNegative fails the test if any cell is negative or NaN.
func AssertNonNegative(t testing.TB, im *render.Image) {
	t.Helper()
	for i, v := range im.Pix {
		if v < 0 || math.IsNaN(v) {
			t.Fatalf("cell %d (row %d, col %d) = %v", i, i/im.Cols, i%im.Cols, v)
		}
	}
}
