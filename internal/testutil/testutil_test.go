package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/locrender/internal/render"
)

func TestAssertHelpersPass(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
	AssertError(t, errors.New("test error"))
}

func TestLocs(t *testing.T) {
	t.Parallel()

	l := Locs(0.5, [2]float64{1, 2}, [2]float64{3, 4})
	assert.Equal(t, []float64{1, 3}, l.X)
	assert.Equal(t, []float64{2, 4}, l.Y)
	assert.Equal(t, []float64{0.5, 0.5}, l.LPX)
	assert.NoError(t, l.Validate())
}

func TestRandomLocsDeterministic(t *testing.T) {
	t.Parallel()

	a := RandomLocs(7, 100, 32, 16, 1, 0.1, 0.3)
	b := RandomLocs(7, 100, 32, 16, 1, 0.1, 0.3)
	assert.Equal(t, a, b)

	for i := 0; i < a.Len(); i++ {
		assert.Greater(t, a.X[i], 1.0)
		assert.Less(t, a.X[i], 31.0)
		assert.Greater(t, a.Y[i], 1.0)
		assert.Less(t, a.Y[i], 15.0)
		assert.GreaterOrEqual(t, a.LPX[i], 0.1)
		assert.Less(t, a.LPY[i], 0.3)
	}
}

func TestGridAndNonZeroCells(t *testing.T) {
	t.Parallel()

	im := render.NewImage(2, 3)
	im.Add(1, 2, 4)
	AssertGridEqual(t, [][]float64{{0, 0, 0}, {0, 0, 4}}, im, 0)
	assert.Equal(t, [][2]int{{1, 2}}, NonZeroCells(im))
	AssertNonNegative(t, im)
}
