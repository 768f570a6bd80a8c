package render_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/locrender/internal/monitoring"
	"github.com/banshee-data/locrender/internal/render"
	"github.com/banshee-data/locrender/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

var frame10 = render.FrameInfo{Width: 10, Height: 10}

func expNeg(v float64) float64 { return math.Exp(-v) }

func vp(yMin, xMin, yMax, xMax float64) *render.Viewport {
	return &render.Viewport{YMin: yMin, XMin: xMin, YMax: yMax, XMax: xMax}
}

func mustRender(t *testing.T, locs render.Localizations, info render.FrameInfo, opts render.Options) *render.Result {
	t.Helper()
	res, err := render.Render(context.Background(), locs, info, opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestRender_Scenarios(t *testing.T) {
	t.Parallel()

	t.Run("A single point oversampling 1", func(t *testing.T) {
		t.Parallel()
		locs := testutil.Locs(0.1, [2]float64{5.0, 5.0})
		res := mustRender(t, locs, frame10, render.Options{Oversampling: 1, Viewport: vp(0, 0, 10, 10)})

		assert.Equal(t, 10, res.Image.Rows)
		assert.Equal(t, 10, res.Image.Cols)
		assert.Equal(t, 1.0, res.Image.At(5, 5))
		assert.Equal(t, [][2]int{{5, 5}}, testutil.NonZeroCells(res.Image))
	})

	t.Run("B single point oversampling 2", func(t *testing.T) {
		t.Parallel()
		locs := testutil.Locs(0.1, [2]float64{5.0, 5.0})
		res := mustRender(t, locs, frame10, render.Options{Oversampling: 2, Viewport: vp(0, 0, 10, 10)})

		assert.Equal(t, 20, res.Image.Rows)
		assert.Equal(t, 20, res.Image.Cols)
		assert.Equal(t, 1.0, res.Image.At(10, 10))
		assert.Equal(t, [][2]int{{10, 10}}, testutil.NonZeroCells(res.Image))
	})

	t.Run("C point on the viewport edge is dropped", func(t *testing.T) {
		t.Parallel()
		locs := testutil.Locs(0.1, [2]float64{10.0, 5.0})
		res := mustRender(t, locs, frame10, render.Options{Oversampling: 1, Viewport: vp(0, 0, 10, 10)})

		assert.Empty(t, testutil.NonZeroCells(res.Image))
		assert.Equal(t, 0, res.Stats.InView)
		assert.Equal(t, 100, len(res.Image.Pix))
	})

	t.Run("D two points share a cell", func(t *testing.T) {
		t.Parallel()
		locs := testutil.Locs(0.1, [2]float64{5.2, 5.7}, [2]float64{5.9, 5.1})
		res := mustRender(t, locs, frame10, render.Options{Oversampling: 1, Viewport: vp(0, 0, 10, 10)})

		assert.Equal(t, 2.0, res.Image.At(5, 5))
		assert.Equal(t, 2.0, res.Image.Sum())
	})
}

func TestRender_BoundaryExclusiveOnAllEdges(t *testing.T) {
	t.Parallel()

	locs := testutil.Locs(0.1,
		// x on x_min and x_max
		[2]float64{0, 5}, [2]float64{10, 5},
		// y on y_min and y_max
		[2]float64{5, 0}, [2]float64{5, 10},
		[2]float64{-1, 5}, [2]float64{5, 11},
		// inside, near a corner
		[2]float64{0.001, 9.999},
	)
	res := mustRender(t, locs, frame10, render.Options{Oversampling: 1, Viewport: vp(0, 0, 10, 10)})

	assert.Equal(t, 1, res.Stats.InView)
	assert.Equal(t, 7, res.Stats.Total)
	assert.Equal(t, [][2]int{{9, 0}}, testutil.NonZeroCells(res.Image))
}

func TestRender_DefaultViewportIsWidthThenHeight(t *testing.T) {
	t.Parallel()

	// The default viewport is [(0,0), (Width, Height)]: Width bounds y and
	// drives the row count, Height bounds x and drives the column count.
	info := render.FrameInfo{Width: 20, Height: 8}
	locs := testutil.Locs(0.1, [2]float64{7.5, 15.5}, [2]float64{9.0, 3.0})
	res := mustRender(t, locs, info, render.DefaultOptions())

	assert.Equal(t, render.Viewport{YMin: 0, XMin: 0, YMax: 20, XMax: 8}, res.Viewport)
	assert.Equal(t, 20, res.Image.Rows)
	assert.Equal(t, 8, res.Image.Cols)
	// x=9.0 is outside x_max=8.
	assert.Equal(t, 1, res.Stats.InView)
	assert.Equal(t, 1.0, res.Image.At(15, 7))
}

func TestRender_EmptyViewportIsNotAnError(t *testing.T) {
	t.Parallel()

	for _, method := range []render.BlurMethod{render.BlurNone, render.BlurConvolve, render.BlurAdaptive} {
		t.Run(method.String(), func(t *testing.T) {
			t.Parallel()
			locs := testutil.Locs(0.5, [2]float64{50, 50})
			res := mustRender(t, locs, frame10, render.Options{Oversampling: 3, Viewport: vp(0, 0, 10, 10), Method: method})

			assert.Equal(t, 30, res.Image.Rows)
			assert.Equal(t, 30, res.Image.Cols)
			assert.Zero(t, res.Image.Sum())
			assert.Zero(t, res.Stats.InView)
		})
	}

	t.Run("no localizations at all", func(t *testing.T) {
		t.Parallel()
		res := mustRender(t, render.Localizations{}, frame10, render.Options{Oversampling: 1, Method: render.BlurConvolve})
		assert.Equal(t, 100, len(res.Image.Pix))
		assert.Zero(t, res.Image.Sum())
	})
}

func TestRender_HistogramSumsToInViewCount(t *testing.T) {
	t.Parallel()

	locs := testutil.RandomLocs(1, 5000, 40, 40, 0, 0.1, 0.2)
	for _, k := range []float64{1, 2.5, 7, 10} {
		res := mustRender(t, locs, render.FrameInfo{Width: 40, Height: 40}, render.Options{
			Oversampling: k,
			Viewport:     vp(5, 10, 25, 35),
		})
		assert.Equal(t, float64(res.Stats.InView), res.Image.Sum(), "oversampling %v", k)
		assert.Greater(t, res.Stats.InView, 0)
		assert.Less(t, res.Stats.InView, locs.Len())
	}
}

func TestRender_ClampsUpperEdgeIndex(t *testing.T) {
	t.Parallel()

	// round(10.4) = 10 columns, so x' = 10.2 truncates to 10 and must be
	// clamped onto column 9 instead of being lost or faulting.
	locs := testutil.Locs(0.1, [2]float64{10.2, 3.5})
	res := mustRender(t, locs, render.FrameInfo{Width: 20, Height: 20}, render.Options{
		Oversampling: 1,
		Viewport:     vp(0, 0, 10, 10.4),
	})

	require.Equal(t, 10, res.Image.Cols)
	assert.Equal(t, 1.0, res.Image.At(3, 9))
	assert.Equal(t, 1, res.Stats.Clamped)
	assert.Equal(t, 1.0, res.Image.Sum())
}

func TestRender_GridShapeRoundsHalfToEven(t *testing.T) {
	t.Parallel()

	res := mustRender(t, render.Localizations{}, frame10, render.Options{
		Oversampling: 1,
		Viewport:     vp(0, 0, 2.5, 3.5),
	})
	assert.Equal(t, 2, res.Image.Rows)
	assert.Equal(t, 4, res.Image.Cols)
}

func TestRender_ViewportComposition(t *testing.T) {
	t.Parallel()

	// Coordinates are multiples of 1/64 offset by 1/128, so every remapped
	// value is exact and no point sits on a cell edge or the crop edge.
	locs := testutil.RandomLocs(3, 4000, 10, 10, 0, 0.1, 0.1)
	for i := range locs.X {
		locs.X[i] = float64(int(locs.X[i]*64))/64 + 1.0/128
		locs.Y[i] = float64(int(locs.Y[i]*64))/64 + 1.0/128
	}

	for _, k := range []float64{1, 2, 4} {
		full := mustRender(t, locs, frame10, render.Options{Oversampling: k, Viewport: vp(0, 0, 10, 10)})
		crop := mustRender(t, locs, frame10, render.Options{Oversampling: k, Viewport: vp(2, 3, 8, 9)})

		r0, c0 := int(2*k), int(3*k)
		want := full.Image.Crop(r0, c0, r0+crop.Image.Rows, c0+crop.Image.Cols)
		testutil.AssertGridEqual(t, testutil.Grid(want), crop.Image, 0)
	}
}

func TestRender_ConvolveConservesMass(t *testing.T) {
	t.Parallel()

	info := render.FrameInfo{Width: 32, Height: 32}
	for _, lp := range []float64{0.0, 0.02, 0.1, 0.25, 0.6} {
		locs := testutil.RandomLocs(5, 3000, 32, 32, 0, lp, lp)
		res := mustRender(t, locs, info, render.Options{
			Oversampling: 4,
			Viewport:     vp(4, 4, 28, 28),
			Method:       render.BlurConvolve,
		})
		inView := float64(res.Stats.InView)
		assert.InDelta(t, inView, res.Image.Sum(), 1e-9*inView, "lp=%v", lp)
		testutil.AssertNonNegative(t, res.Image)
	}
}

func TestRender_ConvolveKernelFromMedianPrecision(t *testing.T) {
	t.Parallel()

	var locs render.Localizations
	locs.Append(20.5, 20.5, 0.2, 0.4)
	locs.Append(10.5, 10.5, 0.3, 0.5)
	locs.Append(30.5, 30.5, 5.0, 9.0) // outlier, does not move the median
	locs.Append(50.5, 50.5, 0.2, 0.2) // outside the viewport

	res := mustRender(t, locs, render.FrameInfo{Width: 48, Height: 48}, render.Options{
		Oversampling: 10,
		Viewport:     vp(0, 0, 40, 40),
		Method:       render.BlurConvolve,
	})

	assert.InDelta(t, 3.0, res.Stats.SigmaX, 1e-12)
	assert.InDelta(t, 5.0, res.Stats.SigmaY, 1e-12)
	assert.Equal(t, 31, res.Stats.KernelW)
	assert.Equal(t, 51, res.Stats.KernelH)
	assert.InDelta(t, 3.0, res.Image.Sum(), 1e-9)
}

func TestRender_ConvolveSinglePointIsCentredGaussian(t *testing.T) {
	t.Parallel()

	locs := testutil.Locs(2.0, [2]float64{20.5, 20.5})
	res := mustRender(t, locs, render.FrameInfo{Width: 41, Height: 41}, render.Options{
		Oversampling: 1,
		Method:       render.BlurConvolve,
	})
	im := res.Image
	peak := im.At(20, 20)

	assert.Equal(t, peak, im.Max())
	assert.InDelta(t, im.At(20, 18), im.At(20, 22), 1e-12)
	assert.InDelta(t, im.At(17, 20), im.At(23, 20), 1e-12)
	// Neighbour ratio of a sampled Gaussian with sigma 2: exp(1/8).
	assert.InEpsilon(t, 1.1331484530668263, peak/im.At(20, 21), 1e-9)
	assert.InDelta(t, 1.0, im.Sum(), 1e-9)
}

func TestRender_ConvolveDegenerateKernelIsHistogram(t *testing.T) {
	t.Parallel()

	locs := testutil.RandomLocs(9, 200, 10, 10, 0, 0, 0)
	hist := mustRender(t, locs, frame10, render.Options{Oversampling: 2})
	conv := mustRender(t, locs, frame10, render.Options{Oversampling: 2, Method: render.BlurConvolve})

	assert.Equal(t, 1, conv.Stats.KernelW)
	assert.Equal(t, 1, conv.Stats.KernelH)
	testutil.AssertGridEqual(t, testutil.Grid(hist.Image), conv.Image, 1e-12)
}

func TestRender_AdaptiveInteriorPointMass(t *testing.T) {
	t.Parallel()

	locs := testutil.Locs(2.0, [2]float64{20.3, 20.6})
	res := mustRender(t, locs, render.FrameInfo{Width: 41, Height: 41}, render.Options{
		Oversampling: 1,
		Method:       render.BlurAdaptive,
	})

	sum := res.Image.Sum()
	assert.GreaterOrEqual(t, sum, 0.99)
	assert.LessOrEqual(t, sum, 1.0+1e-9)

	// Peak sits at the cell nearest the point and follows the density.
	assert.Equal(t, res.Image.Max(), res.Image.At(21, 20))
	want := 1 / (2 * math.Pi * 4) * expNeg((0.3*0.3+0.4*0.4)/8)
	assert.InEpsilon(t, want, res.Image.At(21, 20), 1e-12)
}

func TestRender_AdaptiveOversampledWidth(t *testing.T) {
	t.Parallel()

	// lp 0.5 at oversampling 4 is a sigma of 2 grid cells.
	locs := testutil.Locs(0.5, [2]float64{5.0, 5.0})
	res := mustRender(t, locs, frame10, render.Options{Oversampling: 4, Method: render.BlurAdaptive})

	im := res.Image
	assert.InEpsilon(t, 1/(2*math.Pi*4), im.At(20, 20), 1e-12)
	assert.InEpsilon(t, expNeg(1.0/8), im.At(20, 21)/im.At(20, 20), 1e-12)
	// ±3 sigma window: column 26 is the last one written, 27 is untouched.
	assert.Greater(t, im.At(20, 26), 0.0)
	assert.Zero(t, im.At(20, 27))
	assert.Zero(t, im.At(20, 13))
	assert.Greater(t, im.At(20, 14), 0.0)
}

func TestRender_AdaptiveBorderPointIsTruncated(t *testing.T) {
	t.Parallel()

	locs := testutil.Locs(2.0, [2]float64{0.2, 0.2})
	res := mustRender(t, locs, render.FrameInfo{Width: 41, Height: 41}, render.Options{
		Oversampling: 1,
		Method:       render.BlurAdaptive,
	})

	sum := res.Image.Sum()
	assert.Greater(t, sum, 0.0)
	assert.Less(t, sum, 0.45)
	testutil.AssertNonNegative(t, res.Image)
}

func TestRender_AdaptiveSkipsDegeneratePrecision(t *testing.T) {
	t.Parallel()

	var locs render.Localizations
	locs.Append(5, 5, 0, 0.3)
	locs.Append(6, 6, 0.3, -1)
	locs.Append(7, 7, 0.3, 0.3)

	res := mustRender(t, locs, frame10, render.Options{Oversampling: 2, Method: render.BlurAdaptive})
	assert.Equal(t, 2, res.Stats.Skipped)
	assert.Equal(t, 3, res.Stats.InView)
	assert.Greater(t, res.Image.At(14, 14), 0.0)
	assert.Zero(t, res.Image.At(10, 10))
}

func TestRender_AdaptiveWorkersAgree(t *testing.T) {
	t.Parallel()

	locs := testutil.RandomLocs(11, 20000, 16, 16, 0, 0.05, 0.2)
	info := render.FrameInfo{Width: 16, Height: 16}

	single := mustRender(t, locs, info, render.Options{Oversampling: 4, Method: render.BlurAdaptive, Workers: 1})
	multi := mustRender(t, locs, info, render.Options{Oversampling: 4, Method: render.BlurAdaptive, Workers: 4})

	assert.Equal(t, 1, single.Stats.Workers)
	assert.Equal(t, 4, multi.Stats.Workers)
	testutil.AssertGridEqual(t, testutil.Grid(single.Image), multi.Image, 1e-9)
}

func TestRender_Idempotent(t *testing.T) {
	t.Parallel()

	locs := testutil.RandomLocs(13, 12000, 24, 24, 0, 0.05, 0.3)
	info := render.FrameInfo{Width: 24, Height: 24}

	for _, method := range []render.BlurMethod{render.BlurNone, render.BlurConvolve, render.BlurAdaptive} {
		opts := render.Options{Oversampling: 3, Viewport: vp(2, 2, 22, 20), Method: method, Workers: 3}
		a := mustRender(t, locs, info, opts)
		b := mustRender(t, locs, info, opts)
		assert.Equal(t, a.Image.Pix, b.Image.Pix, "method %s is not bit-identical across calls", method)
	}
}

func TestRender_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	locs := testutil.RandomLocs(17, 500, 10, 10, 0, 0.05, 0.3)
	before := testutil.RandomLocs(17, 500, 10, 10, 0, 0.05, 0.3)
	for _, method := range []render.BlurMethod{render.BlurNone, render.BlurConvolve, render.BlurAdaptive} {
		mustRender(t, locs, frame10, render.Options{Oversampling: 2, Method: method})
	}
	assert.Equal(t, before, locs)
}

func TestRender_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	locs := testutil.Locs(0.1, [2]float64{5, 5})
	tests := []struct {
		name string
		locs render.Localizations
		opts render.Options
		want error
	}{
		{"unknown method", locs, render.Options{Oversampling: 1, Method: render.BlurMethod(7)}, render.ErrInvalidConfiguration},
		{"zero oversampling", locs, render.Options{Oversampling: 0}, render.ErrInvalidConfiguration},
		{"negative oversampling", locs, render.Options{Oversampling: -2}, render.ErrInvalidConfiguration},
		{"negative workers", locs, render.Options{Oversampling: 1, Workers: -1}, render.ErrInvalidConfiguration},
		{"blur without precision", render.Localizations{X: []float64{5}, Y: []float64{5}}, render.Options{Oversampling: 1, Method: render.BlurConvolve}, render.ErrInvalidConfiguration},
		{"ragged columns", render.Localizations{X: []float64{5, 6}, Y: []float64{5}}, render.Options{Oversampling: 1}, render.ErrColumnLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := render.Render(context.Background(), tt.locs, frame10, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Nil(t, res)
		})
	}
}

func TestRender_HistogramWithoutPrecisionColumns(t *testing.T) {
	t.Parallel()

	locs := render.Localizations{X: []float64{1.5, 2.5}, Y: []float64{3.5, 3.5}}
	res := mustRender(t, locs, frame10, render.DefaultOptions())
	assert.Equal(t, 1.0, res.Image.At(3, 1))
	assert.Equal(t, 1.0, res.Image.At(3, 2))
}

func TestRender_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	locs := testutil.RandomLocs(19, 100, 10, 10, 0, 0.1, 0.2)
	_, err := render.Render(ctx, locs, frame10, render.Options{Oversampling: 2, Method: render.BlurAdaptive})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_ToNative(t *testing.T) {
	t.Parallel()

	res := &render.Result{Oversampling: 4, Viewport: *vp(10, 20, 30, 40)}
	y, x := res.ToNative(8, 2)
	assert.Equal(t, 12.0, y)
	assert.Equal(t, 20.5, x)
	assert.Equal(t, 0.25, res.PixelSize())
}

func TestParseBlurMethod(t *testing.T) {
	t.Parallel()

	tests := map[string]render.BlurMethod{
		"":         render.BlurNone,
		"none":     render.BlurNone,
		"convolve": render.BlurConvolve,
		"Adaptive": render.BlurAdaptive,
		"gaussian": render.BlurAdaptive,
	}
	for in, want := range tests {
		got, err := render.ParseBlurMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := render.ParseBlurMethod("median")
	assert.ErrorIs(t, err, render.ErrInvalidConfiguration)

	var m render.BlurMethod
	require.NoError(t, m.UnmarshalText([]byte("convolve")))
	assert.Equal(t, render.BlurConvolve, m)
	text, err := render.BlurAdaptive.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "adaptive", string(text))
}
