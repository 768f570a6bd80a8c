// Package export writes rendered localization images as PNG heatmaps,
// 16-bit TIFF and interactive HTML.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/locrender/internal/monitoring"
	"github.com/banshee-data/locrender/internal/render"
)

// ErrEmptyImage is returned when there is nothing to draw.
var ErrEmptyImage = errors.New("export: image has no cells")

// PNGOptions controls WritePNG.
type PNGOptions struct {
	// WidthIn is the figure width in inches. Zero means 8.
	WidthIn float64
	Title   string
	// Colors is the palette size. Zero means 256.
	Colors int
}

// resultGrid adapts a render result to plotter.GridXYZ with native-pixel
// cell centres.
type resultGrid struct {
	res *render.Result
}

func (g resultGrid) Dims() (c, r int) { return g.res.Image.Cols, g.res.Image.Rows }

func (g resultGrid) Z(c, r int) float64 { return g.res.Image.At(r, c) }

func (g resultGrid) X(c int) float64 {
	_, x := g.res.ToNative(0, float64(c)+0.5)
	return x
}

func (g resultGrid) Y(r int) float64 {
	y, _ := g.res.ToNative(float64(r)+0.5, 0)
	return y
}

// WritePNG draws res as a heatmap in native-pixel coordinates. Row 0 is at
// the top, matching image convention.
func WritePNG(w io.Writer, res *render.Result, o PNGOptions) error {
	if res == nil || res.Image == nil || len(res.Image.Pix) == 0 {
		return ErrEmptyImage
	}
	width := o.WidthIn
	if width <= 0 {
		width = 8
	}
	colors := o.Colors
	if colors <= 0 {
		colors = 256
	}

	cm := moreland.ExtendedBlackBody()
	cm.SetMin(0)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(resultGrid{res: res}, cm.Palette(colors))
	hm.Min, hm.Max = 0, res.Image.Max()
	if !(hm.Max > hm.Min) {
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = o.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s, k=%g", res.Method, res.Oversampling)
	}
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}
	p.Add(hm)

	aspect := float64(res.Image.Rows) / float64(res.Image.Cols)
	height := math.Min(math.Max(width*aspect, 2), 4*width)

	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("export: png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("export: write png: %w", err)
	}
	monitoring.Logf("export: png %dx%d cells, %.1fx%.1f in", res.Image.Rows, res.Image.Cols, width, height)
	return nil
}
