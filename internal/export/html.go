package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/locrender/internal/monitoring"
	"github.com/banshee-data/locrender/internal/render"
)

var heatColors = []string{"#000000", "#3b0f70", "#8c2981", "#de4968", "#fe9f6d", "#fcfdbf"}

// Downsample sums img over square blocks so the result has at most maxCells
// cells. It returns the block edge used; 1 means img is returned unchanged.
func Downsample(img *render.Image, maxCells int) (*render.Image, int) {
	if maxCells <= 0 || img.Rows*img.Cols <= maxCells {
		return img, 1
	}
	f := 2
	for ceilDiv(img.Rows, f)*ceilDiv(img.Cols, f) > maxCells {
		f++
	}
	out := render.NewImage(ceilDiv(img.Rows, f), ceilDiv(img.Cols, f))
	for r := 0; r < img.Rows; r++ {
		for c, v := range img.Row(r) {
			out.Add(r/f, c/f, v)
		}
	}
	return out, f
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// WriteHTML writes res as a self-contained echarts heatmap page. Images
// larger than maxCells are block-summed first. Axis labels are native
// pixels at block centres, with row 0 at the top.
func WriteHTML(w io.Writer, res *render.Result, maxCells int) error {
	if res == nil || res.Image == nil || len(res.Image.Pix) == 0 {
		return ErrEmptyImage
	}
	img, f := Downsample(res.Image, maxCells)

	xs := make([]string, img.Cols)
	for c := range xs {
		_, x := res.ToNative(0, (float64(c)+0.5)*float64(f))
		xs[c] = fmt.Sprintf("%.4g", x)
	}
	// echarts puts the first category at the bottom.
	ys := make([]string, img.Rows)
	for r := range ys {
		y, _ := res.ToNative((float64(r)+0.5)*float64(f), 0)
		ys[img.Rows-1-r] = fmt.Sprintf("%.4g", y)
	}

	data := make([]opts.HeatMapData, 0, len(img.Pix))
	for r := 0; r < img.Rows; r++ {
		for c, v := range img.Row(r) {
			if v == 0 {
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, img.Rows - 1 - r, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Localization render", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s render", res.Method),
			Subtitle: fmt.Sprintf("k=%g viewport=%s in_view=%d block=%d", res.Oversampling, res.Viewport, res.Stats.InView, f),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "y (px)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(img.Max()),
			InRange:    &opts.VisualMapInRange{Color: heatColors},
		}),
	)
	hm.SetXAxis(xs).AddSeries("density", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("export: write html: %w", err)
	}
	monitoring.Logf("export: html %dx%d cells (block %d, %d non-zero)", img.Rows, img.Cols, f, len(data))
	return nil
}
