package export

import (
	"fmt"
	"image"
	"io"
	"math"

	"golang.org/x/image/tiff"

	"github.com/banshee-data/locrender/internal/render"
)

// WriteTIFF encodes img as 16-bit grayscale, scaled so the brightest cell
// is 65535. An all-zero image is written black.
func WriteTIFF(w io.Writer, img *render.Image) error {
	if img == nil || len(img.Pix) == 0 {
		return ErrEmptyImage
	}
	g := ToGray16(img)
	if err := tiff.Encode(w, g, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return fmt.Errorf("export: write tiff: %w", err)
	}
	return nil
}

// ToGray16 scales img linearly to the 16-bit range.
func ToGray16(img *render.Image) *image.Gray16 {
	g := image.NewGray16(image.Rect(0, 0, img.Cols, img.Rows))
	peak := img.Max()
	if !(peak > 0) {
		return g
	}
	scale := math.MaxUint16 / peak
	for r := 0; r < img.Rows; r++ {
		for c, v := range img.Row(r) {
			if v <= 0 {
				continue
			}
			i := g.PixOffset(c, r)
			u := uint16(math.Round(math.Min(v*scale, math.MaxUint16)))
			g.Pix[i] = uint8(u >> 8)
			g.Pix[i+1] = uint8(u)
		}
	}
	return g
}
