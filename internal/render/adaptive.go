package render

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minPointsPerWorker keeps small renders on the calling goroutine, where a
// private grid per worker would cost more than it saves.
const minPointsPerWorker = 2048

// SplatInfo describes an AdaptiveSplat run.
type SplatInfo struct {
	Skipped int // points with non-positive or non-finite precision
	Workers int
}

// AdaptiveSplat adds one bivariate Gaussian per in-view point to im, using
// the point's own oversampled precision as the per-axis sigma and a window
// of ±3 sigma clipped to the grid.
//
// Points are split into contiguous chunks, each rendered into a private grid
// and then summed into im in chunk order, so a given worker count always
// produces the same bits. workers <= 0 selects runtime.GOMAXPROCS(0).
func AdaptiveSplat(ctx context.Context, im *Image, m *Mapping, workers int) (SplatInfo, error) {
	n := m.Len()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(min(workers, n/minPointsPerWorker), 1)
	info := SplatInfo{Workers: workers}

	if im.Rows == 0 || im.Cols == 0 || n == 0 {
		return info, nil
	}

	if workers == 1 {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		info.Skipped = splatPoints(im, m.X, m.Y, m.LPX, m.LPY, m.Oversampling)
		return info, nil
	}

	parts := make([]*Image, workers)
	skipped := make([]int, workers)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := min(w*chunk, n)
		hi := min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part := NewImage(im.Rows, im.Cols)
			skipped[w] = splatPoints(part, m.X[lo:hi], m.Y[lo:hi], m.LPX[lo:hi], m.LPY[lo:hi], m.Oversampling)
			parts[w] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return info, err
	}

	for w, part := range parts {
		if err := im.AddImage(part); err != nil {
			return info, err
		}
		info.Skipped += skipped[w]
	}
	return info, nil
}

// splatPoints is the single-threaded kernel shared by every worker.
func splatPoints(im *Image, x, y, lpx, lpy []float64, oversampling float64) (skipped int) {
	rows, cols := im.Rows, im.Cols
	for p := range x {
		sx := oversampling * lpx[p]
		sy := oversampling * lpy[p]
		if !(sx > 0) || !(sy > 0) || math.IsInf(sx, 0) || math.IsInf(sy, 0) {
			skipped++
			continue
		}
		xp, yp := x[p], y[p]

		iMin := int(math.Max(yp-3*sy, 0))
		iMax := int(math.Min(yp+3*sy+1, float64(rows)))
		jMin := int(math.Max(xp-3*sx, 0))
		jMax := int(math.Min(xp+3*sx, float64(cols-1))) + 1

		dx2 := 2 * sx * sx
		dy2 := 2 * sy * sy
		norm := 2 * math.Pi * sx * sy
		for i := iMin; i < iMax; i++ {
			dy := float64(i) - yp
			ey := dy * dy / dy2
			row := im.Pix[i*cols : (i+1)*cols]
			for j := jMin; j < jMax; j++ {
				dx := float64(j) - xp
				row[j] += math.Exp(-(dx*dx/dx2 + ey)) / norm
			}
		}
	}
	return skipped
}
