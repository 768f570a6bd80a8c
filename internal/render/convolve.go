package render

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/dsp/fourier"
)

// KernelInfo describes the global kernel used by ConvolveBlur.
type KernelInfo struct {
	SigmaY, SigmaX float64 // grid units
	Height, Width  int
	Clamped        int // histogram indices clamped onto the grid edge
}

// Identity reports whether the kernel collapsed to a single tap.
func (k KernelInfo) Identity() bool { return k.Height == 1 && k.Width == 1 }

// ConvolveBlur renders the histogram of m into im and blurs it with a single
// separable Gaussian whose sigmas are the oversampled median precisions of
// the in-view points. The result is renormalised so that it sums to the
// number of rendered localizations.
func ConvolveBlur(im *Image, m *Mapping) KernelInfo {
	var info KernelInfo
	info.Clamped = Histogram(im, m)
	if im.Rows == 0 || im.Cols == 0 || m.Empty() {
		return info
	}

	info.SigmaY = m.Oversampling * median(m.LPY)
	info.SigmaX = m.Oversampling * median(m.LPX)
	info.Height = kernelLength(info.SigmaY)
	info.Width = kernelLength(info.SigmaX)

	if !info.Identity() {
		ky := gaussianWindow(info.Height, info.SigmaY)
		kx := gaussianWindow(info.Width, info.SigmaX)
		blurred := fftConvolveSame(im, ky, kx)
		copy(im.Pix, blurred.Pix)
	}

	if total := im.Sum(); total > 0 {
		im.Scale(float64(m.Len()) / total)
	}
	return info
}

// median follows numpy: the mean of the two middle values for an even count.
func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := slices.Clone(v)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// kernelLength is 10*round(sigma)+1: odd, and about five sigmas either side.
func kernelLength(sigma float64) int {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return 1
	}
	return 10*int(math.RoundToEven(sigma)) + 1
}

// gaussianWindow returns the symmetric window
// w[n] = exp(-(n-(m-1)/2)² / (2 std²)). A one-tap window is [1].
func gaussianWindow(m int, std float64) []float64 {
	w := make([]float64, m)
	if m == 1 || !(std > 0) {
		w[m/2] = 1
		return w
	}
	c := float64(m-1) / 2
	for n := range w {
		d := float64(n) - c
		w[n] = math.Exp(-d * d / (2 * std * std))
	}
	return w
}

// fftConvolveSame returns the linear convolution of im with the kernel
// ky ⊗ kx, cropped to the shape of im with the kernel centred. Negative
// round-off from the transform is clamped to zero.
func fftConvolveSame(im *Image, ky, kx []float64) *Image {
	rows, cols := im.Rows, im.Cols
	kh, kw := len(ky), len(kx)
	p := nextFastLen(rows + kh - 1)
	q := nextFastLen(cols + kw - 1)

	rowFFT := fourier.NewFFT(q)
	colFFT := fourier.NewCmplxFFT(p)

	kernel := make([]float64, kh*kw)
	for r, vy := range ky {
		for c, vx := range kx {
			kernel[r*kw+c] = vy * vx
		}
	}

	spec := forward2D(im.Pix, rows, cols, p, q, rowFFT, colFFT)
	kspec := forward2D(kernel, kh, kw, p, q, rowFFT, colFFT)
	for i := range spec {
		spec[i] *= kspec[i]
	}
	full := inverse2D(spec, p, q, rowFFT, colFFT)

	out := NewImage(rows, cols)
	r0, c0 := (kh-1)/2, (kw-1)/2
	scale := 1 / float64(p*q)
	for r := 0; r < rows; r++ {
		src := full[(r+r0)*q+c0 : (r+r0)*q+c0+cols]
		dst := out.Row(r)
		for c, v := range src {
			v *= scale
			if v < 0 {
				v = 0
			}
			dst[c] = v
		}
	}
	return out
}

// forward2D zero-pads a rows×cols real array to p×q and returns its
// half-spectrum as p rows of q/2+1 coefficients.
func forward2D(data []float64, rows, cols, p, q int, rowFFT *fourier.FFT, colFFT *fourier.CmplxFFT) []complex128 {
	nc := q/2 + 1
	spec := make([]complex128, p*nc)

	seq := make([]float64, q)
	for r := 0; r < rows; r++ {
		clear(seq)
		copy(seq, data[r*cols:(r+1)*cols])
		rowFFT.Coefficients(spec[r*nc:(r+1)*nc], seq)
	}

	col := make([]complex128, p)
	tmp := make([]complex128, p)
	for c := 0; c < nc; c++ {
		for r := 0; r < p; r++ {
			col[r] = spec[r*nc+c]
		}
		colFFT.Coefficients(tmp, col)
		for r := 0; r < p; r++ {
			spec[r*nc+c] = tmp[r]
		}
	}
	return spec
}

// inverse2D undoes forward2D without the 1/(p*q) normalisation.
func inverse2D(spec []complex128, p, q int, rowFFT *fourier.FFT, colFFT *fourier.CmplxFFT) []float64 {
	nc := q/2 + 1

	col := make([]complex128, p)
	tmp := make([]complex128, p)
	for c := 0; c < nc; c++ {
		for r := 0; r < p; r++ {
			col[r] = spec[r*nc+c]
		}
		colFFT.Sequence(tmp, col)
		for r := 0; r < p; r++ {
			spec[r*nc+c] = tmp[r]
		}
	}

	out := make([]float64, p*q)
	for r := 0; r < p; r++ {
		rowFFT.Sequence(out[r*q:(r+1)*q], spec[r*nc:(r+1)*nc])
	}
	return out
}

// nextFastLen returns the smallest 5-smooth integer >= n.
func nextFastLen(n int) int {
	if n <= 1 {
		return 1
	}
	for m := n; ; m++ {
		k := m
		for _, f := range [...]int{2, 3, 5} {
			for k%f == 0 {
				k /= f
			}
		}
		if k == 1 {
			return m
		}
	}
}
