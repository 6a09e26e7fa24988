package introdetect

import "math"

// gaussianFilter smooths in with an approximate Gaussian of the given
// standard deviation, applied as `passes` successive box blurs — the
// standard technique (Wells, 1986) for approximating a true Gaussian
// kernel cheaply, used here because the underlying pack did not retrieve
// lib.rs's own gaussian.rs implementation (see package doc comment).
// Edge samples are handled by clamping to the slice bounds.
func gaussianFilter(in []float64, sigma float64, passes int) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	if len(in) == 0 || passes <= 0 {
		return out
	}

	for _, radius := range boxRadii(sigma, passes) {
		out = boxBlur(out, radius)
	}
	return out
}

// boxRadii computes the per-pass box-blur radius that together
// approximate a Gaussian of standard deviation sigma over n passes.
func boxRadii(sigma float64, passes int) []int {
	idealWidth := math.Sqrt((12*sigma*sigma)/float64(passes) + 1)
	wl := int(idealWidth)
	if wl%2 == 0 {
		wl--
	}
	wu := wl + 2

	m := (12*sigma*sigma - float64(passes)*float64(wl*wl) - 4*float64(passes)*float64(wl) - 3*float64(passes)) /
		(-4*float64(wl) - 4)
	mRounded := int(math.Round(m))

	radii := make([]int, passes)
	for i := 0; i < passes; i++ {
		width := wl
		if i >= mRounded {
			width = wu
		}
		if width < 1 {
			width = 1
		}
		radii[i] = width / 2
	}
	return radii
}

func boxBlur(in []float64, radius int) []float64 {
	n := len(in)
	out := make([]float64, n)
	if radius <= 0 {
		copy(out, in)
		return out
	}

	var sum float64
	for i := -radius; i <= radius; i++ {
		sum += in[clampIndex(i, n)]
	}
	for i := 0; i < n; i++ {
		out[i] = sum / float64(2*radius+1)
		sum -= in[clampIndex(i-radius, n)]
		sum += in[clampIndex(i+radius+1, n)]
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
