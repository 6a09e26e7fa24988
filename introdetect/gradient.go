package introdetect

// gradient computes the discrete derivative of in using central
// differences at interior points and one-sided differences at the
// boundaries, matching numpy.gradient's convention (lib.rs's own
// gradient.rs was not present in the retrieval pack; this is the
// standard definition its caller's behavior implies — see §4.14 step 6).
func gradient(in []float64) []float64 {
	n := len(in)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = 0
		return out
	}

	out[0] = in[1] - in[0]
	out[n-1] = in[n-1] - in[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (in[i+1] - in[i-1]) / 2
	}
	return out
}
