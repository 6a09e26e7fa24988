package introdetect

import (
	"math/bits"
	"sort"
)

// hashShift, offsetMask and sourceMask pack a fingerprint item's coarse
// hash, source fingerprint and index into one sortable uint32, per
// lib.rs's offsets encoding: top alignBits bits are the hash, the next
// bit is the source flag, the rest is the item index.
const (
	hashShift  = 32 - alignBits
	offsetMask = uint32(1)<<(32-alignBits-1) - 1
	sourceMask = uint32(1) << (32 - alignBits - 1)
)

func alignStrip(x uint32) uint32 {
	return x >> hashShift
}

// MatchFingerprints finds the best-aligned similar region between fp1 and
// fp2 and returns it split into scored segments, per §4.14 steps 1-9:
// a combined-vector histogram locates the best offset, then the overlap
// at that offset is refined by Gaussian-smoothing its per-item Hamming
// distances, splitting at gradient peaks, keeping low-score splits and
// merging adjacent ones with similar scores.
func MatchFingerprints(fp1, fp2 []uint32) ([]Segment, error) {
	if len(fp1)+1 >= int(offsetMask) {
		return nil, &FingerprintTooLongError{Index: 0}
	}
	if len(fp2)+1 >= int(offsetMask) {
		return nil, &FingerprintTooLongError{Index: 1}
	}

	offset, found := bestAlignment(fp1, fp2)
	if !found {
		return nil, nil
	}

	offset1, offset2 := alignmentOffsets(offset, len(fp2))
	size := min(len(fp1)-offset1, len(fp2)-offset2)
	if size <= 0 {
		return nil, nil
	}

	rawDistances := make([]float64, size)
	for i := 0; i < size; i++ {
		rawDistances[i] = float64(bits.OnesCount32(fp1[offset1+i] ^ fp2[offset2+i]))
	}

	smoothed := gaussianFilter(rawDistances, gaussianSigma, gaussianPasses)
	grad := gradient(smoothed)
	for i := range grad {
		if grad[i] < 0 {
			grad[i] = -grad[i]
		}
	}

	splits := gradientPeaks(grad, size)

	var segments []Segment
	begin := 0
	for _, end := range splits {
		duration := end - begin
		if duration == 0 {
			begin = end
			continue
		}
		score := sum(rawDistances[begin:end]) / float64(duration)
		if score < matchThreshold {
			candidate := Segment{Offset1: offset1 + begin, Offset2: offset2 + begin, Length: duration, Score: score}
			if last := len(segments) - 1; last >= 0 && abs(segments[last].Score-score) < maxScoreDifference {
				if merged, ok := segments[last].tryMerge(candidate); ok {
					segments[last] = merged
					begin = end
					continue
				}
			}
			segments = append(segments, candidate)
		}
		begin = end
	}

	return segments, nil
}

// bestAlignment builds the combined offset vector, sorts it and picks the
// highest-count local-peak bin in the resulting histogram (§4.14 steps
// 1-5).
func bestAlignment(fp1, fp2 []uint32) (offset int, ok bool) {
	offsets := make([]uint32, 0, len(fp1)+len(fp2))
	for i, v := range fp1 {
		offsets = append(offsets, alignStrip(v)<<hashShift|uint32(i))
	}
	for i, v := range fp2 {
		offsets = append(offsets, alignStrip(v)<<hashShift|uint32(i)|sourceMask)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	histogram := make([]uint32, len(fp1)+len(fp2))
	for i, item1 := range offsets {
		hash1 := item1 &^ (offsetMask | sourceMask)
		if item1&sourceMask != 0 {
			// a fp2-origin entry with no preceding fp1 entry of the
			// same hash: fp1 entries sort first within equal hashes.
			continue
		}
		offset1 := item1 & offsetMask
		for _, item2 := range offsets[i:] {
			hash2 := item2 &^ (offsetMask | sourceMask)
			if hash1 != hash2 {
				break
			}
			if item2&sourceMask != 0 {
				offset2 := item2 & offsetMask
				diff := int(offset1) + len(fp2) - int(offset2)
				histogram[diff]++
			}
		}
	}

	best := -1
	var bestCount uint32
	for i, count := range histogram {
		if count <= 1 {
			continue
		}
		left := i == 0 || histogram[i-1] <= count
		right := i == len(histogram)-1 || histogram[i+1] <= count
		if left && right && count > bestCount {
			bestCount = count
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func alignmentOffsets(bin int, fp2Len int) (offset1, offset2 int) {
	diff := bin - fp2Len
	if diff > 0 {
		offset1 = diff
	}
	if diff < 0 {
		offset2 = -diff
	}
	return offset1, offset2
}

// gradientPeaks splits [0, size) at local maxima of grad where the peak
// exceeds gradientPeakMinAbs and is at least gradientPeakMinGap away from
// the previous split, always ending with size itself (§4.14 step 7).
func gradientPeaks(grad []float64, size int) []int {
	var peaks []int
	for i := 0; i < size; i++ {
		if i == 0 || i == size-1 {
			continue
		}
		g := grad[i]
		if g <= gradientPeakMinAbs || g < grad[i-1] || g < grad[i+1] {
			continue
		}
		if len(peaks) > 0 && peaks[len(peaks)-1]+gradientPeakMinGap > i {
			continue
		}
		peaks = append(peaks, i)
	}
	peaks = append(peaks, size)
	return peaks
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
