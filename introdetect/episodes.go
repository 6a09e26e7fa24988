package introdetect

import (
	"math/bits"
	"time"
)

// windowSize is the item-granularity chunk used to fit a known intro
// against a later episode's fingerprint, and allowedWindowErrors is the
// per-window budget of mismatched items tolerated while doing so.
// Grounded on src/intro_detection/mod.rs's WINDOW_SIZE/
// ALLOWED_WINDOW_ERRORS, generalized from that file's byte-level
// fingerprint representation to the uint32-item representation
// lib.rs's (tested, complete) match_fingerprints actually operates on.
const (
	windowSize           = 15
	allowedWindowErrors  = 3
	itemMismatchBitLimit = 16 // half of a uint32's 32 bits
)

// DetectIntros computes each episode's intro range from its fingerprint,
// per §4.14's cross-episode rule: walk episodes in order; if an intro
// pattern is already known from an earlier episode, look for it directly
// in this one; otherwise pair this episode against the later ones until
// a pairwise match clears minDuration, and remember that match as the
// known pattern for subsequent episodes. Episodes with no fingerprint
// (nil) and episodes where no intro is ever found get a zero IntroRange.
func DetectIntros(fingerprints [][]uint32, minDuration time.Duration) ([]IntroRange, error) {
	ranges := make([]IntroRange, len(fingerprints))
	if len(fingerprints) < 2 {
		return ranges, nil
	}

	var knownIntro []uint32
	for i, fp := range fingerprints {
		if len(fp) == 0 {
			continue
		}

		if knownIntro != nil {
			if start, ok := fitChunk(fp, knownIntro); ok {
				ranges[i] = IntroRange{
					Start: itemDuration(len(fp)) * time.Duration(start),
					End:   itemDuration(len(fp)) * time.Duration(start+len(knownIntro)),
				}
				continue
			}
		}

		for j := i + 1; j < len(fingerprints); j++ {
			other := fingerprints[j]
			if len(other) == 0 {
				continue
			}
			segments, err := MatchFingerprints(fp, other)
			if err != nil {
				return nil, err
			}
			seg, found := longestOverMinDuration(segments, len(fp), minDuration)
			if !found {
				continue
			}
			ranges[i] = IntroRange{Start: seg.Start1(len(fp)), End: seg.End1(len(fp))}
			knownIntro = fp[seg.Offset1 : seg.Offset1+seg.Length]
			break
		}
	}

	return ranges, nil
}

func longestOverMinDuration(segments []Segment, fp1Len int, minDuration time.Duration) (Segment, bool) {
	var best Segment
	found := false
	for _, seg := range segments {
		if seg.duration(fp1Len) < minDuration {
			continue
		}
		if !found || seg.Length > best.Length {
			best = seg
			found = true
		}
	}
	return best, found
}

// fitChunk finds chunk's best-aligned position within fp by sliding it
// item-by-item and keeping the offset with the fewest mismatched items,
// per windowSize-sized sub-windows, same shape as
// src/intro_detection/mod.rs's Chromaprint::fit_chunk.
func fitChunk(fp, chunk []uint32) (start int, ok bool) {
	if len(chunk) >= len(fp) {
		return 0, false
	}

	minErrors := -1
	best := -1
	for offset := 0; offset+len(chunk) <= len(fp); offset++ {
		if errs, match := windowErrors(fp[offset:offset+len(chunk)], chunk); match {
			if minErrors < 0 || errs < minErrors {
				minErrors = errs
				best = offset
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// windowErrors counts mismatched windowSize-item sub-windows between
// equal-length left and right, giving up early once more than
// allowedWindowErrors windows have mismatched.
func windowErrors(left, right []uint32) (errors int, ok bool) {
	for i := 0; i+windowSize <= len(left); i += windowSize {
		if !windowMatches(left[i:i+windowSize], right[i:i+windowSize]) {
			errors++
			if errors > allowedWindowErrors {
				return errors, false
			}
		}
	}
	return errors, true
}

func windowMatches(a, b []uint32) bool {
	mismatches := 0
	for i := range a {
		if bits.OnesCount32(a[i]^b[i]) > itemMismatchBitLimit {
			mismatches++
		}
	}
	return mismatches <= allowedWindowErrors
}
