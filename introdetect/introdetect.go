// Package introdetect finds recurring intro/credits segments across a
// season's episodes from audio fingerprints (§4.14). It does not produce
// fingerprints itself — callers supply one []uint32 chroma vector per
// episode, each covering a fixed 5-minute window of audio, and get back
// a Segment describing the best-aligned shared region between any pair,
// or an IntroRange per episode once episodes are compared in order.
//
// Grounded on original_source/media-intro/src/lib.rs's match_fingerprints
// (segment matching + refinement) and original_source/src/intro_detection
// /mod.rs's byte-pattern reuse across episodes; the pack retrieval did not
// include lib.rs's gaussian.rs/gradient.rs helper modules, so the smoothing
// and gradient steps below are reimplemented from their documented
// behavior (standard three-pass box-blur Gaussian approximation, central-
// difference gradient) rather than transliterated.
package introdetect

import (
	"fmt"
	"time"
)

// TakeWindow is the fixed audio window the external fingerprinter covers
// per episode (§4.14: "fixed 5-minute audio window").
const TakeWindow = 5 * time.Minute

// alignBits is the number of high bits of each fingerprint item used as
// the coarse alignment hash; the remaining bits carry the source episode
// flag and item index. Grounded on lib.rs's ALIGN_BITS.
const alignBits = 12

const (
	matchThreshold     = 10.0
	maxScoreDifference = 0.7
	gradientPeakMinGap = 2
	gradientPeakMinAbs = 0.15
	gaussianSigma      = 8.0
	gaussianPasses     = 3
)

// Segment is a region of similarity between two fingerprints, expressed
// as item offsets into each (not bytes or seconds — use itemDuration via
// Start1/End1/Start2/End2 to convert).
type Segment struct {
	Offset1 int
	Offset2 int
	Length  int

	// Score is the mean Hamming distance between aligned items over the
	// segment. Lower means a closer match; the original bounds it to
	// [0, 32] for 32-bit fingerprint items.
	Score float64
}

func itemDuration(fpLen int) time.Duration {
	if fpLen <= 0 {
		return 0
	}
	return TakeWindow / time.Duration(fpLen)
}

// Start1 returns the segment's start time within the first fingerprint,
// given that fingerprint's item count.
func (s Segment) Start1(fp1Len int) time.Duration {
	return itemDuration(fp1Len) * time.Duration(s.Offset1)
}

// End1 returns the segment's end time within the first fingerprint.
func (s Segment) End1(fp1Len int) time.Duration {
	return itemDuration(fp1Len) * time.Duration(s.Offset1+s.Length)
}

// Start2 returns the segment's start time within the second fingerprint.
func (s Segment) Start2(fp2Len int) time.Duration {
	return itemDuration(fp2Len) * time.Duration(s.Offset2)
}

// End2 returns the segment's end time within the second fingerprint.
func (s Segment) End2(fp2Len int) time.Duration {
	return itemDuration(fp2Len) * time.Duration(s.Offset2+s.Length)
}

func (s Segment) duration(fpLen int) time.Duration {
	return itemDuration(fpLen) * time.Duration(s.Length)
}

// tryMerge merges s and other into one segment if they are contiguous in
// both fingerprints, weighting the merged score by item count. Mirrors
// lib.rs's Segment::try_merge.
func (s Segment) tryMerge(other Segment) (Segment, bool) {
	if s.Offset1+s.Length != other.Offset1 {
		return Segment{}, false
	}
	if s.Offset2+s.Length != other.Offset2 {
		return Segment{}, false
	}
	length := s.Length + other.Length
	score := (s.Score*float64(s.Length) + other.Score*float64(other.Length)) / float64(length)
	return Segment{Offset1: s.Offset1, Offset2: s.Offset2, Length: length, Score: score}, true
}

// IntroRange is one episode's detected intro span.
type IntroRange struct {
	Start time.Duration
	End   time.Duration
}

func (r IntroRange) empty() bool {
	return r.Start == 0 && r.End == 0
}

// FingerprintTooLongError reports that a fingerprint exceeds the item
// count the 19-bit offset field can address (§4.14's offset_diff bin
// layout constrains fingerprint length).
type FingerprintTooLongError struct {
	Index int
}

func (e *FingerprintTooLongError) Error() string {
	return fmt.Sprintf("introdetect: fingerprint #%d is too long", e.Index)
}
