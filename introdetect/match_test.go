package introdetect

import (
	"errors"
	"testing"
)

// syntheticFingerprint builds a fingerprint of n items from a small
// deterministic generator so that runs differ item-to-item (a constant
// fingerprint never triggers the alignment histogram's local-peak rule).
func syntheticFingerprint(n int, seed uint32) []uint32 {
	fp := make([]uint32, n)
	x := seed
	for i := range fp {
		x = x*1664525 + 1013904223
		fp[i] = x
	}
	return fp
}

func TestMatchFingerprintsFindsInjectedOverlap(t *testing.T) {
	shared := syntheticFingerprint(80, 7)

	fp1 := append(syntheticFingerprint(20, 1), shared...)
	fp2 := append(syntheticFingerprint(50, 2), shared...)

	segments, err := MatchFingerprints(fp1, fp2)
	if err != nil {
		t.Fatalf("MatchFingerprints: %v", err)
	}
	if len(segments) == 0 {
		t.Fatal("expected at least one matched segment")
	}

	var longest Segment
	for _, s := range segments {
		if s.Length > longest.Length {
			longest = s
		}
	}
	if longest.Length < 60 {
		t.Fatalf("longest segment too short: %+v", longest)
	}
	if longest.Offset1 != 20 || longest.Offset2 != 50 {
		t.Fatalf("segment misaligned: %+v", longest)
	}
	if longest.Score > matchThreshold {
		t.Fatalf("segment score %v exceeds threshold", longest.Score)
	}
}

func TestMatchFingerprintsNoOverlap(t *testing.T) {
	fp1 := syntheticFingerprint(40, 11)
	fp2 := syntheticFingerprint(40, 97)

	segments, err := MatchFingerprints(fp1, fp2)
	if err != nil {
		t.Fatalf("MatchFingerprints: %v", err)
	}
	for _, s := range segments {
		if s.Score < matchThreshold {
			t.Fatalf("unrelated fingerprints produced a strong match: %+v", s)
		}
	}
}

func TestMatchFingerprintsRejectsOversizedFingerprint(t *testing.T) {
	huge := make([]uint32, int(offsetMask)+2)
	small := syntheticFingerprint(10, 1)

	_, err := MatchFingerprints(huge, small)
	var tooLong *FingerprintTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("err = %v, want *FingerprintTooLongError", err)
	}
	if tooLong.Index != 0 {
		t.Fatalf("tooLong.Index = %d, want 0", tooLong.Index)
	}
}

func TestSegmentTryMerge(t *testing.T) {
	a := Segment{Offset1: 0, Offset2: 0, Length: 10, Score: 2}
	b := Segment{Offset1: 10, Offset2: 10, Length: 5, Score: 4}

	merged, ok := a.tryMerge(b)
	if !ok {
		t.Fatal("expected contiguous segments to merge")
	}
	if merged.Length != 15 {
		t.Fatalf("merged length = %d, want 15", merged.Length)
	}
	wantScore := (2.0*10 + 4.0*5) / 15
	if merged.Score != wantScore {
		t.Fatalf("merged score = %v, want %v", merged.Score, wantScore)
	}

	c := Segment{Offset1: 99, Offset2: 99, Length: 5, Score: 1}
	if _, ok := a.tryMerge(c); ok {
		t.Fatal("expected non-contiguous segments not to merge")
	}
}
