package introdetect

import (
	"testing"
	"time"
)

func buildSeasonFingerprints(intro []uint32, bodyLen int, episodeCount int) [][]uint32 {
	fps := make([][]uint32, episodeCount)
	for i := range fps {
		body := syntheticFingerprint(bodyLen, uint32(100+i))
		fp := make([]uint32, 0, len(intro)+len(body))
		fp = append(fp, intro...)
		fp = append(fp, body...)
		fps[i] = fp
	}
	return fps
}

func TestDetectIntrosFindsSharedOpening(t *testing.T) {
	intro := syntheticFingerprint(120, 42)
	fps := buildSeasonFingerprints(intro, 600, 4)

	ranges, err := DetectIntros(fps, 10*time.Second)
	if err != nil {
		t.Fatalf("DetectIntros: %v", err)
	}
	if len(ranges) != 4 {
		t.Fatalf("len(ranges) = %d, want 4", len(ranges))
	}

	for i, r := range ranges {
		if r.empty() {
			t.Fatalf("episode %d: expected a detected intro, got empty range", i)
		}
		if r.Start > time.Second {
			t.Fatalf("episode %d: intro starts late at %v", i, r.Start)
		}
		if r.End-r.Start < 5*time.Second {
			t.Fatalf("episode %d: intro too short: %v-%v", i, r.Start, r.End)
		}
	}
}

func TestDetectIntrosNoCommonOpening(t *testing.T) {
	fps := [][]uint32{
		syntheticFingerprint(200, 1),
		syntheticFingerprint(200, 2),
		syntheticFingerprint(200, 3),
	}

	ranges, err := DetectIntros(fps, 10*time.Second)
	if err != nil {
		t.Fatalf("DetectIntros: %v", err)
	}
	for i, r := range ranges {
		if !r.empty() {
			t.Errorf("episode %d: expected no intro, got %+v", i, r)
		}
	}
}

func TestDetectIntrosSingleFingerprint(t *testing.T) {
	ranges, err := DetectIntros([][]uint32{syntheticFingerprint(100, 1)}, time.Second)
	if err != nil {
		t.Fatalf("DetectIntros: %v", err)
	}
	if len(ranges) != 1 || !ranges[0].empty() {
		t.Fatalf("ranges = %+v, want one empty range", ranges)
	}
}

func TestFitChunkLocatesKnownIntro(t *testing.T) {
	intro := syntheticFingerprint(60, 5)
	prefix := syntheticFingerprint(30, 9)
	fp := append(append([]uint32{}, prefix...), intro...)
	fp = append(fp, syntheticFingerprint(40, 13)...)

	start, ok := fitChunk(fp, intro)
	if !ok {
		t.Fatal("expected fitChunk to locate the known intro")
	}
	if start != len(prefix) {
		t.Fatalf("start = %d, want %d", start, len(prefix))
	}
}
