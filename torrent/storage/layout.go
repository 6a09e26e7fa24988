// Package storage owns the output-files layout, the hash-verification
// pipeline, and the `.parts` sidecar for pieces straddling disabled files
// (§4.8).
package storage

import (
	"path/filepath"

	"github.com/fenwick-labs/corelode/torrent/metainfo"
)

// FileRange is one output file's byte range within the torrent's flat
// content address space (§4.8).
type FileRange struct {
	Index int
	Path  string // absolute, sanitized on-disk path.
	Start int64
	End   int64 // exclusive.
}

// Length returns the file's length in bytes.
func (r FileRange) Length() int64 { return r.End - r.Start }

// Layout maps pieces to the output files they overlap (§4.8: "For piece i,
// its byte range is [i*piece_len, i*piece_len+piece_len_i); for each output
// file with range [f_start,f_end) that overlaps, write the intersecting
// slice at offset max(0, piece_start-f_start)").
type Layout struct {
	info        metainfo.Info
	files       []FileRange
	pieceLength int64
}

// NewLayout builds a Layout from a parsed Info and the destination
// directory files are written under.
func NewLayout(info metainfo.Info, outDir string) (*Layout, error) {
	var files []FileRange
	var offset int64
	for idx, f := range info.Files {
		path, err := metainfo.SanitizedFilePath(outDir, f.Path)
		if err != nil {
			return nil, err
		}
		files = append(files, FileRange{
			Index: idx,
			Path:  filepath.Clean(path),
			Start: offset,
			End:   offset + f.Length,
		})
		offset += f.Length
	}
	return &Layout{info: info, files: files, pieceLength: info.PieceLength}, nil
}

// Files returns every output file's range, in torrent order.
func (l *Layout) Files() []FileRange { return l.files }

// PieceRange returns the [start, end) byte range of piece i within the
// flat content address space.
func (l *Layout) PieceRange(i int) (start, end int64) {
	start = int64(i) * l.pieceLength
	end = start + l.info.PieceLen(i)
	return start, end
}

// Segment is the portion of a piece that overlaps one output file.
type Segment struct {
	File         FileRange
	PieceOffset  int64 // offset within the piece's own bytes.
	FileOffset   int64 // offset within the file to write/read at.
	Length       int64
}

// Overlaps returns every file segment piece i overlaps, in file order.
func (l *Layout) Overlaps(i int) []Segment {
	pieceStart, pieceEnd := l.PieceRange(i)
	var segs []Segment
	for _, f := range l.files {
		if f.End <= pieceStart || f.Start >= pieceEnd {
			continue
		}
		segStart := max64(pieceStart, f.Start)
		segEnd := min64(pieceEnd, f.End)
		segs = append(segs, Segment{
			File:        f,
			PieceOffset: segStart - pieceStart,
			FileOffset:  max64(0, segStart-f.Start),
			Length:      segEnd - segStart,
		})
	}
	return segs
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
