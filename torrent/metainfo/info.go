// Package metainfo parses .torrent files into Info values and magnet URIs
// into Magnet values (§4.2).
package metainfo

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/bencode"
)

const pieceHashLength = 20

// FileEntry describes one file within a multi-file torrent (§3.1): an
// ordered list of path components (sanitized on materialization) and a
// length in bytes.
type FileEntry struct {
	Path   []string `bencode:"path"`
	Length int64    `bencode:"length"`
}

// rawInfo mirrors the bencoded "info" dict exactly, for canonical hashing.
type rawInfo struct {
	Name        string      `bencode:"name"`
	PieceLength int64       `bencode:"piece length"`
	Pieces      string      `bencode:"pieces"`
	Length      int64       `bencode:"length,omitempty"`
	Files       []FileEntry `bencode:"files,omitempty"`
}

// Info describes content per §3.1: a name, a fixed piece length, the list of
// 20-byte SHA-1 piece hashes, and a file descriptor that is either a single
// length or an ordered list of (path, length) entries.
type Info struct {
	Name        string
	PieceLength int64
	Pieces      [][20]byte
	// SingleFile is true when the content is one file named Name; Files
	// then holds that single entry.
	SingleFile bool
	Files      []FileEntry
}

// NewSingleFileInfo builds an Info describing one file.
func NewSingleFileInfo(name string, pieceLength int64, pieces [][20]byte, length int64) Info {
	return Info{
		Name:        name,
		PieceLength: pieceLength,
		Pieces:      pieces,
		SingleFile:  true,
		Files:       []FileEntry{{Path: []string{name}, Length: length}},
	}
}

// NewMultiFileInfo builds an Info describing several files under a common
// directory name.
func NewMultiFileInfo(name string, pieceLength int64, pieces [][20]byte, files []FileEntry) Info {
	return Info{
		Name:        name,
		PieceLength: pieceLength,
		Pieces:      pieces,
		SingleFile:  false,
		Files:       files,
	}
}

// TotalLength sums the declared length of every file.
func (i Info) TotalLength() int64 {
	var total int64
	for _, f := range i.Files {
		total += f.Length
	}
	return total
}

// NumPieces returns the number of pieces the content is divided into.
func (i Info) NumPieces() int {
	return len(i.Pieces)
}

// PieceLen returns the length of piece idx, accounting for the shorter tail
// piece (§3.3): total_size - piece_length*(pieces-1).
func (i Info) PieceLen(idx int) int64 {
	if idx < 0 || idx >= len(i.Pieces) {
		return 0
	}
	if idx == len(i.Pieces)-1 {
		return i.TotalLength() - i.PieceLength*int64(len(i.Pieces)-1)
	}
	return i.PieceLength
}

// toRaw produces the exact bencoded struct used to compute the info-hash.
func (i Info) toRaw() rawInfo {
	r := rawInfo{
		Name:        i.Name,
		PieceLength: i.PieceLength,
		Pieces:      packPieces(i.Pieces),
	}
	if i.SingleFile {
		r.Length = i.Files[0].Length
	} else {
		r.Files = i.Files
	}
	return r
}

func packPieces(pieces [][20]byte) string {
	var b strings.Builder
	b.Grow(len(pieces) * pieceHashLength)
	for _, p := range pieces {
		b.Write(p[:])
	}
	return b.String()
}

// InfoHash returns the canonical SHA-1 info-hash of i: the SHA-1 of its
// bencoded form (§3.1).
func (i Info) InfoHash() (core.InfoHash, error) {
	b, err := bencode.Marshal(i.toRaw())
	if err != nil {
		return core.InfoHash{}, fmt.Errorf("metainfo: bencode info: %s", err)
	}
	d := core.SHA1(b)
	return core.NewInfoHashFromBytes(d[:])
}

// ParseInfo decodes a bencoded "info" dict on its own, independent of any
// surrounding .torrent file — the shape a BEP-9 ut_metadata exchange
// reassembles (the wire only ever carries the info dict, never the
// top-level announce/comment wrapper ParseTorrentFile also handles).
func ParseInfo(data []byte) (Info, error) {
	var raw rawInfo
	if err := bencode.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("metainfo: decode info dict: %s", err)
	}
	if raw.Name == "" && raw.Pieces == "" {
		return Info{}, ErrMissingInfo
	}
	pieces, err := unpackPieces(raw.Pieces)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Name:        raw.Name,
		PieceLength: raw.PieceLength,
		Pieces:      pieces,
	}
	if len(raw.Files) > 0 {
		info.SingleFile = false
		info.Files = raw.Files
	} else {
		info.SingleFile = true
		info.Files = []FileEntry{{Path: []string{raw.Name}, Length: raw.Length}}
	}
	return info, nil
}

// ErrMalformedPieces is returned when a "pieces" string's length is not a
// multiple of 20.
var ErrMalformedPieces = errors.New("metainfo: pieces length is not a multiple of 20")

func unpackPieces(s string) ([][20]byte, error) {
	if len(s)%pieceHashLength != 0 {
		return nil, ErrMalformedPieces
	}
	n := len(s) / pieceHashLength
	out := make([][20]byte, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], s[i*pieceHashLength:(i+1)*pieceHashLength])
	}
	return out, nil
}

// SanitizedFilePath joins a file's path components under outDir, rejecting
// parent, root, or prefix components (§3.1: "Paths are sanitized ... when
// materialized to an output directory").
func SanitizedFilePath(outDir string, path []string) (string, error) {
	cleanParts := make([]string, 0, len(path))
	for _, p := range path {
		if p == "" || p == "." {
			continue
		}
		if p == ".." || filepath.IsAbs(p) || strings.ContainsRune(p, 0) {
			return "", fmt.Errorf("metainfo: invalid path component %q", p)
		}
		cleanParts = append(cleanParts, p)
	}
	if len(cleanParts) == 0 {
		return "", errors.New("metainfo: empty path after sanitization")
	}
	joined := filepath.Join(cleanParts...)
	full := filepath.Join(outDir, joined)
	rel, err := filepath.Rel(outDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("metainfo: path %q escapes output directory", joined)
	}
	return full, nil
}
