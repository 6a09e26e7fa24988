package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// partsHeaderLength is the per-record prefix: a big-endian u32 piece
// index (§4.8: "[piece-index u32 BE || piece bytes]*").
const partsHeaderLength = 4

// PartsFile manages the `.parts` sidecar for pieces that straddle a
// disabled file (§4.8). It is append-only in normal operation; Expunge
// rewrites it when entries are removed.
type PartsFile struct {
	path string
}

// NewPartsFile returns a PartsFile rooted at path (conventionally
// "<save-location>.parts").
func NewPartsFile(path string) *PartsFile {
	return &PartsFile{path: path}
}

// Append writes one piece's bytes to the sidecar, prefixed by its index.
// Every record written is header+piece and nothing else is ever written,
// so file_size % (4 + piece_len) == 0 holds as long as the shorter tail
// piece is not among the records.
func (p *PartsFile) Append(pieceIndex int, data []byte) error {
	f, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, partsHeaderLength+len(data))
	binary.BigEndian.PutUint32(buf[:partsHeaderLength], uint32(pieceIndex))
	copy(buf[partsHeaderLength:], data)

	_, err = f.Write(buf)
	return err
}

// partRecord is one decoded entry.
type partRecord struct {
	pieceIndex int
	length     int64
}

// ReadAll decodes every record in the sidecar, given a function mapping a
// piece index to its expected length (since records don't self-describe
// length — the layout is fixed "index || bytes" per §4.8, sized by the
// torrent's own piece-length function).
func (p *PartsFile) ReadAll(pieceLen func(idx int) int64) ([]partRecord, [][]byte, error) {
	f, err := os.Open(p.path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var records []partRecord
	var payloads [][]byte
	header := make([]byte, partsHeaderLength)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, err
		}
		idx := int(binary.BigEndian.Uint32(header))
		length := pieceLen(idx)
		data := make([]byte, length)
		if _, err := io.ReadFull(f, data); err != nil {
			return nil, nil, fmt.Errorf("storage: truncated .parts record for piece %d: %w", idx, err)
		}
		records = append(records, partRecord{pieceIndex: idx, length: length})
		payloads = append(payloads, data)
	}
	return records, payloads, nil
}

// Read returns the bytes for pieceIndex if present, or nil if not found.
func (p *PartsFile) Read(pieceIndex int, pieceLen func(idx int) int64) ([]byte, error) {
	records, payloads, err := p.ReadAll(pieceLen)
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		if r.pieceIndex == pieceIndex {
			return payloads[i], nil
		}
	}
	return nil, nil
}

// Expunge removes every record for the given piece indices, compacting
// the file in place (§4.8: "expunged from .parts, rewriting the file
// compactly").
func (p *PartsFile) Expunge(remove map[int]bool, pieceLen func(idx int) int64) error {
	records, payloads, err := p.ReadAll(pieceLen)
	if err != nil {
		return err
	}

	tmp := p.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	for i, r := range records {
		if remove[r.pieceIndex] {
			continue
		}
		header := make([]byte, partsHeaderLength)
		binary.BigEndian.PutUint32(header, uint32(r.pieceIndex))
		if _, err := f.Write(header); err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(payloads[i]); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}
