package metainfo

import (
	"errors"
	"fmt"

	"github.com/fenwick-labs/corelode/torrent/bencode"
)

// rawTorrentFile mirrors the top-level dict of a .torrent file.
type rawTorrentFile struct {
	Announce     string     `bencode:"announce,omitempty"`
	AnnounceList [][]string `bencode:"announce-list,omitempty"`
	Info         rawInfo    `bencode:"info"`
	Comment      string     `bencode:"comment,omitempty"`
	CreatedBy    string     `bencode:"created by,omitempty"`
}

// TorrentFile is a parsed .torrent file (§4.2): an Info plus the announce
// URL(s).
type TorrentFile struct {
	Info         Info
	Announce     string
	AnnounceList []string
	Comment      string
	CreatedBy    string
}

// ErrMissingInfo is returned when a .torrent file lacks an "info" dict.
var ErrMissingInfo = errors.New("metainfo: torrent file missing info dict")

// ParseTorrentFile decodes a bencoded .torrent file.
func ParseTorrentFile(data []byte) (*TorrentFile, error) {
	var raw rawTorrentFile
	if err := bencode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("metainfo: decode torrent file: %s", err)
	}
	if raw.Info.Name == "" && raw.Info.Pieces == "" {
		return nil, ErrMissingInfo
	}
	pieces, err := unpackPieces(raw.Info.Pieces)
	if err != nil {
		return nil, err
	}

	info := Info{
		Name:        raw.Info.Name,
		PieceLength: raw.Info.PieceLength,
		Pieces:      pieces,
	}
	if len(raw.Info.Files) > 0 {
		info.SingleFile = false
		info.Files = raw.Info.Files
	} else {
		info.SingleFile = true
		info.Files = []FileEntry{{Path: []string{raw.Info.Name}, Length: raw.Info.Length}}
	}

	var flat []string
	for _, tier := range raw.AnnounceList {
		flat = append(flat, tier...)
	}
	if len(flat) == 0 && raw.Announce != "" {
		flat = []string{raw.Announce}
	}

	return &TorrentFile{
		Info:         info,
		Announce:     raw.Announce,
		AnnounceList: flat,
		Comment:      raw.Comment,
		CreatedBy:    raw.CreatedBy,
	}, nil
}

// Marshal re-encodes the torrent file to bencode.
func (tf *TorrentFile) Marshal() ([]byte, error) {
	raw := rawTorrentFile{
		Announce:  tf.Announce,
		Info:      tf.Info.toRaw(),
		Comment:   tf.Comment,
		CreatedBy: tf.CreatedBy,
	}
	if len(tf.AnnounceList) > 0 {
		tier := make([]string, len(tf.AnnounceList))
		copy(tier, tf.AnnounceList)
		raw.AnnounceList = [][]string{tier}
	}
	return bencode.Marshal(raw)
}
