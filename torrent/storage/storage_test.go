package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/metainfo"
)

func newTestStorage(t *testing.T, info metainfo.Info) (*Storage, *core.Torrent, *Layout) {
	t.Helper()
	dir := t.TempDir()
	layout, err := NewLayout(info, dir)
	require.NoError(t, err)

	torrent := core.NewTorrent(core.InfoHash{}, info.Name, info.NumPieces(), info.TotalLength(), info.PieceLength, len(info.Files), dir, core.Medium)

	hashes := make([]core.Digest, info.NumPieces())
	// Filled per-test.

	partsPath := filepath.Join(dir, "t.parts")
	s := New(Config{}, layout, torrent, hashes, partsPath, zap.NewNop().Sugar())
	t.Cleanup(s.Close)
	return s, torrent, layout
}

func recvFeedback(t *testing.T, ch <-chan Feedback) Feedback {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feedback")
		return Feedback{}
	}
}

func TestStorageSaveAndRetrieveSingleFile(t *testing.T) {
	info := metainfo.NewSingleFileInfo("movie.mkv", 10, [][20]byte{core.SHA1([]byte("0123456789"))}, 10)
	s, _, _ := newTestStorage(t, info)
	s.hashes[0] = core.SHA1([]byte("0123456789"))

	fb := recvFeedback(t, s.SavePiece(0, []byte("0123456789")))
	require.Equal(t, Saved, fb.Kind)

	fb = recvFeedback(t, s.RetrievePiece(0))
	require.Equal(t, Data, fb.Kind)
	require.Equal(t, []byte("0123456789"), fb.Bytes)
}

func TestStorageSaveRejectsBadHash(t *testing.T) {
	info := metainfo.NewSingleFileInfo("movie.mkv", 10, [][20]byte{{}}, 10)
	s, _, _ := newTestStorage(t, info)
	s.hashes[0] = core.SHA1([]byte("expected!!"))

	fb := recvFeedback(t, s.SavePiece(0, []byte("wrongbytes")))
	require.Equal(t, Failed, fb.Kind)
	require.Error(t, fb.Err)
}

func TestStorageRetrieveMissingPieceFails(t *testing.T) {
	info := metainfo.NewSingleFileInfo("movie.mkv", 10, [][20]byte{{}}, 10)
	s, _, _ := newTestStorage(t, info)

	fb := recvFeedback(t, s.RetrievePiece(0))
	require.Equal(t, Failed, fb.Kind)
	require.Nil(t, fb.Err)
}

func TestStorageRetrieveBlockingWakesOnSave(t *testing.T) {
	info := metainfo.NewSingleFileInfo("movie.mkv", 10, [][20]byte{{}}, 10)
	s, _, _ := newTestStorage(t, info)
	s.hashes[0] = core.SHA1([]byte("0123456789"))

	waitCh := s.RetrieveBlocking(0)

	time.Sleep(50 * time.Millisecond) // ensure the retrieve is registered as a waiter first.
	fb := recvFeedback(t, s.SavePiece(0, []byte("0123456789")))
	require.Equal(t, Saved, fb.Kind)

	waited := recvFeedback(t, waitCh)
	require.Equal(t, Data, waited.Kind)
	require.Equal(t, []byte("0123456789"), waited.Bytes)
}

func TestStorageDisabledFileRoutesToParts(t *testing.T) {
	info := metainfo.NewMultiFileInfo("show", 10, [][20]byte{{}, {}}, []metainfo.FileEntry{
		{Path: []string{"a.txt"}, Length: 10},
		{Path: []string{"b.txt"}, Length: 10},
	})
	s, torrent, _ := newTestStorage(t, info)
	s.hashes[1] = core.SHA1([]byte("piece1data"))

	require.NoError(t, torrent.EnabledFiles.Remove(1))

	fb := recvFeedback(t, s.SavePiece(1, []byte("piece1data")))
	require.Equal(t, Saved, fb.Kind)

	// The piece is recorded in the bitfield but its bytes live in .parts,
	// not in b.txt, since file 1 is disabled.
	data, err := s.parts.Read(1, s.layout.info.PieceLen)
	require.NoError(t, err)
	require.Equal(t, []byte("piece1data"), data)

	fb = recvFeedback(t, s.RetrievePiece(1))
	require.Equal(t, Data, fb.Kind)
	require.Equal(t, []byte("piece1data"), fb.Bytes)
}

func TestStorageEnableFileReplaysParts(t *testing.T) {
	info := metainfo.NewMultiFileInfo("show", 10, [][20]byte{{}, {}}, []metainfo.FileEntry{
		{Path: []string{"a.txt"}, Length: 10},
		{Path: []string{"b.txt"}, Length: 10},
	})
	s, torrent, _ := newTestStorage(t, info)
	s.hashes[1] = core.SHA1([]byte("piece1data"))

	require.NoError(t, torrent.EnabledFiles.Remove(1))
	recvFeedback(t, s.SavePiece(1, []byte("piece1data")))

	require.NoError(t, s.EnableFile(1))

	// .parts should now be empty for piece 1.
	data, err := s.parts.Read(1, s.layout.info.PieceLen)
	require.NoError(t, err)
	require.Nil(t, data)

	fb := recvFeedback(t, s.RetrievePiece(1))
	require.Equal(t, Data, fb.Kind)
	require.Equal(t, []byte("piece1data"), fb.Bytes)
}
