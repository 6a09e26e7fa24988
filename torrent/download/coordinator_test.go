package download

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/conn"
	"github.com/fenwick-labs/corelode/torrent/metainfo"
	"github.com/fenwick-labs/corelode/torrent/peerstore"
	"github.com/fenwick-labs/corelode/torrent/scheduler"
	"github.com/fenwick-labs/corelode/torrent/storage"
	"github.com/fenwick-labs/corelode/torrent/tracker"
	"github.com/fenwick-labs/corelode/torrent/wire"
)

func TestConfigApplyDefaults(t *testing.T) {
	c := Config{}.applyDefaults()
	require.Equal(t, 100, c.MaxConnections)
	require.Equal(t, time.Second, c.TickInterval)
	require.Equal(t, 3*time.Second, c.ConnectTimeout)

	c2 := Config{MaxConnections: 5, TickInterval: 2 * time.Second, ConnectTimeout: time.Minute}.applyDefaults()
	require.Equal(t, 5, c2.MaxConnections)
	require.Equal(t, 2*time.Second, c2.TickInterval)
	require.Equal(t, time.Minute, c2.ConnectTimeout)
}

// fixture bundles everything needed to run one side (seeder or leecher) of
// a download.
type fixture struct {
	torrent   *core.Torrent
	infoHash  core.InfoHash
	peerID    core.PeerID
	table     *scheduler.PieceTable
	hashes    []core.Digest
	store     *storage.Storage
	peerStore *peerstore.Store
	handshaker *wire.Handshaker
}

func newFixture(t *testing.T, info metainfo.Info, hashes []core.Digest) *fixture {
	t.Helper()
	dir := t.TempDir()

	layout, err := storage.NewLayout(info, dir)
	require.NoError(t, err)

	infoHash, err := info.InfoHash()
	require.NoError(t, err)

	torrent := core.NewTorrent(infoHash, info.Name, info.NumPieces(), info.TotalLength(), info.PieceLength,
		len(info.Files), dir, core.Medium)

	st := storage.New(storage.Config{}, layout, torrent, hashes, filepath.Join(dir, "t.parts"), zap.NewNop().Sugar())
	t.Cleanup(st.Close)

	peerID, err := core.RandomPeerID()
	require.NoError(t, err)

	ps := peerstore.New(&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}, peerstore.DefaultCapacity)

	return &fixture{
		torrent:    torrent,
		infoHash:   infoHash,
		peerID:     peerID,
		table:      scheduler.NewPieceTable(torrent.Pieces),
		hashes:     hashes,
		store:      st,
		peerStore:  ps,
		handshaker: wire.NewHandshaker(wire.Config{}, peerID),
	}
}

func (f *fixture) newCoordinator(t *testing.T, cfg Config, progress ProgressConsumer) *Coordinator {
	t.Helper()
	c := New(
		cfg,
		clock.New(),
		f.torrent,
		f.infoHash,
		f.peerID,
		0,
		f.table,
		f.hashes,
		scheduler.Linear{},
		f.store,
		f.peerStore,
		f.handshaker,
		conn.Config{},
		nil,
		nil,
		tracker.Config{},
		progress,
		tally.NoopScope,
		zap.NewNop().Sugar(),
	)
	t.Cleanup(c.Stop)
	return c
}

// singlePieceTorrent builds a one-piece, one-file torrent whose content is
// a deterministic byte pattern, returning the Info, its expected content,
// and the matching piece hash slice.
func singlePieceTorrent(t *testing.T, pieceLen int) (metainfo.Info, []byte, []core.Digest) {
	t.Helper()
	content := make([]byte, pieceLen)
	for i := range content {
		content[i] = byte(i)
	}
	hash := core.SHA1(content)
	info := metainfo.NewSingleFileInfo("payload.bin", int64(pieceLen), [][20]byte{[20]byte(hash)}, int64(pieceLen))
	return info, content, []core.Digest{hash}
}

func TestCoordinatorDownloadsSinglePieceFromSeeder(t *testing.T) {
	info, content, hashes := singlePieceTorrent(t, 20000) // two blocks: 16384 + 3616.

	seederFix := newFixture(t, info, hashes)
	leecherFix := newFixture(t, info, hashes)

	saved := <-seederFix.store.SavePiece(0, content)
	require.Equal(t, storage.Saved, saved.Kind)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	seeder := seederFix.newCoordinator(t, Config{MaxConnections: 10}, nil)
	go func() {
		for {
			nc, err := listener.Accept()
			if err != nil {
				return
			}
			seeder.NewPeer(NewPeerEvent{Origin: ListenerOrigin, Conn: nc})
		}
	}()

	leecher := leecherFix.newCoordinator(t, Config{MaxConnections: 10, TickInterval: 100 * time.Millisecond}, nil)
	require.NoError(t, leecherFix.peerStore.Add(listener.Addr()))

	require.Eventually(t, func() bool {
		fb := <-leecherFix.store.RetrievePiece(0)
		return fb.Kind == storage.Data && string(fb.Bytes) == string(content)
	}, 5*time.Second, 50*time.Millisecond, "leecher never received the seeded piece")
}

func TestCoordinatorRespectsMaxConnections(t *testing.T) {
	info, content, hashes := singlePieceTorrent(t, 4096)

	seederFix := newFixture(t, info, hashes)
	saved := <-seederFix.store.SavePiece(0, content)
	require.Equal(t, storage.Saved, saved.Kind)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	var snapshots []ProgressSnapshot
	snapshotCh := make(chan ProgressSnapshot, 16)
	seeder := seederFix.newCoordinator(t, Config{MaxConnections: 1, TickInterval: 50 * time.Millisecond}, func(s ProgressSnapshot) {
		select {
		case snapshotCh <- s:
		default:
		}
	})

	go func() {
		for {
			nc, err := listener.Accept()
			if err != nil {
				return
			}
			seeder.NewPeer(NewPeerEvent{Origin: ListenerOrigin, Conn: nc})
		}
	}()

	// First connection performs a real handshake, so the server side's
	// Accept succeeds and the peer registers.
	nc1, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer nc1.Close()

	clientPeerID, err := core.RandomPeerID()
	require.NoError(t, err)
	require.NoError(t, wire.WriteHandshake(nc1, wire.NewHandshake(seederFix.infoHash, clientPeerID, true)))
	_, err = wire.ReadHandshake(nc1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case s := <-snapshotCh:
			snapshots = append(snapshots, s)
		default:
		}
		for _, s := range snapshots {
			if s.ActivePeers >= 1 {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond, "seeder never registered the first peer")

	// A second connection arrives once the pool is already full: the
	// listener side closes it rather than exceeding MaxConnections, which
	// is observable as the raw net.Conn getting closed from the far end.
	nc2, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer nc2.Close()

	buf := make([]byte, 1)
	nc2.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = nc2.Read(buf)
	require.Error(t, err, "expected the over-capacity connection to be closed")
}
