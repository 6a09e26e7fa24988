package conn

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/wire"
)

type noopEvents struct{}

func (noopEvents) ConnClosed(*Conn) {}

func newTestConnPair(t *testing.T) (a, b *Conn, cleanup func()) {
	t.Helper()
	ncA, ncB := net.Pipe()

	peerA, err := core.RandomPeerID()
	require.NoError(t, err)
	peerB, err := core.RandomPeerID()
	require.NoError(t, err)
	infoHash, err := core.NewInfoHashFromHex("be2d7cd9f6b0fdfc035edfee4ebd567003ebc254")
	require.NoError(t, err)

	clk := clock.New()
	logger := zap.NewNop().Sugar()
	stats := tally.NoopScope

	a = New(Config{}, clk, nil, stats, noopEvents{}, ncA, peerA, peerB, infoHash, 10, false, logger)
	b = New(Config{}, clk, nil, stats, noopEvents{}, ncB, peerB, peerA, infoHash, 10, true, logger)
	a.Start()
	b.Start()

	return a, b, func() {
		a.Close()
		b.Close()
	}
}

func TestConnSendReceiveRoundTrip(t *testing.T) {
	a, b, cleanup := newTestConnPair(t)
	defer cleanup()

	require.NoError(t, a.Send(wire.Message{Kind: wire.Interested}))

	select {
	case m := <-b.Receiver():
		require.Equal(t, wire.Interested, m.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestConnRecordsRemoteHave(t *testing.T) {
	a, b, cleanup := newTestConnPair(t)
	defer cleanup()

	require.NoError(t, a.Send(wire.Message{Kind: wire.Have, HavePiece: 3}))

	select {
	case <-b.Receiver():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for have message")
	}

	require.Eventually(t, func() bool {
		return b.RemoteHas(3)
	}, time.Second, 10*time.Millisecond)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	a, _, cleanup := newTestConnPair(t)
	defer cleanup()

	require.False(t, a.IsClosed())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Close()
		}()
	}
	wg.Wait()

	require.True(t, a.IsClosed())
}
