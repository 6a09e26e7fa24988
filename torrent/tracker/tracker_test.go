package tracker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/internal/backoff"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	responses []AnnounceResponse
	errs      []error
	calls     []AnnounceRequest
}

func (f *fakeClient) Announce(ctx context.Context, req AnnounceRequest) (AnnounceResponse, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	var resp AnnounceResponse
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func testPeerID(t *testing.T) core.PeerID {
	id, err := core.RandomPeerID()
	require.NoError(t, err)
	return id
}

func TestTaskSendsStartedThenStop(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("1.2.3.4"), Port: 6881}
	fc := &fakeClient{
		responses: []AnnounceResponse{
			{Interval: time.Hour, Peers: []net.Addr{addr}},
		},
	}
	newPeers := make(chan NewPeerEvent, 10)
	infoHash, err := core.NewInfoHashFromHex("be2d7cd9f6b0fdfc035edfee4ebd567003ebc254")
	require.NoError(t, err)

	clk := clock.NewMock()
	task := NewTask("http://tracker.example/announce", fc, Config{}, AnnounceRequest{
		InfoHash: infoHash,
		PeerID:   testPeerID(t),
		Port:     6881,
	}, newPeers, zap.NewNop().Sugar(), WithClock(clk))

	go task.Run()

	select {
	case ev := <-newPeers:
		require.Equal(t, addr.String(), ev.Addr.String())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for discovered peer")
	}

	task.Stop()

	require.Len(t, fc.calls, 2) // started, then stopped.
	require.Equal(t, EventStarted, fc.calls[0].Event)
	require.Equal(t, EventStopped, fc.calls[1].Event)
}

func TestTaskRetriesOnAnnounceFailure(t *testing.T) {
	fc := &fakeClient{
		errs: []error{
			errTemporary{},
			errTemporary{},
			nil,
		},
		responses: []AnnounceResponse{
			{}, {}, {Interval: time.Minute},
		},
	}
	newPeers := make(chan NewPeerEvent, 10)
	infoHash, err := core.NewInfoHashFromHex("be2d7cd9f6b0fdfc035edfee4ebd567003ebc254")
	require.NoError(t, err)

	task := NewTask("http://tracker.example/announce", fc, Config{
		Backoff: backoffFastConfig(),
	}, AnnounceRequest{
		InfoHash: infoHash,
		PeerID:   testPeerID(t),
		Port:     6881,
	}, newPeers, zap.NewNop().Sugar())

	go task.Run()
	time.Sleep(200 * time.Millisecond)
	task.Stop()

	require.GreaterOrEqual(t, len(fc.calls), 3)
}

func backoffFastConfig() backoff.Config {
	return backoff.Config{
		Min:          10 * time.Millisecond,
		Max:          20 * time.Millisecond,
		Factor:       2,
		NoJitter:     true,
		RetryTimeout: time.Second,
	}
}

type errTemporary struct{}

func (errTemporary) Error() string { return "temporary tracker error" }
