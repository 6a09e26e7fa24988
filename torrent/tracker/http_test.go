package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/bencode"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientAnnounceCompactPeers(t *testing.T) {
	var gotInfoHash string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInfoHash = r.URL.Query().Get("info_hash")
		peers := string([]byte{1, 2, 3, 4, 0x1a, 0xe1, 5, 6, 7, 8, 0x1a, 0xe2})
		raw, err := bencode.Marshal(map[string]interface{}{
			"interval": 1800,
			"peers":    peers,
		})
		require.NoError(t, err)
		w.Write(raw)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/announce", time.Second)
	infoHash, err := core.NewInfoHashFromHex("be2d7cd9f6b0fdfc035edfee4ebd567003ebc254")
	require.NoError(t, err)
	peerID, err := core.RandomPeerID()
	require.NoError(t, err)

	resp, err := c.Announce(context.Background(), AnnounceRequest{
		InfoHash: infoHash,
		PeerID:   peerID,
		Port:     6881,
		Event:    EventStarted,
	})
	require.NoError(t, err)
	require.Equal(t, 1800*time.Second, resp.Interval)
	require.Len(t, resp.Peers, 2)
	require.Equal(t, "1.2.3.4:6881", resp.Peers[0].String())
	require.Equal(t, "5.6.7.8:6882", resp.Peers[1].String())
	require.Equal(t, string(infoHash.Bytes()), gotInfoHash)
}

func TestHTTPClientAnnounceNonCompactPeers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bencode.Marshal(map[string]interface{}{
			"interval": 900,
			"peers": []interface{}{
				map[string]interface{}{"peer id": "abcdefghij0123456789", "ip": "9.9.9.9", "port": 6883},
			},
		})
		require.NoError(t, err)
		w.Write(raw)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/announce", time.Second)
	infoHash, err := core.NewInfoHashFromHex("be2d7cd9f6b0fdfc035edfee4ebd567003ebc254")
	require.NoError(t, err)
	peerID, err := core.RandomPeerID()
	require.NoError(t, err)

	resp, err := c.Announce(context.Background(), AnnounceRequest{InfoHash: infoHash, PeerID: peerID, Port: 6881})
	require.NoError(t, err)
	require.Len(t, resp.Peers, 1)
	require.Equal(t, "9.9.9.9:6883", resp.Peers[0].String())
}

func TestHTTPClientAnnounceFailureReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bencode.Marshal(map[string]interface{}{
			"failure reason": "torrent not registered",
		})
		require.NoError(t, err)
		w.Write(raw)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/announce", time.Second)
	infoHash, err := core.NewInfoHashFromHex("be2d7cd9f6b0fdfc035edfee4ebd567003ebc254")
	require.NoError(t, err)
	peerID, err := core.RandomPeerID()
	require.NoError(t, err)

	_, err = c.Announce(context.Background(), AnnounceRequest{InfoHash: infoHash, PeerID: peerID, Port: 6881})
	require.Error(t, err)
}
