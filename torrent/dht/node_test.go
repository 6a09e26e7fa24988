package dht

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
)

func testNode(t *testing.T, clk clock.Clock, onAnnounce AnnounceHandler) (*Node, NodeID) {
	t.Helper()
	id, err := RandomNodeID()
	require.NoError(t, err)
	n, err := NewNode(Config{}, clk, id, onAnnounce, zap.NewNop().Sugar())
	require.NoError(t, err)
	return n, id
}

func TestNodeAnswersPing(t *testing.T) {
	n, id := testNode(t, clock.New(), nil)
	remote, err := RandomNodeID()
	require.NoError(t, err)

	query := NewQuery("aa", Ping, QueryArgs{ID: string(remote.Bytes())})
	data, err := query.Encode()
	require.NoError(t, err)

	reply, ok := n.Handle(data, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6881})
	require.True(t, ok)

	msg, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Equal(t, TypeResponse, msg.Type)
	require.Equal(t, "aa", msg.TransactionID)
	require.Equal(t, string(id.Bytes()), msg.Response.ID)
}

func TestNodeFindNodeReportsNoCloserNodes(t *testing.T) {
	n, _ := testNode(t, clock.New(), nil)
	remote, err := RandomNodeID()
	require.NoError(t, err)
	target, err := RandomNodeID()
	require.NoError(t, err)

	query := NewQuery("aa", FindNode, QueryArgs{ID: string(remote.Bytes()), Target: string(target.Bytes())})
	data, err := query.Encode()
	require.NoError(t, err)

	reply, ok := n.Handle(data, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6881})
	require.True(t, ok)

	msg, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Equal(t, "", msg.Response.Nodes)
}

func TestNodeGetPeersThenAnnounceRoundTrip(t *testing.T) {
	var announced []net.Addr
	n, _ := testNode(t, clock.New(), func(ih core.InfoHash, addr net.Addr) {
		announced = append(announced, addr)
	})

	remote, err := RandomNodeID()
	require.NoError(t, err)
	infoHash, err := core.NewInfoHashFromBytes([]byte("01234567890123456789"))
	require.NoError(t, err)
	from := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6881}

	getPeers := NewQuery("aa", GetPeers, QueryArgs{ID: string(remote.Bytes()), InfoHash: string(infoHash.Bytes())})
	data, err := getPeers.Encode()
	require.NoError(t, err)
	reply, ok := n.Handle(data, from)
	require.True(t, ok)
	getPeersReply, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Empty(t, getPeersReply.Response.Values, "no peer has announced yet")
	token := getPeersReply.Response.Token
	require.NotEmpty(t, token)

	announce := NewQuery("bb", AnnouncePeer, QueryArgs{
		ID:          string(remote.Bytes()),
		InfoHash:    string(infoHash.Bytes()),
		Port:        6889,
		ImpliedPort: 1,
		Token:       token,
	})
	data, err = announce.Encode()
	require.NoError(t, err)
	reply, ok = n.Handle(data, from)
	require.True(t, ok)
	announceReply, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Equal(t, TypeResponse, announceReply.Type)
	require.Len(t, announced, 1)
	require.Equal(t, from.String(), announced[0].String())

	getPeers2 := NewQuery("cc", GetPeers, QueryArgs{ID: string(remote.Bytes()), InfoHash: string(infoHash.Bytes())})
	data, err = getPeers2.Encode()
	require.NoError(t, err)
	reply, ok = n.Handle(data, from)
	require.True(t, ok)
	getPeersReply2, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Len(t, getPeersReply2.Response.Values, 1, "the announced peer should now be returned")
}

func TestNodeAnnouncePeerRejectsBadToken(t *testing.T) {
	n, _ := testNode(t, clock.New(), nil)
	remote, err := RandomNodeID()
	require.NoError(t, err)
	infoHash, err := core.NewInfoHashFromBytes([]byte("01234567890123456789"))
	require.NoError(t, err)
	from := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6881}

	announce := NewQuery("aa", AnnouncePeer, QueryArgs{
		ID:       string(remote.Bytes()),
		InfoHash: string(infoHash.Bytes()),
		Port:     6889,
		Token:    "not-a-real-token",
	})
	data, err := announce.Encode()
	require.NoError(t, err)

	reply, ok := n.Handle(data, from)
	require.True(t, ok)
	msg, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Equal(t, TypeError, msg.Type)
}

func TestNodeTokenSurvivesOneRotationThenExpires(t *testing.T) {
	clk := clock.NewMock()
	n, _ := testNode(t, clk, nil)
	remote, err := RandomNodeID()
	require.NoError(t, err)
	infoHash, err := core.NewInfoHashFromBytes([]byte("01234567890123456789"))
	require.NoError(t, err)
	from := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6881}

	getPeers := NewQuery("aa", GetPeers, QueryArgs{ID: string(remote.Bytes()), InfoHash: string(infoHash.Bytes())})
	data, err := getPeers.Encode()
	require.NoError(t, err)
	reply, ok := n.Handle(data, from)
	require.True(t, ok)
	getPeersReply, err := DecodeMessage(reply)
	require.NoError(t, err)
	token := getPeersReply.Response.Token

	clk.Add(n.config.TokenRotation + time.Second)

	announce := NewQuery("bb", AnnouncePeer, QueryArgs{
		ID:       string(remote.Bytes()),
		InfoHash: string(infoHash.Bytes()),
		Port:     6889,
		Token:    token,
	})
	data, err = announce.Encode()
	require.NoError(t, err)
	reply, ok = n.Handle(data, from)
	require.True(t, ok)
	msg, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Equal(t, TypeResponse, msg.Type, "a token issued just before rotation must still validate")

	clk.Add(n.config.TokenRotation + time.Second)
	reply, ok = n.Handle(data, from)
	require.True(t, ok)
	msg, err = DecodeMessage(reply)
	require.NoError(t, err)
	require.Equal(t, TypeError, msg.Type, "a token from two rotations ago must no longer validate")
}

func TestNodeServeAnswersOverRealSocket(t *testing.T) {
	n, id := testNode(t, clock.New(), nil)

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Serve(ctx, serverConn)

	clientConn, err := net.DialUDP("udp", nil, serverConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer clientConn.Close()

	remote, err := RandomNodeID()
	require.NoError(t, err)
	query := NewQuery("aa", Ping, QueryArgs{ID: string(remote.Bytes())})
	data, err := query.Encode()
	require.NoError(t, err)

	_, err = clientConn.Write(data)
	require.NoError(t, err)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	nRead, err := clientConn.Read(buf)
	require.NoError(t, err)

	reply, err := DecodeMessage(buf[:nRead])
	require.NoError(t, err)
	require.Equal(t, string(id.Bytes()), reply.Response.ID)
}

func TestNodeUnknownMethodReturnsError(t *testing.T) {
	n, _ := testNode(t, clock.New(), nil)
	remote, err := RandomNodeID()
	require.NoError(t, err)

	query := NewQuery("aa", "vote", QueryArgs{ID: string(remote.Bytes())})
	data, err := query.Encode()
	require.NoError(t, err)

	reply, ok := n.Handle(data, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6881})
	require.True(t, ok)
	msg, err := DecodeMessage(reply)
	require.NoError(t, err)
	require.Equal(t, TypeError, msg.Type)
}
