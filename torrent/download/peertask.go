package download

import (
	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/conn"
)

// peerTask pairs a live Conn with the domain-model Peer tracking its
// choke/interest/performance state (§3.4, §4.5). key is the string form of
// the peer's dial address, used throughout the scheduler as the peer
// identity for ownership bookkeeping.
type peerTask struct {
	key  string
	conn *conn.Conn
	peer *core.Peer

	// lastDownloaded/lastUploaded snapshot cumulative totals at the previous
	// tick, so RecordTick can compute this tick's delta (§3.4).
	lastDownloaded int64
	lastUploaded   int64
}

func newPeerTask(key string, c *conn.Conn, p *core.Peer) *peerTask {
	return &peerTask{key: key, conn: c, peer: p}
}

// peerHas adapts the Conn's remote-bitfield tracking to the scheduler's
// func(piece int) bool shape.
func (pt *peerTask) peerHas(piece int) bool {
	return pt.conn.RemoteHas(piece)
}
