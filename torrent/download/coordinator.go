package download

import (
	"context"
	"net"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/internal/bandwidth"
	"github.com/fenwick-labs/corelode/torrent/conn"
	"github.com/fenwick-labs/corelode/torrent/peerstore"
	"github.com/fenwick-labs/corelode/torrent/scheduler"
	"github.com/fenwick-labs/corelode/torrent/storage"
	"github.com/fenwick-labs/corelode/torrent/tracker"
	"github.com/fenwick-labs/corelode/torrent/wire"
)

// connEstablished is delivered once a dial+handshake succeeds for a
// tracker-origin candidate popped from the peer store.
type connEstablished struct {
	key  string
	conn *conn.Conn
}

// inboundMsg tags an inbound wire.Message with the peer it arrived from.
type inboundMsg struct {
	key string
	msg wire.Message
}

// Coordinator is the single task created per torrent (§4.9): it owns the
// active peer pool, bridges tracker discovery and the candidate pool into
// connections, and drives the periodic performance/progress/choke tick. It
// is a single actor goroutine, following the same channel-driven shape as
// storage.Storage (no teacher precedent for this exact orchestration loop
// shape; kraken's scheduler.go instead runs a generalized event-loop
// abstraction over many torrents sharing one listener, which this
// Coordinator does not — it owns exactly one torrent).
type Coordinator struct {
	config      Config
	clk         clock.Clock
	torrent     *core.Torrent
	infoHash    core.InfoHash
	localPeerID core.PeerID

	table     *scheduler.PieceTable
	assigner  *scheduler.Assigner
	choker    *scheduler.Choker
	store     *storage.Storage
	peerStore *peerstore.Store

	handshaker *wire.Handshaker
	connConfig conn.Config
	bandwidth  *bandwidth.Limiter

	trackerTasks []*tracker.Task
	progress     ProgressConsumer

	peers map[string]*peerTask

	newPeerCh    chan NewPeerEvent
	connEstCh    chan connEstablished
	connClosedCh chan *conn.Conn
	inboundCh    chan inboundMsg
	pieceSavedCh chan int
	completed    bool

	stats  tally.Scope
	logger *zap.SugaredLogger

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// TrackerSpec names one announce URL and the client already constructed
// for its scheme (see tracker.NewClient), per §4.4's "spawn tracker tasks
// for each announce URL".
type TrackerSpec struct {
	URL    string
	Client tracker.Client
}

// New creates a Coordinator for one torrent, constructing and starting one
// tracker.Task per TrackerSpec and relaying every peer address it
// discovers into the coordinator's own peer pool. progress may be nil.
func New(
	config Config,
	clk clock.Clock,
	torrent *core.Torrent,
	infoHash core.InfoHash,
	localPeerID core.PeerID,
	listenPort uint16,
	table *scheduler.PieceTable,
	hashes []core.Digest,
	strategy scheduler.Strategy,
	store *storage.Storage,
	peerStore *peerstore.Store,
	handshaker *wire.Handshaker,
	connConfig conn.Config,
	bw *bandwidth.Limiter,
	trackerSpecs []TrackerSpec,
	trackerConfig tracker.Config,
	progress ProgressConsumer,
	stats tally.Scope,
	logger *zap.SugaredLogger,
) *Coordinator {
	config = config.applyDefaults()

	c := &Coordinator{
		config:       config,
		clk:          clk,
		torrent:      torrent,
		infoHash:     infoHash,
		localPeerID:  localPeerID,
		table:        table,
		assigner:     scheduler.NewAssigner(table, strategy, hashes),
		choker:       scheduler.NewChoker(clk.Now, newRandSource(localPeerID)),
		store:        store,
		peerStore:    peerStore,
		handshaker:   handshaker,
		connConfig:   connConfig,
		bandwidth:    bw,
		progress:     progress,
		peers:        make(map[string]*peerTask),
		newPeerCh:    make(chan NewPeerEvent, 32),
		connEstCh:    make(chan connEstablished, 32),
		connClosedCh: make(chan *conn.Conn, 32),
		inboundCh:    make(chan inboundMsg, 256),
		pieceSavedCh: make(chan int, 32),
		stats:        stats,
		logger:       logger,
		done:         make(chan struct{}),
	}

	trackerPeers := make(chan tracker.NewPeerEvent, 64)
	initial := tracker.AnnounceRequest{
		InfoHash: infoHash,
		PeerID:   localPeerID,
		Port:     listenPort,
		Stat:     tracker.DownloadStat{Left: torrent.BytesLeft()},
		NumWant:  50,
	}
	for _, spec := range trackerSpecs {
		t := tracker.NewTask(spec.URL, spec.Client, trackerConfig, initial, trackerPeers, logger, tracker.WithClock(clk))
		c.trackerTasks = append(c.trackerTasks, t)
		c.wg.Add(1)
		go func(t *tracker.Task) {
			defer c.wg.Done()
			t.Run()
		}(t)
	}

	c.wg.Add(1)
	go c.relayTrackerPeers(trackerPeers)

	c.wg.Add(1)
	go c.run()

	return c
}

func (c *Coordinator) relayTrackerPeers(trackerPeers <-chan tracker.NewPeerEvent) {
	defer c.wg.Done()
	for {
		select {
		case ev := <-trackerPeers:
			c.NewPeer(NewPeerEvent{Origin: TrackerOrigin, Addr: ev.Addr})
		case <-c.done:
			return
		}
	}
}

// Stop shuts down the coordinator, its tracker tasks, and every active
// peer connection.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		for _, t := range c.trackerTasks {
			t.Stop()
		}
		c.wg.Wait()
	})
}

// NewPeer enqueues a discovered peer (§4.9: "Accept NewPeer::{...} into the
// peer pool").
func (c *Coordinator) NewPeer(ev NewPeerEvent) {
	select {
	case c.newPeerCh <- ev:
	case <-c.done:
	}
}

// ConnClosed implements conn.Events; it is called from the Conn's own
// shutdown goroutine once every reader/writer/keepalive loop has exited.
func (c *Coordinator) ConnClosed(cn *conn.Conn) {
	select {
	case c.connClosedCh <- cn:
	case <-c.done:
	}
}

func (c *Coordinator) run() {
	defer c.wg.Done()

	ticker := c.clk.Ticker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.closeAllPeers()
			return
		case ev := <-c.newPeerCh:
			c.handleNewPeer(ev)
		case est := <-c.connEstCh:
			c.handleConnEstablished(est)
		case cn := <-c.connClosedCh:
			c.handleConnClosed(cn)
		case im := <-c.inboundCh:
			c.handleInbound(im)
		case piece := <-c.pieceSavedCh:
			c.broadcastHave(piece)
		case <-ticker.C:
			c.handleTick()
		}
	}
}

func (c *Coordinator) closeAllPeers() {
	for _, pt := range c.peers {
		pt.conn.Close()
	}
}

func (c *Coordinator) handleNewPeer(ev NewPeerEvent) {
	switch ev.Origin {
	case ListenerOrigin:
		if len(c.peers) >= c.config.MaxConnections {
			ev.Conn.Close()
			return
		}
		go c.acceptInbound(ev.Conn)
	case TrackerOrigin:
		if err := c.peerStore.Add(ev.Addr); err != nil && err != peerstore.ErrBanned {
			c.logger.Warnw("failed to add discovered peer to candidate pool", "addr", ev.Addr, "error", err)
		}
		c.fillSlots()
	}
}

// acceptInbound completes the handshake for an already-accepted net.Conn
// off the actor goroutine — ReadHandshake blocks for up to the handshake
// timeout, and a slow or malicious peer must never stall the rest of the
// pool — then hands the live Conn back through connEstCh like a dial
// result (no peer-store interaction: the candidate pool in §4.6 only
// tracks addresses we might dial out to).
func (c *Coordinator) acceptInbound(nc net.Conn) {
	remote, err := c.handshaker.Accept(nc, func(h core.InfoHash) bool { return h == c.infoHash }, true)
	if err != nil {
		c.logger.Infow("inbound handshake failed", "error", err)
		nc.Close()
		return
	}
	key := nc.RemoteAddr().String()
	pc := conn.New(c.connConfig, c.clk, c.bandwidth, c.stats, c, nc, c.localPeerID, remote.PeerID,
		c.infoHash, c.table.Len(), true, c.logger)
	select {
	case c.connEstCh <- connEstablished{key: key, conn: pc}:
	case <-c.done:
		pc.Close()
	}
}

// fillSlots launches at most one dial attempt per call. ConnectBest blocks
// only the spawned goroutine, never the actor; the 1 s tick keeps calling
// this until every free slot is filled or the candidate pool runs dry.
func (c *Coordinator) fillSlots() {
	if len(c.peers) >= c.config.MaxConnections {
		return
	}
	if c.peerStore.Len() == 0 {
		return
	}
	go c.dialOne()
}

func (c *Coordinator) dialOne() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
	defer cancel()

	var established *conn.Conn
	addr, err := c.peerStore.ConnectBest(ctx, c.config.ConnectTimeout, func(ctx context.Context, addr net.Addr) error {
		nc, remote, err := c.handshaker.Dial(addr.String(), c.infoHash, core.PeerID{}, true)
		if err != nil {
			return err
		}
		established = conn.New(c.connConfig, c.clk, c.bandwidth, c.stats, c, nc, c.localPeerID, remote.PeerID,
			c.infoHash, c.table.Len(), false, c.logger)
		return nil
	})
	if err != nil || established == nil {
		return
	}
	key := addr.String()
	select {
	case c.connEstCh <- connEstablished{key: key, conn: established}:
	case <-c.done:
		established.Close()
	}
}

func (c *Coordinator) handleConnEstablished(est connEstablished) {
	if len(c.peers) >= c.config.MaxConnections {
		est.conn.Close()
		return
	}
	if _, exists := c.peers[est.key]; exists {
		est.conn.Close()
		return
	}
	c.registerPeer(est.key, est.conn)
}

func (c *Coordinator) registerPeer(key string, pc *conn.Conn) {
	peer := core.NewPeer(key, pseudoNetAddr(key), c.table.Len())
	pt := newPeerTask(key, pc, peer)
	c.peers[key] = pt

	pc.Start()
	c.wg.Add(1)
	go c.relayInbound(key, pc)

	// Announce our bitfield so the new peer can decide interest in us.
	_ = pc.Send(wire.Message{Kind: wire.BitfieldMsg, Bitfield: c.torrent.Bitfield.Bytes()})
}

func (c *Coordinator) relayInbound(key string, pc *conn.Conn) {
	defer c.wg.Done()
	for m := range pc.Receiver() {
		select {
		case c.inboundCh <- inboundMsg{key: key, msg: m}:
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) handleConnClosed(closed *conn.Conn) {
	var key string
	for k, pt := range c.peers {
		if pt.conn == closed {
			key = k
			break
		}
	}
	if key == "" {
		return
	}
	delete(c.peers, key)
	c.assigner.DropPeer(key)
	c.fillSlots()
}

func (c *Coordinator) handleInbound(im inboundMsg) {
	pt, ok := c.peers[im.key]
	if !ok {
		return
	}
	m := im.msg

	switch m.Kind {
	case wire.Interested:
		pt.peer.InStatus.Interested = true
	case wire.NotInterested:
		pt.peer.InStatus.Interested = false
	case wire.Choke:
		pt.peer.InStatus.Choked = true
	case wire.Unchoke:
		pt.peer.InStatus.Choked = false
		c.requestMore(pt)
	case wire.Have, wire.BitfieldMsg:
		c.updateInterest(pt)
	case wire.Request:
		c.serveRequest(pt, m.Req)
	case wire.Piece:
		c.handlePiece(pt, m.Pc)
	case wire.Cancel:
		// Best effort: an already-queued serve goroutine may still deliver
		// the piece; no outstanding-serve tracking is kept to cancel against.
	}
}

func (c *Coordinator) updateInterest(pt *peerTask) {
	want := scheduler.InterestedCount(c.table, pt.peerHas) > 0
	if want == pt.peer.OutStatus.Interested {
		return
	}
	pt.peer.OutStatus.Interested = want
	kind := wire.NotInterested
	if want {
		kind = wire.Interested
	}
	_ = pt.conn.Send(wire.Message{Kind: kind})
	if want && !pt.peer.InStatus.Choked {
		c.requestMore(pt)
	}
}

func (c *Coordinator) requestMore(pt *peerTask) {
	if pt.peer.InStatus.Choked {
		return
	}
	counts := c.globalAvailability()
	want := scheduler.TargetPendingBlocks(pt.peer.AvgDownloadSpeed())
	reqs := c.assigner.Assign(pt.key, pt.peerHas, counts, want)
	for _, r := range reqs {
		po := core.PieceOffset{Piece: r.Piece, Offset: r.Offset}
		if blk := blockPtr(c.table, r.Piece, r.Offset); blk != nil {
			pt.peer.PendingRequests[po] = blk
		}
		_ = pt.conn.Send(wire.Message{Kind: wire.Request, Req: wire.RequestPayload{
			Piece:  uint32(r.Piece),
			Offset: uint32(r.Offset),
			Length: uint32(r.Length),
		}})
	}
}

func (c *Coordinator) globalAvailability() func(piece int) int {
	fns := make([]func(int) bool, 0, len(c.peers))
	for _, pt := range c.peers {
		fns = append(fns, pt.peerHas)
	}
	return scheduler.GlobalAvailability(c.table.Len(), fns)
}

func (c *Coordinator) serveRequest(pt *peerTask, req wire.RequestPayload) {
	if !pt.peer.CanServe() {
		return
	}
	piece := int(req.Piece)
	ch := c.store.RetrievePiece(piece)
	go func() {
		fb := <-ch
		if fb.Kind != storage.Data {
			return
		}
		offset, length := int64(req.Offset), int64(req.Length)
		if offset < 0 || offset+length > int64(len(fb.Bytes)) {
			return
		}
		block := fb.Bytes[offset : offset+length]
		_ = pt.conn.Send(wire.Message{Kind: wire.Piece, Pc: wire.PiecePayload{
			Piece: req.Piece, Offset: req.Offset, Block: block,
		}})
	}()
}

func (c *Coordinator) handlePiece(pt *peerTask, pc wire.PiecePayload) {
	piece, offset := int(pc.Piece), int64(pc.Offset)
	po := core.PieceOffset{Piece: piece, Offset: offset}
	delete(pt.peer.PendingRequests, po)
	pt.peer.Downloaded += int64(len(pc.Block))

	result := c.assigner.ReceiveBlock(pt.key, piece, offset, pc.Block)
	for _, otherKey := range result.CancelTo {
		if other, ok := c.peers[otherKey]; ok {
			_ = other.conn.Send(wire.Message{Kind: wire.Cancel, Req: wire.RequestPayload{
				Piece: pc.Piece, Offset: pc.Offset, Length: uint32(len(pc.Block)),
			}})
		}
	}
	if result.BanPeer {
		for _, banKey := range result.CancelTo {
			c.banPeer(banKey)
		}
	}
	if result.PieceCompleted && result.VerifyOK {
		// c.torrent.Bitfield.Add happens inside Storage once the piece is
		// durably written (storage.Storage.handleVerified); this only
		// persists it and fans the Have out once that succeeds.
		entry := c.table.Entry(piece)
		go func() {
			fb := <-c.store.SavePiece(piece, entry.Assembled())
			if fb.Kind != storage.Saved {
				c.logger.Warnw("piece failed to persist after verification", "piece", piece, "error", fb.Err)
				return
			}
			select {
			case c.pieceSavedCh <- piece:
			case <-c.done:
			}
		}()
	}
	if !pt.peer.InStatus.Choked {
		c.requestMore(pt)
	}
}

func (c *Coordinator) banPeer(key string) {
	if pt, ok := c.peers[key]; ok {
		pt.conn.Close()
	}
	c.peerStore.Ban(pseudoNetAddr(key))
}

func (c *Coordinator) broadcastHave(piece int) {
	for _, pt := range c.peers {
		_ = pt.conn.Send(wire.Message{Kind: wire.Have, HavePiece: uint32(piece)})
	}
}

func (c *Coordinator) handleTick() {
	peers := make([]*core.Peer, 0, len(c.peers))
	for _, pt := range c.peers {
		d := pt.peer.Downloaded - pt.lastDownloaded
		u := pt.peer.Uploaded - pt.lastUploaded
		pt.peer.RecordTick(core.PerformanceSample{DownloadedDelta: d, UploadedDelta: u})
		pt.lastDownloaded = pt.peer.Downloaded
		pt.lastUploaded = pt.peer.Uploaded
		peers = append(peers, pt.peer)
	}

	changed := c.choker.Tick(peers)
	for _, p := range changed {
		for _, pt := range c.peers {
			if pt.peer == p {
				kind := wire.Unchoke
				if p.OutStatus.Choked {
					kind = wire.Choke
				}
				_ = pt.conn.Send(wire.Message{Kind: kind})
				break
			}
		}
	}

	stat := c.downloadStat()
	for _, t := range c.trackerTasks {
		t.UpdateStat(stat)
	}
	if stat.Left == 0 && !c.completed {
		c.completed = true
		for _, t := range c.trackerTasks {
			t.AnnounceCompleted(stat)
		}
	}

	c.fillSlots()

	if c.progress != nil {
		c.progress(ProgressSnapshot{
			Downloaded:     stat.Downloaded,
			Uploaded:       stat.Uploaded,
			Left:           stat.Left,
			PiecesComplete: len(c.torrent.Bitfield.PiecesPresent()),
			PiecesTotal:    c.torrent.NumPieces,
			ActivePeers:    len(c.peers),
		})
	}
}

func (c *Coordinator) downloadStat() tracker.DownloadStat {
	var downloaded, uploaded int64
	for _, pt := range c.peers {
		downloaded += pt.peer.Downloaded
		uploaded += pt.peer.Uploaded
	}
	return tracker.DownloadStat{
		Downloaded: downloaded,
		Uploaded:   uploaded,
		Left:       c.torrent.BytesLeft(),
	}
}

func blockPtr(table *scheduler.PieceTable, piece int, offset int64) *core.PendingBlock {
	entry := table.Entry(piece)
	for _, b := range entry.PendingBlocks {
		if b.Offset == offset {
			return b
		}
	}
	return nil
}

// pseudoNetAddr lets the coordinator round-trip a peer's string key through
// APIs (core.NewPeer, peerstore.Ban) that want a net.Addr, without needing
// a second resolved-address representation of an already-known key.
type pseudoNetAddr string

func (a pseudoNetAddr) Network() string { return "tcp" }
func (a pseudoNetAddr) String() string  { return string(a) }

// newRandSource seeds a rand.Source deterministically from the local peer
// id, so two Coordinators never share the optimistic-unchoke sequence by
// accident of construction order.
func newRandSource(peerID core.PeerID) *randSource {
	var seed int64
	for i, b := range peerID {
		seed = seed*31 + int64(b) + int64(i) + 1
	}
	return &randSource{seed: seed}
}

// randSource is a minimal math/rand.Source; there is no ecosystem PRNG in
// the pack beyond the stdlib one scheduler.Choker already uses, so this
// stays self-contained rather than pulling in a new dependency for seeding.
type randSource struct {
	seed int64
}

func (r *randSource) Int63() int64 {
	r.seed = r.seed*6364136223846793005 + 1442695040888963407
	return r.seed & (1<<63 - 1)
}

func (r *randSource) Seed(seed int64) { r.seed = seed }
