package storage

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
)

// FeedbackKind distinguishes the three outcomes a request can produce
// (§4.8: "{Saved|Failed|Data}").
type FeedbackKind int

// Feedback kinds.
const (
	Saved FeedbackKind = iota
	Failed
	Data
)

// Feedback is delivered on a request's ReplyTo channel once the actor has
// processed it.
type Feedback struct {
	Kind  FeedbackKind
	Piece int
	Bytes []byte // set for Data.
	Err   error  // set for Failed.
}

// saveRequest carries a piece index and its blocks (§4.8); the expected
// hash is looked up in Storage.hashes rather than carried here.
type saveRequest struct {
	piece   int
	blocks  []byte
	replyTo chan<- Feedback
}

type retrieveRequest struct {
	piece    int
	blocking bool
	replyTo  chan<- Feedback
}

type fileToggleRequest struct {
	fileIndex int
	enable    bool
	replyTo   chan<- error
}

// Config configures a Storage actor.
type Config struct {
	HandleCapacity int `yaml:"handle_capacity"`
	Workers        int `yaml:"workers"`
}

func (c Config) applyDefaults() Config {
	if c.HandleCapacity == 0 {
		c.HandleCapacity = DefaultHandleCapacity
	}
	if c.Workers == 0 {
		c.Workers = workerCount()
	}
	return c
}

// workerCount sizes the hash-verification worker pool (§4.8:
// "max(1, cores/2)").
func workerCount() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// Storage is the single actor owning one torrent's on-disk state (§4.8):
// the output-files layout, an LRU of open handles, a hash-verification
// worker pool, and the `.parts` sidecar for disabled-file borders.
//
// There is no teacher precedent for a channel-driven single-actor I/O
// subsystem (kraken's `lib/store` exposes direct synchronous methods,
// serialized instead by filesystem-level locking), so the actor shape
// here follows spec.md §4.8's own description ("a single actor that
// receives {save_piece, retrieve_piece, ...}") directly: one goroutine
// owns all mutable bookkeeping (which border pieces are in `.parts`,
// which files are enabled) and a separate worker pool only does the CPU
// side of hash verification, matching §4.8's "Successful verification
// precedes any disk write" ordering.
type Storage struct {
	hashes []core.Digest
	layout *Layout
	bf     *core.Torrent

	handles *handleCache
	parts   *PartsFile

	saveCh     chan saveRequest
	retrieveCh chan retrieveRequest
	toggleCh   chan fileToggleRequest
	verifyCh   chan verifyJob
	verifiedCh chan verifyResult

	// waiters holds RetrieveBlocking requests for pieces not yet saved;
	// woken once handleVerified saves the matching piece.
	waiters map[int][]chan<- Feedback

	done   chan struct{}
	logger *zap.SugaredLogger
}

type verifyJob struct {
	piece   int
	blocks  []byte
	replyTo chan<- Feedback
}

type verifyResult struct {
	piece   int
	blocks  []byte
	ok      bool
	replyTo chan<- Feedback
}

// New creates and starts a Storage actor for one torrent.
func New(config Config, layout *Layout, torrent *core.Torrent, hashes []core.Digest, partsPath string, logger *zap.SugaredLogger) *Storage {
	config = config.applyDefaults()

	s := &Storage{
		hashes:     hashes,
		layout:     layout,
		bf:         torrent,
		handles:    newHandleCache(config.HandleCapacity),
		parts:      NewPartsFile(partsPath),
		saveCh:     make(chan saveRequest),
		retrieveCh: make(chan retrieveRequest),
		toggleCh:   make(chan fileToggleRequest),
		verifyCh:   make(chan verifyJob, config.Workers*2),
		verifiedCh: make(chan verifyResult, config.Workers*2),
		waiters:    make(map[int][]chan<- Feedback),
		done:       make(chan struct{}),
		logger:     logger,
	}

	for i := 0; i < config.Workers; i++ {
		go s.verifyWorker()
	}
	go s.run()

	return s
}

// Close stops the actor and its worker pool, closing every open file
// handle.
func (s *Storage) Close() {
	close(s.done)
	s.handles.CloseAll()
}

// SavePiece enqueues a save request (§4.8). blocks must already be the
// piece's fully assembled bytes.
func (s *Storage) SavePiece(piece int, blocks []byte) <-chan Feedback {
	reply := make(chan Feedback, 1)
	select {
	case s.saveCh <- saveRequest{piece: piece, blocks: blocks, replyTo: reply}:
	case <-s.done:
		reply <- Feedback{Kind: Failed, Piece: piece, Err: errors.New("storage: closed")}
		close(reply)
	}
	return reply
}

// RetrievePiece enqueues a non-blocking retrieve: Data if present, Failed
// with no error if the piece is not yet in the bitfield (§4.8: "returns
// None if the piece is not in the current bitfield").
func (s *Storage) RetrievePiece(piece int) <-chan Feedback {
	return s.retrieve(piece, false)
}

// RetrieveBlocking waits for piece to be saved rather than failing
// immediately if it is not yet present: the reply is delivered once the
// piece completes verification, or immediately if it's already there.
func (s *Storage) RetrieveBlocking(piece int) <-chan Feedback {
	return s.retrieve(piece, true)
}

func (s *Storage) retrieve(piece int, blocking bool) <-chan Feedback {
	reply := make(chan Feedback, 1)
	select {
	case s.retrieveCh <- retrieveRequest{piece: piece, blocking: blocking, replyTo: reply}:
	case <-s.done:
		reply <- Feedback{Kind: Failed, Piece: piece, Err: errors.New("storage: closed")}
		close(reply)
	}
	return reply
}

// EnableFile enables a previously disabled file, replaying any `.parts`
// border pieces into it (§4.8).
func (s *Storage) EnableFile(fileIndex int) error {
	return s.toggle(fileIndex, true)
}

// DisableFile disables a file; subsequent border pieces route to
// `.parts` instead.
func (s *Storage) DisableFile(fileIndex int) error {
	return s.toggle(fileIndex, false)
}

func (s *Storage) toggle(fileIndex int, enable bool) error {
	reply := make(chan error, 1)
	select {
	case s.toggleCh <- fileToggleRequest{fileIndex: fileIndex, enable: enable, replyTo: reply}:
	case <-s.done:
		return errors.New("storage: closed")
	}
	return <-reply
}

func (s *Storage) run() {
	for {
		select {
		case <-s.done:
			return
		case req := <-s.saveCh:
			s.handleSave(req)
		case req := <-s.retrieveCh:
			s.handleRetrieve(req)
		case req := <-s.toggleCh:
			req.replyTo <- s.handleToggle(req)
		case res := <-s.verifiedCh:
			s.handleVerified(res)
		}
	}
}

func (s *Storage) handleSave(req saveRequest) {
	select {
	case s.verifyCh <- verifyJob{piece: req.piece, blocks: req.blocks, replyTo: req.replyTo}:
	case <-s.done:
	}
}

func (s *Storage) verifyWorker() {
	for {
		select {
		case <-s.done:
			return
		case job := <-s.verifyCh:
			ok := job.piece < len(s.hashes) && s.hashes[job.piece].Verify(job.blocks)
			select {
			case s.verifiedCh <- verifyResult{piece: job.piece, blocks: job.blocks, ok: ok, replyTo: job.replyTo}:
			case <-s.done:
				return
			}
		}
	}
}

// handleVerified runs on the single actor goroutine: write-to-disk only
// ever happens here, never in a worker, per §4.8 "Successful verification
// precedes any disk write of the full piece; failed pieces never touch
// output files."
func (s *Storage) handleVerified(res verifyResult) {
	if !res.ok {
		res.replyTo <- Feedback{Kind: Failed, Piece: res.piece, Err: fmt.Errorf("storage: piece %d failed hash verification", res.piece)}
		return
	}
	if _, err := s.writePiece(res.piece, res.blocks); err != nil {
		res.replyTo <- Feedback{Kind: Failed, Piece: res.piece, Err: err}
		return
	}
	_ = s.bf.Bitfield.Add(res.piece)
	res.replyTo <- Feedback{Kind: Saved, Piece: res.piece}

	for _, waiter := range s.waiters[res.piece] {
		waiter <- Feedback{Kind: Data, Piece: res.piece, Bytes: res.blocks}
	}
	delete(s.waiters, res.piece)
}

// writePiece implements §4.8's piece-to-file mapping: enabled segments are
// written directly to their output file. A piece with ANY disabled
// overlapping segment also gets its full bytes appended to `.parts` — not
// just the disabled segment's slice — since `.parts` is indexed by whole
// piece, and this is the only way a later EnableFile can recover the
// disabled segment's bytes without reconstructing them from a second
// source. It reports whether the piece was (partly or fully) persisted to
// `.parts`, so replayPartsFor knows when a piece is fully resolved.
func (s *Storage) writePiece(piece int, data []byte) (persistedToParts bool, err error) {
	segs := s.layout.Overlaps(piece)

	anyDisabled := false
	for _, seg := range segs {
		if !s.bf.EnabledFiles.Has(seg.File.Index) {
			anyDisabled = true
			break
		}
	}

	for _, seg := range segs {
		if !s.bf.EnabledFiles.Has(seg.File.Index) {
			continue
		}
		f, err := s.handles.Open(seg.File.Path, seg.File.Length())
		if err != nil {
			return false, fmt.Errorf("storage: open %s: %w", seg.File.Path, err)
		}
		slice := data[seg.PieceOffset : seg.PieceOffset+seg.Length]
		if _, err := f.WriteAt(slice, seg.FileOffset); err != nil {
			return false, fmt.Errorf("storage: write %s: %w", seg.File.Path, err)
		}
	}

	if anyDisabled {
		if err := s.parts.Append(piece, data); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *Storage) handleRetrieve(req retrieveRequest) {
	if !s.bf.Bitfield.Has(req.piece) {
		if req.blocking {
			s.waiters[req.piece] = append(s.waiters[req.piece], req.replyTo)
			return
		}
		req.replyTo <- Feedback{Kind: Failed, Piece: req.piece}
		return
	}

	segs := s.layout.Overlaps(req.piece)

	// A piece with any disabled overlapping segment was persisted whole
	// to `.parts` by writePiece, so read it back from there rather than
	// partially reading enabled files and leaving the rest zero-filled.
	anyDisabled := false
	for _, seg := range segs {
		if !s.bf.EnabledFiles.Has(seg.File.Index) {
			anyDisabled = true
			break
		}
	}
	if anyDisabled {
		data, err := s.parts.Read(req.piece, s.layout.info.PieceLen)
		if err != nil || data == nil {
			req.replyTo <- Feedback{Kind: Failed, Piece: req.piece, Err: err}
			return
		}
		req.replyTo <- Feedback{Kind: Data, Piece: req.piece, Bytes: data}
		return
	}

	length := s.layout.info.PieceLen(req.piece)
	out := make([]byte, length)
	for _, seg := range segs {
		if !s.bf.EnabledFiles.Has(seg.File.Index) {
			continue
		}
		f, err := s.handles.Open(seg.File.Path, seg.File.Length())
		if err != nil {
			req.replyTo <- Feedback{Kind: Failed, Piece: req.piece, Err: err}
			return
		}
		slice := out[seg.PieceOffset : seg.PieceOffset+seg.Length]
		if _, err := f.ReadAt(slice, seg.FileOffset); err != nil && err != io.EOF {
			req.replyTo <- Feedback{Kind: Failed, Piece: req.piece, Err: err}
			return
		}
	}
	req.replyTo <- Feedback{Kind: Data, Piece: req.piece, Bytes: out}
}

func (s *Storage) handleToggle(req fileToggleRequest) error {
	if req.fileIndex < 0 || req.fileIndex >= len(s.layout.files) {
		return fmt.Errorf("storage: file index %d out of range", req.fileIndex)
	}

	if req.enable {
		if err := s.bf.EnabledFiles.Add(req.fileIndex); err != nil {
			return err
		}
		return s.replayPartsFor(req.fileIndex)
	}

	if err := s.bf.EnabledFiles.Remove(req.fileIndex); err != nil {
		return err
	}
	return nil
}

// replayPartsFor writes every `.parts` border piece touching fileIndex
// into the now-enabled file, then expunges them (§4.8).
func (s *Storage) replayPartsFor(fileIndex int) error {
	target := s.layout.files[fileIndex]

	var toExpunge []int
	for i := 0; i < s.layout.info.NumPieces(); i++ {
		pieceStart, pieceEnd := s.layout.PieceRange(i)
		if pieceEnd <= target.Start || pieceStart >= target.End {
			continue
		}
		if !s.bf.Bitfield.Has(i) {
			continue
		}
		data, err := s.parts.Read(i, s.layout.info.PieceLen)
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		stillPartial, err := s.writePiece(i, data)
		if err != nil {
			return err
		}
		if stillPartial {
			// Another overlapping file is still disabled; leave this
			// piece's record in .parts until that one is enabled too.
			continue
		}
		toExpunge = append(toExpunge, i)
	}
	if len(toExpunge) == 0 {
		return nil
	}
	remove := make(map[int]bool, len(toExpunge))
	for _, i := range toExpunge {
		remove[i] = true
	}
	return s.parts.Expunge(remove, s.layout.info.PieceLen)
}
