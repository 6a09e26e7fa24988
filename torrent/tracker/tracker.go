// Package tracker implements the HTTP and UDP tracker clients (§4.4) and
// the per-torrent tracker task lifecycle: started/stopped/completed event
// announces, periodic re-announce on the tracker's interval, and delivery
// of discovered peer addresses.
package tracker

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/internal/backoff"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
)

// Event is a tracker announce event (§4.4).
type Event int

// Announce events.
const (
	EventNone Event = iota
	EventStarted
	EventCompleted
	EventStopped
)

func (e Event) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventStopped:
		return "stopped"
	default:
		return ""
	}
}

// DownloadStat is the rolling transfer counters reported on every announce
// (§4.4, §6.2: fed to tracker tasks over a watch channel in the original
// design; here delivered by value on each Announce call).
type DownloadStat struct {
	Downloaded int64
	Uploaded   int64
	Left       int64
}

// AnnounceRequest is a tracker-protocol-agnostic announce request.
type AnnounceRequest struct {
	InfoHash core.InfoHash
	PeerID   core.PeerID
	Port     uint16
	Stat     DownloadStat
	Event    Event
	NumWant  int
}

// AnnounceResponse is a tracker-protocol-agnostic announce response.
type AnnounceResponse struct {
	Interval time.Duration
	Leechers int
	Seeders  int
	Peers    []net.Addr
}

// Client announces to one tracker. HTTPClient and UDPClient both implement
// it, selected by the tracker URL's scheme.
type Client interface {
	Announce(ctx context.Context, req AnnounceRequest) (AnnounceResponse, error)
}

// Config controls tracker task retry behavior (§4.6: "tracker request 3 s
// initial, exponential back-off up to 60 s").
type Config struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Backoff        backoff.Config `yaml:"backoff"`
}

func (c Config) applyDefaults() Config {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 3 * time.Second
	}
	if c.Backoff.Min == 0 {
		c.Backoff.Min = 3 * time.Second
	}
	if c.Backoff.Max == 0 {
		c.Backoff.Max = 60 * time.Second
	}
	if c.Backoff.RetryTimeout == 0 {
		c.Backoff.RetryTimeout = 5 * time.Minute
	}
	return c
}

// NewPeerEvent is delivered to the download coordinator whenever a tracker
// announce discovers peer addresses (§4.6: "NewPeer::TrackerOrigin").
type NewPeerEvent struct {
	Addr net.Addr
}

// Task runs the announce lifecycle for a single tracker URL against a
// single torrent: started when Run begins, periodic re-announce on the
// tracker-supplied interval, immediate completed announce on left==0, and
// a best-effort stopped announce when Stop is called.
type Task struct {
	url      string
	client   Client
	config   Config
	clk      clock.Clock
	req      AnnounceRequest
	newPeers chan<- NewPeerEvent
	logger   *zap.SugaredLogger

	stop chan struct{}
	done chan struct{}
}

// taskOverrides holds Task fields that may be overridden in tests.
type taskOverrides struct {
	clk clock.Clock
}

// TaskOption overrides a Task default, analogous to the teacher's
// scheduler option pattern (lib/torrent/scheduler/scheduler.go).
type TaskOption func(*taskOverrides)

// WithClock injects a clock.Clock, for deterministic tests of the
// re-announce timer via clock.NewMock().
func WithClock(c clock.Clock) TaskOption {
	return func(o *taskOverrides) { o.clk = c }
}

// NewTask creates a Task for one announce URL. client must already be
// constructed for url's scheme (see NewClient).
func NewTask(
	url string,
	client Client,
	config Config,
	initial AnnounceRequest,
	newPeers chan<- NewPeerEvent,
	logger *zap.SugaredLogger,
	opts ...TaskOption) *Task {

	config = config.applyDefaults()

	overrides := taskOverrides{clk: clock.New()}
	for _, opt := range opts {
		opt(&overrides)
	}

	return &Task{
		url:      url,
		client:   client,
		config:   config,
		clk:      overrides.clk,
		req:      initial,
		newPeers: newPeers,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run executes the tracker task loop until Stop is called. It is meant to
// be run in its own goroutine by the download coordinator.
func (t *Task) Run() {
	defer close(t.done)

	req := t.req
	req.Event = EventStarted
	interval, err := t.announceWithRetry(req)
	if err != nil {
		t.logger.Errorw("tracker started announce failed permanently", "url", t.url, "error", err)
		return
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	timer := t.clk.Timer(interval)
	defer timer.Stop()

	for {
		select {
		case <-t.stop:
			t.announceStopped()
			return
		case <-timer.C:
			req := t.req
			req.Event = EventNone
			next, err := t.announceWithRetry(req)
			if err != nil {
				t.logger.Warnw("tracker re-announce failed; other trackers continue", "url", t.url, "error", err)
				timer.Reset(interval)
				continue
			}
			if next > 0 {
				interval = next
			}
			timer.Reset(interval)
		}
	}
}

// AnnounceCompleted immediately performs a completed-event announce (§4.4:
// "re-announces immediately on completion transition (left→0)").
func (t *Task) AnnounceCompleted(stat DownloadStat) {
	req := t.req
	req.Stat = stat
	req.Event = EventCompleted
	if _, err := t.announceWithRetry(req); err != nil {
		t.logger.Warnw("tracker completed announce failed", "url", t.url, "error", err)
	}
}

// UpdateStat refreshes the download stat used for the next scheduled
// announce.
func (t *Task) UpdateStat(stat DownloadStat) {
	t.req.Stat = stat
}

// Stop signals the task to send a best-effort stopped announce and exit.
// It blocks until the task has finished.
func (t *Task) Stop() {
	close(t.stop)
	<-t.done
}

func (t *Task) announceStopped() {
	req := t.req
	req.Event = EventStopped
	ctx, cancel := context.WithTimeout(context.Background(), t.config.RequestTimeout)
	defer cancel()
	if _, err := t.client.Announce(ctx, req); err != nil {
		t.logger.Warnw("tracker stopped announce failed (best effort)", "url", t.url, "error", err)
	}
}

func (t *Task) announceWithRetry(req AnnounceRequest) (time.Duration, error) {
	b := backoff.New(t.config.Backoff)
	a := b.Attempts()
	var lastErr error
	for a.WaitForNext() {
		ctx, cancel := context.WithTimeout(context.Background(), t.config.RequestTimeout)
		resp, err := t.client.Announce(ctx, req)
		cancel()
		if err == nil {
			for _, addr := range resp.Peers {
				select {
				case t.newPeers <- NewPeerEvent{Addr: addr}:
				default:
				}
			}
			return resp.Interval, nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("tracker: %s: %w (last error: %v)", t.url, a.Err(), lastErr)
}
