// Package adminhttp exposes a read-only operator-facing HTTP surface
// over torrent download progress and IGD port-mapping leases, routed
// with github.com/gorilla/mux the way teacher kraken/test-tracker/
// tracker.go routes its own admin-style endpoints
// (mux.NewRouter()/HandleFunc(...).Methods("GET")). It owns none of the
// state it serves; it only renders snapshots handed to it by whatever
// already tracks that state.
package adminhttp

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fenwick-labs/corelode/internal/httputil"
	"github.com/fenwick-labs/corelode/torrent/download"
	"github.com/fenwick-labs/corelode/upnp/igdlease"
)

// TorrentStatus names one running torrent for the admin listing.
type TorrentStatus struct {
	Name     string                    `json:"name"`
	InfoHash string                    `json:"info_hash"`
	Progress download.ProgressSnapshot `json:"progress"`
}

// TorrentStatusProvider is satisfied by whatever owns the set of active
// download.Coordinators.
type TorrentStatusProvider interface {
	TorrentStatuses() []TorrentStatus
}

// LeaseProvider is satisfied by an *upnp/igdlease.Manager.
type LeaseProvider interface {
	Leases() []igdlease.Lease
}

// Server renders TorrentStatusProvider and LeaseProvider state as JSON.
type Server struct {
	torrents TorrentStatusProvider
	leases   LeaseProvider
}

// NewServer constructs a Server. Either provider may be nil, in which
// case its endpoint reports an empty list.
func NewServer(torrents TorrentStatusProvider, leases LeaseProvider) *Server {
	return &Server{torrents: torrents, leases: leases}
}

// Routes builds the admin router: GET /torrents and GET /leases.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/torrents", httputil.Wrap(s.handleTorrents)).Methods("GET")
	r.HandleFunc("/leases", httputil.Wrap(s.handleLeases)).Methods("GET")
	return r
}

func (s *Server) handleTorrents(w http.ResponseWriter, r *http.Request) error {
	statuses := []TorrentStatus{}
	if s.torrents != nil {
		statuses = s.torrents.TorrentStatuses()
	}
	return writeJSON(w, statuses)
}

func (s *Server) handleLeases(w http.ResponseWriter, r *http.Request) error {
	leases := []igdlease.Lease{}
	if s.leases != nil {
		leases = s.leases.Leases()
	}
	return writeJSON(w, leases)
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return httputil.Errorf("adminhttp: encode response: %s", err)
	}
	return nil
}
