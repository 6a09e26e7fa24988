package gena

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/internal/httputil"
)

var errNoCallback = errors.New("gena: missing or malformed CALLBACK header")

// StateFunc returns the current value of every evented state variable,
// used both to seed a new subscription's initial NOTIFY and to build
// each subsequent change NOTIFY.
type StateFunc func() []Property

// Server exposes SUBSCRIBE/UNSUBSCRIBE on a single service's event URL
// (§4.12: "SUBSCRIBE /upnp/content_directory/event.xml"), delegating
// storage to a Manager and delivery to a Notifier the same way
// upnp/contentdirectory.Server delegates browsing to a Handler.
type Server struct {
	manager  *Manager
	notifier *Notifier
	state    StateFunc
	logger   *zap.SugaredLogger
}

// NewServer constructs a Server backed by manager, delivering the
// initial NOTIFY every new subscription receives via notifier, with
// state supplying the property values to seed it.
func NewServer(manager *Manager, notifier *Notifier, state StateFunc, logger *zap.SugaredLogger) *Server {
	return &Server{manager: manager, notifier: notifier, state: state, logger: logger}
}

// Routes returns the router mounting SUBSCRIBE and UNSUBSCRIBE at its
// root, meant to be mounted at the owning service's event URL (e.g.
// ".../event.xml", via upnp/contentdirectory.Server.Routes's
// r.Mount("/event.xml", events.Routes())).
func (s *Server) Routes() http.Handler {
	chi.RegisterMethod("SUBSCRIBE")
	chi.RegisterMethod("UNSUBSCRIBE")
	r := chi.NewRouter()
	r.MethodFunc("SUBSCRIBE", "/", httputil.Wrap(s.handleSubscribe))
	r.MethodFunc("UNSUBSCRIBE", "/", httputil.Wrap(s.handleUnsubscribe))
	return r
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) error {
	if sid := r.Header.Get("SID"); sid != "" {
		return s.handleRenew(w, sid, r.Header.Get("TIMEOUT"))
	}

	callbackHeader := r.Header.Get("CALLBACK")
	callback, err := parseCallback(callbackHeader)
	if err != nil {
		return httputil.ErrorStatus(http.StatusPreconditionFailed)
	}
	if nt := r.Header.Get("NT"); nt != "" && nt != NT {
		return httputil.ErrorStatus(http.StatusBadRequest)
	}

	requested, _ := ParseTimeoutHeader(r.Header.Get("TIMEOUT"))
	sub := s.manager.Subscribe(callback, requested)

	w.Header().Set("SID", sub.SID)
	w.Header().Set("TIMEOUT", FormatTimeoutHeader(requested))
	w.WriteHeader(http.StatusOK)

	s.logger.Infow("gena: subscribed", "sid", sub.SID, "callback", sub.Callback)
	go s.notifier.NotifyAll(context.Background(), []*Subscription{sub}, s.state())
	return nil
}

func (s *Server) handleRenew(w http.ResponseWriter, sid, timeoutHeader string) error {
	requested, _ := ParseTimeoutHeader(timeoutHeader)
	sub, err := s.manager.Renew(sid, requested)
	if err != nil {
		return httputil.ErrorStatus(http.StatusPreconditionFailed)
	}
	w.Header().Set("SID", sub.SID)
	w.Header().Set("TIMEOUT", FormatTimeoutHeader(requested))
	w.WriteHeader(http.StatusOK)
	return nil
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) error {
	sid := r.Header.Get("SID")
	if sid == "" {
		return httputil.ErrorStatus(http.StatusPreconditionFailed)
	}
	if err := s.manager.Unsubscribe(sid); err != nil {
		return httputil.ErrorStatus(http.StatusPreconditionFailed)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

// parseCallback extracts the first "<...>"-delimited URL from a
// CALLBACK header, which may list several.
func parseCallback(header string) (*url.URL, error) {
	start := strings.IndexByte(header, '<')
	end := strings.IndexByte(header, '>')
	if start < 0 || end < 0 || end < start {
		return nil, errNoCallback
	}
	return url.Parse(header[start+1 : end])
}
