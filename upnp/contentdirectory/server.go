package contentdirectory

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/internal/httputil"
	"github.com/fenwick-labs/corelode/upnp/gena"
	"github.com/fenwick-labs/corelode/upnp/scpd"
	"github.com/fenwick-labs/corelode/upnp/soap"
)

// Server exposes a Handler over the HTTP endpoints §4.12 requires:
// GET .../scpd.xml and POST .../control.xml. SUBSCRIBE/UNSUBSCRIBE
// eventing on .../event.xml is delegated to an *gena.Server, mounted
// alongside when one is supplied — GetSystemUpdateID's evented
// counterpart is the only state variable this service currently
// advertises changes for.
type Server struct {
	handler Handler
	events  *gena.Server
	logger  *zap.SugaredLogger
}

// NewServer constructs a Server dispatching Browse calls into handler.
// events may be nil, in which case .../event.xml is not mounted (a
// caller not running a GENA event source for this service).
func NewServer(handler Handler, events *gena.Server, logger *zap.SugaredLogger) *Server {
	return &Server{handler: handler, events: events, logger: logger}
}

// Routes returns the chi router mounting this service's HTTP endpoints,
// meant to be mounted at "/upnp/content_directory" by the caller's
// top-level router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/scpd.xml", httputil.Wrap(s.handleSCPD))
	r.Post("/control.xml", s.handleControl)
	if s.events != nil {
		r.Mount("/event.xml", s.events.Routes())
	}
	return r
}

func (s *Server) handleSCPD(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if err := scpd.Encode(w, SCPDDocument()); err != nil {
		return httputil.Errorf("encode scpd: %s", err)
	}
	return nil
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	action, err := soap.DecodeAction(r.Body)
	if err != nil {
		http.Error(w, "decode soap action: "+err.Error(), http.StatusBadRequest)
		return
	}

	args, err := s.dispatch(r.Context(), action)
	if err != nil {
		s.writeFault(w, action.Name, err)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	serviceType, _ := serviceTypeFromURN(action.ServiceURN)
	if err := soap.EncodeActionResponse(w, serviceType, action.Name, args); err != nil {
		s.logger.Errorw("encode action response", "action", action.Name, "error", err)
	}
}

func (s *Server) writeFault(w http.ResponseWriter, action string, err error) {
	var fault *soap.Fault
	if !errors.As(err, &fault) {
		fault = &soap.Fault{Code: soap.ErrActionFailed, Description: err.Error()}
	}
	s.logger.Infow("content directory action failed", "action", action, "code", fault.Code, "error", fault.Description)
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if err := soap.EncodeFault(w, fault); err != nil {
		s.logger.Errorw("encode soap fault", "action", action, "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, action soap.Action) ([]soap.Argument, error) {
	switch action.Name {
	case "Browse":
		return s.browse(ctx, action)
	case "GetSearchCapabilities":
		return []soap.Argument{{Name: "SearchCaps", Value: ""}}, nil
	case "GetSortCapabilities":
		return []soap.Argument{{Name: "SortCaps", Value: ""}}, nil
	case "GetSystemUpdateID":
		return []soap.Argument{{Name: "Id", Value: "0"}}, nil
	default:
		return nil, &soap.Fault{Code: soap.ErrInvalidAction, Description: "unrecognized action " + action.Name}
	}
}

func (s *Server) browse(ctx context.Context, action soap.Action) ([]soap.Argument, error) {
	objectIDArg, _ := action.Arg("ObjectID")
	id, err := ParseObjectID(objectIDArg)
	if err != nil {
		return nil, &soap.Fault{Code: soap.ErrNoSuchObject, Description: err.Error()}
	}

	flagArg, _ := action.Arg("BrowseFlag")
	flag, err := ParseBrowseFlag(flagArg)
	if err != nil {
		return nil, &soap.Fault{Code: soap.ErrArgumentInvalid, Description: err.Error()}
	}

	var requestedCount uint64
	if countArg, ok := action.Arg("RequestedCount"); ok && countArg != "" {
		requestedCount, err = strconv.ParseUint(countArg, 10, 32)
		if err != nil {
			return nil, &soap.Fault{Code: soap.ErrArgumentInvalid, Description: "invalid RequestedCount"}
		}
	}

	var resp Response
	switch flag {
	case BrowseDirectChildren:
		resp, err = s.handler.BrowseDirectChildren(ctx, id, uint32(requestedCount))
	case BrowseMetadata:
		resp, err = s.handler.BrowseMetadata(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	result, err := Encode(resp)
	if err != nil {
		return nil, httputil.Errorf("encode didl-lite: %s", err)
	}
	count := resp.Count()
	return []soap.Argument{
		{Name: "Result", Value: result},
		{Name: "NumberReturned", Value: strconv.Itoa(count)},
		{Name: "TotalMatches", Value: strconv.Itoa(count)},
		{Name: "UpdateID", Value: "0"},
	}, nil
}

func serviceTypeFromURN(urn string) (string, bool) {
	if urn != "" {
		return urn, true
	}
	return ContentDirectoryServiceType, false
}

// ContentDirectoryServiceType is this service's URN, repeated here
// because responses must carry it even when a client's request omits
// the xmlns:u declaration's value (it never does in practice, but the
// fallback keeps EncodeActionResponse total).
const ContentDirectoryServiceType = "urn:schemas-upnp-org:service:ContentDirectory:1"
