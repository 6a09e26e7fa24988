// Package soapclient implements the generic SOAP action client §4.13
// describes: "takes a parsed SCPD, validates call arguments against
// the declared in-args, builds the envelope, sets SOAPAction, POSTs to
// the control URL, and decodes the <ActionName>Response into typed
// out-args". upnp/igdclient and upnp/avtransport are thin, typed
// wrappers around a *Client each, the same layering
// original_source/upnp/src/service_client.rs's ScpdClient<T>/Action
// split uses (ScpdClient does the network/XML plumbing once;
// per-service methods like av_play/add_port_mapping just marshal their
// typed arguments through it).
package soapclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fenwick-labs/corelode/upnp/scpd"
	"github.com/fenwick-labs/corelode/upnp/soap"
)

// DefaultTimeout matches spec.md §5's "SOAP call 5 s" timeout.
const DefaultTimeout = 5 * time.Second

// Client calls actions declared in an SCPD document against a single
// service's control URL, grounded on service_client.rs's ScpdClient.
type Client struct {
	http       *http.Client
	controlURL string
	serviceURN string
	timeout    time.Duration
	actions    map[string]scpd.Action
}

// New constructs a Client for doc's actions against controlURL,
// identifying itself on the wire as serviceURN (the value carried by
// "SOAPAction: \"<service-urn>#<action>\"" and the envelope's
// xmlns:u). httpClient may be nil to use http.DefaultClient.
func New(httpClient *http.Client, doc scpd.Document, controlURL, serviceURN string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	actions := make(map[string]scpd.Action, len(doc.Actions))
	for _, a := range doc.Actions {
		actions[a.Name] = a
	}
	return &Client{
		http:       httpClient,
		controlURL: controlURL,
		serviceURN: serviceURN,
		timeout:    DefaultTimeout,
		actions:    actions,
	}
}

// Action returns the named action's SCPD declaration, for callers that
// need InArgs() directly.
func (c *Client) Action(name string) (scpd.Action, bool) {
	a, ok := c.actions[name]
	return a, ok
}

// Call invokes the named action with args in the order given,
// returning the response's out-args. It does not validate argument
// order against the SCPD (see CallStrict).
func (c *Client) Call(ctx context.Context, name string, args []soap.Argument) ([]soap.Argument, error) {
	if _, ok := c.actions[name]; !ok {
		return nil, fmt.Errorf("soapclient: action %q not declared by this service", name)
	}
	return c.call(ctx, name, args)
}

// CallStrict invokes the named action after verifying args' names
// appear in exactly the order the SCPD's declared in-args list them
// (§4.13: "argument order is verified against the SCPD's declared
// in-arg order and mismatch is reported as a local error before any
// network call"), matching service_client.rs's
// add_any_port_mapping_strict/remove_port_mapping_strict/
// get_list_of_port_mappings_strict pattern generalized to any action.
func (c *Client) CallStrict(ctx context.Context, name string, args []soap.Argument) ([]soap.Argument, error) {
	action, ok := c.actions[name]
	if !ok {
		return nil, fmt.Errorf("soapclient: action %q not declared by this service", name)
	}
	inArgs := action.InArgs()
	if len(args) != len(inArgs) {
		return nil, fmt.Errorf("soapclient: %s expects %d in-args, got %d", name, len(inArgs), len(args))
	}
	for i, want := range inArgs {
		if args[i].Name != want.Name {
			return nil, fmt.Errorf("soapclient: %s argument %d must be %q, got %q", name, i, want.Name, args[i].Name)
		}
	}
	return c.call(ctx, name, args)
}

func (c *Client) call(ctx context.Context, name string, args []soap.Argument) ([]soap.Argument, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body strings.Builder
	if err := soap.EncodeRequest(&body, c.serviceURN, name, args); err != nil {
		return nil, fmt.Errorf("soapclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.controlURL, strings.NewReader(body.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", c.serviceURN+"#"+name))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if fault, ferr := soap.DecodeFault(resp.Body); ferr == nil {
			return nil, fault
		}
		return nil, fmt.Errorf("soapclient: %s failed with status %d", name, resp.StatusCode)
	}

	respAction, err := soap.DecodeActionResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("soapclient: decode response: %w", err)
	}
	return respAction.Args, nil
}
