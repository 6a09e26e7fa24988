package gena

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Notifier pushes NOTIFY requests to subscribers, matching §6.2's
// "NOTIFY request-line variant with NT: upnp:event, NTS:
// upnp:propchange, SID, SEQ, CALLBACK" header set (CALLBACK is carried
// on SUBSCRIBE, not NOTIFY; NOTIFY instead targets the callback URL
// directly as its request line).
type Notifier struct {
	client *http.Client
	logger *zap.SugaredLogger
}

// NewNotifier constructs a Notifier using client to deliver NOTIFY
// requests, or http.DefaultClient if client is nil.
func NewNotifier(client *http.Client, logger *zap.SugaredLogger) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Notifier{client: client, logger: logger}
}

// NotifyAll delivers the same property set to every subscription in
// subs, each carrying its own SID and post-increment SEQ. Delivery
// failures are logged and otherwise ignored — GENA has no retry or
// acknowledgement semantics beyond the subscriber's HTTP response
// code, and one subscriber's unreachable callback must not block
// delivery to the others.
func (n *Notifier) NotifyAll(ctx context.Context, subs []*Subscription, props []Property) {
	body, err := EncodePropertySet(props)
	if err != nil {
		n.logger.Errorw("gena: encode propertyset failed", "error", err)
		return
	}
	for _, sub := range subs {
		if err := n.notify(ctx, sub, body); err != nil {
			n.logger.Warnw("gena: notify failed", "sid", sub.SID, "callback", sub.Callback, "error", err)
		}
	}
}

func (n *Notifier) notify(ctx context.Context, sub *Subscription, body string) error {
	req, err := http.NewRequestWithContext(ctx, "NOTIFY", sub.Callback.String(), strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("NT", NT)
	req.Header.Set("NTS", NTS)
	req.Header.Set("SID", sub.SID)
	req.Header.Set("SEQ", strconv.FormatUint(uint64(sub.Seq), 10))

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Debugw("gena: subscriber rejected notify", "sid", sub.SID, "status", resp.StatusCode)
	}
	return nil
}
