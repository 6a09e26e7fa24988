package metainfo

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fenwick-labs/corelode/core"
)

// ErrNotMagnetURI is returned when the input does not use the magnet: scheme.
var ErrNotMagnetURI = errors.New("metainfo: not a magnet URI")

// ErrMissingXT is returned when a magnet URI has no xt=urn:btih: parameter.
var ErrMissingXT = errors.New("metainfo: magnet URI missing xt=urn:btih parameter")

const btihPrefix = "urn:btih:"

// Magnet is a parsed magnet URI (§4.2): the required info-hash, an optional
// display name, and zero or more tracker URLs.
type Magnet struct {
	InfoHash     core.InfoHash
	DisplayName  string
	Trackers     []string
}

// ParseMagnet parses a magnet: URI, collecting xt (required), dn (optional),
// and repeated tr parameters. Magnets whose xt is missing or malformed are
// rejected.
func ParseMagnet(raw string) (*Magnet, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("metainfo: parse magnet uri: %s", err)
	}
	if u.Scheme != "magnet" {
		return nil, ErrNotMagnetURI
	}
	q := u.Query()

	var infoHash core.InfoHash
	found := false
	for _, xt := range q["xt"] {
		if !strings.HasPrefix(strings.ToLower(xt), btihPrefix) {
			continue
		}
		hex := xt[len(btihPrefix):]
		if len(hex) != 40 {
			return nil, ErrMissingXT
		}
		infoHash, err = core.NewInfoHashFromHex(strings.ToLower(hex))
		if err != nil {
			return nil, fmt.Errorf("metainfo: malformed btih: %s", err)
		}
		found = true
		break
	}
	if !found {
		return nil, ErrMissingXT
	}

	return &Magnet{
		InfoHash:    infoHash,
		DisplayName: q.Get("dn"),
		Trackers:    q["tr"],
	}, nil
}

// String renders the Magnet back into a magnet: URI.
func (m *Magnet) String() string {
	q := url.Values{}
	q.Set("xt", btihPrefix+m.InfoHash.String())
	if m.DisplayName != "" {
		q.Set("dn", m.DisplayName)
	}
	for _, tr := range m.Trackers {
		q.Add("tr", tr)
	}
	return "magnet:?" + q.Encode()
}
