package contentdirectory

import (
	"bytes"
	"strconv"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

// DIDL-Lite namespaces (§4.10 GLOSSARY: "DIDL-Lite. The XML content-model
// schema returned by ContentDirectory").
const (
	didlNS = "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"
	dcNS   = "http://purl.org/dc/elements/1.1/"
	upnpNS = "urn:schemas-upnp-org:metadata-1-0/upnp/"
)

// upnp:class values this server assigns, the Go equivalent of
// content_directory.rs's upnp_class::ItemType.
const (
	ClassStorageFolder = "object.container.storageFolder"
	ClassVideoItem     = "object.item.videoItem"
)

// Resource is a <res> element: a playable URL plus its protocol/MIME
// descriptor, grounded on content_directory.rs's Resource/ProtocolInfo.
type Resource struct {
	ProtocolInfo string
	URI          string
}

// HTTPGetProtocolInfo builds the "http-get:*:<mime>:*" protocolInfo
// string Resource.new(..., ProtocolInfo::http_get(mime)) emits.
func HTTPGetProtocolInfo(mime string) string {
	return "http-get:*:" + mime + ":*"
}

// Container is a DIDL-Lite <container> entry (a show, season, or one of
// the two top-level folders), grounded on content_directory.rs's use of
// upnp::content_directory::properties::Container.
type Container struct {
	ID          string
	ParentID    string
	Title       string
	ChildCount  int
	AlbumArtURI string
}

// Item is a DIDL-Lite <item> entry (an episode or movie), grounded on
// content_directory.rs's Item plus its set_property calls.
type Item struct {
	ID              string
	ParentID        string
	Title           string
	Class           string
	AlbumArtURI     string
	ProgramTitle    string
	EpisodeNumber   *int64
	EpisodeSeason   *int64
	LongDescription string
	Resources       []Resource
}

// Response is the result of a Browse call before serialization: the set
// of containers or items at one tree level, mirroring
// content_directory.rs's DidlResponse.
type Response struct {
	Containers []Container
	Items      []Item
}

// Count returns the number of entries this response carries — Browse's
// NumberReturned/TotalMatches value (§4.12).
func (r Response) Count() int { return len(r.Containers) + len(r.Items) }

// Encode renders r as a DIDL-Lite XML document, the string a Browse
// response's <Result> argument carries (§4.12).
func Encode(r Response) (string, error) {
	var buf bytes.Buffer
	xw := xmlutil.NewWriter(&buf)
	if err := xw.Push("DIDL-Lite",
		xmlutil.Attr{Name: "xmlns", Value: didlNS},
		xmlutil.Attr{Name: "xmlns:dc", Value: dcNS},
		xmlutil.Attr{Name: "xmlns:upnp", Value: upnpNS},
	); err != nil {
		return "", err
	}
	for _, c := range r.Containers {
		if err := writeContainer(xw, c); err != nil {
			return "", err
		}
	}
	for _, it := range r.Items {
		if err := writeItem(xw, it); err != nil {
			return "", err
		}
	}
	if err := xw.Pop(); err != nil {
		return "", err
	}
	if err := xw.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeContainer(xw *xmlutil.Writer, c Container) error {
	attrs := []xmlutil.Attr{
		{Name: "id", Value: c.ID},
		{Name: "parentID", Value: c.ParentID},
		{Name: "restricted", Value: "1"},
		{Name: "childCount", Value: strconv.Itoa(c.ChildCount)},
	}
	if err := xw.Push("container", attrs...); err != nil {
		return err
	}
	if err := xw.Element("dc:title", c.Title); err != nil {
		return err
	}
	if err := xw.Element("upnp:class", ClassStorageFolder); err != nil {
		return err
	}
	if c.AlbumArtURI != "" {
		if err := xw.Element("upnp:albumArtURI", c.AlbumArtURI); err != nil {
			return err
		}
	}
	return xw.Pop()
}

func writeItem(xw *xmlutil.Writer, it Item) error {
	attrs := []xmlutil.Attr{
		{Name: "id", Value: it.ID},
		{Name: "parentID", Value: it.ParentID},
		{Name: "restricted", Value: "1"},
	}
	if err := xw.Push("item", attrs...); err != nil {
		return err
	}
	if err := xw.Element("dc:title", it.Title); err != nil {
		return err
	}
	class := it.Class
	if class == "" {
		class = ClassVideoItem
	}
	if err := xw.Element("upnp:class", class); err != nil {
		return err
	}
	if it.AlbumArtURI != "" {
		if err := xw.Element("upnp:albumArtURI", it.AlbumArtURI); err != nil {
			return err
		}
	}
	if it.ProgramTitle != "" {
		if err := xw.Element("upnp:programTitle", it.ProgramTitle); err != nil {
			return err
		}
	}
	if it.EpisodeNumber != nil {
		if err := xw.Element("upnp:episodeNumber", strconv.FormatInt(*it.EpisodeNumber, 10)); err != nil {
			return err
		}
	}
	if it.EpisodeSeason != nil {
		if err := xw.Element("upnp:episodeSeason", strconv.FormatInt(*it.EpisodeSeason, 10)); err != nil {
			return err
		}
	}
	if it.LongDescription != "" {
		if err := xw.Element("upnp:longDescription", it.LongDescription); err != nil {
			return err
		}
	}
	for _, res := range it.Resources {
		if err := xw.Element("res", res.URI, xmlutil.Attr{Name: "protocolInfo", Value: res.ProtocolInfo}); err != nil {
			return err
		}
	}
	return xw.Pop()
}
