package contentdirectory

import (
	"strings"
	"testing"
)

func TestEncodeContainersAndItems(t *testing.T) {
	epNum := int64(3)
	epSeason := int64(1)
	resp := Response{
		Containers: []Container{
			{ID: "shows", ParentID: "0", Title: "Shows", ChildCount: 2},
		},
		Items: []Item{
			{
				ID: "show.1.1.9", ParentID: "show.1.1", Title: "Pilot",
				Class: ClassVideoItem, EpisodeNumber: &epNum, EpisodeSeason: &epSeason,
				LongDescription: "the first one",
				Resources: []Resource{{ProtocolInfo: HTTPGetProtocolInfo("video/matroska"), URI: "http://x/watch"}},
			},
		},
	}

	xml, err := Encode(resp)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`<DIDL-Lite`,
		`xmlns="` + didlNS + `"`,
		`<container id="shows" parentID="0" restricted="1" childCount="2">`,
		`<dc:title>Shows</dc:title>`,
		`<upnp:class>object.container.storageFolder</upnp:class>`,
		`<item id="show.1.1.9" parentID="show.1.1" restricted="1">`,
		`<upnp:episodeNumber>3</upnp:episodeNumber>`,
		`<upnp:episodeSeason>1</upnp:episodeSeason>`,
		`<upnp:longDescription>the first one</upnp:longDescription>`,
		`protocolInfo="http-get:*:video/matroska:*"`,
		`http://x/watch</res>`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("output missing %q\nfull output:\n%s", want, xml)
		}
	}
}

func TestResponseCount(t *testing.T) {
	resp := Response{
		Containers: []Container{{ID: "a"}, {ID: "b"}},
		Items:      []Item{{ID: "c"}},
	}
	if resp.Count() != 3 {
		t.Errorf("Count() = %d, want 3", resp.Count())
	}
}

func TestEncodeEmptyResponse(t *testing.T) {
	xml, err := Encode(Response{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(xml, "<DIDL-Lite") {
		t.Errorf("expected empty DIDL-Lite wrapper, got %q", xml)
	}
}
