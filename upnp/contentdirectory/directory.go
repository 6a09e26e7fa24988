package contentdirectory

import (
	"context"
	"fmt"

	"github.com/fenwick-labs/corelode/upnp/soap"
)

// BrowseFlag selects whether Browse returns an object's children or its
// own metadata (§4.12).
type BrowseFlag int

const (
	BrowseDirectChildren BrowseFlag = iota
	BrowseMetadata
)

// ParseBrowseFlag parses a Browse request's BrowseFlag argument.
func ParseBrowseFlag(s string) (BrowseFlag, error) {
	switch s {
	case "BrowseDirectChildren":
		return BrowseDirectChildren, nil
	case "BrowseMetadata":
		return BrowseMetadata, nil
	default:
		return 0, fmt.Errorf("contentdirectory: unrecognized browse flag %q", s)
	}
}

// Handler answers Browse calls; a control endpoint (server.go) decodes
// the SOAP request and dispatches into it, grounded on
// content_directory.rs's ContentDirectoryHandler trait.
type Handler interface {
	BrowseDirectChildren(ctx context.Context, id ObjectID, requestedCount uint32) (Response, error)
	BrowseMetadata(ctx context.Context, id ObjectID) (Response, error)
}

// MediaServerDirectory is the Handler this server exposes, grounded on
// content_directory.rs's MediaServerContentDirectory: a Catalog plus the
// externally-visible base URL poster/stream links are built against.
type MediaServerDirectory struct {
	catalog Catalog
	baseURL string
}

// NewMediaServerDirectory constructs a Handler backed by catalog, with
// poster/stream URLs rooted at baseURL (e.g. "http://192.168.1.5:8200").
func NewMediaServerDirectory(catalog Catalog, baseURL string) *MediaServerDirectory {
	return &MediaServerDirectory{catalog: catalog, baseURL: baseURL}
}

// Root returns the two top-level containers, mirroring
// MediaServerContentDirectory::root.
func (d *MediaServerDirectory) Root() Response {
	return Response{Containers: []Container{
		{ID: AllShowsID.String(), ParentID: RootID.String(), Title: "Shows"},
		{ID: AllMoviesID.String(), ParentID: RootID.String(), Title: "Movies"},
	}}
}

func (d *MediaServerDirectory) allShows(ctx context.Context) (Response, error) {
	shows, err := d.catalog.AllShows(ctx)
	if err != nil {
		return Response{}, err
	}
	containers := make([]Container, 0, len(shows))
	for _, show := range shows {
		containers = append(containers, Container{
			ID:          ShowObjectID(show.ID).String(),
			ParentID:    AllShowsID.String(),
			Title:       show.Title,
			ChildCount:  len(show.Seasons),
			AlbumArtURI: fmt.Sprintf("%s/api/show/%d/poster", d.baseURL, show.ID),
		})
	}
	return Response{Containers: containers}, nil
}

func (d *MediaServerDirectory) show(ctx context.Context, showID int64) (Response, error) {
	show, err := d.catalog.Show(ctx, showID)
	if err != nil {
		return Response{}, err
	}
	containers := make([]Container, 0, len(show.Seasons))
	for _, season := range show.Seasons {
		containers = append(containers, Container{
			ID:       SeasonObjectID(showID, season).String(),
			ParentID: ShowObjectID(showID).String(),
			Title:    fmt.Sprintf("Season %d", season),
		})
	}
	return Response{Containers: containers}, nil
}

func (d *MediaServerDirectory) showSeason(ctx context.Context, showID, season int64) (Response, error) {
	episodes, err := d.catalog.Season(ctx, showID, season)
	if err != nil {
		return Response{}, err
	}
	items := make([]Item, 0, len(episodes))
	for _, ep := range episodes {
		number := ep.Number
		seasonNum := season
		item := Item{
			ID:            EpisodeObjectID(showID, season, ep.ID).String(),
			ParentID:      SeasonObjectID(showID, season).String(),
			Title:         ep.Title,
			Class:         ClassVideoItem,
			AlbumArtURI:   fmt.Sprintf("%s/api/episode/%d/poster", d.baseURL, ep.ID),
			ProgramTitle:  ep.Title,
			EpisodeNumber: &number,
			EpisodeSeason: &seasonNum,
			Resources: []Resource{{
				ProtocolInfo: HTTPGetProtocolInfo("video/matroska"),
				URI:          fmt.Sprintf("%s/api/local_episode/%d/watch", d.baseURL, ep.ID),
			}},
		}
		if ep.Plot != "" {
			item.LongDescription = ep.Plot
		}
		items = append(items, item)
	}
	return Response{Items: items}, nil
}

func (d *MediaServerDirectory) allMovies(ctx context.Context) (Response, error) {
	movies, err := d.catalog.AllMovies(ctx)
	if err != nil {
		return Response{}, err
	}
	items := make([]Item, 0, len(movies))
	for _, m := range movies {
		items = append(items, Item{
			ID:          MovieObjectID(m.ID).String(),
			ParentID:    AllMoviesID.String(),
			Title:       m.Title,
			Class:       ClassVideoItem,
			AlbumArtURI: fmt.Sprintf("%s/api/movie/%d/poster", d.baseURL, m.ID),
			Resources: []Resource{{
				ProtocolInfo: HTTPGetProtocolInfo("video/matroska"),
				URI:          fmt.Sprintf("%s/api/local_movie/%d/watch", d.baseURL, m.ID),
			}},
		})
	}
	return Response{Items: items}, nil
}

// BrowseDirectChildren implements Handler, mirroring
// ContentDirectoryHandler::browse_direct_children's dispatch on the
// parsed ContentId.
func (d *MediaServerDirectory) BrowseDirectChildren(ctx context.Context, id ObjectID, requestedCount uint32) (Response, error) {
	var (
		resp Response
		err  error
	)
	switch id.Kind {
	case KindRoot:
		resp = d.Root()
	case KindAllMovies:
		resp, err = d.allMovies(ctx)
	case KindAllShows:
		resp, err = d.allShows(ctx)
	case KindShow:
		resp, err = d.show(ctx, id.ShowID)
	case KindSeason:
		resp, err = d.showSeason(ctx, id.ShowID, id.Season)
	default:
		return Response{}, &soap.Fault{Code: soap.ErrNoSuchObject, Description: "object has no children"}
	}
	if err != nil {
		return Response{}, err
	}
	if requestedCount > 0 && int(requestedCount) < resp.Count() {
		resp.Containers = truncateContainers(resp.Containers, int(requestedCount))
		resp.Items = truncateItems(resp.Items, int(requestedCount)-len(resp.Containers))
	}
	return resp, nil
}

// BrowseMetadata returns a single-entry Response describing id itself —
// content_directory.rs leaves this unimplemented (`todo!()`); §4.12
// requires it, so this builds the object's own container/item entry by
// looking up its parent's listing and filtering to the matching id
// (mirroring the same per-kind construction BrowseDirectChildren uses).
func (d *MediaServerDirectory) BrowseMetadata(ctx context.Context, id ObjectID) (Response, error) {
	parentResp, err := d.BrowseDirectChildren(ctx, id.ParentID(), 0)
	if err != nil {
		return Response{}, err
	}
	target := id.String()
	for _, c := range parentResp.Containers {
		if c.ID == target {
			return Response{Containers: []Container{c}}, nil
		}
	}
	for _, it := range parentResp.Items {
		if it.ID == target {
			return Response{Items: []Item{it}}, nil
		}
	}
	if id.Kind == KindRoot {
		return Response{Containers: []Container{{ID: RootID.String(), ParentID: "-1", Title: "root"}}}, nil
	}
	return Response{}, &soap.Fault{Code: soap.ErrNoSuchObject, Description: "no such object: " + target}
}

func truncateContainers(cs []Container, n int) []Container {
	if n >= len(cs) {
		return cs
	}
	if n < 0 {
		n = 0
	}
	return cs[:n]
}

func truncateItems(items []Item, n int) []Item {
	if n >= len(items) {
		return items
	}
	if n < 0 {
		n = 0
	}
	return items[:n]
}
