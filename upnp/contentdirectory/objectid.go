// Package contentdirectory implements the ContentDirectory:1 service
// (§4.12): it serves the library as a tree of object-ids, answers Browse
// requests with DIDL-Lite XML, and exposes the service's SCPD and SOAP
// control endpoints over HTTP. Grounded on
// original_source/src/upnp/content_directory.rs's
// MediaServerContentDirectory/ContentId.
package contentdirectory

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectID identifies a node in the library tree: the root (`0`), the
// `shows`/`movies` top-level containers, a show (`show.<id>`), a season
// (`show.<id>.<season>`), or a movie (`movie.<id>`), transcribed from
// content_directory.rs's ContentId.
type ObjectID struct {
	Kind      ObjectKind
	ShowID    int64
	Season    int64
	EpisodeID int64
	MovieID   int64
}

// ObjectKind discriminates an ObjectID's tree position.
type ObjectKind int

const (
	KindRoot ObjectKind = iota
	KindAllShows
	KindAllMovies
	KindShow
	KindSeason
	KindEpisode
	KindMovie
)

// RootID, AllShowsID, and AllMoviesID are the library tree's fixed
// top-level object-ids (§4.12).
var (
	RootID      = ObjectID{Kind: KindRoot}
	AllShowsID  = ObjectID{Kind: KindAllShows}
	AllMoviesID = ObjectID{Kind: KindAllMovies}
)

// ShowObjectID and SeasonObjectID build the object-id for a show or one
// of its seasons.
func ShowObjectID(showID int64) ObjectID {
	return ObjectID{Kind: KindShow, ShowID: showID}
}

func SeasonObjectID(showID, season int64) ObjectID {
	return ObjectID{Kind: KindSeason, ShowID: showID, Season: season}
}

// EpisodeObjectID builds the object-id for one episode item, mirroring
// content_directory.rs's `format!("{season_id}.{episode_id}")`.
func EpisodeObjectID(showID, season, episodeID int64) ObjectID {
	return ObjectID{Kind: KindEpisode, ShowID: showID, Season: season, EpisodeID: episodeID}
}

// MovieObjectID builds the object-id for a movie.
func MovieObjectID(movieID int64) ObjectID {
	return ObjectID{Kind: KindMovie, MovieID: movieID}
}

// String renders the object-id's canonical wire form.
func (o ObjectID) String() string {
	switch o.Kind {
	case KindRoot:
		return "0"
	case KindAllMovies:
		return "movies"
	case KindAllShows:
		return "shows"
	case KindShow:
		return "show." + strconv.FormatInt(o.ShowID, 10)
	case KindSeason:
		return fmt.Sprintf("show.%d.%d", o.ShowID, o.Season)
	case KindEpisode:
		return fmt.Sprintf("show.%d.%d.%d", o.ShowID, o.Season, o.EpisodeID)
	case KindMovie:
		return "movie." + strconv.FormatInt(o.MovieID, 10)
	default:
		return "0"
	}
}

// ParseObjectID parses a Browse request's ObjectID argument.
func ParseObjectID(s string) (ObjectID, error) {
	switch s {
	case "0":
		return RootID, nil
	case "movies":
		return AllMoviesID, nil
	case "shows":
		return AllShowsID, nil
	}
	if rest, ok := strings.CutPrefix(s, "movie."); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return ObjectID{}, fmt.Errorf("contentdirectory: parse movie id: %w", err)
		}
		return MovieObjectID(id), nil
	}
	if rest, ok := strings.CutPrefix(s, "show."); ok {
		parts := strings.Split(rest, ".")
		ids := make([]int64, len(parts))
		for i, p := range parts {
			id, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return ObjectID{}, fmt.Errorf("contentdirectory: parse object id %q: %w", s, err)
			}
			ids[i] = id
		}
		switch len(ids) {
		case 1:
			return ShowObjectID(ids[0]), nil
		case 2:
			return SeasonObjectID(ids[0], ids[1]), nil
		case 3:
			return EpisodeObjectID(ids[0], ids[1], ids[2]), nil
		}
		return ObjectID{}, fmt.Errorf("contentdirectory: unrecognized object id %q", s)
	}
	return ObjectID{}, fmt.Errorf("contentdirectory: unrecognized object id %q", s)
}

// ParentID returns the object-id one level up the tree, mirroring the
// parentID each container carries in its DIDL-Lite entry.
func (o ObjectID) ParentID() ObjectID {
	switch o.Kind {
	case KindShow:
		return AllShowsID
	case KindSeason:
		return ShowObjectID(o.ShowID)
	case KindEpisode:
		return SeasonObjectID(o.ShowID, o.Season)
	case KindMovie:
		return AllMoviesID
	default:
		return RootID
	}
}
