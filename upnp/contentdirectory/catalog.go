package contentdirectory

import "context"

// Show, Episode, and Movie are the library records a Catalog serves up;
// persistence/schema is out of scope (spec.md §1 Non-goals: "library
// database schema (delegated to an embedded SQL store)") — Catalog is
// the seam a SQL-backed implementation plugs in behind.
type Show struct {
	ID      int64
	Title   string
	Seasons []int64
}

type Episode struct {
	ID     int64
	Number int64
	Title  string
	Plot   string
}

type Movie struct {
	ID    int64
	Title string
}

// Catalog is the library-data dependency MediaServerDirectory calls into
// to answer Browse, grounded on content_directory.rs's Db-backed
// MediaServerContentDirectory methods (all_shows/get_show/get_season/
// all_movies).
type Catalog interface {
	AllShows(ctx context.Context) ([]Show, error)
	Show(ctx context.Context, showID int64) (Show, error)
	Season(ctx context.Context, showID, season int64) ([]Episode, error)
	AllMovies(ctx context.Context) ([]Movie, error)
}
