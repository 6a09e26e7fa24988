package contentdirectory

import "testing"

func TestObjectIDRoundTrip(t *testing.T) {
	cases := []ObjectID{
		RootID,
		AllShowsID,
		AllMoviesID,
		ShowObjectID(7),
		SeasonObjectID(7, 2),
		EpisodeObjectID(7, 2, 42),
		MovieObjectID(99),
	}
	for _, id := range cases {
		s := id.String()
		parsed, err := ParseObjectID(s)
		if err != nil {
			t.Fatalf("ParseObjectID(%q): %v", s, err)
		}
		if parsed != id {
			t.Errorf("ParseObjectID(%q) = %+v, want %+v", s, parsed, id)
		}
	}
}

func TestObjectIDStringFormat(t *testing.T) {
	if got := SeasonObjectID(7, 2).String(); got != "show.7.2" {
		t.Errorf("SeasonObjectID string = %q, want show.7.2", got)
	}
	if got := EpisodeObjectID(7, 2, 42).String(); got != "show.7.2.42" {
		t.Errorf("EpisodeObjectID string = %q, want show.7.2.42", got)
	}
	if got := MovieObjectID(99).String(); got != "movie.99" {
		t.Errorf("MovieObjectID string = %q, want movie.99", got)
	}
}

func TestParseObjectIDRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "bogus", "show.", "show.abc", "movie.xyz", "show.1.2.3.4"} {
		if _, err := ParseObjectID(s); err == nil {
			t.Errorf("ParseObjectID(%q) expected error", s)
		}
	}
}

func TestObjectIDParentID(t *testing.T) {
	cases := []struct {
		id     ObjectID
		parent ObjectID
	}{
		{ShowObjectID(7), AllShowsID},
		{SeasonObjectID(7, 2), ShowObjectID(7)},
		{EpisodeObjectID(7, 2, 42), SeasonObjectID(7, 2)},
		{MovieObjectID(99), AllMoviesID},
		{AllShowsID, RootID},
	}
	for _, c := range cases {
		if got := c.id.ParentID(); got != c.parent {
			t.Errorf("%+v.ParentID() = %+v, want %+v", c.id, got, c.parent)
		}
	}
}
