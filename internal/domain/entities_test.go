package domain

import "testing"

func TestContentKindString(t *testing.T) {
	tests := []struct {
		kind ContentKind
		want string
	}{
		{KindText, "text"},
		{KindFile, "file"},
		{ContentKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ContentKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPageCountTreatsUnknownAsOne(t *testing.T) {
	tests := []struct {
		pages int
		want  int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{7, 7},
	}
	for _, tt := range tests {
		item := ContentItem{Pages: tt.pages}
		if got := item.PageCount(); got != tt.want {
			t.Errorf("PageCount with Pages=%d = %d, want %d", tt.pages, got, tt.want)
		}
	}
}

func TestGetSortTitleFallsBackToTitle(t *testing.T) {
	item := ContentItem{Title: "Blackbird"}
	if got := item.GetSortTitle(); got != "Blackbird" {
		t.Errorf("GetSortTitle = %q, want the title", got)
	}

	item.SortTitle = "Weight"
	if got := item.GetSortTitle(); got != "Weight" {
		t.Errorf("GetSortTitle = %q, want the explicit sort title", got)
	}
}

func TestGetDescription(t *testing.T) {
	item := ContentItem{Title: "Blackbird", Artist: "The Beatles"}
	if got := item.GetDescription(); got != "The Beatles" {
		t.Errorf("GetDescription = %q, want the artist", got)
	}

	item.Artist = ""
	item.Kind = KindFile
	if got := item.GetDescription(); got != "file" {
		t.Errorf("GetDescription without artist = %q, want the kind", got)
	}

	sl := Setlist{Name: "Friday", ItemIDs: []string{"a"}}
	if got := sl.GetDescription(); got != "1 song" {
		t.Errorf("Setlist.GetDescription = %q, want %q", got, "1 song")
	}
	sl.ItemIDs = append(sl.ItemIDs, "b", "c")
	if got := sl.GetDescription(); got != "3 songs" {
		t.Errorf("Setlist.GetDescription = %q, want %q", got, "3 songs")
	}
}

func TestRefKindString(t *testing.T) {
	tests := []struct {
		kind RefKind
		want string
	}{
		{RefText, "text"},
		{RefCached, "cached"},
		{RefRemote, "remote"},
		{RefUnavailable, "unavailable"},
		{RefKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("RefKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestReferenceConstructors(t *testing.T) {
	if ref := TextRef("# chords"); ref.Kind != RefText || ref.Text != "# chords" {
		t.Errorf("TextRef = %+v", ref)
	}
	if ref := RemoteRef("https://srv/f", "application/pdf"); ref.Kind != RefRemote || ref.URL == "" || ref.MediaType == "" {
		t.Errorf("RemoteRef = %+v", ref)
	}
	if ref := UnavailableRef("gone"); ref.Kind != RefUnavailable || ref.Reason != "gone" {
		t.Errorf("UnavailableRef = %+v", ref)
	}
}
