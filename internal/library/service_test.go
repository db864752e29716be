package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/attacca/attacca/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is an in-memory content repository with a kill switch for
// offline scenarios
type fakeRepo struct {
	songs     []*domain.ContentItem
	setlists  []*domain.Setlist
	updatedAt int64
	offline   bool

	songCalls atomic.Int64
}

func (f *fakeRepo) GetSongs(context.Context) ([]*domain.ContentItem, error) {
	f.songCalls.Add(1)
	if f.offline {
		return nil, domain.ErrServerOffline
	}
	return f.songs, nil
}

func (f *fakeRepo) GetSong(_ context.Context, id string) (*domain.ContentItem, error) {
	if f.offline {
		return nil, domain.ErrServerOffline
	}
	for _, s := range f.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (f *fakeRepo) GetSetlists(context.Context) ([]*domain.Setlist, error) {
	if f.offline {
		return nil, domain.ErrServerOffline
	}
	return f.setlists, nil
}

func (f *fakeRepo) GetSetlistItems(_ context.Context, setlistID string) ([]*domain.ContentItem, error) {
	if f.offline {
		return nil, domain.ErrServerOffline
	}
	for _, sl := range f.setlists {
		if sl.ID != setlistID {
			continue
		}
		byID := make(map[string]*domain.ContentItem)
		for _, s := range f.songs {
			byID[s.ID] = s
		}
		var items []*domain.ContentItem
		for _, id := range sl.ItemIDs {
			if item, ok := byID[id]; ok {
				items = append(items, item)
			}
		}
		return items, nil
	}
	return nil, domain.ErrSetlistNotFound
}

func (f *fakeRepo) ServerUpdatedAt(context.Context) (int64, error) {
	if f.offline {
		return 0, domain.ErrServerOffline
	}
	return f.updatedAt, nil
}

func newTestRepo() *fakeRepo {
	return &fakeRepo{
		songs: []*domain.ContentItem{
			{ID: "s1", Title: "Blackbird", Kind: domain.KindText, Text: "# tab"},
			{ID: "s2", Title: "Autumn Leaves", Kind: domain.KindFile, FileURL: "https://srv/files/s2"},
		},
		setlists: []*domain.Setlist{
			{ID: "l1", Name: "Friday Gig", ItemIDs: []string{"s2", "s1"}},
		},
		updatedAt: 100,
	}
}

func newTestService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	catalog, err := NewCatalog(t.TempDir())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })
	return NewService(repo, catalog, testLogger())
}

func drainSync(t *testing.T, svc *Service, force bool) []domain.SyncProgress {
	t.Helper()
	ch := make(chan domain.SyncProgress)
	go svc.Sync(context.Background(), force, ch)
	var got []domain.SyncProgress
	for p := range ch {
		got = append(got, p)
	}
	return got
}

func TestSongsServedFromCatalogAfterFirstLoad(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	first, err := svc.Songs(context.Background())
	if err != nil {
		t.Fatalf("Songs: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("got %d songs, want 2", len(first))
	}
	// Sorted by title regardless of repo order
	if first[0].Title != "Autumn Leaves" {
		t.Errorf("first song = %q, want sorted order", first[0].Title)
	}

	if _, err := svc.Songs(context.Background()); err != nil {
		t.Fatalf("second Songs: %v", err)
	}
	if repo.songCalls.Load() != 1 {
		t.Errorf("repo hit %d times, want 1 (catalog serves repeats)", repo.songCalls.Load())
	}
}

func TestSyncSavesCatalogAndFinishes(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	got := drainSync(t, svc, false)

	if len(got) == 0 {
		t.Fatal("no progress updates")
	}
	last := got[len(got)-1]
	if !last.Done || last.Error != nil {
		t.Errorf("final progress = %+v, want done without error", last)
	}

	// Catalog now serves without touching the repo
	repo.offline = true
	songs, err := svc.Songs(context.Background())
	if err != nil || len(songs) != 2 {
		t.Errorf("offline Songs after sync = (%d, %v)", len(songs), err)
	}
}

func TestSyncSkipsWhenCatalogCurrent(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	drainSync(t, svc, false)
	calls := repo.songCalls.Load()

	got := drainSync(t, svc, false)

	if repo.songCalls.Load() != calls {
		t.Error("unchanged server content re-fetched")
	}
	last := got[len(got)-1]
	if !last.Done || !last.FromCache {
		t.Errorf("final progress = %+v, want done from cache", last)
	}
}

func TestSyncForceAlwaysFetches(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	drainSync(t, svc, false)
	calls := repo.songCalls.Load()

	drainSync(t, svc, true)

	if repo.songCalls.Load() != calls+1 {
		t.Error("force sync did not re-fetch")
	}
}

func TestSyncRefetchesOnNewerServerTimestamp(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	drainSync(t, svc, false)
	calls := repo.songCalls.Load()

	repo.updatedAt = 200
	drainSync(t, svc, false)

	if repo.songCalls.Load() != calls+1 {
		t.Error("newer server content not re-fetched")
	}
}

func TestSyncOfflineWithCatalog(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	drainSync(t, svc, false)
	repo.offline = true

	got := drainSync(t, svc, false)
	last := got[len(got)-1]
	if !last.Done || !last.FromCache || last.Error != nil {
		t.Errorf("offline sync with catalog = %+v, want done from cache", last)
	}
}

func TestSyncOfflineWithoutCatalog(t *testing.T) {
	repo := newTestRepo()
	repo.offline = true
	svc := newTestService(t, repo)

	got := drainSync(t, svc, false)
	last := got[len(got)-1]
	if !errors.Is(last.Error, domain.ErrServerOffline) {
		t.Errorf("Error = %v, want ErrServerOffline", last.Error)
	}
}

func TestSetlistItemsPreservesOrder(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	items, err := svc.SetlistItems(context.Background(), "l1")
	if err != nil {
		t.Fatalf("SetlistItems: %v", err)
	}
	if len(items) != 2 || items[0].ID != "s2" || items[1].ID != "s1" {
		t.Errorf("items = %v, want setlist order s2, s1", itemIDs(items))
	}
}

func TestSetlistItemsWorksOffline(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	drainSync(t, svc, false)
	svc.Songs(context.Background())
	svc.Setlists(context.Background())
	repo.offline = true

	items, err := svc.SetlistItems(context.Background(), "l1")
	if err != nil {
		t.Fatalf("offline SetlistItems: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items offline, want 2", len(items))
	}
}

func TestSetlistItemsUnknownSetlist(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	if _, err := svc.SetlistItems(context.Background(), "nope"); err != domain.ErrSetlistNotFound {
		t.Errorf("err = %v, want ErrSetlistNotFound", err)
	}
}

func TestFindSetlist(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"by id", "l1", false},
		{"by name", "Friday Gig", false},
		{"case-insensitive name", "friday gig", false},
		{"unknown", "saturday", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl, err := svc.FindSetlist(context.Background(), tt.query)
			if tt.wantErr {
				if err != domain.ErrSetlistNotFound {
					t.Errorf("err = %v, want ErrSetlistNotFound", err)
				}
				return
			}
			if err != nil || sl.ID != "l1" {
				t.Errorf("FindSetlist(%q) = (%v, %v)", tt.query, sl, err)
			}
		})
	}
}

func TestRefreshInvalidatesCatalog(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	svc.Songs(context.Background())
	calls := repo.songCalls.Load()

	svc.Refresh()
	svc.Songs(context.Background())

	if repo.songCalls.Load() != calls+1 {
		t.Error("Refresh did not force a repo re-fetch")
	}
}

func itemIDs(items []*domain.ContentItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
