package perform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/store"
)

// plainFetcher downloads over HTTP without auth, enough for session tests
type plainFetcher struct{}

func (plainFetcher) FetchFile(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	st, err := store.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s := NewSession(st, plainFetcher{}, testLogger())
	s.Populator().SetRetryDelay(10 * time.Millisecond)
	s.Populator().SetFetchTimeout(2 * time.Second)
	return s
}

// The core first-rehearsal flow: a mixed setlist is warmed, then each song
// resolves to its best available source while the flaky one falls back.
func TestSessionWarmThenPerform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 sheet")
	}))
	defer srv.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	dead.Close()

	s := newTestSession(t)
	items := []*domain.ContentItem{
		{ID: "a", Title: "A", Kind: domain.KindFile, FileURL: srv.URL + "/a"},
		{ID: "b", Title: "B", Kind: domain.KindText, Text: "# lyrics"},
		{ID: "c", Title: "C", Kind: domain.KindFile, FileURL: dead.URL + "/c"},
	}

	results := s.WarmSetlist(context.Background(), items, false, nil)
	if !results[0].Cached {
		t.Fatalf("file item not cached after warm: %+v", results[0])
	}
	if results[2].Err == nil {
		t.Fatal("unreachable item reported no warm error")
	}

	// The show goes on with the network gone
	srv.Close()

	snap := s.Begin(items)
	if snap.Ref.Kind != domain.RefCached {
		t.Errorf("song A resolved to %v, want RefCached", snap.Ref.Kind)
	}

	snap = s.Next()
	if snap.Ref.Kind != domain.RefText {
		t.Errorf("song B resolved to %v, want RefText", snap.Ref.Kind)
	}

	// The unreachable song still renders: the remote reference stands in
	snap = s.Next()
	if snap.Ref.Kind != domain.RefRemote {
		t.Errorf("song C resolved to %v, want RefRemote", snap.Ref.Kind)
	}
	if snap.Status != StatusReady {
		t.Errorf("song C Status = %v, want StatusReady", snap.Status)
	}
}

func TestSessionProbeMediaType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// No usable Content-Type; the store ends up with an unknown type
		w.Header()["Content-Type"] = nil
		fmt.Fprint(w, "%PDF-1.4 sheet music bytes")
	}))
	defer srv.Close()

	s := newTestSession(t)
	items := []*domain.ContentItem{
		{ID: "a", Title: "A", Kind: domain.KindFile, FileURL: srv.URL + "/a"},
	}

	s.WarmSetlist(context.Background(), items, false, nil)

	snap := s.Begin(items)
	if snap.Status != StatusLoading {
		t.Fatalf("Status = %v, want StatusLoading for an unknown media type", snap.Status)
	}

	mediaType, err := s.ProbeMediaType(snap)
	if err != nil {
		t.Fatalf("ProbeMediaType: %v", err)
	}
	if mediaType != "application/pdf" {
		t.Errorf("sniffed %q, want application/pdf", mediaType)
	}

	done, ok := s.Complete(snap.Generation, mediaType, err)
	if !ok {
		t.Fatal("Complete dropped a current-generation probe")
	}
	if done.Status != StatusReady || done.Ref.MediaType != "application/pdf" {
		t.Errorf("snapshot after probe = status %v, type %q", done.Status, done.Ref.MediaType)
	}
}

// An applied probe sticks to the cache entry, so coming back to the song does
// not re-enter the loading state.
func TestSessionProbeResultPersistsOnRevisit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		fmt.Fprint(w, "%PDF-1.4 sheet music bytes")
	}))
	defer srv.Close()

	s := newTestSession(t)
	items := []*domain.ContentItem{
		{ID: "a", Title: "A", Kind: domain.KindFile, FileURL: srv.URL + "/a"},
		{ID: "b", Title: "B", Kind: domain.KindText, Text: "# lyrics"},
	}
	s.WarmSetlist(context.Background(), items, false, nil)

	snap := s.Begin(items)
	if snap.Status != StatusLoading {
		t.Fatalf("Status = %v, want StatusLoading before the probe", snap.Status)
	}

	mediaType, err := s.ProbeMediaType(snap)
	if err != nil {
		t.Fatalf("ProbeMediaType: %v", err)
	}
	if _, ok := s.Complete(snap.Generation, mediaType, nil); !ok {
		t.Fatal("Complete dropped a current-generation probe")
	}

	s.Next()
	back := s.Previous()
	if back.Status != StatusReady {
		t.Errorf("revisit Status = %v, want StatusReady without another probe", back.Status)
	}
	if back.Ref.MediaType != "application/pdf" {
		t.Errorf("revisit MediaType = %q, want application/pdf", back.Ref.MediaType)
	}
}

// Clearing the cache mid-performance keeps the current snapshot intact;
// the downgrade only shows on the next navigation.
func TestSessionClearCacheWhileDisplayed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "bytes")
	}))
	defer srv.Close()

	s := newTestSession(t)
	items := []*domain.ContentItem{
		{ID: "a", Title: "A", Kind: domain.KindFile, FileURL: srv.URL + "/a"},
	}
	s.WarmSetlist(context.Background(), items, false, nil)

	snap := s.Begin(items)
	if snap.Ref.Kind != domain.RefCached {
		t.Fatalf("resolved to %v, want RefCached", snap.Ref.Kind)
	}

	s.ClearCache()

	if cur := s.Current(); cur.Generation != snap.Generation {
		t.Error("ClearCache disturbed the current snapshot")
	}
	if s.IsCached("a") {
		t.Error("entry survived ClearCache")
	}

	// Next navigation re-resolves and falls back to remote
	next := s.JumpTo(0)
	if next.Ref.Kind != domain.RefRemote {
		t.Errorf("post-clear resolution = %v, want RefRemote", next.Ref.Kind)
	}
}

func TestSessionTeardownReleasesEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "bytes")
	}))
	defer srv.Close()

	s := newTestSession(t)
	items := []*domain.ContentItem{
		{ID: "a", Title: "A", Kind: domain.KindFile, FileURL: srv.URL + "/a"},
		{ID: "b", Title: "B", Kind: domain.KindFile, FileURL: srv.URL + "/b"},
	}
	s.WarmSetlist(context.Background(), items, false, nil)

	s.Begin(items)
	s.Next()
	snap := s.Current()
	h := snap.Ref.Handle

	s.Teardown()

	if h != nil && !h.Released() {
		t.Error("current handle not released by Teardown")
	}
	tracked, released := s.Lifecycle().Stats()
	if tracked != released {
		t.Errorf("Stats after teardown = (%d, %d), want equal", tracked, released)
	}
}

func TestSessionCacheStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "12345")
	}))
	defer srv.Close()

	s := newTestSession(t)
	items := []*domain.ContentItem{
		{ID: "a", Title: "A", Kind: domain.KindFile, FileURL: srv.URL + "/a"},
	}
	s.WarmSetlist(context.Background(), items, false, nil)

	count, bytes := s.CacheStats()
	if count != 1 || bytes != 5 {
		t.Errorf("CacheStats = (%d, %d), want (1, 5)", count, bytes)
	}
}
