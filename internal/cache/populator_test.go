package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// httpFetcher fetches over plain HTTP, counting requests per URL path
type httpFetcher struct {
	requests atomic.Int64
}

func (f *httpFetcher) FetchFile(ctx context.Context, url string) (io.ReadCloser, string, error) {
	f.requests.Add(1)
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

func fileItem(id, url string) *domain.ContentItem {
	return &domain.ContentItem{
		ID:      id,
		Title:   "Song " + id,
		Kind:    domain.KindFile,
		FileURL: url,
	}
}

func textItem(id string) *domain.ContentItem {
	return &domain.ContentItem{
		ID:    id,
		Title: "Song " + id,
		Kind:  domain.KindText,
		Text:  "# chords",
	}
}

func newTestPopulator(st *store.Store, fetcher domain.FileFetcher) *Populator {
	p := NewPopulator(st, fetcher, testLogger())
	p.SetRetryDelay(10 * time.Millisecond)
	return p
}

func TestWarmCachesFileItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "pdf for "+r.URL.Path)
	}))
	defer srv.Close()

	st := newTestStore(t)
	fetcher := &httpFetcher{}
	p := newTestPopulator(st, fetcher)

	items := []*domain.ContentItem{
		fileItem("a", srv.URL+"/a"),
		fileItem("b", srv.URL+"/b"),
		textItem("c"),
	}

	results := p.Warm(context.Background(), items, WarmOptions{})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, id := range []string{"a", "b"} {
		entry, ok := st.Get(id)
		if !ok {
			t.Fatalf("no cache entry for %s", id)
		}
		if entry.MediaType != "application/pdf" {
			t.Errorf("MediaType for %s = %q, want application/pdf", id, entry.MediaType)
		}
	}
	if st.Contains("c") {
		t.Error("text item got a cache entry")
	}
	if !results[2].Skipped {
		t.Error("text item result not marked skipped")
	}
}

func TestWarmIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "bytes")
	}))
	defer srv.Close()

	st := newTestStore(t)
	fetcher := &httpFetcher{}
	p := newTestPopulator(st, fetcher)

	items := []*domain.ContentItem{fileItem("a", srv.URL+"/a")}

	p.Warm(context.Background(), items, WarmOptions{})
	first := fetcher.requests.Load()

	results := p.Warm(context.Background(), items, WarmOptions{})

	if fetcher.requests.Load() != first {
		t.Errorf("second warm re-fetched: %d requests, want %d", fetcher.requests.Load(), first)
	}
	if !results[0].Cached || !results[0].Skipped {
		t.Errorf("second warm result = %+v, want cached and skipped", results[0])
	}
}

func TestWarmForceRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "bytes")
	}))
	defer srv.Close()

	st := newTestStore(t)
	fetcher := &httpFetcher{}
	p := newTestPopulator(st, fetcher)

	items := []*domain.ContentItem{fileItem("a", srv.URL+"/a")}

	p.Warm(context.Background(), items, WarmOptions{})
	first := fetcher.requests.Load()

	p.Warm(context.Background(), items, WarmOptions{ForceRefresh: true})

	if fetcher.requests.Load() != first+1 {
		t.Errorf("force refresh made %d requests, want %d", fetcher.requests.Load(), first+1)
	}
}

func TestWarmFaultIsolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/bad") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	st := newTestStore(t)
	p := newTestPopulator(st, &httpFetcher{})

	items := []*domain.ContentItem{
		fileItem("good-1", srv.URL+"/good-1"),
		fileItem("bad", srv.URL+"/bad"),
		fileItem("good-2", srv.URL+"/good-2"),
	}

	results := p.Warm(context.Background(), items, WarmOptions{})

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy items failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("failing item reported no error")
	}
	if !st.Contains("good-1") || !st.Contains("good-2") {
		t.Error("healthy items not cached alongside a failing one")
	}
	if st.Contains("bad") {
		t.Error("failed fetch installed a cache entry")
	}
}

func TestWarmUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	srv.Close() // connection refused from here on

	st := newTestStore(t)
	p := newTestPopulator(st, &httpFetcher{})

	items := []*domain.ContentItem{fileItem("a", srv.URL+"/a")}
	results := p.Warm(context.Background(), items, WarmOptions{})

	if results[0].Err == nil {
		t.Error("unreachable server reported no error")
	}
	if results[0].Cached {
		t.Error("unreachable server marked item cached")
	}
	if st.Contains("a") {
		t.Error("unreachable fetch installed a cache entry")
	}
}

func TestWarmRetriesOnce(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	st := newTestStore(t)
	p := newTestPopulator(st, &httpFetcher{})

	results := p.Warm(context.Background(), []*domain.ContentItem{fileItem("a", srv.URL+"/a")}, WarmOptions{})

	if results[0].Err != nil {
		t.Fatalf("warm failed despite retry: %v", results[0].Err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2", hits.Load())
	}
	if !st.Contains("a") {
		t.Error("retried fetch did not install an entry")
	}
}

func TestWarmProgressChannelClosesWithFullReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	st := newTestStore(t)
	p := newTestPopulator(st, &httpFetcher{})

	items := []*domain.ContentItem{
		fileItem("a", srv.URL+"/a"),
		textItem("b"),
		fileItem("c", srv.URL+"/c"),
	}

	progressCh := make(chan WarmProgress)
	go p.Warm(context.Background(), items, WarmOptions{Progress: progressCh})

	var got []WarmProgress
	for update := range progressCh {
		got = append(got, update)
	}

	if len(got) != 3 {
		t.Fatalf("got %d progress updates, want 3", len(got))
	}
	last := got[len(got)-1]
	if last.Loaded != 3 || last.Total != 3 {
		t.Errorf("final progress = %d/%d, want 3/3", last.Loaded, last.Total)
	}
}

// A slow first item must not hold back the rest, and every result still
// lands at its input index even when completion order is scrambled.
func TestWarmResultsSettleOutOfOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(300 * time.Millisecond)
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	st := newTestStore(t)
	p := newTestPopulator(st, &httpFetcher{})

	items := []*domain.ContentItem{
		fileItem("slow", srv.URL+"/slow"),
		fileItem("fast-1", srv.URL+"/fast-1"),
		fileItem("fast-2", srv.URL+"/fast-2"),
	}

	progressCh := make(chan WarmProgress)
	resultsCh := make(chan []ItemResult, 1)
	go func() {
		resultsCh <- p.Warm(context.Background(), items, WarmOptions{Progress: progressCh})
	}()

	var settled []string
	for update := range progressCh {
		settled = append(settled, update.ItemID)
	}
	results := <-resultsCh

	if settled[0] == "slow" {
		t.Error("slow item settled first; fast items were held back")
	}
	if settled[len(settled)-1] != "slow" {
		t.Errorf("settle order = %v, want the slow item last", settled)
	}

	for i, item := range items {
		if results[i].ItemID != item.ID {
			t.Errorf("results[%d].ItemID = %q, want %q (input order)", i, results[i].ItemID, item.ID)
		}
		if !results[i].Cached {
			t.Errorf("item %s not cached: %+v", item.ID, results[i])
		}
		if !st.Contains(item.ID) {
			t.Errorf("no cache entry for %s", item.ID)
		}
	}
}

func TestWarmMediaTypeFallsBackToHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// no Content-Type header
		w.Header()["Content-Type"] = nil
		fmt.Fprint(w, "%PDF-1.4")
	}))
	defer srv.Close()

	st := newTestStore(t)
	p := newTestPopulator(st, &httpFetcher{})

	item := fileItem("a", srv.URL+"/a")
	item.MediaTypeHint = "application/pdf"

	p.Warm(context.Background(), []*domain.ContentItem{item}, WarmOptions{})

	entry, ok := st.Get("a")
	if !ok {
		t.Fatal("no entry after warm")
	}
	if entry.MediaType != "application/pdf" {
		t.Errorf("MediaType = %q, want the item's hint", entry.MediaType)
	}
}

func TestWarmEmptyURLSkipped(t *testing.T) {
	st := newTestStore(t)
	p := newTestPopulator(st, &httpFetcher{})

	item := &domain.ContentItem{ID: "a", Title: "A", Kind: domain.KindFile}
	results := p.Warm(context.Background(), []*domain.ContentItem{item}, WarmOptions{})

	if !results[0].Skipped {
		t.Error("item without a file URL not skipped")
	}
	if results[0].Err != domain.ErrNoFileReference {
		t.Errorf("Err = %v, want ErrNoFileReference", results[0].Err)
	}
}
