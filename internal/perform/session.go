package perform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/attacca/attacca/internal/cache"
	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/store"
)

// Session wires the cache store, populator, resolver, navigator, and
// lifecycle manager into the single surface the UI drives during a
// performance. Its lifecycle is warm, then navigation and queries, then
// Teardown when leaving performance mode.
type Session struct {
	store     *store.Store
	populator *cache.Populator
	navigator *Navigator
	lifecycle *Lifecycle
	logger    *slog.Logger
}

// NewSession assembles a performance session. The store's replaced handles
// are routed through the session's lifecycle manager so eviction and
// navigation share one release discipline.
func NewSession(st *store.Store, fetcher domain.FileFetcher, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	lifecycle := NewLifecycle(logger)
	st.SetSuperseder(lifecycle)

	resolver := cache.NewResolver(st, logger)

	return &Session{
		store:     st,
		populator: cache.NewPopulator(st, fetcher, logger),
		navigator: NewNavigator(resolver, lifecycle, logger),
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Populator exposes the session's cache populator (for warm tuning)
func (s *Session) Populator() *cache.Populator { return s.populator }

// Lifecycle exposes the session's resource lifecycle manager
func (s *Session) Lifecycle() *Lifecycle { return s.lifecycle }

// WarmSetlist fills the cache for items. Blocks until all items settle, so
// the UI runs it on its own goroutine (a tea.Cmd); the progress channel is
// closed when done. Population is independent of playback: navigation works
// throughout, falling back to remote references until entries land.
func (s *Session) WarmSetlist(ctx context.Context, items []*domain.ContentItem, force bool, progressCh chan<- cache.WarmProgress) []cache.ItemResult {
	s.logger.Info("warming setlist cache", "items", len(items), "force", force)
	return s.populator.Warm(ctx, items, cache.WarmOptions{
		ForceRefresh: force,
		Progress:     progressCh,
	})
}

// Begin starts navigation over items
func (s *Session) Begin(items []*domain.ContentItem) Snapshot { return s.navigator.Begin(items) }

// Next advances to the following song
func (s *Session) Next() Snapshot { return s.navigator.Next() }

// Previous moves back one song
func (s *Session) Previous() Snapshot { return s.navigator.Previous() }

// JumpTo moves to the song at index
func (s *Session) JumpTo(index int) Snapshot { return s.navigator.JumpTo(index) }

// NextPage advances within the current song
func (s *Session) NextPage() Snapshot { return s.navigator.NextPage() }

// PreviousPage moves back within the current song
func (s *Session) PreviousPage() Snapshot { return s.navigator.PreviousPage() }

// Current returns the latest navigation snapshot
func (s *Session) Current() Snapshot { return s.navigator.Current() }

// CurrentReference returns the current snapshot's resolved reference
func (s *Session) CurrentReference() domain.ResolvedReference {
	return s.navigator.Current().Ref
}

// Complete applies an async probe result if its generation is still current.
// An applied sniff is written back to the cache entry so revisits of the item
// resolve Ready without another probe.
func (s *Session) Complete(generation uint64, mediaType string, err error) (Snapshot, bool) {
	snap, applied := s.navigator.Complete(generation, mediaType, err)
	if applied && err == nil && mediaType != "" && snap.Item != nil && snap.Ref.Kind == domain.RefCached {
		s.store.SetMediaType(snap.Item.ID, mediaType)
	}
	return snap, applied
}

// ProbeMediaType sniffs the media type of the snapshot's cached file. Run on
// a background goroutine while the snapshot shows StatusLoading; apply the
// result through Complete, which drops it if navigation has moved on.
func (s *Session) ProbeMediaType(snap Snapshot) (string, error) {
	h := snap.Ref.Handle
	if h == nil {
		return "", fmt.Errorf("no cached handle to probe")
	}

	r, err := h.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	buf := make([]byte, 512)
	nr, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	sniffed := http.DetectContentType(buf[:nr])
	if declared := h.MediaType(); declared != "" && declared != sniffed {
		// Declared type is trusted at fetch time, but when a probe was
		// needed the sniffed value wins for display
		s.logger.Warn("media type mismatch", "declared", declared, "sniffed", sniffed)
	}
	return sniffed, nil
}

// IsCached reports whether the item's file is in the cache
func (s *Session) IsCached(id string) bool {
	return s.store.Contains(id)
}

// CacheStats returns the cache entry count and total bytes
func (s *Session) CacheStats() (count int, bytes int64) {
	return s.store.Stats()
}

// ClearCache releases every cached handle and wipes the store. The current
// view keeps its snapshot; the next navigation re-resolves and falls back to
// the remote reference or unavailable.
func (s *Session) ClearCache() {
	s.store.Clear()
}

// Teardown releases every tracked handle. Called on leaving performance mode
// and at program exit.
func (s *Session) Teardown() {
	s.lifecycle.ReleaseAll()
	tracked, released := s.lifecycle.Stats()
	s.logger.Info("performance session torn down", "tracked", tracked, "released", released)
}
