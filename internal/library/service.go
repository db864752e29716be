package library

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/attacca/attacca/internal/domain"
)

const syncChunkSize = 200 // Items per progress update during sync

// Service handles catalog browsing with an offline bbolt cache.
// Cache invalidation is based on server timestamps, not TTL.
type Service struct {
	repo    domain.ContentRepository
	catalog *Catalog
	logger  *slog.Logger
}

// NewService creates a new library service
func NewService(repo domain.ContentRepository, catalog *Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
	}
}

// Songs returns all content items, served from the catalog when possible
func (s *Service) Songs(ctx context.Context) ([]*domain.ContentItem, error) {
	if songs, ok := s.catalog.GetSongs(); ok {
		s.logger.Debug("catalog hit", "songs", len(songs))
		return songs, nil
	}

	songs, err := s.repo.GetSongs(ctx)
	if err != nil {
		s.logger.Error("failed to get songs", "error", err)
		return nil, err
	}

	sortSongs(songs)
	if err := s.catalog.SaveSongs(songs, 0); err != nil {
		s.logger.Warn("failed to save songs to catalog", "error", err)
	}
	s.logger.Info("loaded songs", "count", len(songs))
	return songs, nil
}

// Setlists returns all setlists, served from the catalog when possible
func (s *Service) Setlists(ctx context.Context) ([]*domain.Setlist, error) {
	if lists, ok := s.catalog.GetSetlists(); ok {
		s.logger.Debug("catalog hit", "setlists", len(lists))
		return lists, nil
	}

	lists, err := s.repo.GetSetlists(ctx)
	if err != nil {
		s.logger.Error("failed to get setlists", "error", err)
		return nil, err
	}

	if err := s.catalog.SaveSetlists(lists); err != nil {
		s.logger.Warn("failed to save setlists to catalog", "error", err)
	}
	s.logger.Info("loaded setlists", "count", len(lists))
	return lists, nil
}

// SetlistItems returns a setlist's songs in order. Resolves against the
// local catalog first so entering performance mode works offline; songs
// missing from the catalog are fetched from the repository.
func (s *Service) SetlistItems(ctx context.Context, setlistID string) ([]*domain.ContentItem, error) {
	lists, err := s.Setlists(ctx)
	if err != nil {
		return nil, err
	}

	var setlist *domain.Setlist
	for _, l := range lists {
		if l.ID == setlistID {
			setlist = l
			break
		}
	}
	if setlist == nil {
		return nil, domain.ErrSetlistNotFound
	}

	songs, err := s.Songs(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.ContentItem, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}

	items := make([]*domain.ContentItem, 0, len(setlist.ItemIDs))
	var missing []string
	for _, id := range setlist.ItemIDs {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		s.logger.Warn("setlist references songs missing from catalog",
			"setlistID", setlistID, "missing", len(missing))
		fetched, err := s.repo.GetSetlistItems(ctx, setlistID)
		if err == nil {
			return fetched, nil
		}
		// Offline with a partial catalog: perform with what we have
	}

	return items, nil
}

// FindSetlist returns a setlist by name or ID (case-insensitive name match)
func (s *Service) FindSetlist(ctx context.Context, nameOrID string) (*domain.Setlist, error) {
	lists, err := s.Setlists(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if l.ID == nameOrID || strings.EqualFold(l.Name, nameOrID) {
			return l, nil
		}
	}
	return nil, domain.ErrSetlistNotFound
}

// Sync refreshes the catalog from the repository when the server reports
// newer content (always when force). Progress updates stream to the channel,
// which is closed when sync completes.
func (s *Service) Sync(ctx context.Context, force bool, progressCh chan<- domain.SyncProgress) {
	defer close(progressCh)

	serverTS, err := s.repo.ServerUpdatedAt(ctx)
	if err != nil {
		// Offline: catalog contents, if any, stay usable
		if _, ok := s.catalog.GetSongs(); ok {
			s.logger.Info("server unreachable, using catalog", "error", err)
			progressCh <- domain.SyncProgress{Stage: "songs", Done: true, FromCache: true}
			return
		}
		progressCh <- domain.SyncProgress{Stage: "songs", Error: err}
		return
	}

	if !force && s.catalog.IsValid(serverTS) {
		songs, _ := s.catalog.GetSongs()
		s.logger.Debug("catalog valid", "serverTS", serverTS)
		progressCh <- domain.SyncProgress{
			Stage:     "songs",
			Loaded:    len(songs),
			Total:     len(songs),
			Done:      true,
			FromCache: true,
		}
		return
	}

	songs, err := s.repo.GetSongs(ctx)
	if err != nil {
		s.logger.Error("failed to sync songs", "error", err)
		progressCh <- domain.SyncProgress{Stage: "songs", Error: err}
		return
	}

	// Chunked progress keeps the UI responsive on large libraries
	for loaded := 0; loaded < len(songs); {
		loaded += syncChunkSize
		if loaded > len(songs) {
			loaded = len(songs)
		}
		progressCh <- domain.SyncProgress{Stage: "songs", Loaded: loaded, Total: len(songs)}
	}

	lists, err := s.repo.GetSetlists(ctx)
	if err != nil {
		s.logger.Error("failed to sync setlists", "error", err)
		progressCh <- domain.SyncProgress{Stage: "setlists", Error: err}
		return
	}

	sortSongs(songs)
	if err := s.catalog.SaveSongs(songs, serverTS); err != nil {
		s.logger.Error("failed to save songs", "error", err)
	}
	if err := s.catalog.SaveSetlists(lists); err != nil {
		s.logger.Error("failed to save setlists", "error", err)
	}

	s.logger.Info("synced catalog", "songs", len(songs), "setlists", len(lists), "serverTS", serverTS)
	progressCh <- domain.SyncProgress{
		Stage:  "setlists",
		Loaded: len(songs),
		Total:  len(songs),
		Done:   true,
	}
}

// Refresh wipes the catalog so the next read refetches
func (s *Service) Refresh() {
	s.catalog.InvalidateAll()
	s.logger.Info("invalidated catalog")
}

func sortSongs(songs []*domain.ContentItem) {
	sort.Slice(songs, func(i, j int) bool {
		return strings.ToLower(songs[i].GetSortTitle()) < strings.ToLower(songs[j].GetSortTitle())
	})
}
