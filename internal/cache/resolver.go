package cache

import (
	"log/slog"

	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/store"
)

// Resolver decides which source to render for a content item: the in-memory
// text payload, a cached file handle, the remote fallback URL, or nothing.
type Resolver struct {
	store  *store.Store
	logger *slog.Logger
}

// NewResolver creates a resolver over the given store
func NewResolver(st *store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: st, logger: logger}
}

// Resolve returns the best available reference for item. Synchronous and
// local-only: it never fetches. If the populator fills the cache for an item
// already rendered via Remote, the upgrade happens on the next navigation to
// that item, not retroactively.
func (r *Resolver) Resolve(item *domain.ContentItem) domain.ResolvedReference {
	if item == nil {
		return domain.UnavailableRef("no item")
	}

	if !item.IsFileBased() {
		return domain.TextRef(item.Text)
	}

	if entry, ok := r.store.Get(item.ID); ok {
		r.logger.Debug("resolved from cache", "id", item.ID)
		return domain.CachedRef(entry.Handle())
	}

	if item.FileURL != "" {
		r.logger.Debug("resolved to remote fallback", "id", item.ID)
		return domain.RemoteRef(item.FileURL, item.MediaTypeHint)
	}

	return domain.UnavailableRef(domain.ErrNoFileReference.Error())
}
