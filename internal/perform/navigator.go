package perform

import (
	"log/slog"
	"sync"

	"github.com/attacca/attacca/internal/cache"
	"github.com/attacca/attacca/internal/domain"
)

// ItemStatus is the display state of the current item
type ItemStatus int

const (
	// StatusLoading means an async confirmation (media type probe) is in flight
	StatusLoading ItemStatus = iota
	// StatusReady means a resolved reference is available for rendering
	StatusReady
	// StatusError means nothing could be resolved for the item
	StatusError
)

// String returns the string representation of the status
func (s ItemStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the navigator's state at one generation, handed to the UI
// for rendering
type Snapshot struct {
	Generation uint64
	Index      int
	Page       int
	Item       *domain.ContentItem
	Ref        domain.ResolvedReference
	Status     ItemStatus
	Err        error
}

// Navigator is the state machine driving which song and page is current
// during a performance. Every navigation increments the generation counter
// before any asynchronous work, so a fast double-navigation abandons the
// first resolution in favor of the second: pending results carrying an older
// generation are discarded on arrival, never merged.
//
// Navigation never returns an error: resolution failure surfaces as
// StatusError on the snapshot and the musician can always move on.
type Navigator struct {
	resolver  *cache.Resolver
	lifecycle *Lifecycle
	logger    *slog.Logger

	mu         sync.Mutex
	setlist    []*domain.ContentItem
	generation uint64
	current    Snapshot
}

// NewNavigator creates a navigator over the given resolver and lifecycle
func NewNavigator(resolver *cache.Resolver, lifecycle *Lifecycle, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		resolver:  resolver,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Begin starts a performance session over items, positioned at the first song
func (n *Navigator) Begin(items []*domain.ContentItem) Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.setlist = items
	return n.navigate(0, 0)
}

// Next moves to the following song, clamped at the end of the setlist
func (n *Navigator) Next() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigate(n.current.Index+1, 0)
}

// Previous moves to the prior song, clamped at the start of the setlist
func (n *Navigator) Previous() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigate(n.current.Index-1, 0)
}

// JumpTo moves directly to the song at index, clamped to the setlist bounds
func (n *Navigator) JumpTo(index int) Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigate(index, 0)
}

// NextPage advances within the current song, clamped at its last page
func (n *Navigator) NextPage() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigate(n.current.Index, n.current.Page+1)
}

// PreviousPage moves back within the current song, clamped at its first page
func (n *Navigator) PreviousPage() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigate(n.current.Index, n.current.Page-1)
}

// Current returns the latest snapshot
func (n *Navigator) Current() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Generation returns the current generation counter
func (n *Navigator) Generation() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.generation
}

// Complete applies an async media-type probe result, but only if generation
// still matches the navigator's current one. A stale result is dropped, not
// merged; ok reports whether the result was applied.
func (n *Navigator) Complete(generation uint64, mediaType string, err error) (Snapshot, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if generation != n.generation {
		n.logger.Debug("discarding stale resolution",
			"resultGeneration", generation, "currentGeneration", n.generation)
		return n.current, false
	}

	if err != nil {
		n.current.Status = StatusError
		n.current.Err = err
	} else {
		n.current.Ref.MediaType = mediaType
		n.current.Status = StatusReady
		n.current.Err = nil
	}

	return n.current, true
}

// navigate is the single transition path. Callers hold n.mu. The generation
// bump happens before resolution so any in-flight async work for the old
// position is already stale by the time it reports back.
func (n *Navigator) navigate(index, page int) Snapshot {
	n.generation++

	if len(n.setlist) == 0 {
		n.supersedePrev(nil)
		n.current = Snapshot{
			Generation: n.generation,
			Status:     StatusError,
			Ref:        domain.UnavailableRef("empty setlist"),
		}
		return n.current
	}

	index = clamp(index, 0, len(n.setlist)-1)
	item := n.setlist[index]
	page = clamp(page, 0, item.PageCount()-1)

	// Re-resolve even when the position is unchanged: the populator may have
	// filled the cache since the last visit, and a cleared cache must stop
	// resolving Cached. Costs a map lookup.
	ref := n.resolver.Resolve(item)

	snap := Snapshot{
		Generation: n.generation,
		Index:      index,
		Page:       page,
		Item:       item,
		Ref:        ref,
	}

	switch ref.Kind {
	case domain.RefUnavailable:
		snap.Status = StatusError
		snap.Err = domain.ErrNoFileReference
	case domain.RefCached:
		n.lifecycle.Track(ref.Handle)
		if ref.MediaType == "" {
			// Needs a byte sniff before the viewer can pick a renderer
			snap.Status = StatusLoading
		} else {
			snap.Status = StatusReady
		}
	default:
		snap.Status = StatusReady
	}

	n.supersedePrev(ref.Handle)
	n.current = snap
	return snap
}

// supersedePrev releases the previous snapshot's handle once the new one is
// in place, unless the new resolution reuses the same lease
func (n *Navigator) supersedePrev(next domain.FileHandle) {
	prev := n.current.Ref.Handle
	if prev == nil || prev == next {
		return
	}
	n.lifecycle.Supersede(prev)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
