package perform

import (
	"log/slog"
	"sync"

	"github.com/attacca/attacca/internal/domain"
)

// Lifecycle tracks every materialized file handle handed to the UI and
// guarantees its release when superseded or on teardown. Every tracked
// handle is released exactly once; releasing an already-released handle
// is a no-op.
type Lifecycle struct {
	logger *slog.Logger

	mu       sync.Mutex
	live     map[domain.FileHandle]struct{}
	tracked  int
	released int
}

// NewLifecycle creates an empty lifecycle manager
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		logger: logger,
		live:   make(map[domain.FileHandle]struct{}),
	}
}

// Track registers a handle as in use by the UI. Tracking the same handle
// twice is a no-op.
func (l *Lifecycle) Track(h domain.FileHandle) {
	if h == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.live[h]; ok {
		return
	}
	l.live[h] = struct{}{}
	l.tracked++
}

// Supersede releases a handle that is no longer displayed. Called when the
// store replaces or evicts an entry and when the navigator moves away from
// the item that owned the handle. Handles that were never tracked are
// released directly; already-released handles are left alone.
func (l *Lifecycle) Supersede(h domain.FileHandle) {
	if h == nil {
		return
	}

	l.mu.Lock()
	_, wasLive := l.live[h]
	if wasLive {
		delete(l.live, h)
		l.released++
	}
	l.mu.Unlock()

	if !h.Released() {
		h.Release()
	} else if wasLive {
		l.logger.Debug("superseded handle was already released")
	}
}

// ReleaseAll releases everything still tracked. Teardown path.
func (l *Lifecycle) ReleaseAll() {
	l.mu.Lock()
	handles := make([]domain.FileHandle, 0, len(l.live))
	for h := range l.live {
		handles = append(handles, h)
	}
	l.live = make(map[domain.FileHandle]struct{})
	l.released += len(handles)
	l.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}

	if len(handles) > 0 {
		l.logger.Debug("released remaining handles", "count", len(handles))
	}
}

// Stats returns the lifetime track and release counts. By session end the
// two are equal.
func (l *Lifecycle) Stats() (tracked, released int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tracked, l.released
}
