package tui

import (
	"github.com/attacca/attacca/internal/cache"
	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/perform"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SongsLoadedMsg signals that the song catalog has been loaded
type SongsLoadedMsg struct {
	Songs []*domain.ContentItem
}

// SetlistsLoadedMsg signals that setlists have been loaded
type SetlistsLoadedMsg struct {
	Setlists []*domain.Setlist
}

// CatalogSyncMsg is sent for each progress update during catalog sync
type CatalogSyncMsg struct {
	Progress domain.SyncProgress
	NextCmd  interface{} // Continuation command (tea.Cmd) for streaming
}

// PerformanceStartedMsg signals that performance mode is entered: the
// navigator is positioned and cache warming has been kicked off
type PerformanceStartedMsg struct {
	Setlist  *domain.Setlist
	Items    []*domain.ContentItem
	Snapshot perform.Snapshot
}

// WarmProgressMsg is sent as each setlist item's cache warm settles
type WarmProgressMsg struct {
	Progress cache.WarmProgress
	Done     bool
	NextCmd  interface{} // Continuation command (tea.Cmd) for streaming
}

// SnapshotMsg carries a fresh navigation snapshot to render
type SnapshotMsg struct {
	Snapshot perform.Snapshot
}

// ProbeDoneMsg carries the result of an async media-type probe
type ProbeDoneMsg struct {
	Generation uint64
	MediaType  string
	Err        error
}

// FileOpenedMsg signals that the current file was handed to the system viewer
type FileOpenedMsg struct {
	Title string
}

// TextCopiedMsg signals that the current song text was copied
type TextCopiedMsg struct {
	Title string
}

// CacheClearedMsg signals that the file cache was wiped
type CacheClearedMsg struct{}

// StatusMsg sets a temporary status bar message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
