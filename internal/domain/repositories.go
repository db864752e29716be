package domain

import (
	"context"
	"io"
)

// ContentRepository provides read access to the remote content database
type ContentRepository interface {
	// GetSongs returns all content items in the library
	GetSongs(ctx context.Context) ([]*ContentItem, error)

	// GetSong returns a single content item by ID
	GetSong(ctx context.Context, id string) (*ContentItem, error)

	// GetSetlists returns all setlists
	GetSetlists(ctx context.Context) ([]*Setlist, error)

	// GetSetlistItems returns the ordered content items of a setlist
	GetSetlistItems(ctx context.Context, setlistID string) ([]*ContentItem, error)

	// ServerUpdatedAt returns the server's last-modified timestamp,
	// used to decide whether the local catalog is still fresh
	ServerUpdatedAt(ctx context.Context) (int64, error)
}

// FileFetcher downloads a content item's remote file. The returned reader
// streams the body; mediaType is the server-declared Content-Type ("" if the
// server sent none).
type FileFetcher interface {
	FetchFile(ctx context.Context, url string) (body io.ReadCloser, mediaType string, err error)
}

// SyncProgress reports progress during catalog synchronization.
// The channel carrying these is closed by the sender when sync completes.
type SyncProgress struct {
	Stage     string // "songs" or "setlists"
	Loaded    int
	Total     int
	Done      bool
	FromCache bool
	Error     error
}
