package domain

import "io"

// FileHandle is a lease on a locally materialized cache file. A handle stays
// readable until released; release is idempotent and exactly-once effective.
type FileHandle interface {
	// Path returns the location of the backing cache file
	Path() string

	// MediaType returns the recorded media type ("" if unknown)
	MediaType() string

	// Open returns a reader over the file, or ErrHandleReleased after release
	Open() (io.ReadCloser, error)

	// Release ends the lease. Releasing twice is a no-op.
	Release()

	// Released reports whether the lease has ended
	Released() bool
}

// RefKind identifies which source a resolved reference points at
type RefKind int

const (
	// RefText is an in-memory text payload, passed through unchanged
	RefText RefKind = iota
	// RefCached is a live handle on a locally cached file
	RefCached
	// RefRemote is a fallback URL for an item with no cache entry
	RefRemote
	// RefUnavailable means no source exists for the item
	RefUnavailable
)

// String returns a human-readable representation of the reference kind
func (k RefKind) String() string {
	switch k {
	case RefText:
		return "text"
	case RefCached:
		return "cached"
	case RefRemote:
		return "remote"
	case RefUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ResolvedReference is the outcome of deciding which source to render for an
// item. Transient: recomputed on every navigation, never stored.
type ResolvedReference struct {
	Kind      RefKind
	Text      string     // RefText: the markdown payload
	Handle    FileHandle // RefCached: live handle on the cache file
	URL       string     // RefRemote: fallback URL
	MediaType string     // RefCached/RefRemote: media type ("" if unknown)
	Reason    string     // RefUnavailable: why nothing could be resolved
}

// TextRef builds an in-memory text reference
func TextRef(text string) ResolvedReference {
	return ResolvedReference{Kind: RefText, Text: text}
}

// CachedRef builds a reference to a live cache handle
func CachedRef(h FileHandle) ResolvedReference {
	return ResolvedReference{Kind: RefCached, Handle: h, MediaType: h.MediaType()}
}

// RemoteRef builds a fallback reference to the item's remote file
func RemoteRef(url, mediaType string) ResolvedReference {
	return ResolvedReference{Kind: RefRemote, URL: url, MediaType: mediaType}
}

// UnavailableRef builds a reference for an item with no usable source
func UnavailableRef(reason string) ResolvedReference {
	return ResolvedReference{Kind: RefUnavailable, Reason: reason}
}
