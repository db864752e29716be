package domain

import "fmt"

// ContentKind distinguishes how a song's material is stored
type ContentKind int

const (
	// KindText is lyrics/chords kept inline as markdown text
	KindText ContentKind = iota
	// KindFile is sheet music or tab stored as a remote file (PDF, image)
	KindFile
)

// String returns a human-readable representation of the content kind
func (k ContentKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// ContentItem represents one song's stored material. Items are owned by the
// content repository and immutable once loaded; the cache layer references
// them but never mutates them.
type ContentItem struct {
	ID        string      // Server-assigned unique identifier
	Title     string      // Display title
	Artist    string      // Performing/composing artist
	SortTitle string      // Title used for sorting
	Kind      ContentKind // Text-based or file-based

	// Text-based content (empty for file-based items)
	Text string // Lyrics/chords as markdown

	// File-based content (empty for text-based items)
	FileURL       string // Remote file reference
	MediaTypeHint string // Declared media type, e.g. "application/pdf"
	Pages         int    // Page count, 0 = unknown

	UpdatedAt int64 // Unix timestamp when last updated
	AddedAt   int64 // Unix timestamp when added to the library
}

// IsFileBased reports whether the item's content lives in a remote file
func (c ContentItem) IsFileBased() bool {
	return c.Kind == KindFile
}

// PageCount returns the number of pages, treating unknown as a single page
func (c ContentItem) PageCount() int {
	if c.Pages < 1 {
		return 1
	}
	return c.Pages
}

// GetSortTitle returns the explicit sort title, falling back to the title
func (c *ContentItem) GetSortTitle() string {
	if c.SortTitle != "" {
		return c.SortTitle
	}
	return c.Title
}

// GetDescription returns the secondary line for list display
func (c *ContentItem) GetDescription() string {
	if c.Artist != "" {
		return c.Artist
	}
	return c.Kind.String()
}

// Setlist is an ordered sequence of content items for one performance session
type Setlist struct {
	ID        string   // Server-assigned unique identifier
	Name      string   // Display name
	ItemIDs   []string // Ordered content item IDs
	UpdatedAt int64    // Unix timestamp when last updated
}

// GetDescription returns the secondary line for list display
func (s *Setlist) GetDescription() string {
	if len(s.ItemIDs) == 1 {
		return "1 song"
	}
	return fmt.Sprintf("%d songs", len(s.ItemIDs))
}
