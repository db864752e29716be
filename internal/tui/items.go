package tui

import (
	"fmt"

	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/tui/styles"
)

// songItem adapts a ContentItem for the bubbles list component
type songItem struct {
	item   *domain.ContentItem
	cached bool
}

func (s songItem) Title() string {
	dot := statusDot(s.item, s.cached)
	return dot + " " + s.item.Title
}

func (s songItem) Description() string {
	desc := s.item.GetDescription()
	if s.item.IsFileBased() && s.item.PageCount() > 1 {
		desc += fmt.Sprintf(" · %d pages", s.item.PageCount())
	}
	return desc
}

func (s songItem) FilterValue() string {
	return s.item.Title + " " + s.item.Artist
}

// statusDot shows at a glance whether a song will work offline
func statusDot(item *domain.ContentItem, cached bool) string {
	if !item.IsFileBased() {
		return styles.CachedDot
	}
	if cached {
		return styles.CachedDot
	}
	if item.FileURL != "" {
		return styles.RemoteDot
	}
	return styles.UnavailableDot
}

// setlistItem adapts a Setlist for the bubbles list component
type setlistItem struct {
	setlist *domain.Setlist
}

func (s setlistItem) Title() string {
	return s.setlist.Name
}

func (s setlistItem) Description() string {
	return s.setlist.GetDescription()
}

func (s setlistItem) FilterValue() string {
	return s.setlist.Name
}
