package source

import (
	"strings"

	"github.com/attacca/attacca/internal/domain"
)

// mapSongs converts wire songs to domain content items
func mapSongs(dtos []songDTO, serverURL string) []*domain.ContentItem {
	items := make([]*domain.ContentItem, 0, len(dtos))
	for _, d := range dtos {
		item := mapSong(d, serverURL)
		items = append(items, &item)
	}
	return items
}

// mapSong converts a single wire song to a domain content item
func mapSong(d songDTO, serverURL string) domain.ContentItem {
	item := domain.ContentItem{
		ID:            d.ID,
		Title:         d.Title,
		Artist:        d.Artist,
		SortTitle:     d.SortTitle,
		Text:          d.Text,
		FileURL:       d.FileURL,
		MediaTypeHint: d.MediaType,
		Pages:         d.Pages,
		UpdatedAt:     d.UpdatedAt,
		AddedAt:       d.AddedAt,
	}

	if d.Kind == "file" {
		item.Kind = domain.KindFile
	} else {
		item.Kind = domain.KindText
	}

	if item.SortTitle == "" {
		item.SortTitle = sortTitle(item.Title)
	}

	// Relative file URLs are served by the content server itself
	if item.FileURL != "" && strings.HasPrefix(item.FileURL, "/") {
		item.FileURL = strings.TrimRight(serverURL, "/") + item.FileURL
	}

	return item
}

// mapSetlists converts wire setlists to domain setlists
func mapSetlists(dtos []setlistDTO) []*domain.Setlist {
	lists := make([]*domain.Setlist, 0, len(dtos))
	for _, d := range dtos {
		lists = append(lists, &domain.Setlist{
			ID:        d.ID,
			Name:      d.Name,
			ItemIDs:   d.SongIDs,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return lists
}

// sortTitle strips leading articles for alphabetical sorting
func sortTitle(title string) string {
	lower := strings.ToLower(title)
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, article) {
			return title[len(article):]
		}
	}
	return title
}
