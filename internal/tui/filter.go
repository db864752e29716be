package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/search"
)

// searchFilter adapts the search service to the song list's "/" filter. The
// indexed matcher supplies the hits and their highlight positions; the rank
// pass orders them by closeness to the query.
func searchFilter(svc *search.Service) list.FilterFunc {
	return func(term string, targets []string) []list.Rank {
		results := svc.Filter(term)
		if len(results) == 0 {
			return nil
		}

		// Targets are the list items' filter values in display order; the
		// index normalizes the same way, so they line up by key
		position := make(map[string]int, len(targets))
		for i, t := range targets {
			position[strings.ToLower(strings.TrimSpace(t))] = i
		}

		items := make([]*domain.ContentItem, len(results))
		matched := make(map[string][]int, len(results))
		targetOf := make(map[*domain.ContentItem]string, len(results))
		for i, r := range results {
			items[i] = r.Item
			matched[r.Target] = r.MatchedIndexes
			targetOf[r.Item] = r.Target
		}

		ranks := make([]list.Rank, 0, len(results))
		seen := make(map[int]bool, len(results))
		add := func(target string) {
			idx, ok := position[target]
			if !ok || seen[idx] {
				return
			}
			seen[idx] = true
			ranks = append(ranks, list.Rank{Index: idx, MatchedIndexes: matched[target]})
		}

		for _, item := range svc.Rank(term, items) {
			add(targetOf[item])
		}
		// Hits the rank pass dropped keep the matcher's order
		for _, r := range results {
			add(r.Target)
		}
		return ranks
	}
}
