package search

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/attacca/attacca/internal/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"
)

// Result is a search hit with match metadata for highlighting
type Result struct {
	Item           *domain.ContentItem
	Target         string // The indexed search string the query matched
	MatchedIndexes []int  // Character positions within Target that matched
	Score          int    // Match score (higher is better for sahilm matches)
}

// FilterIndex implements sahilm/fuzzy.Source for zero-allocation matching
type FilterIndex struct {
	items       []*domain.ContentItem
	lowerTitles []string // Pre-computed "title artist" lowercase strings
}

// String returns the searchable string at index i (implements fuzzy.Source)
func (idx *FilterIndex) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of items (implements fuzzy.Source)
func (idx *FilterIndex) Len() int { return len(idx.items) }

// Service provides fuzzy search and filtering over the song catalog
type Service struct {
	logger *slog.Logger

	mu      sync.RWMutex
	index   *FilterIndex
	indexed map[string]bool // Track indexed item IDs to avoid duplicates
}

// NewService creates a new search service
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:  logger,
		index:   &FilterIndex{},
		indexed: make(map[string]bool),
	}
}

// IndexItems adds items to the search index, deduplicating by ID.
// Searchable strings are lowercased at index time.
func (s *Service) IndexItems(items []*domain.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, item := range items {
		if s.indexed[item.ID] {
			continue
		}
		s.indexed[item.ID] = true
		s.index.items = append(s.index.items, item)
		s.index.lowerTitles = append(s.index.lowerTitles, searchString(item))
		added++
	}

	s.logger.Debug("indexed songs", "added", added, "total", s.index.Len())
}

// Filter performs fuzzy matching against the index, returning hits with
// matched character positions for highlighting
func (s *Service) Filter(query string) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" || s.index.Len() == 0 {
		return nil
	}

	matches := sahilm.FindFrom(query, s.index)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Item:           s.index.items[m.Index],
			Target:         s.index.lowerTitles[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// Rank orders items by closeness to query using normalized fold ranking;
// items that don't match at all are dropped
func (s *Service) Rank(query string, items []*domain.ContentItem) []*domain.ContentItem {
	if query == "" || len(items) == 0 {
		return items
	}

	titles := make([]string, len(items))
	byTitle := make(map[string]*domain.ContentItem, len(items))
	for i, item := range items {
		t := searchString(item)
		titles[i] = t
		byTitle[t] = item
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Sort(ranks)

	results := make([]*domain.ContentItem, 0, len(ranks))
	for _, r := range ranks {
		if item, ok := byTitle[r.Target]; ok {
			results = append(results, item)
		}
	}
	return results
}

// Clear removes all items from the index
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = &FilterIndex{}
	s.indexed = make(map[string]bool)
	s.logger.Debug("cleared search index")
}

// Count returns the number of indexed items
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

func searchString(item *domain.ContentItem) string {
	if item.Artist != "" {
		return strings.ToLower(item.Title + " " + item.Artist)
	}
	return strings.ToLower(item.Title)
}
