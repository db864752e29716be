package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultFetchTimeout = 12 * time.Second
	defaultRetryDelay   = 2 * time.Second
	maxConcurrentWarms  = 4

	// Fetch starts per second when warming a whole setlist
	warmRateLimit = 8
)

// WarmProgress reports one settled item during cache population.
// The channel carrying these is closed by the populator when warm completes.
type WarmProgress struct {
	ItemID  string
	Title   string
	Cached  bool
	Skipped bool
	Loaded  int
	Total   int
	Err     error
}

// ItemResult records how one item's warm attempt settled
type ItemResult struct {
	ItemID  string
	Title   string
	Cached  bool // a cache entry now exists for the item
	Skipped bool // text item, no URL, or already cached
	Err     error
}

// WarmOptions tune a single Warm call
type WarmOptions struct {
	// ForceRefresh re-fetches items that already have a cache entry
	ForceRefresh bool

	// Progress receives one send per settled item and is closed when
	// warm completes. May be nil.
	Progress chan<- WarmProgress
}

// Populator proactively fills the file cache for a set of content items.
// Fetches run concurrently with a bounded worker limit and are individually
// fault-isolated: one item's failure never cancels or delays the others.
type Populator struct {
	store   *store.Store
	fetcher domain.FileFetcher
	logger  *slog.Logger

	group   singleflight.Group
	limiter *rate.Limiter

	fetchTimeout time.Duration
	retryDelay   time.Duration
}

// NewPopulator creates a populator over the given store and fetcher
func NewPopulator(st *store.Store, fetcher domain.FileFetcher, logger *slog.Logger) *Populator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Populator{
		store:        st,
		fetcher:      fetcher,
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Limit(warmRateLimit), maxConcurrentWarms),
		fetchTimeout: defaultFetchTimeout,
		retryDelay:   defaultRetryDelay,
	}
}

// SetFetchTimeout overrides the per-fetch timeout (clamped to a sane floor)
func (p *Populator) SetFetchTimeout(d time.Duration) {
	if d < time.Second {
		d = time.Second
	}
	p.fetchTimeout = d
}

// SetRetryDelay overrides the backoff before the single retry
func (p *Populator) SetRetryDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.retryDelay = d
}

// Warm fetches every file-based item's remote file and installs it in the
// store. Text items carry their payload in memory and are skipped. Items
// already cached are skipped unless ForceRefresh. Blocks until every item
// settles; completion order across items is unspecified.
func (p *Populator) Warm(ctx context.Context, items []*domain.ContentItem, opts WarmOptions) []ItemResult {
	if opts.Progress != nil {
		defer close(opts.Progress)
	}

	results := make([]ItemResult, len(items))
	total := len(items)
	done := make(chan int, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWarms)

	for i, item := range items {
		g.Go(func() error {
			results[i] = p.warmOne(gctx, item, opts.ForceRefresh)
			done <- i
			// Failures stay in the result; never cancel sibling fetches
			return nil
		})
	}

	go func() {
		g.Wait()
		close(done)
	}()

	loaded := 0
	for i := range done {
		loaded++
		r := results[i]
		if opts.Progress != nil {
			select {
			case opts.Progress <- WarmProgress{
				ItemID:  r.ItemID,
				Title:   r.Title,
				Cached:  r.Cached,
				Skipped: r.Skipped,
				Loaded:  loaded,
				Total:   total,
				Err:     r.Err,
			}:
			case <-ctx.Done():
			}
		}
	}

	return results
}

// warmOne settles a single item: skip, cache hit, or fetch with one retry
func (p *Populator) warmOne(ctx context.Context, item *domain.ContentItem, force bool) ItemResult {
	res := ItemResult{ItemID: item.ID, Title: item.Title}

	if !item.IsFileBased() {
		res.Skipped = true
		return res
	}
	if item.FileURL == "" {
		res.Skipped = true
		res.Err = domain.ErrNoFileReference
		return res
	}

	if _, ok := p.store.Get(item.ID); ok && !force {
		res.Cached = true
		res.Skipped = true
		return res
	}

	// Concurrent warms of the same id collapse to one fetch, so Put for a
	// given id is linearizable and the last successful fetch wins
	_, err, _ := p.group.Do(item.ID, func() (interface{}, error) {
		return nil, p.fetchAndStore(ctx, item)
	})
	if err != nil {
		p.logger.Warn("cache warm failed", "id", item.ID, "title", item.Title, "error", err)
		res.Err = err
		// A previous entry may still satisfy the resolver
		_, res.Cached = p.store.Get(item.ID)
		return res
	}

	res.Cached = true
	return res
}

// fetchAndStore downloads the item's file and installs it, retrying once
// after a backoff on transient failure
func (p *Populator) fetchAndStore(ctx context.Context, item *domain.ContentItem) error {
	var lastErr error

	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			p.logger.Debug("retrying fetch", "id", item.ID, "delay", p.retryDelay)
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		if err := p.fetchOnce(ctx, item); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return nil
	}

	return lastErr
}

func (p *Populator) fetchOnce(ctx context.Context, item *domain.ContentItem) error {
	fctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	body, mediaType, err := p.fetcher.FetchFile(fctx, item.FileURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if mediaType == "" {
		mediaType = item.MediaTypeHint
	}

	// Put only sees fully fetched bytes; a failed copy never installs
	_, err = p.store.Put(item.ID, body, mediaType)
	return err
}
