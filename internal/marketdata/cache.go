package marketdata

import (
	"context"
	"log/slog"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/store"
)

var _ Source = (*CachedSource)(nil)

// CachedSource layers a local BarStore over a remote Source. A request is
// served from the store when the stored bars cover the requested range to
// within the slack window; otherwise the full range is fetched from the
// remote, written through to the store, and returned.
type CachedSource struct {
	remote Source
	bars   store.BarStore
	slack  time.Duration // tolerated gap at either edge of the range
	log    *slog.Logger
}

// NewCachedSource wraps remote with the given store. slack absorbs weekends
// and holidays at the range edges; 4 days is a sensible default for daily
// equity bars.
func NewCachedSource(remote Source, bars store.BarStore, slack time.Duration) *CachedSource {
	return &CachedSource{
		remote: remote,
		bars:   bars,
		slack:  slack,
		log:    slog.Default().With("component", "barcache"),
	}
}

// DailyBars serves the range from the cache when covered, fetching and
// writing through on a miss.
func (c *CachedSource) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	cached, err := c.bars.ReadBars(ctx, symbol, start, end)
	if err == nil && c.covers(cached, start, end) {
		c.log.Debug("cache hit", "symbol", symbol, "bars", len(cached))
		return cached, nil
	}

	fetched, err := c.remote.DailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(fetched) > 0 {
		if err := c.bars.WriteBars(ctx, fetched); err != nil {
			return nil, err
		}
	}
	c.log.Debug("cache miss", "symbol", symbol, "fetched", len(fetched))
	return fetched, nil
}

// covers reports whether the cached bars reach both edges of the requested
// range to within the slack window.
func (c *CachedSource) covers(cached []domain.Bar, start, end time.Time) bool {
	if len(cached) == 0 {
		return false
	}
	first := cached[0].Timestamp
	last := cached[len(cached)-1].Timestamp
	return !first.After(start.Add(c.slack)) && !last.Before(end.Add(-c.slack))
}
