// Package store defines storage interfaces for persisting and retrieving
// bar history and completed backtest runs.
package store

import (
	"context"
	"time"

	"quantbt/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage, merging with any bars
	// already on disk for the same symbol and timestamps.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bar data.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunSummary is the index row for one persisted backtest run.
type RunSummary struct {
	ID             string
	Strategy       string
	Symbol         string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalCapital   float64
	TotalTrades    int
	CreatedAt      time.Time
}

// RunStore persists completed backtest runs for later inspection.
type RunStore interface {
	// SaveRun persists a completed result and returns its assigned run ID.
	SaveRun(ctx context.Context, res *domain.BacktestResult) (string, error)

	// GetRun retrieves a persisted run by ID. The equity curve is not
	// persisted; the returned result carries parameters and trades only.
	GetRun(ctx context.Context, id string) (*domain.BacktestResult, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
