// Package marketdata fetches daily bar history from external providers and
// layers a local cache over them.
package marketdata

import (
	"context"
	"time"

	"quantbt/internal/domain"
)

// Source delivers daily bar history for one symbol, ordered by timestamp.
type Source interface {
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}
