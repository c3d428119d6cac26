// Package marketdata fetches futures bars and prices and stores historical
// bars as parquet files for offline backtests.
package marketdata

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Provider supplies closed bars, current prices and the tradable symbol universe.
// Every failure is reported as a DataUnavailableError so callers can skip the
// symbol for the current tick.
type Provider interface {
	// GetBars returns up to count closed bars of symbol ordered by time. The
	// bar still in progress is never included.
	GetBars(ctx context.Context, symbol string, interval Interval, count int) ([]types.Bar, error)
	// GetCurrentPrice returns the latest traded price of symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	// ListSymbols returns the perpetual symbols quoted in quote that are currently trading.
	ListSymbols(ctx context.Context, quote string) ([]string, error)
}

// OnDownloadProgress reports download progress in milliseconds of the requested range.
type OnDownloadProgress = func(current float64, total float64, message string)

// Interval is a kline interval.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval3m:  3 * time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval2h:  2 * time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval8h:  8 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval3d:  72 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
	Interval1M:  30 * 24 * time.Hour,
}

// ParseInterval validates s as a kline interval.
func ParseInterval(s string) (Interval, error) {
	interval := Interval(s)
	if _, ok := intervalDurations[interval]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported kline interval: %q", s)
	}

	return interval, nil
}

// Duration returns the nominal length of one bar. A month counts as 30 days.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// String implements fmt.Stringer.
func (i Interval) String() string {
	return string(i)
}
