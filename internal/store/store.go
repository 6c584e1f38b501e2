// Package store caches downloaded price bars per ticker and as-of date.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockFeatures/internal/model"
)

// DateLayout is the as-of and row date format.
const DateLayout = "2006-01-02"

// ErrNotFound is returned when no bars are stored for a ticker and date.
var ErrNotFound = errors.New("not found")

// Store saves and loads bars addressed by ticker and as-of date.
type Store interface {
	Save(ctx context.Context, symbol string, asOf time.Time, bars []model.OHLCV) error
	Load(ctx context.Context, symbol string, asOf time.Time) ([]model.OHLCV, error)
}

// ParseAsOf reads a YYYY-MM-DD date. The empty string means today.
func ParseAsOf(s string) (time.Time, error) {
	if s == "" {
		return Day(time.Now()), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("as-of date %q must be YYYY-MM-DD: %w", s, model.ErrInvalidParameter)
	}
	return t, nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
