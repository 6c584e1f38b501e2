package collector

import (
	"context"
	"time"

	"StockFeatures/internal/model"
)

// Query bounds a fetch either by Period or by Start/End.
type Query struct {
	// Period is one of 1d,5d,1mo,3mo,6mo,1y,2y,5y,10y,ytd,max.
	Period string
	// Interval is one of 1m,2m,5m,15m,30m,60m,90m,1h,1d,5d,1wk,1mo,3mo.
	Interval string
	Start    time.Time
	End      time.Time
}

// WithDefaults fills an unset period with max and interval with 1d.
func (q Query) WithDefaults() Query {
	if q.Period == "" && q.Start.IsZero() {
		q.Period = "max"
	}
	if q.Interval == "" {
		q.Interval = "1d"
	}
	return q
}

// Fetcher defines the interface for fetching price bars.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, q Query) ([]model.OHLCV, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Days  int
	Data  map[string][]model.OHLCV
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, symbol string, _ Query) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Data[symbol]; ok {
		return bars, nil
	}
	days := m.Days
	if days == 0 {
		days = 120
	}
	return GenerateMockBars(m.Price, days, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), nil
}

// GenerateMockBars returns count weekday bars from start with a slow drift
// and a weekly swing.
func GenerateMockBars(basePrice float64, count int, start time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, 0, count)
	day := start
	for i := 0; len(bars) < count; i++ {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n := len(bars)
			p := basePrice * (1 + float64(n-count/2)*0.001 + 0.01*float64(n%5-2))
			bars = append(bars, model.OHLCV{
				Time:     day,
				Open:     p * 0.999,
				High:     p * 1.012,
				Low:      p * 0.99,
				Close:    p,
				AdjClose: p,
				Volume:   1000000,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}
