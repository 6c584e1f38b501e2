package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"StockFeatures/internal/frame"
	"StockFeatures/internal/model"
	"StockFeatures/internal/ticker"
)

// csvHeader is the persisted column order.
var csvHeader = []string{"date", "open", "high", "low", "close", "adjusted_close", "volume"}

// CSVStore keeps one CSV per ticker per as-of date under
// Root/YYYY-MM-DD/YYYY-MM-DD_TICKER.csv.
type CSVStore struct {
	Root string
}

// NewCSVStore creates a CSV store rooted at root.
func NewCSVStore(root string) *CSVStore {
	return &CSVStore{Root: root}
}

var _ Store = (*CSVStore)(nil)

// Path returns the file holding symbol's bars for asOf.
func (s *CSVStore) Path(symbol string, asOf time.Time) string {
	day := asOf.Format(DateLayout)
	return filepath.Join(s.Root, day, fmt.Sprintf("%s_%s.csv", day, ticker.Parse(symbol, "").SaveFormat()))
}

// Save writes bars, replacing any file for the same ticker and date.
func (s *CSVStore) Save(_ context.Context, symbol string, asOf time.Time, bars []model.OHLCV) error {
	path := s.Path(symbol, asOf)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteBars(file, bars); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// Load reads the bars saved for symbol and asOf.
func (s *CSVStore) Load(_ context.Context, symbol string, asOf time.Time) ([]model.OHLCV, error) {
	path := s.Path(symbol, asOf)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no file for ticker %s in %s: %w", symbol, filepath.Dir(path), ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	t, err := ReadTable(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return BarsFromTable(t)
}

// WriteBars writes bars as CSV in the persisted column order.
func WriteBars(w io.Writer, bars []model.OHLCV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Time.Format(DateLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.AdjClose),
			formatFloat(b.Volume),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable parses a CSV whose first column holds dates and whose other
// columns hold numbers, under any header names. Empty cells are NaN.
func ReadTable(r io.Reader) (model.Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return model.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return model.Table{}, fmt.Errorf("empty csv: %w", model.ErrInvalidParameter)
	}
	header := records[0]
	if len(header) < 2 {
		return model.Table{}, fmt.Errorf("csv needs a date and at least one value column: %w", model.ErrInvalidParameter)
	}

	rows := records[1:]
	index := make([]time.Time, len(rows))
	cols := make([][]float64, len(header)-1)
	for c := range cols {
		cols[c] = make([]float64, len(rows))
	}
	for i, rec := range rows {
		ts, err := parseDate(rec[0])
		if err != nil {
			return model.Table{}, fmt.Errorf("row %d: %w", i+2, err)
		}
		index[i] = ts
		for c := range cols {
			v, err := parseFloat(rec[c+1])
			if err != nil {
				return model.Table{}, fmt.Errorf("row %d column %q: %w", i+2, header[c+1], err)
			}
			cols[c][i] = v
		}
	}
	return model.NewTable(index, header[1:], cols)
}

// BarsFromTable maps a table of any column naming onto bars by role.
// Open, high, low and a close are required; adjusted close falls back to
// close and volume to zero.
func BarsFromTable(t model.Table) ([]model.OHLCV, error) {
	b := frame.InferRoles(t.Columns())
	get := func(role model.Role, required bool) ([]float64, error) {
		col, ok := b.Column(role)
		if !ok {
			if required {
				return nil, fmt.Errorf("no %s column: %w", role, model.ErrMissingColumn)
			}
			return nil, nil
		}
		s, err := t.Column(col)
		return s.Values, err
	}

	open, err := get(model.RoleOpen, true)
	if err != nil {
		return nil, err
	}
	high, err := get(model.RoleHigh, true)
	if err != nil {
		return nil, err
	}
	low, err := get(model.RoleLow, true)
	if err != nil {
		return nil, err
	}
	closes, err := get(model.RoleClose, false)
	if err != nil {
		return nil, err
	}
	adj, err := get(model.RoleAdjustedClose, false)
	if err != nil {
		return nil, err
	}
	if closes == nil {
		closes = adj
	}
	if closes == nil {
		return nil, fmt.Errorf("no close column: %w", model.ErrMissingColumn)
	}
	if adj == nil {
		adj = closes
	}
	volume, err := get(model.RoleVolume, false)
	if err != nil {
		return nil, err
	}

	bars := make([]model.OHLCV, t.Len())
	for i, ts := range t.Index() {
		bars[i] = model.OHLCV{Time: ts, Open: open[i], High: high[i], Low: low[i], Close: closes[i], AdjClose: adj[i]}
		if volume != nil {
			bars[i].Volume = volume[i]
		}
	}
	return bars, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: %w", s, model.ErrInvalidParameter)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", s, model.ErrInvalidParameter)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
