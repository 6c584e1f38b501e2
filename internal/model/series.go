package model

import (
	"fmt"
	"time"
)

// Series is a named, time-ordered sequence of values. NaN marks a missing
// value.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// NewSeries copies index and values into a series kept in ascending time
// order. Descending input is reversed.
func NewSeries(name string, index []time.Time, values []float64) (Series, error) {
	if len(index) != len(values) {
		return Series{}, fmt.Errorf("series %q: %d timestamps for %d values: %w",
			name, len(index), len(values), ErrInvalidParameter)
	}
	idx := append([]time.Time(nil), index...)
	vals := append([]float64(nil), values...)
	if descending(idx) {
		reverseTimes(idx)
		reverseFloats(vals)
	}
	if err := checkAscending(idx); err != nil {
		return Series{}, fmt.Errorf("series %q: %w", name, err)
	}
	return Series{Name: name, Index: idx, Values: vals}, nil
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Values) }

// Rename returns the series under a new name. Data is shared.
func (s Series) Rename(name string) Series {
	s.Name = name
	return s
}

func descending(idx []time.Time) bool {
	return len(idx) > 1 && idx[0].After(idx[1])
}

func checkAscending(idx []time.Time) error {
	for i := 1; i < len(idx); i++ {
		if !idx[i].After(idx[i-1]) {
			return fmt.Errorf("timestamp %s at row %d not after %s: %w",
				idx[i].Format(time.RFC3339), i, idx[i-1].Format(time.RFC3339), ErrInvalidParameter)
		}
	}
	return nil
}

func reverseTimes(s []time.Time) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseFloats(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
