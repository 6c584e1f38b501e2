package model

import (
	"sort"
	"time"
)

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// Canonical column names of a bar table, in persisted order.
const (
	ColOpen     = "open"
	ColHigh     = "high"
	ColLow      = "low"
	ColClose    = "close"
	ColAdjClose = "adj_close"
	ColVolume   = "volume"
)

// BarColumns lists the canonical bar columns in their fixed order.
var BarColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColAdjClose, ColVolume}

// SortBars orders bars by ascending time, in place.
func SortBars(bars []OHLCV) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}

// TableFromBars builds the canonical six-column table from bars.
// A zero AdjClose falls back to Close.
func TableFromBars(bars []OHLCV) (Table, error) {
	index := make([]time.Time, len(bars))
	cols := make([][]float64, len(BarColumns))
	for i := range cols {
		cols[i] = make([]float64, len(bars))
	}
	for i, b := range bars {
		index[i] = b.Time
		adj := b.AdjClose
		if adj == 0 {
			adj = b.Close
		}
		cols[0][i] = b.Open
		cols[1][i] = b.High
		cols[2][i] = b.Low
		cols[3][i] = b.Close
		cols[4][i] = adj
		cols[5][i] = b.Volume
	}
	return NewTable(index, BarColumns, cols)
}
