package calculator

import (
	"fmt"

	"StockFeatures/internal/model"
)

// Column suffixes of multi-series indicators.
const (
	SuffixSignal = "_signal"
	SuffixInf    = "_inf"
	SuffixMed    = "_med"
	SuffixSup    = "_sup"
)

// ColumnName formats the {indicator}_{param} name of a single-series output.
func ColumnName(indicator string, param int) string {
	return fmt.Sprintf("%s_%d", indicator, param)
}

type columnFunc func(name string, values []float64) (names []string, cols [][]float64, err error)

func mapColumns(t model.Table, fn columnFunc) (model.Table, error) {
	var names []string
	var cols [][]float64
	for _, name := range t.Columns() {
		s, err := t.Column(name)
		if err != nil {
			return model.Table{}, err
		}
		n, c, err := fn(name, s.Values)
		if err != nil {
			return model.Table{}, fmt.Errorf("column %q: %w", name, err)
		}
		names = append(names, n...)
		cols = append(cols, c...)
	}
	return model.NewTable(t.Index(), names, cols)
}

// SMATable applies SMA to every column of t, keeping column names.
func SMATable(t model.Table, window, minPeriods int) (model.Table, error) {
	return mapColumns(t, func(name string, values []float64) ([]string, [][]float64, error) {
		out, err := SMA(values, window, minPeriods)
		return []string{name}, [][]float64{out}, err
	})
}

// EMATable applies EMA to every column of t, keeping column names.
func EMATable(t model.Table, span, minPeriods int) (model.Table, error) {
	return mapColumns(t, func(name string, values []float64) ([]string, [][]float64, error) {
		out, err := EMA(values, span, minPeriods)
		return []string{name}, [][]float64{out}, err
	})
}

// RSITable applies RSI to every column of t, keeping column names.
func RSITable(t model.Table, window int, mode RSIMode) (model.Table, error) {
	return mapColumns(t, func(name string, values []float64) ([]string, [][]float64, error) {
		out, err := RSI(values, window, mode)
		return []string{name}, [][]float64{out}, err
	})
}

// ReturnsTable applies Returns to every column of t, keeping column names.
func ReturnsTable(t model.Table) (model.Table, error) {
	return mapColumns(t, func(name string, values []float64) ([]string, [][]float64, error) {
		return []string{name}, [][]float64{Returns(values)}, nil
	})
}

// MACDTable returns, per input column, the pair {name, name_signal}.
func MACDTable(t model.Table, short, long, signal int) (model.Table, error) {
	return mapColumns(t, func(name string, values []float64) ([]string, [][]float64, error) {
		line, sig, err := MACD(values, short, long, signal)
		return []string{name, name + SuffixSignal}, [][]float64{line, sig}, err
	})
}

// BollingerTable returns, per input column, {name_inf, name_med, name_sup}.
func BollingerTable(t model.Table, window int, k float64) (model.Table, error) {
	return mapColumns(t, func(name string, values []float64) ([]string, [][]float64, error) {
		inf, med, sup, err := Bollinger(values, window, k)
		return []string{name + SuffixInf, name + SuffixMed, name + SuffixSup},
			[][]float64{inf, med, sup}, err
	})
}
