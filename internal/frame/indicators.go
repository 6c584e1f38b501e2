package frame

import (
	"fmt"
	"time"

	"StockFeatures/internal/calculator"
	"StockFeatures/internal/model"
)

// Indicator kinds, also used as column name prefixes.
const (
	KindSMA       = "sma"
	KindEMA       = "ema"
	KindMACD      = "macd"
	KindBollinger = "bb"
	KindRSI       = "rsi"
	KindATR       = "atr"
	KindReturns   = "returns"
)

func (f *Frame) series(name string, values []float64) model.Series {
	idx := append([]time.Time(nil), f.table.Index()...)
	return model.Series{Name: name, Index: idx, Values: values}
}

// SMA returns sma_{window} of the target close.
func (f *Frame) SMA(window, minPeriods int) (model.Series, error) {
	c, err := f.TargetClose()
	if err != nil {
		return model.Series{}, err
	}
	out, err := calculator.SMA(c.Values, window, minPeriods)
	if err != nil {
		return model.Series{}, err
	}
	return f.series(calculator.ColumnName(KindSMA, window), out), nil
}

// EMA returns ema_{span} of the target close.
func (f *Frame) EMA(span, minPeriods int) (model.Series, error) {
	c, err := f.TargetClose()
	if err != nil {
		return model.Series{}, err
	}
	out, err := calculator.EMA(c.Values, span, minPeriods)
	if err != nil {
		return model.Series{}, err
	}
	return f.series(calculator.ColumnName(KindEMA, span), out), nil
}

// MACD returns the macd and macd_signal columns of the target close.
func (f *Frame) MACD(short, long, signal int) (model.Table, error) {
	c, err := f.TargetClose()
	if err != nil {
		return model.Table{}, err
	}
	t, err := model.TableFromSeries(c.Rename(KindMACD))
	if err != nil {
		return model.Table{}, err
	}
	return calculator.MACDTable(t, short, long, signal)
}

// Bollinger returns bb_inf_{window}, bb_med_{window} and bb_sup_{window}
// of the target close.
func (f *Frame) Bollinger(window int, k float64) (model.Table, error) {
	c, err := f.TargetClose()
	if err != nil {
		return model.Table{}, err
	}
	inf, med, sup, err := calculator.Bollinger(c.Values, window, k)
	if err != nil {
		return model.Table{}, err
	}
	return model.NewTable(f.table.Index(), BollingerColumns(window), [][]float64{inf, med, sup})
}

// BollingerColumns names the three band columns for window.
func BollingerColumns(window int) []string {
	return []string{
		calculator.ColumnName(KindBollinger+calculator.SuffixInf, window),
		calculator.ColumnName(KindBollinger+calculator.SuffixMed, window),
		calculator.ColumnName(KindBollinger+calculator.SuffixSup, window),
	}
}

// RSI returns rsi_{window} of the target close.
func (f *Frame) RSI(window int, mode calculator.RSIMode) (model.Series, error) {
	c, err := f.TargetClose()
	if err != nil {
		return model.Series{}, err
	}
	out, err := calculator.RSI(c.Values, window, mode)
	if err != nil {
		return model.Series{}, err
	}
	return f.series(calculator.ColumnName(KindRSI, window), out), nil
}

// Returns returns the percentage change of the target close.
func (f *Frame) Returns() (model.Series, error) {
	c, err := f.TargetClose()
	if err != nil {
		return model.Series{}, err
	}
	return f.series(KindReturns, calculator.Returns(c.Values)), nil
}

// ATR returns atr_{window}. It needs high and low roles and a close,
// falling back to adjusted close.
func (f *Frame) ATR(window int) (model.Series, error) {
	high, err := f.Column(model.RoleHigh)
	if err != nil {
		return model.Series{}, fmt.Errorf("atr: %w", err)
	}
	low, err := f.Column(model.RoleLow)
	if err != nil {
		return model.Series{}, fmt.Errorf("atr: %w", err)
	}
	closes, err := f.Column(model.RoleClose)
	if err != nil {
		closes, err = f.Column(model.RoleAdjustedClose)
	}
	if err != nil {
		return model.Series{}, fmt.Errorf("atr: %w", err)
	}
	out, err := calculator.ATR(high.Values, low.Values, closes.Values, window)
	if err != nil {
		return model.Series{}, err
	}
	return f.series(calculator.ColumnName(KindATR, window), out), nil
}
