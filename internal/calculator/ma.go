package calculator

import (
	"fmt"
	"math"

	"StockFeatures/internal/model"
)

// SMA computes the simple moving average over a lookback of window rows.
// A row is defined once its window holds at least minPeriods non-NaN
// values; minPeriods <= 0 means window.
func SMA(values []float64, window, minPeriods int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("sma window %d must be positive: %w", window, model.ErrInvalidParameter)
	}
	if minPeriods <= 0 {
		minPeriods = window
	}
	if minPeriods > window {
		return nil, fmt.Errorf("sma min periods %d exceeds window %d: %w", minPeriods, window, model.ErrInvalidParameter)
	}

	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0.0, 0
		for j := start; j <= i; j++ {
			if math.IsNaN(values[j]) {
				continue
			}
			sum += values[j]
			n++
		}
		if n >= minPeriods {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// EMA computes the exponential moving average with alpha = 2/(span+1).
// minPeriods <= 0 means span.
func EMA(values []float64, span, minPeriods int) ([]float64, error) {
	if span <= 0 {
		return nil, fmt.Errorf("ema span %d must be positive: %w", span, model.ErrInvalidParameter)
	}
	if minPeriods <= 0 {
		minPeriods = span
	}
	return EWM(values, 2/float64(span+1), minPeriods)
}

// EWM computes the recursive exponentially weighted mean
//
//	ewm[0] = x[0], ewm[t] = alpha*x[t] + (1-alpha)*ewm[t-1]
//
// seeded at the first non-NaN value. NaN inputs carry the previous mean.
// Rows with fewer than minPeriods observations so far are NaN.
func EWM(values []float64, alpha float64, minPeriods int) ([]float64, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("ewm alpha %v must be in (0, 1]: %w", alpha, model.ErrInvalidParameter)
	}
	if minPeriods <= 0 {
		minPeriods = 1
	}

	out := make([]float64, len(values))
	var mean float64
	seen := 0
	for i, v := range values {
		if !math.IsNaN(v) {
			if seen == 0 {
				mean = v
			} else {
				mean = alpha*v + (1-alpha)*mean
			}
			seen++
		}
		if seen >= minPeriods {
			out[i] = mean
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// RollingStd computes the sample standard deviation (n-1 denominator) over
// a full window. Windows holding a NaN are NaN.
func RollingStd(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("std window %d must be positive: %w", window, model.ErrInvalidParameter)
	}

	out := make([]float64, len(values))
	for i := range values {
		out[i] = math.NaN()
		if i < window-1 || window < 2 {
			continue
		}
		w := values[i-window+1 : i+1]
		mean := 0.0
		for _, v := range w {
			mean += v
		}
		mean /= float64(window)
		ss := 0.0
		for _, v := range w {
			ss += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out, nil
}

// LastValid returns the most recent finite value.
func LastValid(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
			return values[i], true
		}
	}
	return 0, false
}
