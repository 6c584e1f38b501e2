package calculator

import (
	"fmt"
	"math"

	"StockFeatures/internal/model"
)

// Bollinger returns the lower, middle and upper bands: the window SMA
// shifted by k sample standard deviations.
func Bollinger(values []float64, window int, k float64) (inf, med, sup []float64, err error) {
	if k < 0 || math.IsNaN(k) {
		return nil, nil, nil, fmt.Errorf("bollinger k %v must be non-negative: %w", k, model.ErrInvalidParameter)
	}
	med, err = SMA(values, window, window)
	if err != nil {
		return nil, nil, nil, err
	}
	std, err := RollingStd(values, window)
	if err != nil {
		return nil, nil, nil, err
	}
	inf = make([]float64, len(values))
	sup = make([]float64, len(values))
	for i := range values {
		inf[i] = med[i] - k*std[i]
		sup[i] = med[i] + k*std[i]
	}
	return inf, med, sup, nil
}

// PercentB returns where each close sits within its band, 0 at the lower
// and 1 at the upper band. A zero-width band divides by zero and yields
// an infinity or NaN.
func PercentB(close, inf, sup []float64) ([]float64, error) {
	if len(close) != len(inf) || len(close) != len(sup) {
		return nil, fmt.Errorf("percent b: %d closes for bands of %d and %d: %w",
			len(close), len(inf), len(sup), model.ErrInvalidParameter)
	}
	out := make([]float64, len(close))
	for i := range close {
		out[i] = (close[i] - inf[i]) / (sup[i] - inf[i])
	}
	return out, nil
}
