package calculator

import (
	"fmt"
	"math"

	"StockFeatures/internal/model"
)

// TrueRange returns max(high-low, |prevClose-low|, |high-prevClose|) per
// row. The first row, lacking a previous close, is high-low.
func TrueRange(high, low, close []float64) ([]float64, error) {
	if len(high) != len(low) || len(high) != len(close) {
		return nil, fmt.Errorf("true range: high/low/close lengths %d/%d/%d differ: %w",
			len(high), len(low), len(close), model.ErrInvalidParameter)
	}
	tr := make([]float64, len(high))
	for i := range high {
		hl := high[i] - low[i]
		if i == 0 || math.IsNaN(close[i-1]) {
			tr[i] = hl
			continue
		}
		prev := close[i-1]
		tr[i] = math.Max(hl, math.Max(math.Abs(prev-low[i]), math.Abs(high[i]-prev)))
	}
	return tr, nil
}

// ATR computes the average true range as the window SMA of the true range.
func ATR(high, low, close []float64, window int) ([]float64, error) {
	tr, err := TrueRange(high, low, close)
	if err != nil {
		return nil, err
	}
	return SMA(tr, window, window)
}
