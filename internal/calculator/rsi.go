package calculator

import (
	"fmt"
	"math"

	"StockFeatures/internal/model"
)

// RSIMode selects how average gains and losses are smoothed.
type RSIMode string

const (
	// RSIWilder seeds the averages with the simple mean of the first window
	// deltas, then smooths recursively with alpha = 1/(window+1).
	RSIWilder RSIMode = "wilder"
	// RSIEWM smooths gains and losses from the first delta with
	// alpha = 1/window.
	RSIEWM RSIMode = "ewm"
)

// ParseRSIMode maps a mode name to its RSIMode. The empty string selects
// RSIWilder.
func ParseRSIMode(s string) (RSIMode, error) {
	switch RSIMode(s) {
	case "", RSIWilder:
		return RSIWilder, nil
	case RSIEWM:
		return RSIEWM, nil
	default:
		return "", fmt.Errorf("rsi mode %q: %w", s, model.ErrInvalidParameter)
	}
}

// RSI computes the relative strength index over window deltas. The first
// window rows are NaN in both modes. A window without losses yields 100; a
// window without any movement yields NaN.
func RSI(values []float64, window int, mode RSIMode) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("rsi window %d must be positive: %w", window, model.ErrInvalidParameter)
	}

	gains, losses := splitDeltas(values)
	switch mode {
	case RSIWilder, "":
		return rsiWilder(gains, losses, window), nil
	case RSIEWM:
		return rsiEWM(gains, losses, window)
	default:
		return nil, fmt.Errorf("rsi mode %q: %w", mode, model.ErrInvalidParameter)
	}
}

// splitDeltas returns per-row gains and losses; row 0 has no delta and is
// NaN in both.
func splitDeltas(values []float64) (gains, losses []float64) {
	gains = make([]float64, len(values))
	losses = make([]float64, len(values))
	for i := range values {
		if i == 0 {
			gains[i], losses[i] = math.NaN(), math.NaN()
			continue
		}
		d := values[i] - values[i-1]
		switch {
		case math.IsNaN(d):
			gains[i], losses[i] = math.NaN(), math.NaN()
		case d > 0:
			gains[i] = d
		default:
			losses[i] = -d
		}
	}
	return gains, losses
}

func rsiWilder(gains, losses []float64, window int) []float64 {
	out := make([]float64, len(gains))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(gains) <= window {
		return out
	}

	var avgGain, avgLoss float64
	n := 0
	for i := 1; i <= window; i++ {
		if math.IsNaN(gains[i]) {
			continue
		}
		avgGain += gains[i]
		avgLoss += losses[i]
		n++
	}
	if n == 0 {
		return out
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out[window] = relativeStrength(avgGain, avgLoss)

	alpha := 1 / float64(window+1)
	for i := window + 1; i < len(gains); i++ {
		if math.IsNaN(gains[i]) {
			continue
		}
		avgGain = alpha*gains[i] + (1-alpha)*avgGain
		avgLoss = alpha*losses[i] + (1-alpha)*avgLoss
		out[i] = relativeStrength(avgGain, avgLoss)
	}
	return out
}

func rsiEWM(gains, losses []float64, window int) ([]float64, error) {
	alpha := 1 / float64(window)
	avgGain, err := EWM(gains, alpha, window)
	if err != nil {
		return nil, err
	}
	avgLoss, err := EWM(losses, alpha, window)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(gains))
	for i := range out {
		out[i] = relativeStrength(avgGain[i], avgLoss[i])
	}
	return out, nil
}

func relativeStrength(avgGain, avgLoss float64) float64 {
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
