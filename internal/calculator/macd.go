package calculator

import (
	"fmt"

	"StockFeatures/internal/model"
)

// Default MACD spans.
const (
	MACDShort  = 12
	MACDLong   = 26
	MACDSignal = 9
)

// MACD returns the MACD line, EMA(short) - EMA(long), and its signal line,
// EMA(line, signal). Each EMA needs its full span before it is defined.
func MACD(values []float64, short, long, signal int) (line, signalLine []float64, err error) {
	if short <= 0 || long <= 0 || signal <= 0 {
		return nil, nil, fmt.Errorf("macd spans %d/%d/%d must be positive: %w",
			short, long, signal, model.ErrInvalidParameter)
	}
	fast, err := EMA(values, short, short)
	if err != nil {
		return nil, nil, err
	}
	slow, err := EMA(values, long, long)
	if err != nil {
		return nil, nil, err
	}
	line = make([]float64, len(values))
	for i := range values {
		line[i] = fast[i] - slow[i]
	}
	signalLine, err = EMA(line, signal, signal)
	if err != nil {
		return nil, nil, err
	}
	return line, signalLine, nil
}
