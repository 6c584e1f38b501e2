package features

import (
	"fmt"
	"time"

	"StockFeatures/internal/frame"
	"StockFeatures/internal/model"
)

// Label rule names.
const (
	RuleBetOnMonday      = "bet-on-monday"
	RuleBetOnMondayShort = "bom"
)

// LabelRule computes a 0/1 label per row and defines the row cadence the
// filter stage keeps.
type LabelRule interface {
	Name() string
	Label(f *frame.Frame) ([]float64, error)
	Keep(ts time.Time) bool
}

// NewLabelRule builds the named rule from its parameters.
func NewLabelRule(name string, params map[string]float64) (LabelRule, error) {
	switch name {
	case RuleBetOnMonday, RuleBetOnMondayShort:
		minProfit, ok := params["min_profit"]
		if !ok {
			return nil, fmt.Errorf("label rule %q: min_profit not defined: %w", name, model.ErrInvalidParameter)
		}
		return BetOnMonday{MinProfit: minProfit}, nil
	default:
		return nil, fmt.Errorf("label rule %q: %w", name, model.ErrUnknownLabelRule)
	}
}

// BetOnMonday labels a Monday 1 when some day from that Monday to the end
// of its week trades at least MinProfit above the Monday open.
type BetOnMonday struct {
	MinProfit float64
}

func (BetOnMonday) Name() string { return RuleBetOnMonday }

// Keep retains Mondays.
func (BetOnMonday) Keep(ts time.Time) bool { return ts.Weekday() == time.Monday }

// Label scans forward from each Monday while the rows stay in the same
// ISO week and the weekday keeps increasing.
func (r BetOnMonday) Label(f *frame.Frame) ([]float64, error) {
	open, err := f.Column(model.RoleOpen)
	if err != nil {
		return nil, fmt.Errorf("label %s: %w", r.Name(), err)
	}
	high, err := f.Column(model.RoleHigh)
	if err != nil {
		return nil, fmt.Errorf("label %s: %w", r.Name(), err)
	}

	idx := open.Index
	labels := make([]float64, len(idx))
	for i := range idx {
		if dayOfWeek(idx[i]) != 0 {
			continue
		}
		current := -1
		for j := i; j < len(idx) && dayOfWeek(idx[j]) > current && sameWeek(idx[i], idx[j]); j++ {
			if high.Values[j]/open.Values[i]-1 >= r.MinProfit {
				labels[i] = 1
				break
			}
			current = dayOfWeek(idx[j])
		}
	}
	return labels, nil
}

// dayOfWeek numbers days from Monday = 0 to Sunday = 6.
func dayOfWeek(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}

func sameWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}
