// Package recorder keeps a history of feature pipeline runs.
package recorder

import (
	"time"

	"github.com/google/uuid"

	"StockFeatures/internal/features"
)

// RunEvent describes one feature pipeline run for a ticker.
type RunEvent struct {
	ID         uuid.UUID
	Ticker     string
	AsOf       time.Time
	LabelRule  string
	Indicators string
	Rows       int
	Columns    int
	Positives  int
	Error      string
	CreatedAt  time.Time
}

// NewRunEvent summarizes a pipeline result. A nil table with a non-nil
// runErr records a failed run.
func NewRunEvent(ticker string, asOf time.Time, cfg features.Config, t *features.Table, runErr error) *RunEvent {
	evt := &RunEvent{
		ID:         uuid.New(),
		Ticker:     ticker,
		AsOf:       asOf,
		LabelRule:  cfg.Label.Rule,
		Indicators: features.DescribeIndicators(cfg.Indicators),
		CreatedAt:  time.Now().UTC(),
	}
	if t != nil {
		evt.Rows = t.Len()
		evt.Columns = len(t.Columns())
		evt.Positives = t.Positives()
	}
	if runErr != nil {
		evt.Error = runErr.Error()
	}
	return evt
}

// Recorder persists run history for analysis.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	Close() error
}
