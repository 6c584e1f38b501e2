// Package report renders plain-text summaries of feature tables.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"StockFeatures/internal/calculator"
	"StockFeatures/internal/features"
	"StockFeatures/internal/recorder"
)

// FormatFeatureSummary describes a feature table: its shape, date range,
// label balance and the latest value of every feature column.
func FormatFeatureSummary(name string, asOf time.Time, t *features.Table) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s features | %s\n\n", name, asOf.Format(time.DateOnly)))
	b.WriteString(fmt.Sprintf("Rows: %d | Columns: %d\n", t.Len(), len(t.Columns())))
	if t.Len() == 0 {
		b.WriteString("No rows left after consistency checks\n")
		return b.String()
	}

	idx := t.Index()
	b.WriteString(fmt.Sprintf("Range: %s .. %s\n", idx[0].Format(time.DateOnly), idx[len(idx)-1].Format(time.DateOnly)))
	if t.Label != "" {
		pos := t.Positives()
		b.WriteString(fmt.Sprintf("Label %s: %d positive (%.1f%%)\n", t.Label, pos, 100*float64(pos)/float64(t.Len())))
	}

	b.WriteString("\nLatest:\n")
	width := 0
	for _, c := range t.Features() {
		width = max(width, len(c))
	}
	for _, c := range t.Features() {
		s, err := t.Column(c)
		if err != nil {
			continue
		}
		v, ok := calculator.LastValid(s.Values)
		if !ok {
			b.WriteString(fmt.Sprintf("  %-*s  n/a\n", width, c))
			continue
		}
		b.WriteString(fmt.Sprintf("  %-*s  %s (%s)\n", width, c, formatValue(v), t.Kinds[c]))
	}
	return b.String()
}

// RunResult is the outcome of processing one ticker.
type RunResult struct {
	Ticker string
	Rows   int
	Path   string
	Err    error
}

// FormatRunSummary lists the outcome of a refresh across tickers.
func FormatRunSummary(asOf time.Time, results []RunResult) string {
	var b strings.Builder
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	b.WriteString(fmt.Sprintf("Feature refresh | %s | %d ok, %d failed\n", asOf.Format(time.DateOnly), len(results)-failed, failed))
	for _, r := range results {
		if r.Err != nil {
			b.WriteString(fmt.Sprintf("  %s: error: %v\n", r.Ticker, r.Err))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %d rows", r.Ticker, r.Rows))
		if r.Path != "" {
			b.WriteString(" -> " + r.Path)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRuns lists recorded pipeline runs for one ticker, one per line.
func FormatRuns(ticker string, runs []recorder.RunEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s runs: %d\n", ticker, len(runs)))
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("  %s  as of %s  %s", r.CreatedAt.Format(time.DateTime), r.AsOf.Format(time.DateOnly), r.Indicators))
		if r.Error != "" {
			b.WriteString("  error: " + r.Error + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf("  %d rows x %d cols, %d positive\n", r.Rows, r.Columns, r.Positives))
	}
	return b.String()
}

func formatValue(v float64) string {
	if math.Abs(v) >= 1000 {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.4f", v)
}
