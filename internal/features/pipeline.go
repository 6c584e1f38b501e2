// Package features turns a role-bound price frame into a supervised
// learning table: a label column plus indicator features, optionally
// normalized and filtered, with warm-up and zero-division rows trimmed.
package features

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"StockFeatures/internal/calculator"
	"StockFeatures/internal/frame"
	"StockFeatures/internal/model"
)

// Kind tags the computation that produced a feature column.
type Kind string

const (
	KindClose      Kind = "close"
	KindSMA        Kind = frame.KindSMA
	KindEMA        Kind = frame.KindEMA
	KindRSI        Kind = frame.KindRSI
	KindATR        Kind = frame.KindATR
	KindMACD       Kind = frame.KindMACD
	KindMACDSignal Kind = frame.KindMACD + calculator.SuffixSignal
	KindReturns    Kind = frame.KindReturns
	KindBandInf    Kind = frame.KindBollinger + calculator.SuffixInf
	KindBandMed    Kind = frame.KindBollinger + calculator.SuffixMed
	KindBandSup    Kind = frame.KindBollinger + calculator.SuffixSup
	KindPercentB   Kind = frame.KindBollinger
	KindLabel      Kind = "label"
)

// Column names fixed by the pipeline.
const (
	CloseColumn = "close"
	LabelColumn = "target"
)

// Table is a feature table: the pipeline output columns with their kinds.
type Table struct {
	model.Table
	Kinds map[string]Kind
	// Label is the label column name, empty when no label rule ran.
	Label string
}

// Features returns every column except the label, in order.
func (t *Table) Features() []string {
	var out []string
	for _, c := range t.Columns() {
		if c != t.Label {
			out = append(out, c)
		}
	}
	return out
}

// Positives counts rows labeled 1.
func (t *Table) Positives() int {
	if t.Label == "" {
		return 0
	}
	n := 0
	for i := 0; i < t.Len(); i++ {
		if t.Value(t.Label, i) == 1 {
			n++
		}
	}
	return n
}

type column struct {
	name   string
	kind   Kind
	window int
	values []float64
}

// Pipeline runs the label, feature, normalize, filter and consistency
// stages for one config. It never modifies its input frame.
type Pipeline struct {
	plan   *plan
	logger zerolog.Logger
}

// New validates cfg. Unknown label rules or indicators and missing
// parameters fail here, before any computation.
func New(cfg Config, logger zerolog.Logger) (*Pipeline, error) {
	p, err := compile(cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{plan: p, logger: logger}, nil
}

// Run builds the feature table for f.
func Run(f *frame.Frame, cfg Config) (*Table, error) {
	p, err := New(cfg, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return p.Run(f)
}

// Run builds the feature table for f.
func (p *Pipeline) Run(f *frame.Frame) (*Table, error) {
	var labels []float64
	if p.plan.rule != nil {
		var err error
		labels, err = p.plan.rule.Label(f)
		if err != nil {
			return nil, err
		}
	}

	closes, err := f.TargetClose()
	if err != nil {
		return nil, err
	}

	var cols []column
	if p.plan.cfg.IncludeClose {
		cols = append(cols, column{name: CloseColumn, kind: KindClose, values: closes.Values})
	}
	for _, s := range p.plan.steps {
		generated, err := p.generate(f, s)
		if err != nil {
			return nil, err
		}
		cols = append(cols, generated...)
	}

	if p.plan.cfg.Normalize {
		cols, err = normalize(cols, closes.Values)
		if err != nil {
			return nil, err
		}
	}
	if labels != nil {
		cols = append(cols, column{name: LabelColumn, kind: KindLabel, values: labels})
	}

	t, kinds, err := assemble(f, cols)
	if err != nil {
		return nil, err
	}
	if p.plan.cfg.Filter {
		rule := p.plan.rule
		index := t.Index()
		t = t.Rows(func(i int) bool { return rule.Keep(index[i]) })
	}
	raw := t.Len()
	t = consistent(t)

	out := &Table{Table: t, Kinds: kinds}
	if labels != nil {
		out.Label = LabelColumn
	}
	p.logger.Debug().
		Str("ticker", f.Name()).
		Int("rows", out.Len()).
		Int("trimmed", raw-out.Len()).
		Strs("columns", out.Columns()).
		Msg("inputs are ready for analysis")
	return out, nil
}

func (p *Pipeline) generate(f *frame.Frame, s step) ([]column, error) {
	single := func(series model.Series, err error) ([]column, error) {
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", s.kind, err)
		}
		return []column{{name: series.Name, kind: Kind(s.kind), window: s.window, values: series.Values}}, nil
	}

	switch s.kind {
	case frame.KindSMA:
		return single(f.SMA(s.window, 0))
	case frame.KindEMA:
		return single(f.EMA(s.window, 0))
	case frame.KindRSI:
		return single(f.RSI(s.window, p.plan.rsiMode))
	case frame.KindATR:
		return single(f.ATR(s.window))
	case frame.KindReturns:
		return single(f.Returns())
	case frame.KindBollinger:
		bands, err := f.Bollinger(s.window, p.plan.k)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", s.kind, err)
		}
		return tableColumns(bands, []Kind{KindBandInf, KindBandMed, KindBandSup}, s.window)
	case frame.KindMACD:
		t, err := f.MACD(s.macd[0], s.macd[1], s.macd[2])
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", s.kind, err)
		}
		return tableColumns(t, []Kind{KindMACD, KindMACDSignal}, 0)
	default:
		return nil, fmt.Errorf("indicator %q: %w", s.kind, model.ErrUnknownIndicator)
	}
}

func tableColumns(t model.Table, kinds []Kind, window int) ([]column, error) {
	names := t.Columns()
	if len(names) != len(kinds) {
		return nil, fmt.Errorf("expected %d columns, got %d: %w", len(kinds), len(names), model.ErrInvalidParameter)
	}
	out := make([]column, len(names))
	for i, name := range names {
		s, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out[i] = column{name: name, kind: kinds[i], window: window, values: s.Values}
	}
	return out, nil
}

// normalize rescales columns by kind: moving averages as a ratio to the
// close, rsi to [0, 1], and each band triple collapsed into one percent-b
// column. Other kinds pass through.
func normalize(cols []column, closes []float64) ([]column, error) {
	bands := make(map[int]map[Kind][]float64)
	for _, c := range cols {
		switch c.kind {
		case KindBandInf, KindBandMed, KindBandSup:
			if bands[c.window] == nil {
				bands[c.window] = make(map[Kind][]float64)
			}
			bands[c.window][c.kind] = c.values
		}
	}

	out := make([]column, 0, len(cols))
	for _, c := range cols {
		switch c.kind {
		case KindSMA, KindEMA:
			v := make([]float64, len(c.values))
			for i := range v {
				v[i] = c.values[i] / closes[i]
			}
			c.values = v
		case KindRSI:
			v := make([]float64, len(c.values))
			for i := range v {
				v[i] = c.values[i] / 100
			}
			c.values = v
		case KindBandInf:
			b := bands[c.window]
			pb, err := calculator.PercentB(closes, b[KindBandInf], b[KindBandSup])
			if err != nil {
				return nil, err
			}
			c = column{name: calculator.ColumnName(frame.KindBollinger, c.window), kind: KindPercentB, window: c.window, values: pb}
		case KindBandMed, KindBandSup:
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func assemble(f *frame.Frame, cols []column) (model.Table, map[string]Kind, error) {
	names := make([]string, len(cols))
	values := make([][]float64, len(cols))
	kinds := make(map[string]Kind, len(cols))
	for i, c := range cols {
		if _, dup := kinds[c.name]; dup {
			return model.Table{}, nil, fmt.Errorf("feature column %q requested twice: %w", c.name, model.ErrInvalidParameter)
		}
		names[i] = c.name
		values[i] = c.values
		kinds[c.name] = c.kind
	}
	t, err := model.NewTable(f.Table().Index(), names, values)
	if err != nil {
		return model.Table{}, nil, err
	}
	return t, kinds, nil
}

// consistent drops rows holding NaN, then every row from the start through
// the last row holding an infinity.
func consistent(t model.Table) model.Table {
	names := t.Columns()
	t = t.Rows(func(i int) bool {
		for _, n := range names {
			if math.IsNaN(t.Value(n, i)) {
				return false
			}
		}
		return true
	})

	last := -1
	for i := 0; i < t.Len(); i++ {
		for _, n := range names {
			if math.IsInf(t.Value(n, i), 0) {
				last = i
				break
			}
		}
	}
	if last >= 0 {
		t = t.Slice(last+1, t.Len())
	}
	return t
}
