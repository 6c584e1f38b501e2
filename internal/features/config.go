package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"StockFeatures/internal/calculator"
	"StockFeatures/internal/frame"
	"StockFeatures/internal/model"
)

// DefaultBollingerK is the band width multiplier used when none is set.
const DefaultBollingerK = 2.0

// Config selects the label rule, the indicator features and the optional
// stages of a pipeline run.
type Config struct {
	Label        LabelConfig        `yaml:"label"`
	Indicators   []IndicatorRequest `yaml:"indicators"`
	IncludeClose bool               `yaml:"include_close"`
	Normalize    bool               `yaml:"normalize"`
	Filter       bool               `yaml:"filter"`
	RSIMode      string             `yaml:"rsi_mode"`
	BollingerK   float64            `yaml:"bollinger_k"`
}

// LabelConfig names a label rule and its parameters. An empty rule skips
// the label stage.
type LabelConfig struct {
	Rule   string             `yaml:"rule"`
	Params map[string]float64 `yaml:"params"`
}

// IndicatorRequest asks for one indicator over one or more parameters.
type IndicatorRequest struct {
	Name   string    `yaml:"name"`
	Params []float64 `yaml:"params"`
}

// String formats the request as name:p1,p2.
func (r IndicatorRequest) String() string {
	if len(r.Params) == 0 {
		return r.Name
	}
	ps := make([]string, len(r.Params))
	for i, p := range r.Params {
		ps[i] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	return r.Name + ":" + strings.Join(ps, ",")
}

// DescribeIndicators formats every request, separated by semicolons.
func DescribeIndicators(reqs []IndicatorRequest) string {
	parts := make([]string, len(reqs))
	for i, r := range reqs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ";")
}

// plan is a validated config.
type plan struct {
	cfg     Config
	rule    LabelRule
	rsiMode calculator.RSIMode
	k       float64
	steps   []step
}

// step is one indicator computation producing one or more columns.
type step struct {
	kind   string
	window int
	macd   [3]int
}

// Validate reports the first configuration error a run would hit.
func (c Config) Validate() error {
	_, err := compile(c)
	return err
}

func compile(cfg Config) (*plan, error) {
	p := &plan{cfg: cfg, k: cfg.BollingerK}
	if p.k == 0 {
		p.k = DefaultBollingerK
	}
	if p.k < 0 || math.IsNaN(p.k) {
		return nil, fmt.Errorf("bollinger_k %v must be positive: %w", cfg.BollingerK, model.ErrInvalidParameter)
	}

	mode, err := calculator.ParseRSIMode(cfg.RSIMode)
	if err != nil {
		return nil, err
	}
	p.rsiMode = mode

	if cfg.Label.Rule != "" {
		rule, err := NewLabelRule(cfg.Label.Rule, cfg.Label.Params)
		if err != nil {
			return nil, err
		}
		p.rule = rule
	}
	if cfg.Filter && p.rule == nil {
		return nil, fmt.Errorf("filter needs a label rule: %w", model.ErrInvalidParameter)
	}

	for _, req := range cfg.Indicators {
		steps, err := compileRequest(req)
		if err != nil {
			return nil, err
		}
		p.steps = append(p.steps, steps...)
	}
	seen := make(map[string]bool)
	for _, s := range p.steps {
		for _, name := range s.columns() {
			if seen[name] {
				return nil, fmt.Errorf("feature column %q requested twice: %w", name, model.ErrInvalidParameter)
			}
			seen[name] = true
		}
	}
	if !cfg.IncludeClose && len(p.steps) == 0 {
		return nil, fmt.Errorf("no inputs included: %w", model.ErrInvalidParameter)
	}
	return p, nil
}

// columns names the feature columns a step produces before normalization.
func (s step) columns() []string {
	switch s.kind {
	case frame.KindBollinger:
		return frame.BollingerColumns(s.window)
	case frame.KindMACD:
		return []string{frame.KindMACD, frame.KindMACD + calculator.SuffixSignal}
	case frame.KindReturns:
		return []string{frame.KindReturns}
	default:
		return []string{calculator.ColumnName(s.kind, s.window)}
	}
}

func compileRequest(req IndicatorRequest) ([]step, error) {
	switch req.Name {
	case frame.KindSMA, frame.KindEMA, frame.KindRSI, frame.KindATR, frame.KindBollinger:
		if len(req.Params) == 0 {
			return nil, fmt.Errorf("indicator %q: missing window parameter: %w", req.Name, model.ErrInvalidParameter)
		}
		steps := make([]step, 0, len(req.Params))
		for _, p := range req.Params {
			w, err := window(req.Name, p)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step{kind: req.Name, window: w})
		}
		return steps, nil

	case frame.KindMACD:
		s := step{kind: req.Name, macd: [3]int{calculator.MACDShort, calculator.MACDLong, calculator.MACDSignal}}
		switch len(req.Params) {
		case 0:
		case 3:
			for i, p := range req.Params {
				w, err := window(req.Name, p)
				if err != nil {
					return nil, err
				}
				s.macd[i] = w
			}
		default:
			return nil, fmt.Errorf("indicator %q: want short,long,signal spans, got %d parameters: %w",
				req.Name, len(req.Params), model.ErrInvalidParameter)
		}
		return []step{s}, nil

	case frame.KindReturns:
		if len(req.Params) != 0 {
			return nil, fmt.Errorf("indicator %q takes no parameters: %w", req.Name, model.ErrInvalidParameter)
		}
		return []step{{kind: req.Name}}, nil

	default:
		return nil, fmt.Errorf("indicator %q, try sma, ema, rsi, atr, bb, macd or returns: %w",
			req.Name, model.ErrUnknownIndicator)
	}
}

func window(name string, p float64) (int, error) {
	if p <= 0 || p != math.Trunc(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("indicator %q: window %v must be a positive integer: %w",
			name, p, model.ErrInvalidParameter)
	}
	return int(p), nil
}
