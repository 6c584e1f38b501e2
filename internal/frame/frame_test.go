package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockFeatures/internal/calculator"
	"StockFeatures/internal/model"
)

func index(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func priceTable(t *testing.T, names []string, n int) model.Table {
	t.Helper()
	cols := make([][]float64, len(names))
	for c := range cols {
		cols[c] = make([]float64, n)
		for i := range cols[c] {
			cols[c][i] = 100 + float64(i) + float64(c)*0.1 + 2*math.Sin(float64(i)/3)
		}
	}
	tbl, err := model.NewTable(index(n), names, cols)
	require.NoError(t, err)
	return tbl
}

func TestInferRoles_MixedCase(t *testing.T) {
	cols := []string{"Open", "High", "Low", "Close", "Adj Close", "Volume"}
	b := InferRoles(cols)

	want := map[model.Role]string{
		model.RoleOpen:          "Open",
		model.RoleHigh:          "High",
		model.RoleLow:           "Low",
		model.RoleClose:         "Close",
		model.RoleAdjustedClose: "Adj Close",
		model.RoleVolume:        "Volume",
	}
	assert.Equal(t, want, b.Roles())
	assert.Empty(t, b.Aliases)
}

func TestInferRoles_Variants(t *testing.T) {
	tests := []struct {
		column string
		role   model.Role
	}{
		{"adj_close", model.RoleAdjustedClose},
		{"Adjusted-Close", model.RoleAdjustedClose},
		{"AdjClose", model.RoleAdjustedClose},
		{"CLOSE", model.RoleClose},
		{"close price", model.RoleClose},
		{"vol", model.RoleVolume},
		{"o", model.RoleOpen},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			b := InferRoles([]string{tt.column})
			col, ok := b.Column(tt.role)
			assert.True(t, ok)
			assert.Equal(t, tt.column, col)
		})
	}
}

func TestInferRoles_NoMatchAndDuplicates(t *testing.T) {
	b := InferRoles([]string{"closed", "opening", "Close", "close"})
	col, ok := b.Column(model.RoleClose)
	require.True(t, ok)
	assert.Equal(t, "Close", col)
	assert.Equal(t, map[string]string{"close_2": "close"}, b.Aliases)
	_, ok = b.Column(model.RoleOpen)
	assert.False(t, ok)
}

func TestNew_ExplicitRoles(t *testing.T) {
	tbl := priceTable(t, []string{"px", "hi"}, 5)
	f, err := New(tbl, WithRoles(map[model.Role]string{model.RoleClose: "px", model.RoleHigh: "hi"}))
	require.NoError(t, err)
	assert.Equal(t, "px", f.TargetCloseColumn())
	assert.Equal(t, "Unknown", f.Name())

	_, err = New(tbl, WithRoles(map[model.Role]string{model.RoleClose: "missing"}))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	_, err = New(tbl, WithRoles(map[model.Role]string{model.RoleClose: "px", model.RoleOpen: "px"}))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	_, err = New(tbl, WithRoles(map[model.Role]string{"price": "px"}))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestTargetClose_PrefersAdjusted(t *testing.T) {
	f, err := New(priceTable(t, []string{"Close", "Adj Close"}, 5))
	require.NoError(t, err)
	assert.Equal(t, "Adj Close", f.TargetCloseColumn())

	f, err = New(priceTable(t, []string{"Open", "Close"}, 5))
	require.NoError(t, err)
	assert.Equal(t, "Close", f.TargetCloseColumn())

	f, err = New(priceTable(t, []string{"Open"}, 5))
	require.NoError(t, err)
	_, err = f.TargetClose()
	assert.ErrorIs(t, err, model.ErrMissingColumn)
	_, err = f.SMA(2, 0)
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}

func TestSetTargetClose(t *testing.T) {
	f, err := New(priceTable(t, []string{"Close"}, 4), WithName("ACME"))
	require.NoError(t, err)

	s, err := model.NewSeries("synthetic", index(4), []float64{1, 2, 3, 4})
	require.NoError(t, err)
	g, err := f.SetTargetClose(s)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", g.TargetCloseColumn())
	assert.Equal(t, "Close", f.TargetCloseColumn(), "original frame unchanged")

	sma, err := g.SMA(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.5, sma.Values[3])

	short, err := model.NewSeries("x", index(3), []float64{1, 2, 3})
	require.NoError(t, err)
	_, err = f.SetTargetClose(short)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	// values without timestamps
	_, err = f.SetTargetClose(model.Series{Name: "x", Values: []float64{1, 2, 3, 4}})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestFromSeries(t *testing.T) {
	s, err := model.NewSeries("price", index(3), []float64{1, 2, 4})
	require.NoError(t, err)
	f, err := FromSeries(s, WithName("X"))
	require.NoError(t, err)
	r, err := f.Returns()
	require.NoError(t, err)
	assert.Equal(t, KindReturns, r.Name)
	assert.Equal(t, 1.0, r.Values[2])
}

func TestSelect(t *testing.T) {
	f, err := New(priceTable(t, []string{"Open", "High", "Close"}, 5))
	require.NoError(t, err)

	g, tbl, err := f.Select("High", "Close")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, []string{"High", "Close"}, tbl.Columns())
	_, ok := g.Binding().Column(model.RoleOpen)
	assert.False(t, ok)

	g, tbl, err = f.Select("Open")
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.Equal(t, []string{"Open"}, tbl.Columns())

	_, _, err = f.Select("nope")
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}

func TestIndicators_Names(t *testing.T) {
	f, err := New(priceTable(t, []string{"Open", "High", "Low", "Close", "Volume"}, 60))
	require.NoError(t, err)

	sma, err := f.SMA(20, 0)
	require.NoError(t, err)
	assert.Equal(t, "sma_20", sma.Name)

	ema, err := f.EMA(10, 0)
	require.NoError(t, err)
	assert.Equal(t, "ema_10", ema.Name)

	rsi, err := f.RSI(14, calculator.RSIWilder)
	require.NoError(t, err)
	assert.Equal(t, "rsi_14", rsi.Name)

	macd, err := f.MACD(12, 26, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"macd", "macd_signal"}, macd.Columns())

	bb, err := f.Bollinger(20, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bb_inf_20", "bb_med_20", "bb_sup_20"}, bb.Columns())

	atr, err := f.ATR(14)
	require.NoError(t, err)
	assert.Equal(t, "atr_14", atr.Name)
	assert.True(t, math.IsNaN(atr.Values[12]))
	assert.False(t, math.IsNaN(atr.Values[13]))

	// series never alias the frame index
	sma.Index[0] = time.Time{}
	assert.False(t, f.Table().Index()[0].IsZero())
}

func TestATR_MissingLow(t *testing.T) {
	f, err := New(priceTable(t, []string{"Open", "High", "Close"}, 20))
	require.NoError(t, err)
	_, err = f.ATR(14)
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}

func TestATR_FallsBackToAdjustedClose(t *testing.T) {
	f, err := New(priceTable(t, []string{"High", "Low", "Adj Close"}, 20))
	require.NoError(t, err)
	atr, err := f.ATR(5)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(atr.Values[19]))
}

func TestFromBars(t *testing.T) {
	bars := []model.OHLCV{
		{Time: index(2)[0], Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjClose: 1.4},
		{Time: index(2)[1], Open: 1.5, High: 2.5, Low: 1, Close: 2, AdjClose: 1.9},
	}
	f, err := FromBars("ACME", bars)
	require.NoError(t, err)
	assert.Equal(t, "ACME", f.Name())
	assert.Equal(t, model.ColAdjClose, f.TargetCloseColumn())
	c, err := f.Column(model.RoleClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, c.Values)
}
