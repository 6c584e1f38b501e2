package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockFeatures/internal/model"
)

func testTable(t *testing.T, names ...string) model.Table {
	t.Helper()
	idx := make([]time.Time, len(prices))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range idx {
		idx[i] = start.AddDate(0, 0, i)
	}
	cols := make([][]float64, len(names))
	for i := range names {
		cols[i] = prices
	}
	tbl, err := model.NewTable(idx, names, cols)
	require.NoError(t, err)
	return tbl
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "sma_20", ColumnName("sma", 20))
}

func TestMACDTable_Columns(t *testing.T) {
	out, err := MACDTable(testTable(t, "a", "b"), 3, 6, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_signal", "b", "b_signal"}, out.Columns())
}

func TestBollingerTable_Columns(t *testing.T) {
	out, err := BollingerTable(testTable(t, "x"), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"x_inf", "x_med", "x_sup"}, out.Columns())
	assert.Equal(t, len(prices), out.Len())
}

func TestSMATable_KeepsNames(t *testing.T) {
	in := testTable(t, "close", "open")
	out, err := SMATable(in, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, in.Columns(), out.Columns())
	want, err := SMA(prices, 3, 0)
	require.NoError(t, err)
	assert.InDelta(t, want[10], out.Value("open", 10), 1e-12)
}

func TestTableOps_PropagateErrors(t *testing.T) {
	_, err := EMATable(testTable(t, "c"), 0, 0)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
	_, err = RSITable(testTable(t, "c"), 14, "bogus")
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	r, err := ReturnsTable(testTable(t, "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, r.Columns())
}
