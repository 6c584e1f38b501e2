package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) []time.Time {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestNewSeries_ReversesDescending(t *testing.T) {
	idx := days(3)
	desc := []time.Time{idx[2], idx[1], idx[0]}
	s, err := NewSeries("close", desc, []float64{3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, idx, s.Index)
	assert.Equal(t, []float64{1, 2, 3}, s.Values)
}

func TestNewSeries_RejectsUnordered(t *testing.T) {
	idx := days(3)
	_, err := NewSeries("close", []time.Time{idx[0], idx[2], idx[1]}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewSeries("close", idx, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSeries_Rename(t *testing.T) {
	s, err := NewSeries("x", days(4), []float64{1, 2, 3, 4})
	require.NoError(t, err)
	r := s.Rename("y")
	assert.Equal(t, "y", r.Name)
	assert.Equal(t, "x", s.Name)
}

func TestNewTable_CopiesInput(t *testing.T) {
	col := []float64{1, 2, 3}
	tbl, err := NewTable(days(3), []string{"a"}, [][]float64{col})
	require.NoError(t, err)
	col[0] = 99
	assert.Equal(t, 1.0, tbl.Value("a", 0))

	s, err := tbl.Column("a")
	require.NoError(t, err)
	s.Values[1] = 42
	assert.Equal(t, 2.0, tbl.Value("a", 1))
}

func TestNewTable_Validation(t *testing.T) {
	_, err := NewTable(days(2), []string{"a", "a"}, [][]float64{{1, 2}, {3, 4}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewTable(days(2), []string{"a"}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewTable(days(2), []string{""}, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestTable_ColumnOps(t *testing.T) {
	tbl, err := NewTable(days(3), []string{"a", "b"}, [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)

	_, err = tbl.Column("c")
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.True(t, tbl.Has("b"))

	with, err := tbl.WithColumn("c", []float64{7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, with.Columns())
	assert.Equal(t, []string{"a", "b"}, tbl.Columns(), "original untouched")

	replaced, err := with.WithColumn("a", []float64{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, replaced.Columns())
	assert.Equal(t, 0.0, replaced.Value("a", 2))

	sel, err := with.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())
	_, err = with.Select("z")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestTable_RowsAndSlice(t *testing.T) {
	tbl, err := NewTable(days(5), []string{"a"}, [][]float64{{1, 2, 3, 4, 5}})
	require.NoError(t, err)

	even := tbl.Rows(func(i int) bool { return i%2 == 0 })
	assert.Equal(t, 3, even.Len())
	assert.Equal(t, 5.0, even.Value("a", 2))

	tail := tbl.Slice(3, 5)
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, days(5)[3], tail.Index()[0])

	empty := tbl.Rows(func(int) bool { return false })
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, []string{"a"}, empty.Columns())
}

func TestTableFromSeries_IndexMismatch(t *testing.T) {
	a, err := NewSeries("a", days(3), []float64{1, 2, 3})
	require.NoError(t, err)
	b, err := NewSeries("b", days(4)[1:], []float64{1, 2, 3})
	require.NoError(t, err)
	_, err = TableFromSeries(a, b)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBarsRoundTrip(t *testing.T) {
	idx := days(2)
	bars := []OHLCV{
		{Time: idx[1], Open: 2, High: 3, Low: 1, Close: 2.5, AdjClose: 2.4, Volume: 10},
		{Time: idx[0], Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 20},
	}
	SortBars(bars)
	assert.Equal(t, idx[0], bars[0].Time)

	tbl, err := TableFromBars(bars)
	require.NoError(t, err)
	assert.Equal(t, BarColumns, tbl.Columns())
	assert.Equal(t, 1.5, tbl.Value(ColAdjClose, 0), "zero adj close falls back to close")
	assert.Equal(t, 2.4, tbl.Value(ColAdjClose, 1))
	assert.Equal(t, 20.0, tbl.Value(ColVolume, 0))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("adjusted_close")
	require.NoError(t, err)
	assert.Equal(t, RoleAdjustedClose, r)
	_, err = ParseRole("Close")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
