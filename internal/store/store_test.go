package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockFeatures/internal/model"
)

var asOf = time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)

func sampleBars() []model.OHLCV {
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, 5)
	for i := range bars {
		p := 10 + float64(i)
		bars[i] = model.OHLCV{
			Time:     start.AddDate(0, 0, i),
			Open:     p,
			High:     p + 0.5,
			Low:      p - 0.5,
			Close:    p + 0.25,
			AdjClose: p + 0.2,
			Volume:   1000 * float64(i+1),
		}
	}
	return bars
}

func TestCSVStore_SaveLoad(t *testing.T) {
	s := NewCSVStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "PETR4.SA", asOf, sampleBars()))

	path := s.Path("PETR4.SA", asOf)
	assert.Equal(t, filepath.Join(s.Root, "2024-05-17", "2024-05-17_PETR4_SA.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "date,open,high,low,close,adjusted_close,volume\n2024-05-13,"))

	got, err := s.Load(ctx, "PETR4_SA", asOf)
	require.NoError(t, err)
	assert.Equal(t, sampleBars(), got)
}

func TestCSVStore_NotFound(t *testing.T) {
	s := NewCSVStore(t.TempDir())
	_, err := s.Load(context.Background(), "NOPE", asOf)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadTable_ArbitraryHeader(t *testing.T) {
	in := "Date,Open,High,Low,Close,Adj Close,Volume\n" +
		"2024-01-03,10,11,9,10.5,10.4,100\n" +
		"2024-01-02,9,10,8,9.5,,200\n"
	tbl, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Open", "High", "Low", "Close", "Adj Close", "Volume"}, tbl.Columns())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), tbl.Index()[0], "descending input reversed")
	assert.True(t, math.IsNaN(tbl.Value("Adj Close", 0)))

	bars, err := BarsFromTable(tbl)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.4, bars[1].AdjClose)
	assert.Equal(t, 200.0, bars[0].Volume)
}

func TestReadTable_Errors(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
	_, err = ReadTable(strings.NewReader("date\n2024-01-01\n"))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
	_, err = ReadTable(strings.NewReader("date,close\nyesterday,1\n"))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
	_, err = ReadTable(strings.NewReader("date,close\n2024-01-01,abc\n"))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestBarsFromTable_MissingLow(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("date,open,high,close\n2024-01-02,1,2,1.5\n"))
	require.NoError(t, err)
	_, err = BarsFromTable(tbl)
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}

func TestParseAsOf(t *testing.T) {
	got, err := ParseAsOf("2024-05-17")
	require.NoError(t, err)
	assert.Equal(t, asOf, got)

	today, err := ParseAsOf("")
	require.NoError(t, err)
	assert.Equal(t, Day(time.Now()), today)

	_, err = ParseAsOf("17/05/2024")
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bars.db"), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, err = s.Load(ctx, "ACME", asOf)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "ACME", asOf, sampleBars()))
	// saving again replaces rather than duplicates
	require.NoError(t, s.Save(ctx, "ACME", asOf, sampleBars()[:3]))

	got, err := s.Load(ctx, "ACME", asOf)
	require.NoError(t, err)
	assert.Equal(t, sampleBars()[:3], got)

	_, err = s.Load(ctx, "ACME", asOf.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}
