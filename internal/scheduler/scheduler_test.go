package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockFeatures/internal/collector"
	"StockFeatures/internal/features"
	"StockFeatures/internal/metrics"
	"StockFeatures/internal/model"
	"StockFeatures/internal/notifier"
	"StockFeatures/internal/recorder"
	"StockFeatures/internal/store"
)

var now = time.Date(2024, 7, 1, 18, 30, 0, 0, time.UTC)

// failingFetcher serves generated bars except for the symbols in fail.
type failingFetcher struct {
	collector.MockFetcher
	fail map[string]bool
}

func (f *failingFetcher) Fetch(ctx context.Context, symbol string, q collector.Query) ([]model.OHLCV, error) {
	if f.fail[symbol] {
		return nil, fmt.Errorf("%s: %w", symbol, model.ErrDataSourceUnavailable)
	}
	return f.MockFetcher.Fetch(ctx, symbol, q)
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

var job = Job{
	Tickers: []string{"PETR4", "VALE3", "BAD"},
	Features: features.Config{
		Label:      features.LabelConfig{Rule: features.RuleBetOnMonday, Params: map[string]float64{"min_profit": 0.005}},
		Indicators: []features.IndicatorRequest{{Name: "sma", Params: []float64{5}}, {Name: "rsi", Params: []float64{14}}},
	},
	ExportFormat: "csv",
}

type fixture struct {
	sched    *Scheduler
	store    *store.CSVStore
	recorder *recorder.SQLiteRecorder
	notifier *captureNotifier
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	st := store.NewCSVStore(filepath.Join(dir, "bars"))
	m := metrics.New()
	fetcher := &failingFetcher{MockFetcher: collector.MockFetcher{Price: 30, Days: 120}, fail: map[string]bool{"BAD.SA": true}}
	d := collector.NewDownloader(fetcher, st, nil, m, zerolog.Nop())
	d.Suffix = "SA"

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	n := &captureNotifier{}
	j := job
	j.ExportDir = filepath.Join(dir, "features")
	s, err := NewScheduler(context.Background(), d, rec, n, m, zerolog.Nop(), j)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return fixture{sched: s, store: st, recorder: rec, notifier: n, metrics: m}
}

func TestRunNow(t *testing.T) {
	fx := newFixture(t)
	results := fx.sched.RunNow(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, []string{"BAD.SA", "PETR4.SA", "VALE3.SA"}, []string{results[0].Ticker, results[1].Ticker, results[2].Ticker})
	assert.ErrorIs(t, results[0].Err, model.ErrDataSourceUnavailable)

	for _, r := range results[1:] {
		require.NoError(t, r.Err)
		assert.Positive(t, r.Rows)
		assert.Equal(t, "2024-07-01_"+r.Ticker[:5]+"_SA_features.csv", filepath.Base(r.Path))
		_, err := os.Stat(r.Path)
		assert.NoError(t, err)

		// raw bars are cached for the day
		_, err = fx.store.Load(context.Background(), r.Ticker, store.Day(now))
		assert.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(fx.metrics.RunsTotal.WithLabelValues(metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.RunsTotal.WithLabelValues(metrics.ResultError)))
	assert.Equal(t, float64(results[1].Rows), testutil.ToFloat64(fx.metrics.FeatureRows.WithLabelValues("PETR4.SA")))

	runs, err := fx.recorder.Runs(context.Background(), "BAD.SA", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)

	runs, err = fx.recorder.Runs(context.Background(), "PETR4.SA", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, results[1].Rows, runs[0].Rows)
	assert.Equal(t, "sma:5;rsi:14", runs[0].Indicators)
	assert.Empty(t, runs[0].Error)
}

func TestRefreshTaskNotifies(t *testing.T) {
	fx := newFixture(t)
	fx.sched.refreshTask()

	require.Len(t, fx.notifier.sent, 1)
	msg := fx.notifier.sent[0]
	assert.Contains(t, msg, "Feature refresh | 2024-07-01 | 2 ok, 1 failed")
	assert.Contains(t, msg, "BAD.SA: error:")
}

// retryNotifier records the retry budget it was given.
type retryNotifier struct {
	captureNotifier
	retries []int
}

func (r *retryNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	r.retries = append(r.retries, maxRetries)
	return r.Send(ctx, text)
}

func TestRefreshTaskRetries(t *testing.T) {
	fx := newFixture(t)
	rn := &retryNotifier{}
	fx.sched.Notifier = rn
	fx.sched.refreshTask()

	assert.Equal(t, []int{SendRetries}, rn.retries)
	require.Len(t, rn.sent, 1)
	assert.Contains(t, rn.sent[0], "2 ok, 1 failed")
}

func TestRefreshTaskRetriesTelegram(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	fx := newFixture(t)
	tn := notifier.NewTelegramNotifier("tok", "1", "", zerolog.Nop())
	tn.BaseURL = srv.URL
	fx.sched.Notifier = tn
	fx.sched.refreshTask()

	assert.Equal(t, int32(2), calls.Load(), "first failure is resent")
}

func TestNewScheduler_BadFeatures(t *testing.T) {
	j := job
	j.Features.Indicators = []features.IndicatorRequest{{Name: "vwap"}}
	_, err := NewScheduler(context.Background(), nil, nil, nil, nil, zerolog.Nop(), j)
	assert.Error(t, err)
}

func TestRegisterAll(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.sched.RegisterAll("0 30 18 * * 1-5"))
	assert.Len(t, fx.sched.Cron.Entries(), 1)
	assert.Error(t, fx.sched.RegisterAll("not a schedule"))

	fx.sched.Start()
	fx.sched.Stop()
}
