// Package scheduler runs the periodic feature refresh.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockFeatures/internal/collector"
	"StockFeatures/internal/exporter"
	"StockFeatures/internal/features"
	"StockFeatures/internal/metrics"
	"StockFeatures/internal/notifier"
	"StockFeatures/internal/recorder"
	"StockFeatures/internal/report"
	"StockFeatures/internal/store"
)

// SendRetries is how many times a failed summary is resent.
const SendRetries = 3

// Job describes what one refresh does.
type Job struct {
	Tickers      []string
	Query        collector.Query
	Features     features.Config
	ExportDir    string
	ExportFormat string
}

// Scheduler manages the cron refresh task.
type Scheduler struct {
	Cron       *cron.Cron
	Downloader *collector.Downloader
	Pipeline   *features.Pipeline
	Recorder   recorder.Recorder
	Notifier   notifier.Notifier
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	Job        Job
	Ctx        context.Context

	// now is replaced in tests.
	now func() time.Time
	mu  sync.Mutex
}

// NewScheduler creates a new Scheduler. The pipeline is compiled from
// job.Features so configuration errors surface here.
func NewScheduler(ctx context.Context, d *collector.Downloader, rec recorder.Recorder, n notifier.Notifier, m *metrics.Metrics, logger zerolog.Logger, job Job) (*Scheduler, error) {
	p, err := features.New(job.Features, logger)
	if err != nil {
		return nil, fmt.Errorf("compile features: %w", err)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Downloader: d,
		Pipeline:   p,
		Recorder:   rec,
		Notifier:   n,
		Metrics:    m,
		Logger:     logger,
		Job:        job,
		Ctx:        ctx,
		now:        time.Now,
	}, nil
}

// RegisterAll registers the refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunNow executes the refresh immediately and returns per-ticker results.
func (s *Scheduler) RunNow(ctx context.Context) []report.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	asOf := store.Day(s.now())
	log := s.Logger.With().Str("as_of", asOf.Format(store.DateLayout)).Logger()
	log.Info().Int("tickers", len(s.Job.Tickers)).Msg("running refresh task")

	frames, failed := s.Downloader.DownloadAll(ctx, s.Job.Tickers, s.Job.Query, collector.DownloadOptions{Save: s.Downloader.Store != nil, AsOf: asOf})

	var results []report.RunResult
	for sym, err := range failed {
		log.Error().Stack().Err(err).Str("ticker", sym).Msg("download failed")
		s.Metrics.ObserveRun(sym, 0, err)
		s.record(recorder.NewRunEvent(sym, asOf, s.Job.Features, nil, err))
		results = append(results, report.RunResult{Ticker: sym, Err: err})
	}
	for sym, f := range frames {
		t, err := s.Pipeline.Run(f)
		s.Metrics.ObserveRun(sym, rows(t), err)
		s.record(recorder.NewRunEvent(sym, asOf, s.Job.Features, t, err))
		if err != nil {
			err = errors.WithStack(err)
			log.Error().Stack().Err(err).Str("ticker", sym).Msg("feature pipeline failed")
			results = append(results, report.RunResult{Ticker: sym, Err: err})
			continue
		}

		res := report.RunResult{Ticker: sym, Rows: t.Len()}
		if s.Job.ExportDir != "" {
			path, err := exporter.ExportFile(s.Job.ExportDir, sym, asOf, s.Job.ExportFormat, t)
			if err != nil {
				log.Error().Stack().Err(errors.WithStack(err)).Str("ticker", sym).Msg("export failed")
				res.Err = err
			}
			res.Path = path
		}
		log.Info().Str("ticker", sym).Int("rows", t.Len()).Int("positives", t.Positives()).Msg("features ready")
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })
	return results
}

func (s *Scheduler) refreshTask() {
	results := s.RunNow(s.Ctx)
	s.trySend(report.FormatRunSummary(store.Day(s.now()), results))
}

func (s *Scheduler) trySend(text string) {
	var err error
	if rn, ok := s.Notifier.(notifier.RetryNotifier); ok {
		err = rn.SendWithRetry(s.Ctx, text, SendRetries)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		s.Logger.Error().Err(err).Msg("send notification")
	}
}

func (s *Scheduler) record(evt *recorder.RunEvent) {
	if err := s.Recorder.RecordRun(evt); err != nil {
		s.Logger.Error().Err(err).Str("ticker", evt.Ticker).Msg("record run")
	}
}

func rows(t *features.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}
