package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"StockFeatures/internal/collector"
	"StockFeatures/internal/config"
	"StockFeatures/internal/exporter"
	"StockFeatures/internal/features"
	"StockFeatures/internal/frame"
	"StockFeatures/internal/logging"
	"StockFeatures/internal/metrics"
	"StockFeatures/internal/notifier"
	"StockFeatures/internal/recorder"
	"StockFeatures/internal/report"
	"StockFeatures/internal/scheduler"
	"StockFeatures/internal/store"
	"StockFeatures/internal/ticker"
)

func main() {
	cfgPath := flag.String("config", "", "path to the YAML config (default $CONFIG_PATH or configs/config.yaml)")
	once := flag.Bool("once", false, "run the refresh job once and exit")
	csvPath := flag.String("csv", "", "compute features for a local price CSV and print a report")
	tickerName := flag.String("ticker", "", "ticker name for -csv")
	outPath := flag.String("out", "", "with -csv, write the feature table to this .csv or .xlsx file")
	runsTicker := flag.String("runs", "", "list the recorded pipeline runs of a ticker and exit")
	runsLimit := flag.Int("limit", 20, "with -runs, how many runs to list")
	flag.Parse()

	path := *cfgPath
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *csvPath != "" && len(cfg.Tickers) == 0 {
		cfg.Tickers = []string{*tickerName}
	}
	if *runsTicker != "" && len(cfg.Tickers) == 0 {
		cfg.Tickers = []string{*runsTicker}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation:\n%v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	if *csvPath != "" {
		if err := runCSV(cfg, logger, *csvPath, *tickerName, *outPath); err != nil {
			logger.Fatal().Err(err).Str("file", *csvPath).Msg("compute features")
		}
		return
	}

	if *runsTicker != "" {
		if err := listRuns(cfg, logger, *runsTicker, *runsLimit); err != nil {
			logger.Fatal().Err(err).Str("ticker", *runsTicker).Msg("list runs")
		}
		return
	}

	logger.Info().Str("config", path).Msg("featurectl starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server")
			}
		}()
		defer srv.Close()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server started")
	}

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer closeStore()

	fetcher := newFetcher(cfg)
	logger.Info().Str("source", fetcher.Name()).Msg("data source ready")

	d := collector.NewDownloader(fetcher, st, rate.NewLimiter(rate.Limit(cfg.DataSource.RatePerSecond), cfg.DataSource.Burst), m, logger)
	d.Suffix = cfg.TickerSuffix
	d.Concurrency = cfg.DataSource.Concurrency

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Recorder.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	var n notifier.Notifier = notifier.NoopNotifier{}
	if cfg.Telegram.BotToken != "" {
		n = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
	}

	start, end, err := cfg.QueryRange()
	if err != nil {
		logger.Fatal().Err(err).Msg("query range")
	}
	job := scheduler.Job{
		Tickers:      cfg.Tickers,
		Query:        collector.Query{Period: cfg.Query.Period, Interval: cfg.Query.Interval, Start: start, End: end},
		Features:     cfg.Features,
		ExportDir:    cfg.Export.Dir,
		ExportFormat: cfg.Export.Format,
	}
	sched, err := scheduler.NewScheduler(ctx, d, rec, n, m, logger, job)
	if err != nil {
		logger.Fatal().Err(err).Msg("init scheduler")
	}

	if *once {
		results := sched.RunNow(ctx)
		fmt.Print(report.FormatRunSummary(store.Day(time.Now()), results))
		for _, r := range results {
			if r.Err != nil {
				os.Exit(1)
			}
		}
		return
	}

	if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info().Msg("RUN_ON_START enabled, executing refresh now")
		go sched.RunNow(ctx)
	}

	logger.Info().Str("cron", cfg.Schedule.RefreshCron).Msg("featurectl is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping")
	cancel()
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Name {
	case "rest":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		return &collector.MockFetcher{Price: 100}
	default:
		return collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	}
}

func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, func(), error) {
	if cfg.Store.Kind == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0755); err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLiteStore(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return store.NewCSVStore(cfg.Store.Root), func() {}, nil
}

func listRuns(cfg *config.Config, logger zerolog.Logger, raw string, limit int) error {
	if cfg.Recorder.SQLitePath == "" {
		return errors.New("recorder.sqlite_path is not configured")
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath, logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	sym := ticker.Parse(raw, cfg.TickerSuffix).String()
	runs, err := rec.Runs(context.Background(), sym, limit)
	if err != nil {
		return err
	}
	fmt.Print(report.FormatRuns(sym, runs))
	return nil
}

func runCSV(cfg *config.Config, logger zerolog.Logger, path, name, out string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	t, err := store.ReadTable(file)
	if err != nil {
		return err
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	f, err := frame.New(t, frame.WithName(name))
	if err != nil {
		return err
	}
	p, err := features.New(cfg.Features, logger)
	if err != nil {
		return err
	}
	ft, err := p.Run(f)
	if err != nil {
		return err
	}
	fmt.Print(report.FormatFeatureSummary(name, store.Day(time.Now()), ft))

	if out == "" {
		return nil
	}
	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	defer dst.Close()
	if strings.EqualFold(filepath.Ext(out), "."+exporter.FormatXLSX) {
		err = exporter.WriteXLSX(dst, ft)
	} else {
		err = exporter.WriteCSV(dst, ft)
	}
	if err != nil {
		return err
	}
	logger.Info().Str("file", out).Int("rows", ft.Len()).Msg("features written")
	return dst.Close()
}
