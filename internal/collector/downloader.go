// Package collector fetches price bars from a data source and turns them
// into frames, optionally caching them in a store.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"StockFeatures/internal/frame"
	"StockFeatures/internal/metrics"
	"StockFeatures/internal/model"
	"StockFeatures/internal/store"
	"StockFeatures/internal/ticker"
)

// DefaultConcurrency bounds in-flight fetches when Concurrency is unset.
const DefaultConcurrency = 4

// DownloadOptions controls persistence of a download.
type DownloadOptions struct {
	Save bool
	AsOf time.Time
}

// Downloader orchestrates fetching bars for many tickers.
type Downloader struct {
	Fetcher     Fetcher
	Store       store.Store
	Limiter     *rate.Limiter
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	Suffix      string
	Concurrency int
}

// NewDownloader creates a Downloader. A nil limiter means unlimited.
func NewDownloader(fetcher Fetcher, st store.Store, limiter *rate.Limiter, m *metrics.Metrics, logger zerolog.Logger) *Downloader {
	return &Downloader{
		Fetcher: fetcher,
		Store:   st,
		Limiter: limiter,
		Metrics: m,
		Logger:  logger,
	}
}

// Download fetches every ticker concurrently and returns one frame per
// ticker keyed by its provider symbol. The first failure cancels the rest.
func (d *Downloader) Download(ctx context.Context, tickers []string, q Query, opts DownloadOptions) (map[string]*frame.Frame, error) {
	if opts.Save && d.Store == nil {
		return nil, fmt.Errorf("save requested without a store: %w", model.ErrInvalidParameter)
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = store.Day(time.Now())
	}

	var mu sync.Mutex
	out := make(map[string]*frame.Frame, len(tickers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency())
	for _, raw := range tickers {
		sym := ticker.Parse(raw, d.Suffix).String()
		g.Go(func() error {
			f, err := d.fetchOne(ctx, sym, q, opts.Save, asOf)
			if err != nil {
				return err
			}
			mu.Lock()
			out[sym] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadAll is Download without fail-fast: every ticker is attempted and
// failures are returned per ticker alongside the frames that succeeded.
func (d *Downloader) DownloadAll(ctx context.Context, tickers []string, q Query, opts DownloadOptions) (map[string]*frame.Frame, map[string]error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = store.Day(time.Now())
	}

	var mu sync.Mutex
	frames := make(map[string]*frame.Frame, len(tickers))
	failed := make(map[string]error)

	var g errgroup.Group
	g.SetLimit(d.concurrency())
	for _, raw := range tickers {
		sym := ticker.Parse(raw, d.Suffix).String()
		g.Go(func() error {
			var f *frame.Frame
			var err error
			if opts.Save && d.Store == nil {
				err = fmt.Errorf("save requested without a store: %w", model.ErrInvalidParameter)
			} else {
				f, err = d.fetchOne(ctx, sym, q, opts.Save, asOf)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[sym] = err
				return nil
			}
			frames[sym] = f
			return nil
		})
	}
	_ = g.Wait()
	return frames, failed
}

func (d *Downloader) fetchOne(ctx context.Context, sym string, q Query, save bool, asOf time.Time) (*frame.Frame, error) {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("ticker %s: %w", sym, err)
		}
	}

	started := time.Now()
	bars, err := d.Fetcher.Fetch(ctx, sym, q)
	d.Metrics.ObserveFetch(d.Fetcher.Name(), started, err)
	if err != nil {
		err = errors.WithStack(err)
		d.Logger.Warn().Stack().Err(err).Str("ticker", sym).Str("source", d.Fetcher.Name()).Msg("fetch failed")
		return nil, fmt.Errorf("ticker %s: %w", sym, err)
	}
	d.Logger.Info().Str("ticker", sym).Int("bars", len(bars)).Dur("took", time.Since(started)).Msg("fetched bars")

	if save {
		if err := d.Store.Save(ctx, sym, asOf, bars); err != nil {
			return nil, fmt.Errorf("ticker %s: save: %w", sym, errors.WithStack(err))
		}
	}
	f, err := frame.FromBars(sym, bars)
	if err != nil {
		return nil, fmt.Errorf("ticker %s: %w", sym, err)
	}
	return f, nil
}

// Read loads previously saved bars for every ticker as of asOf.
func (d *Downloader) Read(ctx context.Context, tickers []string, asOf time.Time) (map[string]*frame.Frame, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("read requested without a store: %w", model.ErrInvalidParameter)
	}
	out := make(map[string]*frame.Frame, len(tickers))
	for _, raw := range tickers {
		sym := ticker.Parse(raw, d.Suffix).String()
		bars, err := d.Store.Load(ctx, sym, asOf)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", sym, errors.WithStack(err))
		}
		f, err := frame.FromBars(sym, bars)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", sym, err)
		}
		out[sym] = f
	}
	return out, nil
}

func (d *Downloader) concurrency() int {
	if d.Concurrency > 0 {
		return d.Concurrency
	}
	return DefaultConcurrency
}
