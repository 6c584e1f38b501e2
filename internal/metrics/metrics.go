// Package metrics holds the Prometheus instrumentation of downloads and
// feature pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds all collectors.
type Metrics struct {
	FetchesTotal  *prometheus.CounterVec   // labels: source, result
	FetchDuration *prometheus.HistogramVec // labels: source
	RunsTotal     *prometheus.CounterVec   // labels: result
	FeatureRows   *prometheus.GaugeVec     // labels: ticker

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockfeatures_fetches_total",
			Help: "Price data fetches by source and result",
		}, []string{"source", "result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockfeatures_fetch_duration_seconds",
			Help:    "Price data fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockfeatures_pipeline_runs_total",
			Help: "Feature pipeline runs by result",
		}, []string{"result"}),
		FeatureRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockfeatures_feature_rows",
			Help: "Rows in the latest feature table per ticker",
		}, []string{"ticker"}),
		gatherer: reg,
	}
	reg.MustRegister(m.FetchesTotal, m.FetchDuration, m.RunsTotal, m.FeatureRows)
	return m
}

// ObserveFetch records one fetch.
func (m *Metrics) ObserveFetch(source string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
	m.FetchesTotal.WithLabelValues(source, result(err)).Inc()
}

// ObserveRun records one pipeline run and its row count.
func (m *Metrics) ObserveRun(ticker string, rows int, err error) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.FeatureRows.WithLabelValues(ticker).Set(float64(rows))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
