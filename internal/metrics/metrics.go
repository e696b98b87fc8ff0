// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package metrics holds the Prometheus collectors of fits and preanalysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Fits       *prometheus.CounterVec
	FitErrors  *prometheus.CounterVec
	FitSeconds *prometheus.HistogramVec
	Resamples  *prometheus.CounterVec
}

// New creates and registers all metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Fits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geox_fits_total",
				Help: "Number of completed fits per estimator",
			},
			[]string{"estimator"},
		),
		FitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geox_fit_errors_total",
				Help: "Number of failed fits per estimator",
			},
			[]string{"estimator"},
		),
		FitSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geox_fit_seconds",
				Help:    "Wall time of a fit per estimator",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"estimator"},
		),
		Resamples: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geox_preanalysis_resamples_total",
				Help: "Number of preanalysis resamples by outcome (ok, failed, cancelled)",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the private registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFit records one fit of the given estimator started at start.
func (m *Metrics) ObserveFit(estimator string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.FitSeconds.WithLabelValues(estimator).Observe(time.Since(start).Seconds())
	if err != nil {
		m.FitErrors.WithLabelValues(estimator).Inc()
		return
	}
	m.Fits.WithLabelValues(estimator).Inc()
}

// ObserveResample counts one resample outcome.
func (m *Metrics) ObserveResample(outcome string) {
	if m == nil {
		return
	}
	m.Resamples.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
