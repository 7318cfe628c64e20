// SPDX-License-Identifier: MIT
// Package metrics exposes engine activity as Prometheus metrics. Metrics is a
// session.Observer; register it with session.WithObserver.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/internal/rppg"
	"pulse/internal/session"
)

const namespace = "pulse"

// Metrics holds the engine collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	heartRate     prometheus.Gauge
	quality       prometheus.Gauge
	bufferSamples prometheus.Gauge
	sessionState  prometheus.Gauge
	skinCoverage  prometheus.Gauge

	samplesAccepted     prometheus.Counter
	framesDropped       *prometheus.CounterVec
	estimates           prometheus.Counter
	acquisitionFailures prometheus.Counter
}

// New creates the collectors and registers them, together with the Go runtime and
// process collectors, on a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		heartRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heart_rate_bpm",
			Help:      "Most recent heart-rate estimate in beats per minute.",
		}),
		quality: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_quality",
			Help:      "Most recent signal quality score (0-100).",
		}),
		bufferSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_samples",
			Help:      "Samples currently held in the sliding window.",
		}),
		sessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Session state: 0 idle, 1 acquiring, 2 streaming, 3 error.",
		}),
		skinCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skin_coverage",
			Help:      "Skin fraction (0-1) of the region of interest in the last sampled frame.",
		}),
		samplesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_accepted_total",
			Help:      "Samples pushed into the sliding window.",
		}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Ticks that produced no sample, by reason.",
		}, []string{"reason"}),
		estimates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_total",
			Help:      "Heart-rate estimates published.",
		}),
		acquisitionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_failures_total",
			Help:      "Camera acquisitions that failed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.heartRate,
		m.quality,
		m.bufferSamples,
		m.sessionState,
		m.skinCoverage,
		m.samplesAccepted,
		m.framesDropped,
		m.estimates,
		m.acquisitionFailures,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) FrameSampled(stats rppg.Stats) {
	m.skinCoverage.Set(stats.Coverage())
}

func (m *Metrics) SampleAccepted(_ float64, bufferLen int) {
	m.samplesAccepted.Inc()
	m.bufferSamples.Set(float64(bufferLen))
}

func (m *Metrics) FrameDropped(reason session.DropReason) {
	m.framesDropped.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) Estimated(res rppg.Result) {
	m.estimates.Inc()
	m.heartRate.Set(float64(res.HeartRate))
	m.quality.Set(res.Quality)
}

func (m *Metrics) StateChanged(state session.State) {
	m.sessionState.Set(float64(state))
	if state != session.StateStreaming {
		m.heartRate.Set(0)
		m.quality.Set(0)
		m.bufferSamples.Set(0)
		m.skinCoverage.Set(0)
	}
}

func (m *Metrics) AcquisitionFailed(error) {
	m.acquisitionFailures.Inc()
}

var _ session.Observer = (*Metrics)(nil)
