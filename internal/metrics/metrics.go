// Package metrics exposes Prometheus collectors for the generation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campusme"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	renders       *prometheus.CounterVec
	renderSeconds *prometheus.HistogramVec
	poolInUse     prometheus.Gauge
	artifacts     prometheus.Gauge
	trackedFiles  prometheus.Gauge
	reclaimed     prometheus.Counter
	memoryUsed    prometheus.Gauge
	healthTier    *prometheus.GaugeVec
	accesses      prometheus.Counter
	processRSS    prometheus.Gauge
	processCPU    prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "generation_requests_total",
			Help: "Generation requests by admission outcome and final status.",
		}, []string{"status"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "render_outcomes_total",
			Help: "Render attempts by format and result.",
		}, []string{"format", "result"}),
		renderSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "render_duration_seconds",
			Help:    "Wall time of individual renders.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"format"}),
		poolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "render_pool_in_use",
			Help: "Render worker slots currently held.",
		}),
		artifacts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "artifacts",
			Help: "Artifacts currently registered.",
		}),
		trackedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tracked_files",
			Help: "Stored files awaiting expiry.",
		}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_reclaimed_total",
			Help: "Stored files deleted by sweeps, releases and cleanup.",
		}),
		memoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "memory_used_percent",
			Help: "System memory in use at the last health check.",
		}),
		healthTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "health_tier",
			Help: "1 for the tier reported by the last health check, 0 otherwise.",
		}, []string{"tier"}),
		accesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "artifact_accesses_total",
			Help: "Artifact info lookups and completed downloads.",
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_resident_bytes",
			Help: "Resident memory of the service at the last status check.",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_percent",
			Help: "CPU use of the service between the last two status checks, summed over cores.",
		}),
	}
	reg.MustRegister(
		m.requests, m.renders, m.renderSeconds, m.poolInUse, m.artifacts,
		m.trackedFiles, m.reclaimed, m.memoryUsed, m.healthTier, m.accesses,
		m.processRSS, m.processCPU,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

func (m *Metrics) Request(status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(status).Inc()
}

func (m *Metrics) Render(format models.Format, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.renders.WithLabelValues(string(format), result).Inc()
	m.renderSeconds.WithLabelValues(string(format)).Observe(d.Seconds())
}

func (m *Metrics) PoolInUse(n int) {
	if m == nil {
		return
	}
	m.poolInUse.Set(float64(n))
}

func (m *Metrics) Artifacts(n int) {
	if m == nil {
		return
	}
	m.artifacts.Set(float64(n))
}

func (m *Metrics) Reclaimed(n, remaining int) {
	if m == nil {
		return
	}
	m.reclaimed.Add(float64(n))
	m.trackedFiles.Set(float64(remaining))
}

func (m *Metrics) Tracked(n int) {
	if m == nil {
		return
	}
	m.trackedFiles.Set(float64(n))
}

func (m *Metrics) Access() {
	if m == nil {
		return
	}
	m.accesses.Inc()
}

// Health records a snapshot.
func (m *Metrics) Health(s models.HealthSnapshot) {
	if m == nil {
		return
	}
	m.memoryUsed.Set(s.UsedPercent)
	for _, tier := range []models.HealthTier{models.TierHealthy, models.TierWarning, models.TierCritical} {
		v := 0.0
		if tier == s.Tier {
			v = 1
		}
		m.healthTier.WithLabelValues(string(tier)).Set(v)
	}
}

func (m *Metrics) Process(s models.ProcessStats) {
	if m == nil {
		return
	}
	m.processRSS.Set(float64(s.ResidentBytes))
	m.processCPU.Set(s.CPUPercent)
}
