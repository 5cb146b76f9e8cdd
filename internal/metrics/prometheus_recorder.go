package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docpipe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg               *prom.Registry
	stageDuration     *prom.HistogramVec
	buildDuration     prom.Histogram
	stageResults      *prom.CounterVec
	buildOutcome      *prom.CounterVec
	cacheLookups      *prom.CounterVec
	pluginFailures    *prom.CounterVec
	retries           *prom.CounterVec
	workerConcurrency prom.Gauge
	artifacts         prom.Counter

	mu         sync.Mutex
	maxWorkers int
}

// NewPrometheusRecorder constructs and registers the build metrics on reg (a
// fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual build stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Total build duration",
		Buckets:   prom.DefBuckets,
	})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_outcomes_total",
		Help:      "Build outcomes by final status",
	}, []string{"outcome"})
	pr.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Build cache lookups by hit/miss",
	}, []string{"hit"})
	pr.pluginFailures = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "plugin_failures_total",
		Help:      "Plugin failures by plugin and phase",
	}, []string{"plugin", "phase"})
	pr.retries = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Recovery retries by failure kind",
	}, []string{"kind"})
	pr.workerConcurrency = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_concurrency",
		Help:      "Peak concurrent chunk tasks observed in the last processing stage",
	})
	pr.artifacts = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "artifacts_total",
		Help:      "Artifacts written by emitters",
	})
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.cacheLookups, pr.pluginFailures, pr.retries, pr.workerConcurrency, pr.artifacts)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// WriteTextfile writes the current metric values in the node-exporter
// textfile format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncCacheLookup(hit bool) {
	if p == nil {
		return
	}
	p.cacheLookups.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

func (p *PrometheusRecorder) IncPluginFailure(plugin, phase string) {
	if p == nil {
		return
	}
	p.pluginFailures.WithLabelValues(plugin, phase).Inc()
}

func (p *PrometheusRecorder) IncRetry(kind string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(kind).Inc()
}

// SetWorkerConcurrency records n if it is the highest value seen since the
// gauge was last reset with a zero.
func (p *PrometheusRecorder) SetWorkerConcurrency(n int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if n == 0 {
		p.maxWorkers = 0
	}
	if n >= p.maxWorkers {
		p.maxWorkers = n
		p.workerConcurrency.Set(float64(n))
	}
}

func (p *PrometheusRecorder) AddArtifacts(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.artifacts.Add(float64(n))
}
