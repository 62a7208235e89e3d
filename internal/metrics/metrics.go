package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	EnhanceTotal    *prometheus.CounterVec
	EnhanceDuration prometheus.Histogram
	EnhanceInFlight prometheus.Gauge
	StageDuration   *prometheus.HistogramVec

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration *prometheus.HistogramVec

	ScrapeTotal *prometheus.CounterVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	SessionsOpen        prometheus.Gauge
	LaunchFailuresTotal *prometheus.CounterVec

	EnhancerCostTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// New регистрирует метрики в глобальном реестре.
func New() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry нужен тестам, чтобы не ловить duplicate registration.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EnhanceTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webctx_enhance_requests_total",
				Help: "Total number of enhancement requests",
			},
			[]string{"status"},
		),
		EnhanceDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webctx_enhance_duration_seconds",
				Help:    "Enhancement pipeline duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		EnhanceInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "webctx_enhance_in_flight",
				Help: "Number of enhancement pipelines currently running",
			},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webctx_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),

		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webctx_search_requests_total",
				Help: "Total number of search backend requests",
			},
			[]string{"engine", "status"},
		),
		SearchRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webctx_search_request_duration_seconds",
				Help:    "Search request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"engine"},
		),

		ScrapeTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webctx_scrape_urls_total",
				Help: "Scraped URLs by outcome",
			},
			[]string{"outcome"},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webctx_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"store"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webctx_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"store"},
		),

		SessionsOpen: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "webctx_browser_sessions_open",
				Help: "Number of open browser sessions",
			},
		),
		LaunchFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webctx_browser_launch_failures_total",
				Help: "Browser launch failures by strategy",
			},
			[]string{"strategy"},
		),

		EnhancerCostTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "webctx_enhancer_cost_total",
				Help: "Accumulated enhancer cost reported by the provider",
			},
		),

		gatherer: g,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Handler отдает метрики своего реестра.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordEnhance(status string, duration time.Duration) {
	m.EnhanceTotal.WithLabelValues(status).Inc()
	m.EnhanceDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearchRequest(engine, status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(engine, status).Inc()
	m.SearchRequestDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

func (m *Metrics) RecordScrape(outcome string) {
	m.ScrapeTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCacheHit(store string) {
	m.CacheHitsTotal.WithLabelValues(store).Inc()
}

func (m *Metrics) RecordCacheMiss(store string) {
	m.CacheMissesTotal.WithLabelValues(store).Inc()
}

func (m *Metrics) SessionOpened() {
	m.SessionsOpen.Inc()
}

func (m *Metrics) SessionClosed() {
	m.SessionsOpen.Dec()
}

func (m *Metrics) RecordLaunchFailure(strategy string) {
	m.LaunchFailuresTotal.WithLabelValues(strategy).Inc()
}

func (m *Metrics) AddEnhancerCost(cost float64) {
	if cost > 0 {
		m.EnhancerCostTotal.Add(cost)
	}
}

func (m *Metrics) IncInFlight() {
	m.EnhanceInFlight.Inc()
}

func (m *Metrics) DecInFlight() {
	m.EnhanceInFlight.Dec()
}
