// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the pipeline reports through. Services depend on it, not on Prometheus.
type Recorder interface {
	RecordCollection(category, source string, count int)
	RecordCategoryExhausted(category string)
	RecordAIFallback(provider string)
	RecordPublish(outcome string)
	RecordSlotStatuses(counts map[string]int)
	RecordStage(stage, status string, duration time.Duration)
	RecordMetricsFetched(phase string, count int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	collected      *prometheus.CounterVec
	exhausted      *prometheus.CounterVec
	aiFallbacks    *prometheus.CounterVec
	publishes      *prometheus.CounterVec
	slotStatus     *prometheus.GaugeVec
	stageDuration  *prometheus.HistogramVec
	metricsFetched *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		collected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slate_collected_articles_total",
			Help: "Candidate articles accepted, by category and source label.",
		}, []string{"category", "source"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slate_category_exhausted_total",
			Help: "Collections that ended with no candidates.",
		}, []string{"category"}),
		aiFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slate_ai_engagement_fallback_total",
			Help: "AI engagement scores replaced by the heuristic.",
		}, []string{"provider"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slate_publish_total",
			Help: "Publish attempts by outcome.",
		}, []string{"outcome"}),
		slotStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "slate_slots",
			Help: "Today's posts by status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slate_stage_duration_seconds",
			Help:    "Pipeline stage run time.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"stage", "status"}),
		metricsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slate_post_metrics_fetched_total",
			Help: "Post metrics rows written, by phase.",
		}, []string{"phase"}),
	}

	reg.MustRegister(
		c.collected,
		c.exhausted,
		c.aiFallbacks,
		c.publishes,
		c.slotStatus,
		c.stageDuration,
		c.metricsFetched,
	)
	return c
}

func (c *Collector) RecordCollection(category, source string, count int) {
	c.collected.WithLabelValues(category, source).Add(float64(count))
}

func (c *Collector) RecordCategoryExhausted(category string) {
	c.exhausted.WithLabelValues(category).Inc()
}

func (c *Collector) RecordAIFallback(provider string) {
	c.aiFallbacks.WithLabelValues(provider).Inc()
}

func (c *Collector) RecordPublish(outcome string) {
	c.publishes.WithLabelValues(outcome).Inc()
}

// RecordSlotStatuses replaces the slot gauge with the given counts.
func (c *Collector) RecordSlotStatuses(counts map[string]int) {
	c.slotStatus.Reset()
	for status, n := range counts {
		c.slotStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (c *Collector) RecordStage(stage, status string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

func (c *Collector) RecordMetricsFetched(phase string, count int) {
	c.metricsFetched.WithLabelValues(phase).Add(float64(count))
}

// Handler serves the registry for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCollection(string, string, int)      {}
func (Nop) RecordCategoryExhausted(string)            {}
func (Nop) RecordAIFallback(string)                   {}
func (Nop) RecordPublish(string)                      {}
func (Nop) RecordSlotStatuses(map[string]int)         {}
func (Nop) RecordStage(string, string, time.Duration) {}
func (Nop) RecordMetricsFetched(string, int)          {}
