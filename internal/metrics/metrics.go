// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	batchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prscore",
		Subsystem: "pipeline",
		Name:      "batches_total",
		Help:      "Total number of evaluation batches by final status",
	}, []string{"status", "run_type"})
	itemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prscore",
		Subsystem: "pipeline",
		Name:      "items_total",
		Help:      "Total number of batch items by outcome",
	}, []string{"status"})
	judgmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prscore",
		Subsystem: "judge",
		Name:      "judgments_total",
		Help:      "Total number of judgments by result",
	}, []string{"result"})
	scoreTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prscore",
		Subsystem: "pipeline",
		Name:      "score_points_total",
		Help:      "Total final score awarded by component",
	}, []string{"component"})
	itemDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prscore",
		Subsystem: "pipeline",
		Name:      "item_duration_seconds",
		Help:      "Duration of processing one batch item in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // from 10ms to ~80s
	})
	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prscore",
		Subsystem: "pipeline",
		Name:      "batch_duration_seconds",
		Help:      "Duration of an evaluation batch in seconds",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})
	promptTokens = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prscore",
		Subsystem: "judge",
		Name:      "prompt_tokens",
		Help:      "Estimated prompt size in tokens",
		Buckets:   prometheus.ExponentialBuckets(256, 2, 8),
	})
)

func init() {
	prometheus.MustRegister(batchesTotal)
	prometheus.MustRegister(itemsTotal)
	prometheus.MustRegister(judgmentsTotal)
	prometheus.MustRegister(scoreTotal)
	prometheus.MustRegister(itemDuration)
	prometheus.MustRegister(batchDuration)
	prometheus.MustRegister(promptTokens)
}

// Judgment results.
const (
	JudgmentOK      = "ok"
	JudgmentCached  = "cached"
	JudgmentInvalid = "invalid"
	JudgmentError   = "error"
)

// ObserveBatch records a finished batch.
func ObserveBatch(status, runType string, d time.Duration) {
	batchesTotal.WithLabelValues(status, runType).Inc()
	batchDuration.Observe(d.Seconds())
}

// ObserveItem records one processed batch item.
func ObserveItem(status string, d time.Duration) {
	itemsTotal.WithLabelValues(status).Inc()
	itemDuration.Observe(d.Seconds())
}

// ObserveJudgment records a judgment call outcome.
func ObserveJudgment(result string) {
	judgmentsTotal.WithLabelValues(result).Inc()
}

// ObserveScore records awarded points for a component.
func ObserveScore(component string, score float64) {
	if score > 0 {
		scoreTotal.WithLabelValues(component).Add(score)
	}
}

// ObservePromptTokens records the size of a rendered prompt.
func ObservePromptTokens(tokens int) {
	promptTokens.Observe(float64(tokens))
}

// Handler serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
