// Package metrics exposes Prometheus counters and histograms for the
// fetch-and-summarize pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "aifin_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec

	generateTotal   *prometheus.CounterVec
	generateLatency *prometheus.HistogramVec
	generateTokens  *prometheus.CounterVec

	runsTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers the metrics with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_fetch_total",
				Help: "Total statement fetches by statement type and result",
			},
			[]string{"type", "result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_fetch_latency_seconds",
				Help:    "Statement fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type", "result"},
		)

		generateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_generate_total",
				Help: "Total summary generations by result",
			},
			[]string{"result"},
		)
		generateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "summary_generate_latency_seconds",
				Help:    "Summary generation latency in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 120},
			},
			[]string{"result"},
		)
		generateTokens = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_tokens_total",
				Help: "Model tokens consumed by kind",
			},
			[]string{"kind"},
		)

		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analysis_runs_total",
				Help: "Total pipeline runs by outcome",
			},
			[]string{"outcome"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total statement exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			fetchTotal,
			fetchLatency,
			generateTotal,
			generateLatency,
			generateTokens,
			runsTotal,
			exportTotal,
			exportLatency,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// ObserveFetch records statement fetch latency and result.
func ObserveFetch(statementType, result string, duration time.Duration) {
	if statementType == "" {
		statementType = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if fetchTotal != nil {
		fetchTotal.WithLabelValues(statementType, result).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(statementType, result).Observe(duration.Seconds())
	}
}

// ObserveGenerate records summary generation latency and result.
func ObserveGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if generateTotal != nil {
		generateTotal.WithLabelValues(result).Inc()
	}
	if generateLatency != nil {
		generateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddTokens adds prompt and completion token counts.
func AddTokens(prompt, completion int) {
	if generateTokens == nil {
		return
	}
	if prompt > 0 {
		generateTokens.WithLabelValues("prompt").Add(float64(prompt))
	}
	if completion > 0 {
		generateTokens.WithLabelValues("completion").Add(float64(completion))
	}
}

// IncRun increments the run counter for outcome.
func IncRun(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}
