package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "declaration_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runTotal   *prometheus.CounterVec
	runLatency *prometheus.HistogramVec

	chunkFetchTotal   *prometheus.CounterVec
	chunkFetchLatency *prometheus.HistogramVec

	meterStatusTotal *prometheus.CounterVec

	refdataLoadTotal   *prometheus.CounterVec
	refdataLoadLatency *prometheus.HistogramVec
	refdataHours       *prometheus.GaugeVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers declaration metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		runTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total declaration runs by result",
			},
			[]string{"result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Declaration run latency in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"result"},
		)

		chunkFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chunk_fetch_total",
				Help: "Total metering time series chunk fetches by result",
			},
			[]string{"result"},
		)
		chunkFetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "chunk_fetch_latency_seconds",
				Help:    "Metering time series chunk fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		meterStatusTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "meter_status_total",
				Help: "Total processed metering points by status",
			},
			[]string{"status"},
		)

		refdataLoadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refdata_load_total",
				Help: "Total reference data loads by source and result",
			},
			[]string{"source", "result"},
		)
		refdataLoadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "refdata_load_latency_seconds",
				Help:    "Reference data load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source", "result"},
		)
		refdataHours = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "refdata_hours",
				Help: "Hours in the loaded reference timeline by year",
			},
			[]string{"year"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total declaration exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Declaration export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			runTotal,
			runLatency,
			chunkFetchTotal,
			chunkFetchLatency,
			meterStatusTotal,
			refdataLoadTotal,
			refdataLoadLatency,
			refdataHours,
			exportTotal,
			exportLatency,
		)
	})
}

// ObserveRun records declaration run latency and result.
func ObserveRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if runTotal != nil {
		runTotal.WithLabelValues(result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveChunkFetch records chunk fetch latency and result.
func ObserveChunkFetch(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if chunkFetchTotal != nil {
		chunkFetchTotal.WithLabelValues(result).Inc()
	}
	if chunkFetchLatency != nil {
		chunkFetchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncMeterStatus increments the meter status counter.
func IncMeterStatus(status string) {
	if status == "" {
		status = "unknown"
	}
	if meterStatusTotal != nil {
		meterStatusTotal.WithLabelValues(status).Inc()
	}
}

// ObserveRefdataLoad records a reference data load.
func ObserveRefdataLoad(source, result string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if refdataLoadTotal != nil {
		refdataLoadTotal.WithLabelValues(source, result).Inc()
	}
	if refdataLoadLatency != nil {
		refdataLoadLatency.WithLabelValues(source, result).Observe(duration.Seconds())
	}
}

// SetRefdataHours publishes the timeline length of a loaded year.
func SetRefdataHours(year string, hours int) {
	if refdataHours != nil {
		refdataHours.WithLabelValues(year).Set(float64(hours))
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

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
