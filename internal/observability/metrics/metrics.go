package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "engine_"

	// Result labels shared with callers.
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestReadings prometheus.Counter
	ingestLatency  *prometheus.HistogramVec

	engineActive   prometheus.Gauge
	activityUpdate *prometheus.CounterVec

	alertCycleTotal    *prometheus.CounterVec
	alertCycleLatency  *prometheus.HistogramVec
	readingsProcessed  prometheus.Counter
	alertsGenerated    prometheus.Counter

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestReadings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_readings_total",
				Help: "Total sensor readings accepted",
			},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		engineActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active",
				Help: "Whether the engine is currently considered active",
			},
		)
		activityUpdate = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "activity_updates_total",
				Help: "Total active-time increments by session kind",
			},
			[]string{"session"},
		)

		alertCycleTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_cycles_total",
				Help: "Total alert processing cycles by result",
			},
			[]string{"result"},
		)
		alertCycleLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "alert_cycle_latency_seconds",
				Help:    "Alert cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		readingsProcessed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_readings_processed_total",
				Help: "Total readings scanned by the alert processor",
			},
		)
		alertsGenerated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_generated_total",
				Help: "Total threshold alerts generated",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total export downloads by format",
			},
			[]string{"format"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestReadings,
			ingestLatency,
			engineActive,
			activityUpdate,
			alertCycleTotal,
			alertCycleLatency,
			readingsProcessed,
			alertsGenerated,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records one ingest request with its reading count.
func ObserveIngest(readings int, duration time.Duration, ok bool) {
	result := ResultSuccess
	if !ok {
		result = ResultError
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if ok && readings > 0 && ingestReadings != nil {
		ingestReadings.Add(float64(readings))
	}
}

// SetEngineActive sets the engine activity gauge.
func SetEngineActive(active bool) {
	if engineActive == nil {
		return
	}
	if active {
		engineActive.Set(1)
	} else {
		engineActive.Set(0)
	}
}

// IncActivityUpdate increments the active-time increment counter.
func IncActivityUpdate(session string) {
	if session == "" {
		session = "unknown"
	}
	if activityUpdate != nil {
		activityUpdate.WithLabelValues(session).Inc()
	}
}

// ObserveAlertCycle records an alert cycle result and duration.
func ObserveAlertCycle(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if alertCycleTotal != nil {
		alertCycleTotal.WithLabelValues(result).Inc()
	}
	if alertCycleLatency != nil {
		alertCycleLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddReadingsProcessed adds to the processed readings counter.
func AddReadingsProcessed(count int) {
	if count <= 0 {
		return
	}
	if readingsProcessed != nil {
		readingsProcessed.Add(float64(count))
	}
}

// AddAlertsGenerated adds to the generated alerts counter.
func AddAlertsGenerated(count int) {
	if count <= 0 {
		return
	}
	if alertsGenerated != nil {
		alertsGenerated.Add(float64(count))
	}
}

// ObserveExport records one export download.
func ObserveExport(format string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format).Observe(duration.Seconds())
	}
}
