package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	RowsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truckwatch_telemetry_rows_ingested_total",
			Help: "Total number of telemetry rows accepted into the store",
		},
	)

	RowsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truckwatch_telemetry_rows_dropped_total",
			Help: "Total number of telemetry rows dropped by validation",
		},
	)

	UploadsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truckwatch_uploads_rejected_total",
			Help: "Total number of uploads rejected as a whole",
		},
	)

	// Analysis metrics
	AnalysisRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truckwatch_analysis_runs_total",
			Help: "Total number of analysis runs",
		},
	)

	AnalysisVINFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckwatch_analysis_vin_failures_total",
			Help: "Total number of per-VIN analysis failures by reason",
		},
		[]string{"reason"},
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "truckwatch_analysis_vin_duration_seconds",
			Help:    "Time taken to analyse one VIN slice in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnomaliesDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truckwatch_anomalies_detected_total",
			Help: "Total number of anomalies appended to the anomaly store",
		},
	)

	// Notification metrics
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckwatch_notifier_deliveries_total",
			Help: "Total number of notification deliveries by target kind and outcome",
		},
		[]string{"target", "outcome"},
	)

	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "truckwatch_notifier_dropped_total",
			Help: "Total number of notification jobs dropped on a full queue",
		},
	)

	// Archive metrics
	ArchiveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckwatch_archive_rows_total",
			Help: "Total number of rows handled by the archive writer by table and outcome",
		},
		[]string{"table", "outcome"},
	)

	// API metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckwatch_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "truckwatch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Live feed
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "truckwatch_ws_clients",
			Help: "Number of connected live anomaly feed clients",
		},
	)
)

func init() {
	prometheus.MustRegister(RowsIngested)
	prometheus.MustRegister(RowsDropped)
	prometheus.MustRegister(UploadsRejected)
	prometheus.MustRegister(AnalysisRuns)
	prometheus.MustRegister(AnalysisVINFailures)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(AnomaliesDetected)
	prometheus.MustRegister(Deliveries)
	prometheus.MustRegister(NotificationsDropped)
	prometheus.MustRegister(ArchiveWrites)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(WSClients)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
