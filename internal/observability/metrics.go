package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	statementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckframe_statements_total",
			Help: "Total number of statements sent to a SQL engine.",
		},
		[]string{"engine", "kind", "status"},
	)

	statementDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckframe_statement_duration_seconds",
			Help:    "Statement latency by engine and statement kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine", "kind"},
	)

	fileScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckframe_file_scans_total",
			Help: "Total number of table files opened by the file backend.",
		},
		[]string{"format"},
	)

	fileScanBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckframe_file_scan_bytes_total",
			Help: "Total size of table files opened by the file backend.",
		},
		[]string{"format"},
	)

	bulkLoadRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckframe_bulk_load_rows_total",
			Help: "Total number of rows bulk loaded from in-memory frames.",
		},
		[]string{"engine"},
	)
)

func init() {
	prometheus.MustRegister(
		statementsTotal,
		statementDurationSeconds,
		fileScansTotal,
		fileScanBytesTotal,
		bulkLoadRowsTotal,
	)
}

func ObserveStatement(engine, kind string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	statementsTotal.WithLabelValues(engine, kind, status).Inc()
	statementDurationSeconds.WithLabelValues(engine, kind).Observe(duration.Seconds())
}

func ObserveFileScan(format string, sizeBytes int64) {
	fileScansTotal.WithLabelValues(format).Inc()
	if sizeBytes > 0 {
		fileScanBytesTotal.WithLabelValues(format).Add(float64(sizeBytes))
	}
}

func ObserveBulkLoad(engine string, rows int) {
	if rows <= 0 {
		return
	}
	bulkLoadRowsTotal.WithLabelValues(engine).Add(float64(rows))
}
