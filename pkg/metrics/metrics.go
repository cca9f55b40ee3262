package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts pipeline invocations by trigger and response kind
	// (blocked, skipped, requires_approval, completed, failed)
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrsync_runs_total",
		Help: "Total number of ingestion runs by trigger and result",
	}, []string{"trigger", "result"})

	// RunDuration measures a full run from guard to notification
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hrsync_run_duration_seconds",
		Help:    "Duration of ingestion runs in seconds",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	})

	// RunInFlight is 1 while this process executes a run
	RunInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hrsync_run_in_flight",
		Help: "Whether this process is currently executing an ingestion run",
	})

	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrsync_records_written_total",
		Help: "Canonical records written per domain",
	}, []string{"domain"})

	// RowsSkipped counts rows dropped by the transformers (missing natural key or duplicates)
	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrsync_rows_skipped_total",
		Help: "Raw rows dropped during transformation per domain",
	}, []string{"domain"})

	BatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrsync_batch_failures_total",
		Help: "Write batches that failed and were isolated",
	}, []string{"domain"})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hrsync_batch_size",
		Help:    "Number of records per write batch",
		Buckets: []float64{1, 10, 25, 50, 100, 500, 1000},
	})

	// StructureChanges counts files whose columns drifted from their snapshot
	StructureChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrsync_structure_changes_total",
		Help: "Files detected with column drift",
	}, []string{"domain"})

	// StaleRunsReclaimed counts logs released by the janitor
	StaleRunsReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrsync_stale_runs_reclaimed_total",
		Help: "Import logs stuck in pending/analyzing that were marked failed",
	})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrsync_notification_failures_total",
		Help: "Notification deliveries that failed per channel and event",
	}, []string{"channel", "event"})

	// BrokerHealthy provides a binary 0/1 signal for the RabbitMQ link
	BrokerHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hrsync_broker_healthy",
		Help: "Current health of the RabbitMQ link (1 healthy, 0 down)",
	})
)
