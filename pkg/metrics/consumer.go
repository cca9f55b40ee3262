package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TriggerCommands tracks commands consumed by the listener
	TriggerCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrsync_trigger_commands_total",
		Help: "Trigger commands consumed from the broker",
	}, []string{"action", "status"}) // status: success, rejected, transient

	TriggerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrsync_trigger_duration_seconds",
		Help:    "Time spent executing a consumed trigger command",
		Buckets: []float64{0.5, 1, 5, 30, 60, 300, 600},
	}, []string{"action"})
)
