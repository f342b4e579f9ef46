package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Arbitration outcomes: reused, started, preempted, no_free, tuning_failed.
var Arbitrations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "antenna_arbitrations_total",
	Help: "Instance arbitration calls by outcome.",
}, []string{"outcome"})

// ServicesRunning tracks how many services are currently delivering.
var ServicesRunning = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "antenna_services_running",
	Help: "Number of services currently in the running state.",
})

// Preemptions counts forced subscriber displacements.
var Preemptions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "antenna_preemptions_total",
	Help: "Subscribers displaced by higher-weight requests.",
})

// Saves counts drained save-queue entries, split by whether a live
// restart was coalesced in.
var Saves = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "antenna_saves_total",
	Help: "Drained save-queue entries.",
}, []string{"restart"})

// SaveErrors counts persistence failures survived by the save worker.
var SaveErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "antenna_save_errors_total",
	Help: "Persistence failures in the save worker.",
})
