package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warikan",
		Name:      "settlement_runs_total",
		Help:      "Settlement runs by outcome.",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warikan",
		Name:      "settlement_run_duration_seconds",
		Help:      "Wall time of settlement runs.",
		Buckets:   prometheus.DefBuckets,
	})

	transfersPerSettlement = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warikan",
		Name:      "settlement_transfers",
		Help:      "Transfers emitted per successful settlement run.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
	})
)

const (
	outcomeOK          = "ok"
	outcomeValidation  = "validation_error"
	outcomeConflict    = "conflict"
	outcomeConsistency = "consistency_fault"
	outcomeInternal    = "internal_error"
)
