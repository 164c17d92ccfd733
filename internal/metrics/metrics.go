package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchesTotal tracks operations handed to the dispatcher per handler
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dispatches_total",
			Help: "Total number of dispatched async operations",
		},
		[]string{"handler"},
	)

	// OperationRetriesTotal tracks retry attempts beyond the first per handler
	OperationRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_operation_retries_total",
			Help: "Total number of retried operation attempts",
		},
		[]string{"handler"},
	)

	// OperationsExhaustedTotal tracks operations that failed after all attempts
	OperationsExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_operations_exhausted_total",
			Help: "Total number of operations that exhausted their retries",
		},
		[]string{"handler"},
	)

	// OperationDuration tracks wall-clock time of async operations
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_operation_duration_seconds",
			Help:    "Async operation duration in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	// CallbacksTotal tracks callback resolutions by outcome
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_callbacks_total",
			Help: "Total number of runner callbacks by resolution outcome",
		},
		[]string{"outcome"},
	)

	// CorrelationsSavedTotal tracks pending correlations written to the store
	CorrelationsSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_correlations_saved_total",
			Help: "Total number of pending correlations stored",
		},
	)

	// DeliveriesTotal tracks reply deliveries by modality and status
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Total number of reply deliveries to the originating chat",
		},
		[]string{"modality", "status"},
	)
)
