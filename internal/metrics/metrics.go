package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TreeLifecycleTotal counts tree-lifecycle outcomes by operation and
	// outcome. Only CreateTree records to it (operation "createTree"); the
	// outcome is "completed" on success, otherwise the error's Kind string
	// (e.g. "Validation", "ConditionalCheckFailed").
	TreeLifecycleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelist_tree_lifecycle_total",
			Help: "Total number of tree lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// TreeLifecycleDuration tracks end-to-end latency by operation. Only
	// CreateTree observes it; DeleteTree latency is not recorded.
	TreeLifecycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whitelist_tree_lifecycle_duration_seconds",
			Help:    "Tree lifecycle operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// BatchWriteRetries counts unprocessed-items retry attempts per batch
	// call, surfacing how often the backoff loop in spec §4.2 engages.
	BatchWriteRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelist_batch_write_retries_total",
			Help: "Total number of batch write retry attempts",
		},
		[]string{"table", "op"},
	)

	// BatchWritePartialFailures counts batch writes that exhausted retries
	// with unprocessed items remaining (ErrPartialBatch), per spec §9.
	BatchWritePartialFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelist_batch_write_partial_failures_total",
			Help: "Total number of batch writes that exhausted retries with items still unprocessed",
		},
		[]string{"table", "op"},
	)

	// CompensatingTransitions counts compensating writes (CREATING->FAILED,
	// DELETING->FAILED) and whether the compensating write itself succeeded.
	CompensatingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelist_compensating_transitions_total",
			Help: "Total number of compensating status transitions and their outcome",
		},
		[]string{"from_status", "to_status", "outcome"},
	)

	// WhitelistEntryCount is a histogram of the entry count of each built
	// tree, labelled by operation (not by whitelist name).
	WhitelistEntryCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whitelist_entry_count",
			Help:    "Number of entries in a built whitelist tree",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		},
		[]string{"operation"},
	)

	// HTTPErrorsTotal counts errors surfaced at the HTTP boundary by kind.
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelist_http_errors_total",
			Help: "Total number of errors returned at the HTTP boundary by error kind",
		},
		[]string{"route", "error_kind"},
	)
)
