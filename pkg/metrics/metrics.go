package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qcfractal_store_operation_duration_seconds",
			Help:    "Time taken for a Store operation in seconds, by entity and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity", "operation"},
	)

	StoreEntitiesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qcfractal_store_entities_total",
			Help: "Total number of persisted records by entity collection",
		},
		[]string{"entity"},
	)

	StoreDuplicatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qcfractal_store_duplicates_total",
			Help: "Total number of duplicate records rejected on add, by entity",
		},
		[]string{"entity"},
	)

	HashCollisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qcfractal_hash_collisions_total",
			Help: "Total number of hash collisions detected on molecule add",
		},
		[]string{"entity"},
	)

	// TaskQueue metrics
	TaskQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qcfractal_task_queue_depth",
			Help: "Number of tasks currently in each status",
		},
		[]string{"status"},
	)

	TaskTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qcfractal_task_transitions_total",
			Help: "Total number of task status transitions, by from and to status",
		},
		[]string{"from", "to"},
	)

	TaskLeaseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qcfractal_task_lease_duration_seconds",
			Help:    "Time a task spent between being leased (RUNNING) and reaching a terminal status",
			Buckets: prometheus.DefBuckets,
		},
	)

	// QueueManager metrics
	ManagerPullDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qcfractal_manager_pull_duration_seconds",
			Help:    "Time taken for a QueueManager pull-and-dispatch cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"manager"},
	)

	ManagerTasksDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qcfractal_manager_tasks_dispatched_total",
			Help: "Total number of tasks dispatched to an adapter, by manager",
		},
		[]string{"manager"},
	)

	ManagerTasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qcfractal_manager_tasks_completed_total",
			Help: "Total number of tasks completed, by manager and outcome",
		},
		[]string{"manager", "outcome"},
	)

	// Adapter metrics
	AdapterSubmitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qcfractal_adapter_submit_duration_seconds",
			Help:    "Time taken for an adapter to accept a task submission, by adapter kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	AdapterPollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qcfractal_adapter_poll_duration_seconds",
			Help:    "Time taken for an adapter poll cycle, by adapter kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	AdapterInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qcfractal_adapter_in_flight",
			Help: "Number of tasks currently submitted to an adapter awaiting outcome",
		},
		[]string{"kind"},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qcfractal_reconciliation_duration_seconds",
			Help:    "Time taken for a lease-expiry reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qcfractal_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	TasksResetTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qcfractal_tasks_reset_total",
			Help: "Total number of tasks reset from RUNNING to WAITING due to lease expiry",
		},
	)

	// Auth metrics
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qcfractal_auth_attempts_total",
			Help: "Total number of authentication attempts, by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(StoreOperationDuration)
	prometheus.MustRegister(StoreEntitiesTotal)
	prometheus.MustRegister(StoreDuplicatesTotal)
	prometheus.MustRegister(HashCollisionsTotal)

	prometheus.MustRegister(TaskQueueDepth)
	prometheus.MustRegister(TaskTransitionsTotal)
	prometheus.MustRegister(TaskLeaseDuration)

	prometheus.MustRegister(ManagerPullDuration)
	prometheus.MustRegister(ManagerTasksDispatched)
	prometheus.MustRegister(ManagerTasksCompleted)

	prometheus.MustRegister(AdapterSubmitDuration)
	prometheus.MustRegister(AdapterPollDuration)
	prometheus.MustRegister(AdapterInFlight)

	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(TasksResetTotal)

	prometheus.MustRegister(AuthAttemptsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
