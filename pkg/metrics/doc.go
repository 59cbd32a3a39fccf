/*
Package metrics defines and registers all Prometheus metrics for the
system, exposed via an HTTP /metrics endpoint for scraping.

# Metric Catalog

Store:
  - qcfractal_store_operation_duration_seconds{entity,operation} (Histogram)
  - qcfractal_store_entities_total{entity} (Gauge)
  - qcfractal_store_duplicates_total{entity} (Counter)
  - qcfractal_hash_collisions_total{entity} (Counter)

TaskQueue:
  - qcfractal_task_queue_depth{status} (Gauge)
  - qcfractal_task_transitions_total{from,to} (Counter)
  - qcfractal_task_lease_duration_seconds (Histogram)

QueueManager:
  - qcfractal_manager_pull_duration_seconds{manager} (Histogram)
  - qcfractal_manager_tasks_dispatched_total{manager} (Counter)
  - qcfractal_manager_tasks_completed_total{manager,outcome} (Counter)

Adapter:
  - qcfractal_adapter_submit_duration_seconds{kind} (Histogram)
  - qcfractal_adapter_poll_duration_seconds{kind} (Histogram)
  - qcfractal_adapter_in_flight{kind} (Gauge)

Reconciler:
  - qcfractal_reconciliation_duration_seconds (Histogram)
  - qcfractal_reconciliation_cycles_total (Counter)
  - qcfractal_tasks_reset_total (Counter)

Auth:
  - qcfractal_auth_attempts_total{outcome} (Counter)

# Usage

	timer := metrics.NewTimer()
	meta, ids, err := store.AddMolecules(mols)
	timer.ObserveDurationVec(metrics.StoreOperationDuration, "molecule", "add")

	metrics.TaskQueueDepth.WithLabelValues("WAITING").Set(float64(depth))
	metrics.AuthAttemptsTotal.WithLabelValues("granted").Inc()

	http.Handle("/metrics", metrics.Handler())

Every vector metric is labeled by a low-cardinality dimension (entity
name, task status, manager name, adapter kind, auth outcome) — never by
an ID or timestamp, keeping scrape cost and storage bounded regardless
of dataset size.

# Design Patterns

All metrics are package-level variables registered once in init() via
MustRegister, so any package can record an observation without an
explicit setup call. Timer wraps the common "start, do work, observe
duration" pattern for both plain Histograms (ObserveDuration) and
label-vectored ones (ObserveDurationVec).

# See Also

  - pkg/health for the /health and /ready endpoints served alongside
    /metrics by the same HTTP server
  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
