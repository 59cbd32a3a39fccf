// Package reconciler implements the compatible extension named in the
// concurrency model: a lease-expiry sweep that resets RUNNING tasks whose
// ModifiedOn is older than the lease expiry back to WAITING, so a crashed or
// partitioned QueueManager doesn't strand a task forever. Manager heartbeats
// are not consulted.
package reconciler

import (
	"time"

	"github.com/ChayaSt/QCFractal/pkg/events"
	"github.com/ChayaSt/QCFractal/pkg/log"
	"github.com/ChayaSt/QCFractal/pkg/metrics"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/taskqueue"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/rs/zerolog"
)

// defaultInterval matches the established reconciliation cadence.
const defaultInterval = 10 * time.Second

// Reconciler periodically resets tasks whose lease has expired.
type Reconciler struct {
	store       storage.Store
	queue       *taskqueue.TaskQueue
	broker      *events.Broker
	leaseExpiry time.Duration
	interval    time.Duration
	logger      zerolog.Logger
	stopCh      chan struct{}
}

// New builds a Reconciler. leaseExpiry is how long a task may remain RUNNING
// without its manager completing it before it is considered abandoned.
func New(store storage.Store, queue *taskqueue.TaskQueue, broker *events.Broker, leaseExpiry time.Duration) *Reconciler {
	if leaseExpiry <= 0 {
		leaseExpiry = 10 * time.Minute
	}
	return &Reconciler{
		store:       store,
		queue:       queue,
		broker:      broker,
		leaseExpiry: leaseExpiry,
		interval:    defaultInterval,
		logger:      log.WithComponent("reconciler"),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the reconciliation loop in a new goroutine.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("lease_expiry", r.leaseExpiry).Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			if err := r.reconcile(); err != nil {
				r.logger.Error().Err(err).Msg("reconciliation cycle failed")
			}
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

func (r *Reconciler) reconcile() error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	running, err := r.store.GetTasksByStatus(types.TaskStatusRunning, "", 0)
	if err != nil {
		return err
	}

	now := time.Now()
	var stale []string
	for _, t := range running {
		if now.Sub(t.ModifiedOn) > r.leaseExpiry {
			stale = append(stale, t.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	n, err := r.queue.ResetStatus(stale)
	if err != nil {
		return err
	}
	metrics.TasksResetTotal.Add(float64(n))

	r.logger.Warn().Int("count", n).Dur("lease_expiry", r.leaseExpiry).Msg("reset stale running tasks to waiting")

	if r.broker != nil {
		for _, id := range stale {
			r.broker.Publish(&events.Event{
				Type:    events.EventTaskReset,
				Message: "task lease expired, reset to waiting",
				Metadata: map[string]string{
					"task_id": id,
				},
			})
		}
	}
	return nil
}
