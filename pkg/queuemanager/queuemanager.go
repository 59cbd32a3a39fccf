// Package queuemanager implements the QueueManager component (C4): the
// pull-based dispatch loop that leases WAITING tasks from the TaskQueue,
// hands them to an Adapter, polls for outcomes, and writes completions back.
// Its loop shape follows the project's established reconciler/worker
// ticker-loop idiom; its continuous/rapidfire modes and exit-callback stack
// follow the original qcfractal_manager CLI's run_manager.
package queuemanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/adapter"
	"github.com/ChayaSt/QCFractal/pkg/events"
	"github.com/ChayaSt/QCFractal/pkg/health"
	"github.com/ChayaSt/QCFractal/pkg/log"
	"github.com/ChayaSt/QCFractal/pkg/metrics"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/taskqueue"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/rs/zerolog"
)

// Config configures a QueueManager instance.
type Config struct {
	ManagerName     string
	ClusterName     string
	Tag             string
	MaxTasks        int
	UpdateFrequency time.Duration

	// SchedulerAddr, when set, is checked with a TCP dial before the
	// manager starts (e.g. a dask scheduler's "host:port"). A manager
	// whose backend is unreachable at startup fails fast instead of
	// leasing tasks it cannot actually dispatch.
	SchedulerAddr string
}

// ExitCallback is a cleanup action registered by the CLI (closing a dask
// client, scaling down a local cluster) to run when Close is called. The
// stack runs last-registered-first, mirroring the original CLI's
// exit_callbacks list which it walks in registration order but whose
// entries are themselves ordered innermost-resource-first by the caller;
// here the LIFO order is made explicit rather than left to call-site
// discipline.
type ExitCallback func()

// QueueManager pulls WAITING tasks from a TaskQueue, submits them to an
// Adapter, and reconciles finished outcomes back into task/result state.
type QueueManager struct {
	cfg     Config
	store   storage.Store
	queue   *taskqueue.TaskQueue
	adapter adapter.Adapter
	broker  *events.Broker
	logger  zerolog.Logger

	mu            sync.Mutex
	exitCallbacks []ExitCallback
	started       bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a QueueManager. It performs the original CLI's startup
// reconciliation: any task already RUNNING under this manager's name whose
// base Result is already COMPLETE is marked COMPLETE; the rest are assumed
// orphaned from a prior crash and are reset to WAITING so they are
// re-leased instead of stranded.
func New(cfg Config, store storage.Store, queue *taskqueue.TaskQueue, ad adapter.Adapter, broker *events.Broker) (*QueueManager, error) {
	if cfg.UpdateFrequency <= 0 {
		cfg.UpdateFrequency = 2 * time.Second
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = 10
	}

	if cfg.SchedulerAddr != "" {
		checker := health.NewTCPChecker(cfg.SchedulerAddr)
		ctx, cancel := context.WithTimeout(context.Background(), checker.Timeout)
		result := checker.Check(ctx)
		cancel()
		if !result.Healthy {
			return nil, fmt.Errorf("queuemanager: scheduler %s unreachable: %s", cfg.SchedulerAddr, result.Message)
		}
	}

	qm := &QueueManager{
		cfg:     cfg,
		store:   store,
		queue:   queue,
		adapter: ad,
		broker:  broker,
		logger:  log.WithManagerName(cfg.ManagerName),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	if err := qm.reconcileOrphans(); err != nil {
		return nil, err
	}

	if err := store.UpsertManager(&types.Manager{
		Name:        cfg.ManagerName,
		ClusterName: cfg.ClusterName,
		Tag:         cfg.Tag,
		Status:      types.ManagerStatusActive,
	}); err != nil {
		return nil, err
	}
	if broker != nil {
		broker.Publish(&events.Event{
			Type:    events.EventManagerJoined,
			Message: "manager joined",
			Metadata: map[string]string{
				"manager": cfg.ManagerName,
			},
		})
	}

	return qm, nil
}

// reconcileOrphans handles tasks still marked RUNNING under this manager's
// name, covering the case where the manager process died mid-task and is now
// restarting under the same name: a task whose base Result already shows
// COMPLETE is marked COMPLETE, every other one is reset to WAITING.
func (qm *QueueManager) reconcileOrphans() error {
	running, err := qm.store.GetTasksByStatus(types.TaskStatusRunning, "", 0)
	if err != nil {
		return err
	}

	var orphaned, finished []string
	for _, t := range running {
		if t.ManagerName != qm.cfg.ManagerName {
			continue
		}
		if t.BaseResult.Kind == "result" {
			rs, _, err := qm.store.GetResultsByIDs([]string{t.BaseResult.ID})
			if err == nil && len(rs) == 1 && rs[0] != nil && rs[0].Status == types.ResultStatusComplete {
				finished = append(finished, t.ID)
				continue
			}
		}
		orphaned = append(orphaned, t.ID)
	}
	if len(finished) > 0 {
		if _, err := qm.queue.MarkComplete(finished); err != nil {
			return err
		}
	}
	if len(orphaned) == 0 {
		return nil
	}

	n, err := qm.queue.ResetStatus(orphaned)
	if err != nil {
		return err
	}
	qm.logger.Warn().Int("count", n).Msg("reset orphaned running tasks from previous manager instance")
	return nil
}

// AddExitCallback registers a cleanup action to run, LIFO, when Close runs.
func (qm *QueueManager) AddExitCallback(cb ExitCallback) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.exitCallbacks = append(qm.exitCallbacks, cb)
}

// RunContinuous starts the dispatch loop in a background goroutine and
// returns immediately. It runs until Close is called.
func (qm *QueueManager) RunContinuous(ctx context.Context) {
	qm.markStarted()
	go qm.loop(ctx, false)
}

// RunRapidfire runs the dispatch loop until the TaskQueue has no WAITING
// tasks left and every leased task has been polled to completion, then
// returns. It blocks the caller.
func (qm *QueueManager) RunRapidfire(ctx context.Context) {
	qm.markStarted()
	qm.loop(ctx, true)
}

func (qm *QueueManager) markStarted() {
	qm.mu.Lock()
	qm.started = true
	qm.mu.Unlock()
}

func (qm *QueueManager) loop(ctx context.Context, rapidfire bool) {
	defer close(qm.doneCh)

	ticker := time.NewTicker(qm.cfg.UpdateFrequency)
	defer ticker.Stop()

	qm.logger.Info().
		Str("tag", qm.cfg.Tag).
		Int("max_tasks", qm.cfg.MaxTasks).
		Bool("rapidfire", rapidfire).
		Msg("queue manager started")

	inFlight := 0
	for {
		leased, err := qm.pullAndSubmit()
		if err != nil {
			qm.logger.Error().Err(err).Msg("pull cycle failed")
		}
		inFlight += leased

		completed, err := qm.pollAndReconcile(ctx)
		if err != nil {
			qm.logger.Error().Err(err).Msg("poll cycle failed")
		}
		inFlight -= completed

		if rapidfire && leased == 0 && inFlight <= 0 {
			qm.logger.Info().Msg("rapidfire queue drained")
			return
		}

		select {
		case <-ticker.C:
		case <-qm.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pullAndSubmit leases up to MaxTasks WAITING tasks and hands each to the
// adapter, returning how many were leased. Only tasks the adapter actually
// accepted count toward the manager's Submitted counter.
func (qm *QueueManager) pullAndSubmit() (int, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ManagerPullDuration, qm.cfg.ManagerName)

	tasks, err := qm.queue.GetNext(qm.cfg.ManagerName, qm.cfg.Tag, qm.cfg.MaxTasks)
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, t := range tasks {
		if err := qm.adapter.Submit(context.Background(), t.ID, t.Spec); err != nil {
			qm.logger.Error().Str("task_id", t.ID).Err(err).Msg("adapter submit failed")
			continue
		}
		submitted++
		metrics.ManagerTasksDispatched.WithLabelValues(qm.cfg.ManagerName).Inc()
		if qm.broker != nil {
			qm.broker.Publish(&events.Event{
				Type:    events.EventTaskLeased,
				Message: "task leased",
				Metadata: map[string]string{
					"task_id": t.ID,
					"manager": qm.cfg.ManagerName,
				},
			})
		}
	}

	if submitted > 0 {
		delta := types.ManagerCounterDelta{Submitted: int64(submitted)}
		if err := qm.store.IncrementManagerCounters(qm.cfg.ManagerName, delta); err != nil {
			qm.logger.Error().Err(err).Msg("failed to update manager submitted counter")
		}
	}

	return len(tasks), nil
}

// pollAndReconcile collects finished outcomes from the adapter, writes each
// successful outcome's payload back to its base Result/Procedure, applies
// the completed tasks' hooks, and writes the task transitions back to the
// TaskQueue.
func (qm *QueueManager) pollAndReconcile(ctx context.Context) (int, error) {
	outcomes, err := qm.adapter.Poll(ctx)
	if err != nil && len(outcomes) == 0 {
		return 0, err
	}
	if len(outcomes) == 0 {
		return 0, nil
	}

	var completedIDs []string
	errored := make(map[string]string)
	payloads := make(map[string]map[string]interface{}, len(outcomes))
	for _, o := range outcomes {
		if o.Success {
			completedIDs = append(completedIDs, o.TaskID)
			payloads[o.TaskID] = o.Payload
		} else {
			errored[o.TaskID] = o.Error
		}
	}

	var hooks []types.HookList
	if len(completedIDs) > 0 {
		tasks, _, err := qm.queue.GetByIDs(completedIDs)
		if err != nil {
			qm.logger.Error().Err(err).Msg("failed to load completed tasks for result write-back")
		}
		for _, t := range tasks {
			if payload := payloads[t.ID]; len(payload) > 0 {
				if err := qm.writeBackPayload(t.BaseResult, payload); err != nil {
					qm.logger.Error().Str("task_id", t.ID).Err(err).Msg("failed to write result payload")
				}
			}
			hooks = append(hooks, t.Hooks...)
		}
	}

	var completed, failed int
	if len(completedIDs) > 0 {
		n, err := qm.queue.MarkComplete(completedIDs)
		if err != nil {
			return completed, err
		}
		completed = n
		metrics.ManagerTasksCompleted.WithLabelValues(qm.cfg.ManagerName, "complete").Add(float64(n))
		qm.publishOutcomes(completedIDs, events.EventTaskCompleted, "task completed")

		if len(hooks) > 0 {
			if _, err := qm.store.HandleHooks(hooks); err != nil {
				qm.logger.Error().Err(err).Msg("failed to apply completion hooks")
			}
		}
	}
	if len(errored) > 0 {
		n, err := qm.queue.MarkError(errored)
		if err != nil {
			return completed, err
		}
		failed = n
		metrics.ManagerTasksCompleted.WithLabelValues(qm.cfg.ManagerName, "error").Add(float64(n))
		ids := make([]string, 0, len(errored))
		for id := range errored {
			ids = append(ids, id)
		}
		qm.publishOutcomes(ids, events.EventTaskErrored, "task errored")
	}

	delta := types.ManagerCounterDelta{
		Completed: int64(completed),
		Failed:    int64(failed),
		Returned:  int64(len(outcomes)),
	}
	if err := qm.store.IncrementManagerCounters(qm.cfg.ManagerName, delta); err != nil {
		qm.logger.Error().Err(err).Msg("failed to update manager counters")
	}

	return completed + failed, nil
}

// writeBackPayload upserts an adapter's reported payload onto the Task's
// base Result or Procedure: "properties"/"return_result" merge into a
// Result, "keywords"/"trajectory" merge into a Procedure, matching the
// fields each document type exposes for adapter-reported output.
func (qm *QueueManager) writeBackPayload(ref types.DocumentRef, payload map[string]interface{}) error {
	switch ref.Kind {
	case "result":
		results, _, err := qm.store.GetResultsByIDs([]string{ref.ID})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("result %s not found for payload write-back", ref.ID)
		}
		r := results[0]
		if props, ok := payload["properties"].(map[string]interface{}); ok {
			if r.Properties == nil {
				r.Properties = make(map[string]interface{}, len(props))
			}
			for k, v := range props {
				r.Properties[k] = v
			}
		}
		if rr, ok := payload["return_result"]; ok {
			r.ReturnResult = rr
		}
		return qm.store.UpdateResult(r)
	case "procedure":
		procs, _, err := qm.store.GetProceduresByIDs([]string{ref.ID})
		if err != nil {
			return err
		}
		if len(procs) == 0 {
			return fmt.Errorf("procedure %s not found for payload write-back", ref.ID)
		}
		p := procs[0]
		if traj, ok := payload["trajectory"].([]interface{}); ok {
			for _, v := range traj {
				if id, ok := v.(string); ok {
					p.Trajectory = append(p.Trajectory, id)
				}
			}
		}
		if kw, ok := payload["keywords"].(map[string]interface{}); ok {
			if p.Keywords == nil {
				p.Keywords = make(map[string]interface{}, len(kw))
			}
			for k, v := range kw {
				p.Keywords[k] = v
			}
		}
		return qm.store.UpdateProcedure(p)
	default:
		return fmt.Errorf("unknown base result kind %q for payload write-back", ref.Kind)
	}
}

func (qm *QueueManager) publishOutcomes(ids []string, evt events.EventType, msg string) {
	if qm.broker == nil {
		return
	}
	for _, id := range ids {
		qm.broker.Publish(&events.Event{
			Type:    evt,
			Message: msg,
			Metadata: map[string]string{
				"task_id": id,
				"manager": qm.cfg.ManagerName,
			},
		})
	}
}

// Close stops the dispatch loop, runs registered exit callbacks in LIFO
// order, marks the manager inactive, and closes the adapter.
func (qm *QueueManager) Close() error {
	close(qm.stopCh)
	qm.mu.Lock()
	started := qm.started
	qm.mu.Unlock()
	if started {
		<-qm.doneCh
	}

	qm.mu.Lock()
	callbacks := qm.exitCallbacks
	qm.mu.Unlock()
	for i := len(callbacks) - 1; i >= 0; i-- {
		callbacks[i]()
	}

	if m, err := qm.store.GetManager(qm.cfg.ManagerName); err == nil {
		m.Status = types.ManagerStatusInactive
		_ = qm.store.UpsertManager(m)
	}
	if qm.broker != nil {
		qm.broker.Publish(&events.Event{
			Type:    events.EventManagerLeft,
			Message: "manager left",
			Metadata: map[string]string{
				"manager": qm.cfg.ManagerName,
			},
		})
	}

	return qm.adapter.Close()
}
