// Package taskqueue implements the TaskQueue component (C3): the
// WAITING/RUNNING/COMPLETE/ERROR state machine driving every Task, the
// select-then-update lease used to hand WAITING tasks to a QueueManager
// (serialized by an in-process mutex; the update itself does not re-check
// that a task is still WAITING), and the hook-merge behavior on duplicate
// submission.
package taskqueue

import (
	"fmt"
	"sync"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/log"
	"github.com/ChayaSt/QCFractal/pkg/metrics"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/types"
)

// TaskQueue wraps a Store with the task lifecycle operations. leaseMu
// serializes GetNext so that two concurrent lease attempts never select
// overlapping WAITING sets; BoltDB's own transactions already serialize
// writers, but the select (View) and the update (Update) that make up one
// logical lease are two separate transactions, and the mutex is what pairs
// them into one critical section.
type TaskQueue struct {
	store  storage.Store
	leaseMu sync.Mutex
}

// New builds a TaskQueue over the given Store.
func New(store storage.Store) *TaskQueue {
	return &TaskQueue{store: store}
}

// Submit creates a Task for each entry, merging hooks into the existing
// task when one already exists for the same BaseResult instead of failing
// the caller.
func (q *TaskQueue) Submit(tasks []*types.Task) (types.Meta, []string, error) {
	meta := types.NewMeta()
	ids := make([]string, len(tasks))

	for i, t := range tasks {
		err := q.store.CreateTask(t)
		if err == nil {
			ids[i] = t.ID
			meta.NInserted++
			metrics.TaskTransitionsTotal.WithLabelValues("", string(types.TaskStatusWaiting)).Inc()
			continue
		}
		if err != storage.ErrDuplicateBaseResult {
			meta.Success = false
			meta.Errors = append(meta.Errors, fmt.Sprintf("task %d: %v", i, err))
			continue
		}

		existing, getErr := q.store.GetTaskByBaseResult(t.BaseResult)
		if getErr != nil {
			meta.Success = false
			meta.Errors = append(meta.Errors, fmt.Sprintf("task %d: %v", i, getErr))
			continue
		}
		existing.Hooks = append(existing.Hooks, t.Hooks...)
		if updErr := q.store.UpdateTask(existing); updErr != nil {
			meta.Success = false
			meta.Errors = append(meta.Errors, fmt.Sprintf("task %d: %v", i, updErr))
			continue
		}
		ids[i] = existing.ID
		meta.Duplicates = append(meta.Duplicates, existing.ID)
	}

	return meta, ids, nil
}

// GetNext selects up to limit WAITING tasks (optionally filtered by tag) and
// leases them to the caller's manager by marking them RUNNING. Because
// BoltDB offers no native atomic find-and-update-many, the selection and the
// update run as two transactions paired by leaseMu; if the set of tasks
// actually flipped to RUNNING differs in size from the set selected (another
// caller raced in between, in a deployment where leaseMu is not shared, e.g.
// across processes) that discrepancy is logged rather than silently
// swallowed.
func (q *TaskQueue) GetNext(managerName, tag string, limit int) ([]*types.Task, error) {
	q.leaseMu.Lock()
	defer q.leaseMu.Unlock()

	found, err := q.store.GetTasksByStatus(types.TaskStatusWaiting, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("taskqueue: select waiting tasks: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	now := time.Now()
	for _, t := range found {
		t.Status = types.TaskStatusRunning
		t.ManagerName = managerName
		t.ModifiedOn = now
	}
	if err := q.store.UpdateTasks(found); err != nil {
		return nil, fmt.Errorf("taskqueue: lease tasks: %w", err)
	}

	leased, _, err := q.store.GetTasksByIDs(idsOf(found))
	if err != nil {
		return nil, err
	}
	confirmed := 0
	for _, t := range leased {
		if t.Status == types.TaskStatusRunning && t.ManagerName == managerName {
			confirmed++
		}
	}
	if confirmed != len(found) {
		log.Logger.Warn().
			Int("selected", len(found)).
			Int("confirmed_running", confirmed).
			Msg("get_next: lease discrepancy between selected and confirmed task sets")
	}

	for range found {
		metrics.TaskTransitionsTotal.WithLabelValues(string(types.TaskStatusWaiting), string(types.TaskStatusRunning)).Inc()
	}
	return found, nil
}

// GetByIDs returns tasks by ID, reporting any that don't exist.
func (q *TaskQueue) GetByIDs(ids []string) ([]*types.Task, types.Meta, error) {
	return q.store.GetTasksByIDs(ids)
}

// MarkComplete transitions each task to COMPLETE and returns the count
// actually transitioned.
func (q *TaskQueue) MarkComplete(ids []string) (int, error) {
	return q.transitionAll(ids, types.TaskStatusComplete, "")
}

// MarkError transitions each (taskID, errMsg) pair to ERROR, recording the
// message on the task.
func (q *TaskQueue) MarkError(errors map[string]string) (int, error) {
	count := 0
	for id, msg := range errors {
		t, err := q.store.GetTask(id)
		if err != nil {
			continue
		}
		t.Status = types.TaskStatusError
		t.Error = msg
		if err := q.store.UpdateTask(t); err != nil {
			return count, err
		}
		metrics.TaskTransitionsTotal.WithLabelValues(string(types.TaskStatusRunning), string(types.TaskStatusError)).Inc()
		count++
	}
	return count, nil
}

// ResetStatus transitions each task back to WAITING, clearing its lease and
// error, used both for explicit caller-driven resets and by the lease-expiry
// reconciler.
func (q *TaskQueue) ResetStatus(ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		t, err := q.store.GetTask(id)
		if err != nil {
			continue
		}
		from := t.Status
		t.Status = types.TaskStatusWaiting
		t.ManagerName = ""
		t.Error = ""
		if err := q.store.UpdateTask(t); err != nil {
			return count, err
		}
		metrics.TaskTransitionsTotal.WithLabelValues(string(from), string(types.TaskStatusWaiting)).Inc()
		count++
	}
	return count, nil
}

func (q *TaskQueue) transitionAll(ids []string, to types.TaskStatus, errMsg string) (int, error) {
	count := 0
	for _, id := range ids {
		t, err := q.store.GetTask(id)
		if err != nil {
			continue
		}
		from := t.Status
		t.Status = to
		if errMsg != "" {
			t.Error = errMsg
		}
		if err := q.store.UpdateTask(t); err != nil {
			return count, err
		}
		metrics.TaskTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
		count++
	}
	return count, nil
}

func idsOf(tasks []*types.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
