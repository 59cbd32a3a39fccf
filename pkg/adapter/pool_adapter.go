package adapter

import (
	"context"
	"sync"

	"github.com/ChayaSt/QCFractal/pkg/log"
	"github.com/ChayaSt/QCFractal/pkg/metrics"
)

// ExecuteFunc performs the actual compute work for one task. The default
// used by the built-in adapters is a no-op pass-through that returns the
// task's own spec as its payload; a real deployment would inject a
// program-specific ExecuteFunc that shells out to or calls the compute
// backend's real client.
type ExecuteFunc func(ctx context.Context, taskID string, spec map[string]interface{}) (map[string]interface{}, error)

func passthroughExecute(_ context.Context, _ string, spec map[string]interface{}) (map[string]interface{}, error) {
	return spec, nil
}

type job struct {
	taskID string
	spec   map[string]interface{}
}

// poolAdapter is a bounded goroutine worker pool. With maxConcurrent == 1 it
// behaves as a strictly sequential single-slot executor, which is how the
// fireworks and parsl adapter kinds are built from the same implementation.
type poolAdapter struct {
	kind    Kind
	execute ExecuteFunc

	jobs     chan job
	outcomes chan Outcome
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	cancelled map[string]bool
	inFlight  int
}

func newPoolAdapter(kind Kind, maxConcurrent int) *poolAdapter {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	a := &poolAdapter{
		kind:      kind,
		execute:   passthroughExecute,
		jobs:      make(chan job, maxConcurrent*4),
		outcomes:  make(chan Outcome, maxConcurrent*4),
		stopCh:    make(chan struct{}),
		cancelled: make(map[string]bool),
	}

	for i := 0; i < maxConcurrent; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

func newSerialAdapter(kind Kind) *poolAdapter {
	return newPoolAdapter(kind, 1)
}

func (a *poolAdapter) worker() {
	defer a.wg.Done()
	logger := log.WithComponent("adapter." + string(a.kind))

	for {
		select {
		case j := <-a.jobs:
			a.mu.Lock()
			skip := a.cancelled[j.taskID]
			delete(a.cancelled, j.taskID)
			a.inFlight++
			a.mu.Unlock()
			metrics.AdapterInFlight.WithLabelValues(string(a.kind)).Inc()

			var out Outcome
			if skip {
				out = Outcome{TaskID: j.taskID, Success: false, Error: "cancelled"}
			} else {
				payload, err := a.execute(context.Background(), j.taskID, j.spec)
				if err != nil {
					out = Outcome{TaskID: j.taskID, Success: false, Error: err.Error()}
					logger.Warn().Str("task_id", j.taskID).Err(err).Msg("adapter execution failed")
				} else {
					out = Outcome{TaskID: j.taskID, Success: true, Payload: payload}
				}
			}

			a.mu.Lock()
			a.inFlight--
			a.mu.Unlock()
			metrics.AdapterInFlight.WithLabelValues(string(a.kind)).Dec()

			select {
			case a.outcomes <- out:
			case <-a.stopCh:
				return
			}
		case <-a.stopCh:
			return
		}
	}
}

func (a *poolAdapter) Submit(ctx context.Context, taskID string, spec map[string]interface{}) error {
	done := instrumentSubmit(a.kind)
	defer done()

	select {
	case a.jobs <- job{taskID: taskID, spec: spec}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stopCh:
		return nil
	}
}

func (a *poolAdapter) Poll(ctx context.Context) ([]Outcome, error) {
	done := instrumentPoll(a.kind)
	defer done()

	var out []Outcome
	for {
		select {
		case o := <-a.outcomes:
			out = append(out, o)
		case <-ctx.Done():
			return out, ctx.Err()
		default:
			return out, nil
		}
	}
}

func (a *poolAdapter) Cancel(ctx context.Context, taskIDs []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range taskIDs {
		a.cancelled[id] = true
	}
	return nil
}

func (a *poolAdapter) Close() error {
	close(a.stopCh)
	a.wg.Wait()
	return nil
}
