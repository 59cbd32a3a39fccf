// Package adapter implements the Adapter contract (C5): a small interface a
// QueueManager uses to hand work to a compute backend, with a finite set of
// built-in implementations selected at construction time by a backend tag
// rather than the original's runtime module-name dispatch.
package adapter

import (
	"context"
	"fmt"

	"github.com/ChayaSt/QCFractal/pkg/metrics"
)

// Kind names one of the built-in adapter implementations.
type Kind string

const (
	KindDask      Kind = "dask"
	KindFireworks Kind = "fireworks"
	KindParsl     Kind = "parsl"
)

// Outcome is one adapter-reported result, ready to be folded back into a
// Task/Result transition by the QueueManager. On success, Payload is merged
// into the Task's base Result ("properties", "return_result") or Procedure
// ("keywords", "trajectory"); any other key is ignored by the write-back.
type Outcome struct {
	TaskID  string
	Success bool
	Payload map[string]interface{}
	Error   string
}

// Adapter is the contract every compute backend implementation satisfies.
type Adapter interface {
	// Submit hands one task's spec to the backend for execution.
	Submit(ctx context.Context, taskID string, spec map[string]interface{}) error
	// Poll returns outcomes for any previously submitted tasks that have
	// finished since the last call.
	Poll(ctx context.Context) ([]Outcome, error)
	// Cancel asks the backend to stop work on the given tasks, best-effort.
	Cancel(ctx context.Context, taskIDs []string) error
	// Close releases any resources held by the adapter.
	Close() error
}

// Config configures a built-in adapter's worker capacity.
type Config struct {
	// MaxConcurrent bounds how many tasks may be in flight at once. dask
	// defaults to a small worker pool, fireworks and parsl are always 1.
	MaxConcurrent int
}

// New builds the adapter named by kind, mirroring build_queue_adapter's
// dispatch in the original implementation but over a fixed, explicit set of
// kinds instead of a runtime type-name string.
func New(kind Kind, cfg Config) (Adapter, error) {
	switch kind {
	case KindDask:
		return newPoolAdapter(kind, cfg.MaxConcurrent), nil
	case KindFireworks:
		return newSerialAdapter(KindFireworks), nil
	case KindParsl:
		return newSerialAdapter(KindParsl), nil
	default:
		return nil, fmt.Errorf("adapter: unknown kind %q", kind)
	}
}

func instrumentSubmit(kind Kind) func() {
	timer := metrics.NewTimer()
	return func() { timer.ObserveDurationVec(metrics.AdapterSubmitDuration, string(kind)) }
}

func instrumentPoll(kind Kind) func() {
	timer := metrics.NewTimer()
	return func() { timer.ObserveDurationVec(metrics.AdapterPollDuration, string(kind)) }
}
