/*
Package events is an in-process, non-blocking publish/subscribe broker
for task, result, and manager lifecycle notifications.

# Event Types

	task.submitted, task.leased, task.completed, task.errored, task.reset
	result.updated, service.updated
	manager.joined, manager.left

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for event := range sub {
			log.Logger.Info().Str("type", string(event.Type)).Msg(event.Message)
		}
	}()

	// A watcher interested only in one manager's dispatch traffic:
	taskEvents := broker.SubscribeFiltered(events.EventTaskLeased, events.EventTaskCompleted, events.EventTaskErrored)
	defer broker.Unsubscribe(taskEvents)

	broker.Publish(&events.Event{
		Type:     events.EventTaskLeased,
		Message:  "task leased",
		Metadata: map[string]string{"task_id": task.ID, "manager": managerName},
	})

# Design Patterns

Publish is non-blocking: an event is handed to a buffered channel and a
background broadcast loop fans it out to every subscriber's own buffered
channel. A subscriber whose buffer is full silently misses the event
rather than stalling the publisher — appropriate for observability
(tests, a future watch command, metrics) rather than delivery-critical
paths; QueueManager and TaskQueue state transitions are durably recorded
in the Store regardless of whether any subscriber is listening.

Each subscriber carries its own optional type filter, checked once per
event in broadcast rather than requiring every caller to re-filter its own
channel; Subscribe is SubscribeFiltered with no types, i.e. "everything".

# See Also

  - pkg/queuemanager and pkg/reconciler for the primary publishers
  - pkg/taskqueue for the Task state machine events mirror
*/
package events
