// Package events is an in-process publish/subscribe broker for task and
// result lifecycle notifications, letting observers (tests, a future CLI
// watch command) react without polling the Store. SubscribeFiltered lets an
// observer narrow delivery to the event types it cares about.
package events

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventTaskSubmitted  EventType = "task.submitted"
	EventTaskLeased     EventType = "task.leased"
	EventTaskCompleted  EventType = "task.completed"
	EventTaskErrored    EventType = "task.errored"
	EventTaskReset      EventType = "task.reset"
	EventResultUpdated  EventType = "result.updated"
	EventServiceUpdated EventType = "service.updated"
	EventManagerJoined  EventType = "manager.joined"
	EventManagerLeft    EventType = "manager.left"
)

// Event represents a single lifecycle notification
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution. A nil/empty filter
// set means "every event type"; a non-empty one restricts delivery to those
// types, letting a manager-scoped watcher subscribe to only its own task
// lifecycle without also waking for every other manager's traffic.
type Broker struct {
	subscribers map[Subscriber]map[EventType]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]map[EventType]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription that receives every event type.
func (b *Broker) Subscribe() Subscriber {
	return b.SubscribeFiltered()
}

// SubscribeFiltered creates a subscription that only receives events whose
// Type is in want; with no types given it behaves like Subscribe and
// receives everything. Used by a manager-scoped watcher (e.g. a future CLI
// "qcfractal-manager watch") to follow its own task.* traffic without also
// receiving every other manager's and every Result's events.
func (b *Broker) SubscribeFiltered(want ...EventType) Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	var filter map[EventType]bool
	if len(want) > 0 {
		filter = make(map[EventType]bool, len(want))
		for _, t := range want {
			filter[t] = true
		}
	}
	b.subscribers[sub] = filter
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, filter := range b.subscribers {
		if filter != nil && !filter[event.Type] {
			continue
		}
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
