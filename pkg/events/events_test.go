package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishBroadcastsToSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventTaskLeased, Message: "leased by manager-1"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventTaskLeased, ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected event to be delivered")
	}
}

func TestSubscribeFilteredOnlyReceivesWantedTypes(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.SubscribeFiltered(EventTaskCompleted, EventTaskErrored)
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventManagerJoined, Message: "manager-1 joined"})
	b.Publish(&Event{Type: EventTaskCompleted, Message: "task-1 completed"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventTaskCompleted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected the filtered event to be delivered")
	}

	select {
	case ev := <-sub:
		t.Fatalf("unexpected event delivered past the filter: %v", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriberCountTracksLifecycle(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	require.Equal(t, 0, b.SubscriberCount())
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())
	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())
}
