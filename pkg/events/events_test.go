package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub1 := broker.Subscribe()
	sub2 := broker.Subscribe()
	defer broker.Unsubscribe(sub1)
	defer broker.Unsubscribe(sub2)

	broker.Publish(&Event{
		Type:    EventNodeConnected,
		NodeID:  7,
		Message: "probe succeeded",
	})

	for _, sub := range []Subscriber{sub1, sub2} {
		select {
		case ev := <-sub:
			assert.Equal(t, EventNodeConnected, ev.Type)
			assert.Equal(t, uint64(7), ev.NodeID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestPublishFillsIDAndTimestamp(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&Event{Type: EventUsageReset, NodeID: 1})

	select {
	case ev := <-sub:
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
		assert.Equal(t, time.UTC, ev.Timestamp.Location())
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	require.Equal(t, 1, broker.SubscriberCount())

	broker.Unsubscribe(sub)
	assert.Equal(t, 0, broker.SubscriberCount())

	// Channel is closed after unsubscribe.
	_, open := <-sub
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	slow := broker.Subscribe()
	defer broker.Unsubscribe(slow)

	// Publish well past the broker and subscriber buffers combined. If
	// the broadcast loop blocked on the undrained subscriber, the
	// broker buffer would fill and Publish would stall.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			broker.Publish(&Event{Type: EventNodeError, NodeID: uint64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked behind a slow subscriber")
	}

	// Subscribers that do drain keep receiving events.
	active := broker.Subscribe()
	defer broker.Unsubscribe(active)

	deadline := time.After(2 * time.Second)
	retry := time.NewTicker(10 * time.Millisecond)
	defer retry.Stop()
	for {
		select {
		case ev := <-active:
			if ev.Type == EventNodeConnected {
				return
			}
		case <-retry.C:
			broker.Publish(&Event{Type: EventNodeConnected, NodeID: 999})
		case <-deadline:
			t.Fatal("draining subscriber stopped receiving events")
		}
	}
}
