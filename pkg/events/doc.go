/*
Package events provides an in-memory event broker for the panel's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting node
lifecycle events to interested subscribers. It supports asynchronous event
delivery with buffered channels, enabling loose coupling between panel
components for state changes, notifications, and monitoring.

# Architecture

The event system provides non-blocking pub/sub messaging with buffered
channels:

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Lifecycle Events:                          │          │
	│  │    - node.joined                            │          │
	│  │    - node.removed                           │          │
	│  │    - node.modified                          │          │
	│  │                                              │          │
	│  │  Status Events:                             │          │
	│  │    - node.connected                         │          │
	│  │    - node.error                             │          │
	│  │    - node.limited                           │          │
	│  │    - node.disabled, node.enabled            │          │
	│  │                                              │          │
	│  │  Accounting Events:                         │          │
	│  │    - node.usage_reset                       │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Non-blocking publish (buffered channel)
  - Graceful shutdown via stop channel

Event:
  - ID: Unique event identifier (UUID, filled on publish)
  - Type: Event type (node.connected, node.usage_reset, etc.)
  - NodeID: The node the event concerns
  - Timestamp: When event occurred (UTC, filled on publish)
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

# Event Flow

Publish Flow:
 1. Publisher calls broker.Publish(event)
 2. Missing ID and Timestamp are filled in
 3. Event added to main event channel (non-blocking)
 4. Broadcast loop sends event to all subscriber channels
 5. Full subscriber buffers skip (no blocking)

Publishers follow a commit-then-publish discipline: status and reset
events are emitted only after the corresponding store transaction has
committed, so a subscriber never observes an event for a write that
was rolled back.

# Usage

Creating and Starting Broker:

	import "github.com/helpmebro911/panel/pkg/events"

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to Events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
		}
	}()

Publishing Events:

	broker.Publish(&events.Event{
		Type:    events.EventNodeError,
		NodeID:  node.ID,
		Message: "probe failed: connection refused",
	})

# Event Types Catalog

Lifecycle Events:

EventNodeJoined:
  - Published when: Node registered with the panel
  - Subscribers: Audit logs, metrics

EventNodeRemoved:
  - Published when: Node deleted from the panel
  - Subscribers: Audit logs, cleanup

EventNodeModified:
  - Published when: Node settings changed by an operator
  - Subscribers: Audit logs

Status Events:

EventNodeConnected:
  - Published when: A probe succeeds against a connecting or errored node
  - Subscribers: Audit logs, metrics

EventNodeError:
  - Published when: Probes exhaust their retry budget, or a connected
    node goes stale without a status report
  - Metadata/Message: Failure reason from the last probe
  - Subscribers: Alerting, audit logs

EventNodeLimited:
  - Published when: A node crosses its data limit
  - Subscribers: Alerting, audit logs

EventNodeDisabled, EventNodeEnabled:
  - Published when: An operator toggles a node
  - Subscribers: Audit logs

Accounting Events:

EventUsageReset:
  - Published when: A usage reset commits (scheduled or manual)
  - Subscribers: Audit logs, metrics

# Design Patterns

Non-Blocking Publish:
  - Publish sends to buffered channel
  - Returns immediately (no waiting)
  - Events may be dropped if buffer full
  - Trade-off: Throughput over guaranteed delivery

Fan-Out Pattern:
  - Single event broadcast to all subscribers
  - Each subscriber gets own channel
  - Independent processing rates
  - Full buffers skip to prevent blocking

# Limitations

Current Limitations:
  - In-memory only (no persistence)
  - No event replay or history
  - No guaranteed delivery (best effort)
  - No topic-based filtering (all events broadcast)

Workarounds:
  - Persistence: Subscribe and write to the store
  - Filtering: Filter at subscriber side by event type

# See Also

  - pkg/manager for node lifecycle events
  - pkg/reconciler and pkg/monitor for status events
  - pkg/reset for usage reset semantics
*/
package events
