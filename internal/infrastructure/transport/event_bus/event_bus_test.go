// internal/infrastructure/transport/event_bus/event_bus_test.go
package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	name   string
	events []EventType

	mu       sync.Mutex
	received []Event
	done     chan struct{}
}

func newRecordingSubscriber(name string, expect int, events ...EventType) *recordingSubscriber {
	return &recordingSubscriber{
		name:   name,
		events: events,
		done:   make(chan struct{}, expect),
	}
}

func (s *recordingSubscriber) GetName() string { return s.name }
func (s *recordingSubscriber) GetSubscribedEvents() []EventType { return s.events }

func (s *recordingSubscriber) HandleEvent(event Event) error {
	s.mu.Lock()
	s.received = append(s.received, event)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *recordingSubscriber) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
}

func TestEventBusDelivery(t *testing.T) {
	bus := NewEventBus(Config{BufferSize: 10, WorkerCount: 2})
	bus.Start()
	defer bus.Stop()

	sub := newRecordingSubscriber("test", 1, EventTradesReceived)
	bus.Subscribe(EventTradesReceived, sub)

	require.NoError(t, bus.Publish(Event{Type: EventTradesReceived, Symbol: "BTCUSDT", Source: "test"}))
	sub.wait(t, 1)

	sub.mu.Lock()
	defer sub.mu.Unlock()
	require.Len(t, sub.received, 1)
	assert.Equal(t, "BTCUSDT", sub.received[0].Symbol)
	assert.NotEmpty(t, sub.received[0].ID)
	assert.False(t, sub.received[0].Timestamp.IsZero())
}

func TestEventBusRejectsUndeclaredSubscription(t *testing.T) {
	bus := NewEventBus()

	sub := newRecordingSubscriber("test", 0, EventTradesReceived)
	bus.Subscribe(EventTickerUpdated, sub)

	assert.Equal(t, 0, bus.GetSubscriberCount(EventTickerUpdated))
}

func TestEventBusPublishWhenStopped(t *testing.T) {
	bus := NewEventBus()

	err := bus.Publish(Event{Type: EventTradesReceived})

	assert.Error(t, err)
}

func TestEventBusPublishSync(t *testing.T) {
	bus := NewEventBus()

	sub := newRecordingSubscriber("sync", 1, EventAnalysisCompleted)
	bus.Subscribe(EventAnalysisCompleted, sub)

	// Синхронная публикация работает и без запуска обработчиков
	require.NoError(t, bus.PublishSync(Event{Type: EventAnalysisCompleted, Source: "test"}))

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Len(t, sub.received, 1)
}

func TestEventBusSurvivesPanickingSubscriber(t *testing.T) {
	bus := NewEventBus()

	panicking := &panicSubscriber{}
	healthy := newRecordingSubscriber("healthy", 1, EventFeedError)
	bus.Subscribe(EventFeedError, panicking)
	bus.Subscribe(EventFeedError, healthy)

	err := bus.PublishSync(Event{Type: EventFeedError})

	assert.Error(t, err)
	healthy.mu.Lock()
	defer healthy.mu.Unlock()
	assert.Len(t, healthy.received, 1)
}

type panicSubscriber struct{}

func (p *panicSubscriber) GetName() string { return "panicking" }
func (p *panicSubscriber) GetSubscribedEvents() []EventType { return []EventType{EventFeedError} }
func (p *panicSubscriber) HandleEvent(Event) error { panic("boom") }

func TestEventBusMetrics(t *testing.T) {
	bus := NewEventBus(Config{BufferSize: 10, WorkerCount: 1})
	bus.Start()
	defer bus.Stop()

	sub := newRecordingSubscriber("metrics", 2, EventTickerUpdated)
	bus.Subscribe(EventTickerUpdated, sub)

	require.NoError(t, bus.Publish(Event{Type: EventTickerUpdated}))
	require.NoError(t, bus.Publish(Event{Type: EventTickerUpdated}))
	sub.wait(t, 2)

	metrics := bus.Metrics()
	assert.Equal(t, int64(2), metrics["events_published"])
	assert.Equal(t, int64(2), metrics["events_processed"])
}
