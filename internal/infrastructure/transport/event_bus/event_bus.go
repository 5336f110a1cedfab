// internal/infrastructure/transport/event_bus/event_bus.go
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"crypto-market-advisor/pkg/logger"
)

// EventBus - центральная шина событий рыночных данных.
// Публикация неблокирующая: при переполненном буфере событие
// отбрасывается с предупреждением, поток данных важнее полноты.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	eventBuffer chan Event
	config      Config
	running     bool
	stopChan    chan struct{}
	wg          sync.WaitGroup

	metricsMu       sync.Mutex
	eventsPublished int64
	eventsProcessed int64
	eventsDropped   int64
	eventsFailed    int64
}

// Config - конфигурация шины
type Config struct {
	BufferSize  int
	WorkerCount int
}

// DefaultConfig - конфигурация по умолчанию
var DefaultConfig = Config{
	BufferSize:  1000,
	WorkerCount: 4,
}

// NewEventBus создает новую шину событий
func NewEventBus(config ...Config) *EventBus {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig.BufferSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig.WorkerCount
	}

	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		eventBuffer: make(chan Event, cfg.BufferSize),
		config:      cfg,
		stopChan:    make(chan struct{}),
	}
}

// Start запускает обработчиков событий
func (b *EventBus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return
	}
	b.running = true

	for i := 0; i < b.config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.eventWorker()
	}

	logger.Info("🚀 EventBus запущен с %d обработчиками", b.config.WorkerCount)
}

// Stop останавливает шину, дожидаясь обработчиков
func (b *EventBus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	close(b.stopChan)
	b.wg.Wait()

	logger.Info("🛑 EventBus остановлен")
}

// Subscribe подписывает обработчик на тип события
func (b *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	found := false
	for _, et := range subscriber.GetSubscribedEvents() {
		if et == eventType {
			found = true
			break
		}
	}
	if !found {
		logger.Warn("⚠️ Подписчик %s не объявляет событие %s", subscriber.GetName(), eventType)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
	logger.Info("✅ %s подписался на %s", subscriber.GetName(), eventType)
}

// Publish публикует событие без блокировки
func (b *EventBus) Publish(event Event) error {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	if !running {
		return fmt.Errorf("event bus is not running")
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case b.eventBuffer <- event:
		b.metricsMu.Lock()
		b.eventsPublished++
		b.metricsMu.Unlock()
		return nil
	default:
		b.metricsMu.Lock()
		b.eventsDropped++
		b.metricsMu.Unlock()
		logger.Warn("⚠️ Буфер событий полон, событие отброшено: %s", event.Type)
		return fmt.Errorf("event buffer is full")
	}
}

// PublishSync обрабатывает событие синхронно, минуя буфер
func (b *EventBus) PublishSync(event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return b.processEvent(event)
}

func (b *EventBus) eventWorker() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventBuffer:
			b.processEvent(event)
		case <-b.stopChan:
			// Дорабатываем уже опубликованные события перед выходом
			for {
				select {
				case event := <-b.eventBuffer:
					b.processEvent(event)
				default:
					return
				}
			}
		}
	}
}

// processEvent раздает событие всем подписчикам его типа.
// Ошибка одного подписчика не мешает остальным.
func (b *EventBus) processEvent(event Event) error {
	b.mu.RLock()
	subscribers := b.subscribers[event.Type]
	b.mu.RUnlock()

	var lastError error
	for _, subscriber := range subscribers {
		if err := b.handleSafely(event, subscriber); err != nil {
			lastError = err
			logger.Error("❌ Ошибка обработки %s подписчиком %s: %v",
				event.Type, subscriber.GetName(), err)

			b.metricsMu.Lock()
			b.eventsFailed++
			b.metricsMu.Unlock()
		}
	}

	b.metricsMu.Lock()
	b.eventsProcessed++
	b.metricsMu.Unlock()

	return lastError
}

// handleSafely вызывает подписчика с восстановлением после паники
func (b *EventBus) handleSafely(event Event, subscriber Subscriber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %s panicked: %v", subscriber.GetName(), r)
		}
	}()

	return subscriber.HandleEvent(event)
}

// GetSubscriberCount возвращает количество подписчиков типа события
func (b *EventBus) GetSubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// Metrics возвращает счетчики шины
func (b *EventBus) Metrics() map[string]int64 {
	b.metricsMu.Lock()
	defer b.metricsMu.Unlock()

	return map[string]int64{
		"events_published": b.eventsPublished,
		"events_processed": b.eventsProcessed,
		"events_dropped":   b.eventsDropped,
		"events_failed":    b.eventsFailed,
	}
}

// IsRunning возвращает true, если шина запущена
func (b *EventBus) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}
