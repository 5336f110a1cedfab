// internal/infrastructure/transport/event_bus/event.go
package events

import "time"

// EventType - тип события шины
type EventType string

const (
	EventOrderbookUpdated  EventType = "orderbook.updated"
	EventTradesReceived    EventType = "trades.received"
	EventTickerUpdated     EventType = "ticker.updated"
	EventAnalysisCompleted EventType = "analysis.completed"
	EventFeedError         EventType = "feed.error"
)

// Event - событие шины
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Symbol    string      `json:"symbol,omitempty"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Subscriber - подписчик шины событий
type Subscriber interface {
	GetName() string
	GetSubscribedEvents() []EventType
	HandleEvent(event Event) error
}
