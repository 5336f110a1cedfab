// internal/infrastructure/transport/event_bus/subscribers.go
package events

import (
	"context"
	"fmt"
	"time"

	"crypto-market-advisor/internal/infrastructure/cache/memory"
	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

// CacheSubscriber обновляет внутрипроцессный кэш рыночных данных
// по событиям потока
type CacheSubscriber struct {
	cache *memory.MarketCache
}

// NewCacheSubscriber создает подписчика кэша
func NewCacheSubscriber(cache *memory.MarketCache) *CacheSubscriber {
	return &CacheSubscriber{cache: cache}
}

func (s *CacheSubscriber) GetName() string { return "CacheSubscriber" }

func (s *CacheSubscriber) GetSubscribedEvents() []EventType {
	return []EventType{EventOrderbookUpdated, EventTradesReceived, EventTickerUpdated}
}

func (s *CacheSubscriber) HandleEvent(event Event) error {
	switch event.Type {
	case EventOrderbookUpdated:
		snapshot, ok := event.Data.(*types.OrderbookSnapshot)
		if !ok {
			return fmt.Errorf("unexpected orderbook payload %T", event.Data)
		}
		s.cache.SetOrderbook(snapshot)

	case EventTradesReceived:
		trades, ok := event.Data.([]types.TradeTick)
		if !ok {
			return fmt.Errorf("unexpected trades payload %T", event.Data)
		}
		s.cache.AddTrades(event.Symbol, trades)

	case EventTickerUpdated:
		ticker, ok := event.Data.(*types.Ticker)
		if !ok {
			return fmt.Errorf("unexpected ticker payload %T", event.Data)
		}
		s.cache.SetTicker(ticker)
	}

	return nil
}

// FeedMetrics - учет событий потока
type FeedMetrics interface {
	RecordFeedEvent(eventType string)
}

// MetricsSubscriber считает события потока по типам
type MetricsSubscriber struct {
	metrics FeedMetrics
}

// NewMetricsSubscriber создает подписчика метрик
func NewMetricsSubscriber(metrics FeedMetrics) *MetricsSubscriber {
	return &MetricsSubscriber{metrics: metrics}
}

func (s *MetricsSubscriber) GetName() string { return "MetricsSubscriber" }

func (s *MetricsSubscriber) GetSubscribedEvents() []EventType {
	return []EventType{EventOrderbookUpdated, EventTradesReceived, EventTickerUpdated, EventFeedError}
}

func (s *MetricsSubscriber) HandleEvent(event Event) error {
	s.metrics.RecordFeedEvent(string(event.Type))
	return nil
}

// TradeWriter - узкий интерфейс идемпотентной записи сделок
type TradeWriter interface {
	InsertIgnore(ctx context.Context, symbol string, trades []types.TradeTick) (int64, error)
}

// PersistenceSubscriber пишет поток сделок в хранилище.
// Дубликаты поглощаются вставкой insert-or-ignore.
type PersistenceSubscriber struct {
	trades  TradeWriter
	timeout time.Duration
}

// NewPersistenceSubscriber создает подписчика персистентности
func NewPersistenceSubscriber(trades TradeWriter, timeout time.Duration) *PersistenceSubscriber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PersistenceSubscriber{trades: trades, timeout: timeout}
}

func (s *PersistenceSubscriber) GetName() string { return "PersistenceSubscriber" }

func (s *PersistenceSubscriber) GetSubscribedEvents() []EventType {
	return []EventType{EventTradesReceived}
}

func (s *PersistenceSubscriber) HandleEvent(event Event) error {
	trades, ok := event.Data.([]types.TradeTick)
	if !ok {
		return fmt.Errorf("unexpected trades payload %T", event.Data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	inserted, err := s.trades.InsertIgnore(ctx, event.Symbol, trades)
	if err != nil {
		return fmt.Errorf("failed to persist trades for %s: %w", event.Symbol, err)
	}

	if inserted > 0 {
		logger.Debug("💾 Сохранено %d сделок %s", inserted, event.Symbol)
	}
	return nil
}
