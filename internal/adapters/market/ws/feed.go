// internal/adapters/market/ws/feed.go
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/shopspring/decimal"

	events "crypto-market-advisor/internal/infrastructure/transport/event_bus"
	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

const (
	pingInterval  = 20 * time.Second
	maxRetryDelay = 60 * time.Second
	bookDepth     = 50
)

// Feed подписывается на публичный WebSocket биржи и публикует
// нормализованные рыночные события в шину. Поток best-effort:
// соединение переподключается с растущей задержкой, потерянные
// сообщения не восстанавливаются.
type Feed struct {
	url      string
	symbols  []string
	eventBus *events.EventBus

	stopCh chan struct{}
	wg     sync.WaitGroup

	// Локальные книги для применения дельт стакана
	booksMu sync.Mutex
	books   map[string]*localBook
}

type localBook struct {
	bids map[string]decimal.Decimal
	asks map[string]decimal.Decimal
}

// NewFeed создает новый поток рыночных данных
func NewFeed(url string, symbols []string, eventBus *events.EventBus) *Feed {
	return &Feed{
		url:      url,
		symbols:  symbols,
		eventBus: eventBus,
		stopCh:   make(chan struct{}),
		books:    make(map[string]*localBook),
	}
}

// Start запускает горутину соединения с авто-переподключением
func (f *Feed) Start() error {
	if len(f.symbols) == 0 {
		return fmt.Errorf("feed: no symbols to subscribe")
	}

	f.wg.Add(1)
	go f.connectLoop()

	logger.Info("🌊 Feed: запущен, символов для подписки: %d", len(f.symbols))
	return nil
}

// Stop останавливает поток и ждет завершения горутин
func (f *Feed) Stop() {
	close(f.stopCh)
	f.wg.Wait()
	logger.Info("🛑 Feed: остановлен")
}

// connectLoop - соединение с экспоненциальным backoff при переподключении
func (f *Feed) connectLoop() {
	defer f.wg.Done()

	retryDelay := 2 * time.Second

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		logger.Info("🔌 Feed: подключение к %s (%d символов)", f.url, len(f.symbols))
		err := f.runConnection()
		if err != nil {
			select {
			case <-f.stopCh:
				return
			default:
			}

			logger.Warn("⚠️ Feed: соединение прервано: %v, повтор через %v", err, retryDelay)
			f.eventBus.Publish(events.Event{
				Type:   events.EventFeedError,
				Source: "ws_feed",
				Data:   err.Error(),
			})

			select {
			case <-time.After(retryDelay):
			case <-f.stopCh:
				return
			}
			retryDelay = minDuration(retryDelay*2, maxRetryDelay)
		} else {
			retryDelay = 2 * time.Second
		}
	}
}

// runConnection устанавливает одно соединение, подписывается и читает события
func (f *Feed) runConnection() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-f.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("✅ Feed: соединение установлено")

	// Книги невалидны после разрыва - ждем свежих снапшотов
	f.booksMu.Lock()
	f.books = make(map[string]*localBook)
	f.booksMu.Unlock()

	if err := f.subscribe(ctx, conn); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := wsjson.Write(ctx, conn, wsPingMsg{Op: "ping"}); err != nil {
					return
				}
			case <-pingStop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	defer close(pingStop)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("read failed: %w", err)
			}
		}

		f.handleMessage(raw)
	}
}

// subscribe отправляет подписки батчами по 10 топиков
func (f *Feed) subscribe(ctx context.Context, conn *websocket.Conn) error {
	topics := make([]string, 0, len(f.symbols)*3)
	for _, sym := range f.symbols {
		topics = append(topics,
			fmt.Sprintf("orderbook.%d.%s", bookDepth, sym),
			"publicTrade."+sym,
			"tickers."+sym,
		)
	}

	const batchSize = 10
	for i := 0; i < len(topics); i += batchSize {
		end := i + batchSize
		if end > len(topics) {
			end = len(topics)
		}

		if err := wsjson.Write(ctx, conn, wsSubscribeMsg{Op: "subscribe", Args: topics[i:end]}); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
	}

	logger.Info("📡 Feed: подписан на %d топиков", len(topics))
	return nil
}

// handleMessage обрабатывает входящее сообщение
func (f *Feed) handleMessage(raw json.RawMessage) {
	var resp wsResponseMsg
	if err := json.Unmarshal(raw, &resp); err == nil && resp.Op != "" {
		if resp.Op == "subscribe" && !resp.Success {
			logger.Warn("⚠️ Feed: ошибка подписки: %s", resp.RetMsg)
		}
		return
	}

	var msg wsTopicMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Topic == "" {
		return
	}

	switch {
	case strings.HasPrefix(msg.Topic, "orderbook."):
		f.handleOrderbook(&msg)
	case strings.HasPrefix(msg.Topic, "publicTrade."):
		f.handleTrades(&msg)
	case strings.HasPrefix(msg.Topic, "tickers."):
		f.handleTicker(&msg)
	}
}

// handleOrderbook применяет снапшот или дельту и публикует полный срез
func (f *Feed) handleOrderbook(msg *wsTopicMsg) {
	var data orderbookData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.Symbol == "" {
		return
	}

	f.booksMu.Lock()
	book := f.books[data.Symbol]
	if msg.Type == "snapshot" || book == nil {
		if msg.Type != "snapshot" {
			// Дельта без снапшота - книги нет, ждем снапшот
			f.booksMu.Unlock()
			return
		}
		book = &localBook{
			bids: make(map[string]decimal.Decimal),
			asks: make(map[string]decimal.Decimal),
		}
		f.books[data.Symbol] = book
	}

	applyLevels(book.bids, data.Bids)
	applyLevels(book.asks, data.Asks)

	snapshot := book.snapshot(data.Symbol, time.UnixMilli(msg.Ts).UTC())
	f.booksMu.Unlock()

	f.eventBus.Publish(events.Event{
		Type:   events.EventOrderbookUpdated,
		Symbol: data.Symbol,
		Source: "ws_feed",
		Data:   snapshot,
	})
}

// applyLevels обновляет уровни книги, количество "0" удаляет уровень
func applyLevels(side map[string]decimal.Decimal, levels [][]string) {
	for _, level := range levels {
		if len(level) < 2 {
			continue
		}

		qty, err := decimal.NewFromString(level[1])
		if err != nil {
			continue
		}

		if qty.IsZero() {
			delete(side, level[0])
		} else {
			side[level[0]] = qty
		}
	}
}

// snapshot собирает сортированный срез стакана из локальной книги
func (b *localBook) snapshot(symbol string, ts time.Time) *types.OrderbookSnapshot {
	bids := levelsFromMap(b.bids, true)
	asks := levelsFromMap(b.asks, false)

	return &types.OrderbookSnapshot{
		Symbol: symbol,
		Ts:     ts,
		Bids:   bids,
		Asks:   asks,
	}
}

func levelsFromMap(side map[string]decimal.Decimal, descending bool) []types.BookLevel {
	levels := make([]types.BookLevel, 0, len(side))
	for priceStr, qty := range side {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			continue
		}
		levels = append(levels, types.BookLevel{Price: price, Qty: qty})
	}

	sortLevels(levels, descending)
	return levels
}

func sortLevels(levels []types.BookLevel, descending bool) {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0; j-- {
			less := levels[j].Price.LessThan(levels[j-1].Price)
			if descending {
				less = levels[j].Price.GreaterThan(levels[j-1].Price)
			}
			if !less {
				break
			}
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}

// handleTrades публикует пакет нормализованных сделок
func (f *Feed) handleTrades(msg *wsTopicMsg) {
	var data []tradeData
	if err := json.Unmarshal(msg.Data, &data); err != nil || len(data) == 0 {
		return
	}

	symbol := data[0].Symbol
	trades := make([]types.TradeTick, 0, len(data))

	for _, d := range data {
		price, err := decimal.NewFromString(d.Price)
		if err != nil {
			continue
		}
		qty, err := decimal.NewFromString(d.Qty)
		if err != nil {
			continue
		}

		side := types.SideBuy
		if d.Side == "Sell" {
			side = types.SideSell
		}

		trades = append(trades, types.TradeTick{
			Ts:      time.UnixMilli(d.Ts).UTC(),
			Price:   price,
			Qty:     qty,
			Side:    side,
			TradeID: d.TradeID,
		})
	}

	if len(trades) == 0 {
		return
	}

	f.eventBus.Publish(events.Event{
		Type:   events.EventTradesReceived,
		Symbol: symbol,
		Source: "ws_feed",
		Data:   trades,
	})
}

// handleTicker публикует обновленный тикер
func (f *Feed) handleTicker(msg *wsTopicMsg) {
	var data tickerData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.Symbol == "" {
		return
	}

	lastPrice, err := decimal.NewFromString(data.LastPrice)
	if err != nil {
		return
	}

	ticker := &types.Ticker{
		Symbol:    data.Symbol,
		LastPrice: lastPrice,
		Ts:        time.UnixMilli(msg.Ts).UTC(),
	}

	if v, err := decimal.NewFromString(data.Volume24h); err == nil {
		ticker.Volume24h = v
	}
	if v, err := decimal.NewFromString(data.Turnover24h); err == nil {
		ticker.Turnover24h = v
	}

	f.eventBus.Publish(events.Event{
		Type:   events.EventTickerUpdated,
		Symbol: data.Symbol,
		Source: "ws_feed",
		Data:   ticker,
	})
}

// minDuration возвращает меньшую из двух длительностей
func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
