// internal/adapters/market/ws/feed_test.go
package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	events "crypto-market-advisor/internal/infrastructure/transport/event_bus"
	types "crypto-market-advisor/internal/types/market"
)

type capture struct {
	orderbooks []*types.OrderbookSnapshot
	trades     [][]types.TradeTick
	tickers    []*types.Ticker
}

func (c *capture) GetName() string { return "capture" }

func (c *capture) GetSubscribedEvents() []events.EventType {
	return []events.EventType{events.EventOrderbookUpdated, events.EventTradesReceived, events.EventTickerUpdated}
}

func (c *capture) HandleEvent(event events.Event) error {
	switch event.Type {
	case events.EventOrderbookUpdated:
		c.orderbooks = append(c.orderbooks, event.Data.(*types.OrderbookSnapshot))
	case events.EventTradesReceived:
		c.trades = append(c.trades, event.Data.([]types.TradeTick))
	case events.EventTickerUpdated:
		c.tickers = append(c.tickers, event.Data.(*types.Ticker))
	}
	return nil
}

// newFeedWithCapture собирает Feed с шиной, доставляющей синхронно
func newFeedWithCapture() (*Feed, *capture, *events.EventBus) {
	bus := events.NewEventBus(events.Config{BufferSize: 100, WorkerCount: 1})
	bus.Start()

	c := &capture{}
	bus.Subscribe(events.EventOrderbookUpdated, c)
	bus.Subscribe(events.EventTradesReceived, c)
	bus.Subscribe(events.EventTickerUpdated, c)

	feed := NewFeed("wss://example", []string{"BTCUSDT"}, bus)
	return feed, c, bus
}

func snapshotMessage(t *testing.T, msgType string, bids, asks [][]string) json.RawMessage {
	t.Helper()

	data, err := json.Marshal(map[string]interface{}{
		"topic": "orderbook.50.BTCUSDT",
		"type":  msgType,
		"ts":    1700000000000,
		"data": map[string]interface{}{
			"s": "BTCUSDT",
			"b": bids,
			"a": asks,
		},
	})
	require.NoError(t, err)
	return data
}

func TestFeedOrderbookSnapshot(t *testing.T) {
	feed, c, bus := newFeedWithCapture()
	defer bus.Stop()

	raw := snapshotMessage(t, "snapshot",
		[][]string{{"100", "2"}, {"99", "1"}},
		[][]string{{"101", "3"}})
	feed.handleMessage(raw)
	bus.Stop()

	require.Len(t, c.orderbooks, 1)
	ob := c.orderbooks[0]
	assert.Equal(t, "BTCUSDT", ob.Symbol)
	require.Len(t, ob.Bids, 2)
	assert.Equal(t, "100", ob.Bids[0].Price.String())
	assert.Equal(t, "3", ob.Asks[0].Qty.String())
}

func TestFeedOrderbookDeltaMerge(t *testing.T) {
	feed, c, bus := newFeedWithCapture()
	defer bus.Stop()

	feed.handleMessage(snapshotMessage(t, "snapshot",
		[][]string{{"100", "2"}, {"99", "1"}},
		[][]string{{"101", "3"}}))

	// Дельта: удаляет бид 99, обновляет бид 100, добавляет аск 102
	feed.handleMessage(snapshotMessage(t, "delta",
		[][]string{{"99", "0"}, {"100", "5"}},
		[][]string{{"102", "1"}}))
	bus.Stop()

	require.Len(t, c.orderbooks, 2)
	ob := c.orderbooks[1]
	require.Len(t, ob.Bids, 1)
	assert.Equal(t, "5", ob.Bids[0].Qty.String())
	require.Len(t, ob.Asks, 2)
	assert.Equal(t, "101", ob.Asks[0].Price.String())
	assert.Equal(t, "102", ob.Asks[1].Price.String())
}

func TestFeedDeltaWithoutSnapshotIgnored(t *testing.T) {
	feed, c, bus := newFeedWithCapture()
	defer bus.Stop()

	feed.handleMessage(snapshotMessage(t, "delta", [][]string{{"100", "1"}}, nil))
	bus.Stop()

	assert.Empty(t, c.orderbooks)
}

func TestFeedTrades(t *testing.T) {
	feed, c, bus := newFeedWithCapture()
	defer bus.Stop()

	raw, err := json.Marshal(map[string]interface{}{
		"topic": "publicTrade.BTCUSDT",
		"ts":    1700000000000,
		"data": []map[string]interface{}{
			{"T": 1700000000001, "s": "BTCUSDT", "S": "Buy", "v": "0.5", "p": "50000", "i": "t1"},
			{"T": 1700000000002, "s": "BTCUSDT", "S": "Sell", "v": "0.2", "p": "50001", "i": "t2"},
		},
	})
	require.NoError(t, err)

	feed.handleMessage(raw)
	bus.Stop()

	require.Len(t, c.trades, 1)
	trades := c.trades[0]
	require.Len(t, trades, 2)
	assert.Equal(t, types.SideBuy, trades[0].Side)
	assert.Equal(t, types.SideSell, trades[1].Side)
	assert.Equal(t, "t1", trades[0].TradeID)
}

func TestFeedTicker(t *testing.T) {
	feed, c, bus := newFeedWithCapture()
	defer bus.Stop()

	raw, err := json.Marshal(map[string]interface{}{
		"topic": "tickers.BTCUSDT",
		"ts":    1700000000000,
		"data": map[string]interface{}{
			"symbol":      "BTCUSDT",
			"lastPrice":   "50000.5",
			"volume24h":   "123.4",
			"turnover24h": "6170000",
		},
	})
	require.NoError(t, err)

	feed.handleMessage(raw)
	bus.Stop()

	require.Len(t, c.tickers, 1)
	assert.Equal(t, "50000.5", c.tickers[0].LastPrice.String())
}

func TestFeedIgnoresSystemMessages(t *testing.T) {
	feed, c, bus := newFeedWithCapture()
	defer bus.Stop()

	feed.handleMessage(json.RawMessage(`{"op": "pong"}`))
	feed.handleMessage(json.RawMessage(`{"op": "subscribe", "success": true}`))
	feed.handleMessage(json.RawMessage(`not json`))
	bus.Stop()

	assert.Empty(t, c.orderbooks)
	assert.Empty(t, c.trades)
	assert.Empty(t, c.tickers)
}
