// internal/infrastructure/cache/memory/market_cache.go
package memory

import (
	"sync"

	types "crypto-market-advisor/internal/types/market"
)

const defaultTradeBuffer = 500

// MarketCache - внутрипроцессный кэш последних рыночных данных по
// символу: срез стакана, тикер и кольцевой буфер недавних сделок.
// Все операции чтения-модификации защищены мьютексом.
type MarketCache struct {
	mu          sync.RWMutex
	orderbooks  map[string]*types.OrderbookSnapshot
	tickers     map[string]*types.Ticker
	trades      map[string][]types.TradeTick
	tradeBuffer int
}

// NewMarketCache создает пустой кэш
func NewMarketCache(tradeBuffer int) *MarketCache {
	if tradeBuffer <= 0 {
		tradeBuffer = defaultTradeBuffer
	}
	return &MarketCache{
		orderbooks:  make(map[string]*types.OrderbookSnapshot),
		tickers:     make(map[string]*types.Ticker),
		trades:      make(map[string][]types.TradeTick),
		tradeBuffer: tradeBuffer,
	}
}

// SetOrderbook заменяет последний срез стакана символа
func (c *MarketCache) SetOrderbook(snapshot *types.OrderbookSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderbooks[snapshot.Symbol] = snapshot
}

// Orderbook возвращает последний срез стакана, nil при отсутствии
func (c *MarketCache) Orderbook(symbol string) *types.OrderbookSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orderbooks[symbol]
}

// SetTicker заменяет последний тикер символа
func (c *MarketCache) SetTicker(ticker *types.Ticker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickers[ticker.Symbol] = ticker
}

// Ticker возвращает последний тикер, nil при отсутствии
func (c *MarketCache) Ticker(symbol string) *types.Ticker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickers[symbol]
}

// AddTrades дописывает сделки в буфер символа, сохраняя только
// tradeBuffer последних
func (c *MarketCache) AddTrades(symbol string, trades []types.TradeTick) {
	if len(trades) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	buf := append(c.trades[symbol], trades...)
	if len(buf) > c.tradeBuffer {
		buf = buf[len(buf)-c.tradeBuffer:]
	}
	c.trades[symbol] = buf
}

// RecentTrades возвращает копию буфера сделок символа
func (c *MarketCache) RecentTrades(symbol string) []types.TradeTick {
	c.mu.RLock()
	defer c.mu.RUnlock()

	buf := c.trades[symbol]
	out := make([]types.TradeTick, len(buf))
	copy(out, buf)
	return out
}

// Symbols возвращает все символы, по которым есть хоть какие-то данные
func (c *MarketCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for s := range c.orderbooks {
		seen[s] = true
	}
	for s := range c.tickers {
		seen[s] = true
	}
	for s := range c.trades {
		seen[s] = true
	}

	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	return symbols
}
