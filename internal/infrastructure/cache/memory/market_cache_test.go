// internal/infrastructure/cache/memory/market_cache_test.go
package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "crypto-market-advisor/internal/types/market"
)

func TestMarketCacheOrderbookReplace(t *testing.T) {
	cache := NewMarketCache(0)

	assert.Nil(t, cache.Orderbook("BTCUSDT"))

	first := &types.OrderbookSnapshot{Symbol: "BTCUSDT", Ts: time.Now()}
	second := &types.OrderbookSnapshot{Symbol: "BTCUSDT", Ts: time.Now().Add(time.Second)}

	cache.SetOrderbook(first)
	cache.SetOrderbook(second)

	assert.Same(t, second, cache.Orderbook("BTCUSDT"))
}

func TestMarketCacheTradeBufferCap(t *testing.T) {
	cache := NewMarketCache(3)

	for i := 0; i < 5; i++ {
		cache.AddTrades("BTCUSDT", []types.TradeTick{{
			TradeID: fmt.Sprintf("t%d", i),
			Price:   decimal.NewFromInt(100),
			Qty:     decimal.NewFromInt(1),
		}})
	}

	trades := cache.RecentTrades("BTCUSDT")
	require.Len(t, trades, 3)
	assert.Equal(t, "t2", trades[0].TradeID)
	assert.Equal(t, "t4", trades[2].TradeID)
}

func TestMarketCacheRecentTradesIsCopy(t *testing.T) {
	cache := NewMarketCache(10)
	cache.AddTrades("BTCUSDT", []types.TradeTick{{TradeID: "t1"}})

	trades := cache.RecentTrades("BTCUSDT")
	trades[0].TradeID = "mutated"

	assert.Equal(t, "t1", cache.RecentTrades("BTCUSDT")[0].TradeID)
}

func TestMarketCacheSymbols(t *testing.T) {
	cache := NewMarketCache(10)
	cache.SetOrderbook(&types.OrderbookSnapshot{Symbol: "BTCUSDT"})
	cache.SetTicker(&types.Ticker{Symbol: "ETHUSDT"})
	cache.AddTrades("SOLUSDT", []types.TradeTick{{TradeID: "t1"}})

	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, cache.Symbols())
}

func TestMarketCacheConcurrentAccess(t *testing.T) {
	cache := NewMarketCache(100)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)

		go func(n int) {
			defer wg.Done()
			cache.SetTicker(&types.Ticker{Symbol: "BTCUSDT", Ts: time.Now()})
			cache.AddTrades("BTCUSDT", []types.TradeTick{{TradeID: fmt.Sprintf("t%d", n)}})
		}(i)

		go func() {
			defer wg.Done()
			cache.Ticker("BTCUSDT")
			cache.RecentTrades("BTCUSDT")
		}()
	}

	wg.Wait()
	assert.NotNil(t, cache.Ticker("BTCUSDT"))
}
