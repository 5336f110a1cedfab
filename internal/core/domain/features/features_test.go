// internal/core/domain/features/features_test.go
package features

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"crypto-market-advisor/internal/types/market"
)

func candle(high, low, close float64) market.Candle {
	return market.Candle{
		Ts:    time.Now(),
		Open:  decimal.NewFromFloat(close),
		High:  decimal.NewFromFloat(high),
		Low:   decimal.NewFromFloat(low),
		Close: decimal.NewFromFloat(close),
	}
}

func TestATRNotEnoughCandles(t *testing.T) {
	assert.Equal(t, 0.0, ATR(nil, DefaultATRPeriod))
	assert.Equal(t, 0.0, ATR([]market.Candle{candle(101, 99, 100)}, DefaultATRPeriod))
}

func TestATRConstantPriceSeries(t *testing.T) {
	// Для серии high=low=close=c истинный диапазон каждого бара равен нулю
	candles := make([]market.Candle, 30)
	for i := range candles {
		candles[i] = candle(100, 100, 100)
	}

	assert.Equal(t, 0.0, ATR(candles, DefaultATRPeriod))
}

func TestATRWilderSmoothing(t *testing.T) {
	// 3 свечи -> 2 истинных диапазона, period обрезается до 2
	candles := []market.Candle{
		candle(101, 99, 100),
		candle(102, 100, 101), // tr = max(2, 2, 0) = 2
		candle(105, 101, 104), // tr = max(4, 4, 0) = 4
	}

	assert.InDelta(t, 3.0, ATR(candles, DefaultATRPeriod), 1e-9)
}

func TestVolatilityRegime(t *testing.T) {
	quiet := make([]market.Candle, 20)
	for i := range quiet {
		quiet[i] = candle(1.0001, 1.0, 1.0)
	}
	assert.Equal(t, RegimeQuiet, VolatilityRegime(quiet))

	expansion := make([]market.Candle, 20)
	for i := range expansion {
		expansion[i] = candle(105, 95, 100)
	}
	assert.Equal(t, RegimeExpansion, VolatilityRegime(expansion))
}

func TestRealizedVolNotEnoughReturns(t *testing.T) {
	assert.Equal(t, 0.0, RealizedVol(nil, market.Timeframe1h))
	assert.Equal(t, 0.0, RealizedVol([]market.Candle{candle(101, 99, 100), candle(102, 100, 101)}, market.Timeframe1h))
}

func TestRealizedVolConstantSeries(t *testing.T) {
	candles := make([]market.Candle, 50)
	for i := range candles {
		candles[i] = candle(100, 100, 100)
	}

	assert.Equal(t, 0.0, RealizedVol(candles, market.Timeframe1h))
}

func TestRealizedVolPositive(t *testing.T) {
	closes := []float64{100, 101, 99, 102, 98, 103, 100, 104}
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = candle(c+1, c-1, c)
	}

	assert.Greater(t, RealizedVol(candles, market.Timeframe1h), 0.0)
}

func TestSMA(t *testing.T) {
	candles := []market.Candle{
		candle(11, 9, 10),
		candle(21, 19, 20),
		candle(31, 29, 30),
	}

	assert.InDelta(t, 25.0, SMA(candles, 2), 1e-9)
	// n больше количества свечей - усредняем всё
	assert.InDelta(t, 20.0, SMA(candles, 10), 1e-9)
	assert.Equal(t, 0.0, SMA(nil, 5))
}

func book(bids, asks [][2]float64) *market.OrderbookSnapshot {
	ob := &market.OrderbookSnapshot{Symbol: "BTCUSDT", Ts: time.Now()}
	for _, b := range bids {
		ob.Bids = append(ob.Bids, market.BookLevel{Price: decimal.NewFromFloat(b[0]), Qty: decimal.NewFromFloat(b[1])})
	}
	for _, a := range asks {
		ob.Asks = append(ob.Asks, market.BookLevel{Price: decimal.NewFromFloat(a[0]), Qty: decimal.NewFromFloat(a[1])})
	}
	return ob
}

func TestComputeSpreadDepthEmptyBook(t *testing.T) {
	empty := SpreadDepthStats{}

	assert.Equal(t, empty, ComputeSpreadDepth(nil))
	assert.Equal(t, empty, ComputeSpreadDepth(book(nil, [][2]float64{{100.1, 1}})))
	assert.Equal(t, empty, ComputeSpreadDepth(book([][2]float64{{100, 1}}, nil)))
}

func TestComputeSpreadDepth(t *testing.T) {
	ob := book(
		[][2]float64{{99.9, 5}},
		[][2]float64{{100.1, 1}, {100.15, 2}, {101.0, 50}},
	)

	stats := ComputeSpreadDepth(ob)

	assert.InDelta(t, 100.0, stats.Mid, 1e-9)
	assert.InDelta(t, 20.0, stats.SpreadBps, 1e-6)
	// В пределах 10 б.п. (цена <= 100.1): только первый уровень
	assert.InDelta(t, 1.0, stats.Depth10Bps, 1e-9)
	// В пределах 50 б.п. (цена <= 100.5): первые два уровня, третий отсекается
	assert.InDelta(t, 3.0, stats.Depth50Bps, 1e-9)
}

func trade(side string, price, qty float64) market.TradeTick {
	return market.TradeTick{
		Ts:    time.Now(),
		Price: decimal.NewFromFloat(price),
		Qty:   decimal.NewFromFloat(qty),
		Side:  side,
	}
}

func TestComputeFlowZeroNotional(t *testing.T) {
	assert.Equal(t, 0.0, ComputeFlow(nil, 0).FlowImbalance)

	stats := ComputeFlow([]market.TradeTick{trade(market.SideBuy, 100, 0)}, 0)
	assert.Equal(t, 0.0, stats.FlowImbalance)
}

func TestComputeFlowAllBuys(t *testing.T) {
	trades := []market.TradeTick{
		trade(market.SideBuy, 100, 1),
		trade(market.SideBuy, 101, 2),
	}

	stats := ComputeFlow(trades, 0)

	assert.Equal(t, 1.0, stats.FlowImbalance)
	assert.InDelta(t, 302.0, stats.BuyQuote, 1e-9)
	assert.Equal(t, 0.0, stats.SellQuote)
}

func TestComputeFlowLargeTrades(t *testing.T) {
	trades := []market.TradeTick{
		trade(market.SideBuy, 60_000, 1),  // крупная покупка
		trade(market.SideBuy, 55_000, 1),  // крупная покупка
		trade(market.SideSell, 70_000, 1), // крупная продажа
		trade(market.SideSell, 100, 1),    // мелкая
	}

	stats := ComputeFlow(trades, DefaultLargeTradeQuote)

	assert.Equal(t, 3, stats.LargeTradeCount)
	assert.Equal(t, market.SideBuy, stats.LargeTradeSide)
}

func TestComputeFlowLargeTradesBalanced(t *testing.T) {
	trades := []market.TradeTick{
		trade(market.SideBuy, 60_000, 1),
		trade(market.SideSell, 60_000, 1),
	}

	stats := ComputeFlow(trades, DefaultLargeTradeQuote)

	assert.Equal(t, 2, stats.LargeTradeCount)
	assert.Empty(t, stats.LargeTradeSide)
}
