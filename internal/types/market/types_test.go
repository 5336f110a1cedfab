// internal/types/market/types_test.go
package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookLevels(t *testing.T) {
	levels, err := ParseBookLevels([][]string{{"1", "2"}, {"1.1", "3"}})

	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(decimal.NewFromInt(1)))
	assert.True(t, levels[1].Qty.Equal(decimal.NewFromInt(3)))
}

func TestParseBookLevelsPreservesPrecision(t *testing.T) {
	// 18 знаков после запятой должны пережить разбор без дрейфа
	raw := "0.123456789012345678"

	levels, err := ParseBookLevels([][]string{{raw, "1"}})

	require.NoError(t, err)
	assert.Equal(t, raw, levels[0].Price.String())
}

func TestParseBookLevelsRejectsMalformed(t *testing.T) {
	_, err := ParseBookLevels([][]string{{"1.0"}})
	assert.Error(t, err)

	_, err = ParseBookLevels([][]string{{"not-a-price", "1"}})
	assert.Error(t, err)

	_, err = ParseBookLevels([][]string{{"1", "not-a-qty"}})
	assert.Error(t, err)
}

func TestBestBidBestAsk(t *testing.T) {
	ob := OrderbookSnapshot{
		Bids: []BookLevel{{Price: decimal.NewFromInt(100), Qty: decimal.NewFromInt(1)}},
	}

	bid, ok := ob.BestBid()
	assert.True(t, ok)
	assert.True(t, bid.Price.Equal(decimal.NewFromInt(100)))

	_, ok = ob.BestAsk()
	assert.False(t, ok)
}

func TestTradeNotional(t *testing.T) {
	tick := TradeTick{
		Price: decimal.RequireFromString("50000.5"),
		Qty:   decimal.RequireFromString("0.2"),
	}

	assert.Equal(t, "10000.1", tick.Notional().String())
}

func TestPeriodsPerDay(t *testing.T) {
	assert.Equal(t, 24.0, Timeframe1h.PeriodsPerDay())
	assert.Equal(t, 96.0, Timeframe15m.PeriodsPerDay())
	assert.Equal(t, 1.0, Timeframe1d.PeriodsPerDay())
}
