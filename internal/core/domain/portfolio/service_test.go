// internal/core/domain/portfolio/service_test.go
package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyPortfolio(t *testing.T) {
	s := NewService()

	assert.Empty(t, s.Positions())
	assert.Equal(t, PnLSummary{}, s.PnL())
}

func TestPnLSummary(t *testing.T) {
	s := NewService()
	s.SetPositions([]Position{
		{InstrumentSymbol: "BTCUSDT", Side: "long", Qty: 1, RealizedPnL: 100, UnrealizedPnL: -20},
		{InstrumentSymbol: "ETHUSDT", Side: "short", Qty: 2, RealizedPnL: 50, UnrealizedPnL: 30},
	})

	pnl := s.PnL()

	assert.Equal(t, 150.0, pnl.Realized)
	assert.Equal(t, 10.0, pnl.Unrealized)
}

func TestPositionsReturnsCopy(t *testing.T) {
	s := NewService()
	s.SetPositions([]Position{{InstrumentSymbol: "BTCUSDT", Qty: 1}})

	positions := s.Positions()
	positions[0].Qty = 999

	assert.Equal(t, 1.0, s.Positions()[0].Qty)
}
