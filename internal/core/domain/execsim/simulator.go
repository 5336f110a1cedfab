// internal/core/domain/execsim/simulator.go
package execsim

import (
	"fmt"

	"crypto-market-advisor/internal/core/domain/plan"
)

// Статусы симуляции
const (
	StatusFilled   = "filled"
	StatusRejected = "rejected"
)

// SimulationResult - результат бумажного исполнения
type SimulationResult struct {
	Status       string  `json:"status"`
	FilledQty    float64 `json:"filled_qty"`
	AvgFillPrice float64 `json:"avg_fill_price"`
}

// Simulate исполняет сделку на бумаге. Рыночный ордер заполняется по
// mid со сдвигом на max_slippage_bps в худшую сторону, лимитный - по
// своей цене. Никакого состояния: симулятор - заглушка исполнения.
func Simulate(trade plan.ProposedTrade, mid float64) (SimulationResult, error) {
	if err := plan.ValidateTrade(trade); err != nil {
		return SimulationResult{Status: StatusRejected}, err
	}

	if trade.OrderType == plan.OrderTypeMarket {
		if mid <= 0 {
			return SimulationResult{Status: StatusRejected},
				fmt.Errorf("execsim: market order needs a positive mid price, got %v", mid)
		}
		return SimulationResult{
			Status:       StatusFilled,
			FilledQty:    trade.Qty,
			AvgFillPrice: applySlippage(mid, trade.Side, trade.MaxSlippageBps),
		}, nil
	}

	return SimulationResult{
		Status:       StatusFilled,
		FilledQty:    trade.Qty,
		AvgFillPrice: *trade.Price,
	}, nil
}

// applySlippage сдвигает mid на bps против стороны сделки
func applySlippage(mid float64, side plan.OrderSide, bps int) float64 {
	shift := mid * float64(bps) / 10_000
	if side == plan.SideBuy {
		return mid + shift
	}
	return mid - shift
}
