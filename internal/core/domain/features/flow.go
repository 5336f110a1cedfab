// internal/core/domain/features/flow.go
package features

import (
	"crypto-market-advisor/internal/types/market"
)

// DefaultLargeTradeQuote - порог "крупной" сделки в котируемой валюте
const DefaultLargeTradeQuote = 50_000.0

// FlowStats - метрики потока сделок
type FlowStats struct {
	BuyQuote        float64 `json:"buy_quote"`
	SellQuote       float64 `json:"sell_quote"`
	NetFlowQuote    float64 `json:"net_flow_quote"`
	FlowImbalance   float64 `json:"flow_imbalance"`
	LargeTradeCount int     `json:"large_trade_count"`
	LargeTradeSide  string  `json:"large_trade_side,omitempty"`
}

// ComputeFlow разбивает сделки на покупки/продажи по нотионалу (цена*количество)
// и считает дисбаланс потока (buy-sell)/(buy+sell).
// Сделка считается крупной при нотионале >= largeQuote; LargeTradeSide
// заполняется стороной со строго большим числом крупных сделок.
func ComputeFlow(trades []market.TradeTick, largeQuote float64) FlowStats {
	if largeQuote <= 0 {
		largeQuote = DefaultLargeTradeQuote
	}

	var stats FlowStats
	var largeBuys, largeSells int

	for _, t := range trades {
		notional := t.Notional().InexactFloat64()

		switch t.Side {
		case market.SideBuy:
			stats.BuyQuote += notional
			if notional >= largeQuote {
				largeBuys++
			}
		case market.SideSell:
			stats.SellQuote += notional
			if notional >= largeQuote {
				largeSells++
			}
		}
	}

	stats.NetFlowQuote = stats.BuyQuote - stats.SellQuote
	stats.LargeTradeCount = largeBuys + largeSells

	total := stats.BuyQuote + stats.SellQuote
	if total > 0 {
		stats.FlowImbalance = stats.NetFlowQuote / total
	}

	switch {
	case largeBuys > largeSells:
		stats.LargeTradeSide = market.SideBuy
	case largeSells > largeBuys:
		stats.LargeTradeSide = market.SideSell
	}

	return stats
}
