// internal/core/domain/features/orderbook.go
package features

import (
	"crypto-market-advisor/internal/types/market"
)

// SpreadDepthStats - метрики спреда и глубины стакана
type SpreadDepthStats struct {
	Mid        float64 `json:"mid"`
	SpreadBps  float64 `json:"spread_bps"`
	Depth10Bps float64 `json:"depth_10bps"`
	Depth50Bps float64 `json:"depth_50bps"`
}

// ComputeSpreadDepth рассчитывает спред в базисных пунктах и кумулятивную
// глубину асков в пределах 10 и 50 б.п. от середины.
// Возвращает нулевые метрики, если одна из сторон стакана пуста.
func ComputeSpreadDepth(ob *market.OrderbookSnapshot) SpreadDepthStats {
	if ob == nil || len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return SpreadDepthStats{}
	}

	bestBid := ob.Bids[0].Price.InexactFloat64()
	bestAsk := ob.Asks[0].Price.InexactFloat64()
	mid := (bestBid + bestAsk) / 2

	if mid <= 0 {
		return SpreadDepthStats{}
	}

	spreadBps := (bestAsk - bestBid) / mid * 10_000

	return SpreadDepthStats{
		Mid:        mid,
		SpreadBps:  spreadBps,
		Depth10Bps: depthAtBps(ob.Asks, mid, 10),
		Depth50Bps: depthAtBps(ob.Asks, mid, 50),
	}
}

// depthAtBps суммирует количество в асках с ценой не выше mid*(1+bps/10000).
// Аски отсортированы по возрастанию, поэтому на первом уровне выше порога
// суммирование прекращается.
func depthAtBps(asks []market.BookLevel, mid, bps float64) float64 {
	targetPrice := mid * (1 + bps/10_000)

	var depth float64
	for _, level := range asks {
		if level.Price.InexactFloat64() > targetPrice {
			break
		}
		depth += level.Qty.InexactFloat64()
	}

	return depth
}
