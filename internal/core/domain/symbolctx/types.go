// internal/core/domain/symbolctx/types.go
package symbolctx

import (
	"crypto-market-advisor/internal/core/domain/features"
)

// Направления тренда
const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Trend - смещение тренда по одному таймфрейму
type Trend struct {
	Bias     string  `json:"bias"`
	SMAShort float64 `json:"sma_short"`
	SMALong  float64 `json:"sma_long"`
}

// Volatility - метрики волатильности
type Volatility struct {
	ATR         float64 `json:"atr"`
	RealizedVol float64 `json:"realized_vol"`
	Regime      string  `json:"regime"`
}

// Levels - ценовые уровни
type Levels struct {
	RecentHigh float64 `json:"recent_high"`
	RecentLow  float64 `json:"recent_low"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// Orderbook - метрики стакана.
// LiquidityOK остаётся nil, если метрики недоступны - на этом слое
// отсутствие данных не превращается в "ликвидность в порядке".
type Orderbook struct {
	Mid         float64 `json:"mid"`
	SpreadBps   float64 `json:"spread_bps"`
	Depth10Bps  float64 `json:"depth_10bps"`
	Depth50Bps  float64 `json:"depth_50bps"`
	LiquidityOK *bool   `json:"liquidity_ok,omitempty"`
}

// SymbolContext - агрегированный контекст символа для одного прогона анализа.
// Все поля опциональны: отказ отдельного источника данных обнуляет
// соответствующий под-объект, но не срывает построение контекста.
type SymbolContext struct {
	Symbol      string              `json:"symbol"`
	Close       *float64            `json:"close,omitempty"`
	Trend       *Trend              `json:"trend,omitempty"`
	LTFTrend    *Trend              `json:"ltf_trend,omitempty"`
	Volatility  *Volatility         `json:"volatility,omitempty"`
	Levels      *Levels             `json:"levels,omitempty"`
	Orderbook   *Orderbook          `json:"orderbook,omitempty"`
	TradeFlow   *features.FlowStats `json:"trade_flow,omitempty"`
	FundingRate *float64            `json:"funding_rate,omitempty"`
}
