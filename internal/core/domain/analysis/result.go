// internal/core/domain/analysis/result.go
package analysis

import (
	"time"

	"crypto-market-advisor/internal/core/domain/features"
	"crypto-market-advisor/internal/core/domain/symbolctx"
)

// Источники результата анализа
const (
	SourceOpenAI   = "openai"
	SourceFallback = "fallback"
)

// SymbolAnalysis - итог анализа одного символа
type SymbolAnalysis struct {
	Symbol      string                `json:"symbol"`
	Bias        string                `json:"bias"`
	Confidence  float64               `json:"confidence"`
	Summary     string                `json:"summary"`
	Trend       string                `json:"trend,omitempty"`
	Close       *float64              `json:"close,omitempty"`
	Volatility  *symbolctx.Volatility `json:"volatility,omitempty"`
	Liquidity   *symbolctx.Orderbook  `json:"liquidity,omitempty"`
	Flow        *features.FlowStats   `json:"flow,omitempty"`
	Levels      *symbolctx.Levels     `json:"levels,omitempty"`
	FundingRate *float64              `json:"funding_rate,omitempty"`
	Risks       []string              `json:"risks"`
}

// Result - результат одного прогона анализа по набору символов
type Result struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     string           `json:"summary"`
	Symbols     []SymbolAnalysis `json:"symbols"`
	Risks       []string         `json:"risks"`
	Source      string           `json:"source,omitempty"`
}
