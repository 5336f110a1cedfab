// internal/core/domain/bias/engine.go
package bias

import (
	"fmt"
	"math"
	"strings"

	"crypto-market-advisor/internal/core/domain/features"
	"crypto-market-advisor/internal/core/domain/symbolctx"
)

// Направления смещения
const (
	BiasLong    = "long"
	BiasShort   = "short"
	BiasNeutral = "neutral"
)

// Тексты риск-аннотаций
const (
	RiskThinLiquidity  = "Liquidity thin (wide spread or shallow depth)"
	RiskHighVolatility = "High volatility regime"
)

// Параметры эвристики
const (
	baseConfidence       = 0.40
	trendAgreementBonus  = 0.20
	flowImbalanceBonus   = 0.10
	thinLiquidityPenalty = 0.10
	flowImbalanceMin     = 0.10
)

// Assessment - детерминированная оценка символа
type Assessment struct {
	Bias       string
	Confidence float64
	Summary    string
	Risks      []string
}

// Evaluate превращает контекст символа в направленное смещение с оценкой
// уверенности и риск-аннотациями. Чистая функция без состояния: повторный
// вызов на том же контексте дает идентичный результат.
//
// Отсутствующий флаг ликвидности (nil) штраф не запускает - недостающие
// данные о ликвидности эвристика считает приемлемыми, в отличие от слоя
// построения контекста, который nil не доопределяет. Асимметрия сохранена
// намеренно, см. DESIGN.md.
func Evaluate(sc symbolctx.SymbolContext) Assessment {
	confidence := baseConfidence
	result := BiasNeutral
	var risks []string

	// Согласие трендов старшего и младшего таймфреймов
	if sc.Trend != nil && sc.LTFTrend != nil &&
		sc.Trend.Bias == sc.LTFTrend.Bias && sc.Trend.Bias != symbolctx.TrendNeutral {
		if sc.Trend.Bias == symbolctx.TrendUp {
			result = BiasLong
		} else {
			result = BiasShort
		}
		confidence += trendAgreementBonus
	}

	// Выраженный дисбаланс потока сделок
	if sc.TradeFlow != nil && math.Abs(sc.TradeFlow.FlowImbalance) > flowImbalanceMin {
		confidence += flowImbalanceBonus
	}

	// Штраф только за явно плохую ликвидность
	if sc.Orderbook != nil && sc.Orderbook.LiquidityOK != nil && !*sc.Orderbook.LiquidityOK {
		risks = append(risks, RiskThinLiquidity)
		confidence -= thinLiquidityPenalty
	}

	// Режим расширения волатильности - аннотация без изменения уверенности
	if sc.Volatility != nil && sc.Volatility.Regime == features.RegimeExpansion {
		risks = append(risks, RiskHighVolatility)
	}

	confidence = clamp(confidence, 0.0, 1.0)

	return Assessment{
		Bias:       result,
		Confidence: confidence,
		Summary:    buildSummary(result, sc),
		Risks:      risks,
	}
}

// buildSummary собирает строку вида
// "long | trend up | spread 2.00 bps | imbalance 0.25"
func buildSummary(result string, sc symbolctx.SymbolContext) string {
	trendPart := "trend n/a"
	if sc.Trend != nil {
		trendPart = "trend " + sc.Trend.Bias
	}

	spreadPart := "spread n/a"
	if sc.Orderbook != nil {
		spreadPart = fmt.Sprintf("spread %.2f bps", sc.Orderbook.SpreadBps)
	}

	imbalancePart := "imbalance n/a"
	if sc.TradeFlow != nil {
		imbalancePart = fmt.Sprintf("imbalance %.2f", sc.TradeFlow.FlowImbalance)
	}

	return strings.Join([]string{result, trendPart, spreadPart, imbalancePart}, " | ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
