// internal/core/domain/analysis/orchestrator.go
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-market-advisor/internal/core/domain/bias"
	"crypto-market-advisor/internal/core/domain/symbolctx"
	"crypto-market-advisor/pkg/logger"
)

// ContextBuilder строит контекст одного символа
type ContextBuilder interface {
	Build(ctx context.Context, symbol string) symbolctx.SymbolContext
}

// Orchestrator управляет прогоном анализа: строит контексты символов,
// пробует внешнюю модель и откатывается на детерминированную эвристику,
// когда ответ модели непригоден.
type Orchestrator struct {
	builder        ContextBuilder
	model          ModelSource // nil - внешняя модель отключена
	store          *LatestStore
	defaultSymbols []string
}

// NewOrchestrator создает новый оркестратор анализа
func NewOrchestrator(builder ContextBuilder, model ModelSource, store *LatestStore, defaultSymbols []string) *Orchestrator {
	return &Orchestrator{
		builder:        builder,
		model:          model,
		store:          store,
		defaultSymbols: defaultSymbols,
	}
}

// Run выполняет один прогон анализа. Пустой список символов означает
// сконфигурированную вселенную по умолчанию. Прогон завершается
// результатом всегда, кроме случая пустой вселенной символов.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) (*Result, error) {
	if len(symbols) == 0 {
		symbols = o.defaultSymbols
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to analyze")
	}

	logger.Info("🔄 Orchestrator: прогон анализа по %d символам...", len(symbols))

	contexts := make([]symbolctx.SymbolContext, 0, len(symbols))
	for _, symbol := range symbols {
		contexts = append(contexts, o.builder.Build(ctx, symbol))
	}

	result := o.analyze(ctx, contexts)
	o.store.Swap(result)

	logger.Info("✅ Orchestrator: анализ завершен (источник: %s, символов: %d)",
		result.Source, len(result.Symbols))

	return result, nil
}

// Latest возвращает последний результат, nil до первого прогона
func (o *Orchestrator) Latest() *Result {
	return o.store.Latest()
}

// analyze пробует внешнюю модель и при любой непригодности ответа
// собирает детерминированный результат
func (o *Orchestrator) analyze(ctx context.Context, contexts []symbolctx.SymbolContext) *Result {
	if o.model != nil {
		outcome := o.model.ProposeAnalysis(ctx, buildModelPayload(contexts))
		if outcome.Usable() {
			result, err := ParseResult(outcome.Payload())
			if err == nil {
				if result.Source == "" {
					result.Source = SourceOpenAI
				}
				return result
			}
			logger.Warn("⚠️ Orchestrator: ответ модели не прошел валидацию: %v", err)
		} else {
			logger.Warn("⚠️ Orchestrator: внешняя модель непригодна: %s", outcome.Reason())
		}
	}

	return o.fallback(contexts)
}

// buildModelPayload собирает мульти-символьный контекст для модели
func buildModelPayload(contexts []symbolctx.SymbolContext) map[string]interface{} {
	return map[string]interface{}{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"symbols":      contexts,
	}
}

// fallback собирает детерминированный результат по эвристике
func (o *Orchestrator) fallback(contexts []symbolctx.SymbolContext) *Result {
	symbols := make([]SymbolAnalysis, 0, len(contexts))
	summaryParts := make([]string, 0, len(contexts))
	var allRisks []string

	for _, sc := range contexts {
		assessment := bias.Evaluate(sc)
		logger.Analysis(sc.Symbol, assessment.Bias, assessment.Confidence, SourceFallback)

		sa := SymbolAnalysis{
			Symbol:      sc.Symbol,
			Bias:        assessment.Bias,
			Confidence:  assessment.Confidence,
			Summary:     assessment.Summary,
			Close:       sc.Close,
			Volatility:  sc.Volatility,
			Liquidity:   sc.Orderbook,
			Flow:        sc.TradeFlow,
			Levels:      sc.Levels,
			FundingRate: sc.FundingRate,
			Risks:       assessment.Risks,
		}
		if sa.Risks == nil {
			sa.Risks = []string{}
		}
		if sc.Trend != nil {
			sa.Trend = sc.Trend.Bias
		}

		symbols = append(symbols, sa)
		summaryParts = append(summaryParts,
			fmt.Sprintf("%s: %s (conf %.2f)", sc.Symbol, assessment.Bias, assessment.Confidence))
		allRisks = append(allRisks, assessment.Risks...)
	}

	return &Result{
		GeneratedAt: time.Now().UTC(),
		Summary:     strings.Join(summaryParts, "; "),
		Symbols:     symbols,
		Risks:       dedupeRisks(allRisks),
		Source:      SourceFallback,
	}
}

// dedupeRisks убирает дубликаты и пустые строки, сохраняя порядок
func dedupeRisks(risks []string) []string {
	seen := make(map[string]bool, len(risks))
	out := make([]string, 0, len(risks))

	for _, r := range risks {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}

	return out
}
