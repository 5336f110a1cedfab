// internal/core/domain/symbolctx/builder.go
package symbolctx

import (
	"context"

	"crypto-market-advisor/internal/core/domain/features"
	"crypto-market-advisor/internal/types/fetcher"
	"crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

// Параметры построения контекста
const (
	smaShortWindow = 5
	smaLongWindow  = 20
	recentBars1h   = 60 // окно recent high/low по часовым барам
	srBars1d       = 30 // окно support/resistance по дневным барам

	liquiditySpreadMaxBps = 10.0
	liquidityDepthMin     = 5_000.0
)

// BuilderConfig - лимиты выборок по источникам
type BuilderConfig struct {
	CandleLimit1h   int
	CandleLimit15m  int
	CandleLimit1d   int
	OrderbookDepth  int
	TradesLimit     int
	LargeTradeQuote float64
}

// DefaultBuilderConfig - лимиты по умолчанию
var DefaultBuilderConfig = BuilderConfig{
	CandleLimit1h:   200,
	CandleLimit15m:  200,
	CandleLimit1d:   90,
	OrderbookDepth:  50,
	TradesLimit:     300,
	LargeTradeQuote: features.DefaultLargeTradeQuote,
}

// Builder строит SymbolContext по данным одного источника.
// Каждая выборка изолирована: ошибка источника деградирует соответствующий
// под-объект до nil и логируется, построение продолжается.
type Builder struct {
	source fetcher.MarketDataSource
	cfg    BuilderConfig
}

// NewBuilder создает новый Builder
func NewBuilder(source fetcher.MarketDataSource, cfg BuilderConfig) *Builder {
	if cfg.CandleLimit1h == 0 {
		cfg = DefaultBuilderConfig
	}
	return &Builder{source: source, cfg: cfg}
}

// Build строит контекст символа. Никогда не возвращает ошибку:
// единственный отказавший источник не должен срывать весь прогон анализа.
func (b *Builder) Build(ctx context.Context, symbol string) SymbolContext {
	sc := SymbolContext{Symbol: symbol}

	candles1h := b.safeCandles(ctx, symbol, market.Timeframe1h, b.cfg.CandleLimit1h)
	candles15m := b.safeCandles(ctx, symbol, market.Timeframe15m, b.cfg.CandleLimit15m)
	candles1d := b.safeCandles(ctx, symbol, market.Timeframe1d, b.cfg.CandleLimit1d)

	if len(candles1h) > 0 {
		close := candles1h[len(candles1h)-1].Close.InexactFloat64()
		sc.Close = &close
		sc.Trend = buildTrend(candles1h)
		sc.Volatility = &Volatility{
			ATR:         features.ATR(candles1h, features.DefaultATRPeriod),
			RealizedVol: features.RealizedVol(candles1h, market.Timeframe1h),
			Regime:      features.VolatilityRegime(candles1h),
		}
		sc.Levels = buildLevels(candles1h, candles1d)
	}

	if len(candles15m) > 0 {
		sc.LTFTrend = buildTrend(candles15m)
	}

	if ob := b.safeOrderbook(ctx, symbol); ob != nil {
		stats := features.ComputeSpreadDepth(ob)
		if stats.Mid > 0 {
			liquidityOK := stats.SpreadBps <= liquiditySpreadMaxBps && stats.Depth10Bps >= liquidityDepthMin
			sc.Orderbook = &Orderbook{
				Mid:         stats.Mid,
				SpreadBps:   stats.SpreadBps,
				Depth10Bps:  stats.Depth10Bps,
				Depth50Bps:  stats.Depth50Bps,
				LiquidityOK: &liquidityOK,
			}
		}
	}

	if trades := b.safeTrades(ctx, symbol); len(trades) > 0 {
		flow := features.ComputeFlow(trades, b.cfg.LargeTradeQuote)
		sc.TradeFlow = &flow
	}

	sc.FundingRate = b.safeFundingRate(ctx, symbol)

	return sc
}

// buildTrend сравнивает короткое и длинное SMA цен закрытия
func buildTrend(candles []market.Candle) *Trend {
	smaShort := features.SMA(candles, smaShortWindow)
	smaLong := features.SMA(candles, smaLongWindow)

	bias := TrendNeutral
	switch {
	case smaShort > smaLong:
		bias = TrendUp
	case smaShort < smaLong:
		bias = TrendDown
	}

	return &Trend{Bias: bias, SMAShort: smaShort, SMALong: smaLong}
}

// buildLevels строит уровни: recent high/low по последним часовым барам,
// support/resistance по дневным с откатом на часовые при отсутствии дневных
func buildLevels(candles1h, candles1d []market.Candle) *Levels {
	recentHigh, recentLow := highLow(tail(candles1h, recentBars1h))

	support, resistance := recentLow, recentHigh
	if len(candles1d) > 0 {
		dailyHigh, dailyLow := highLow(tail(candles1d, srBars1d))
		support, resistance = dailyLow, dailyHigh
	}

	return &Levels{
		RecentHigh: recentHigh,
		RecentLow:  recentLow,
		Support:    support,
		Resistance: resistance,
	}
}

func tail(candles []market.Candle, n int) []market.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}

func highLow(candles []market.Candle) (high, low float64) {
	for i, c := range candles {
		h := c.High.InexactFloat64()
		l := c.Low.InexactFloat64()
		if i == 0 || h > high {
			high = h
		}
		if i == 0 || l < low {
			low = l
		}
	}
	return high, low
}

// Безопасные выборки: ошибка транспорта превращается в отсутствие данных

func (b *Builder) safeCandles(ctx context.Context, symbol string, tf market.Timeframe, limit int) []market.Candle {
	candles, err := b.source.FetchCandles(ctx, symbol, tf, nil, limit)
	if err != nil {
		logger.Warn("⚠️ ContextBuilder: свечи %s %s недоступны: %v", symbol, tf, err)
		return nil
	}
	return candles
}

func (b *Builder) safeOrderbook(ctx context.Context, symbol string) *market.OrderbookSnapshot {
	ob, err := b.source.FetchOrderbook(ctx, symbol, b.cfg.OrderbookDepth)
	if err != nil {
		logger.Warn("⚠️ ContextBuilder: стакан %s недоступен: %v", symbol, err)
		return nil
	}
	return ob
}

func (b *Builder) safeTrades(ctx context.Context, symbol string) []market.TradeTick {
	trades, err := b.source.FetchTrades(ctx, symbol, b.cfg.TradesLimit)
	if err != nil {
		logger.Warn("⚠️ ContextBuilder: сделки %s недоступны: %v", symbol, err)
		return nil
	}
	return trades
}

func (b *Builder) safeFundingRate(ctx context.Context, symbol string) *float64 {
	rate, err := b.source.FetchFundingRate(ctx, symbol)
	if err != nil {
		logger.Warn("⚠️ ContextBuilder: фандинг %s недоступен: %v", symbol, err)
		return nil
	}
	return rate
}
