// internal/core/domain/snapshot/service.go
package snapshot

import (
	"context"
	"fmt"
	"time"

	"crypto-market-advisor/internal/infrastructure/cache/memory"
	candles_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/candles"
	orderbooks_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/orderbooks"
	trades_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/trades"
	"crypto-market-advisor/internal/types/fetcher"
	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

// HotCache - внешний кэш последних срезов рыночных данных
type HotCache interface {
	StoreOrderbook(ctx context.Context, snapshot *types.OrderbookSnapshot) error
	StoreTicker(ctx context.Context, ticker *types.Ticker) error
}

// Config - параметры сбора снапшотов
type Config struct {
	Symbols        []string
	OrderbookDepth int
	TradesLimit    int
	CandleLimits   map[types.Timeframe]int
}

// DefaultCandleLimits - глубина истории свечей по умолчанию
var DefaultCandleLimits = map[types.Timeframe]int{
	types.Timeframe1h:  200,
	types.Timeframe15m: 200,
	types.Timeframe1d:  90,
}

// Service собирает периодический срез рынка по каждому символу:
// свечи, стакан, сделки, фандинг - и раскладывает его в хранилище
// и кэши. Сбой одного источника или символа логируется и не
// прерывает сбор остальных.
type Service struct {
	source     fetcher.MarketDataSource
	tickers    fetcher.TickerSource
	candles    candles_repo.CandleRepository
	trades     trades_repo.TradeRepository
	orderbooks orderbooks_repo.OrderbookRepository
	hotCache   HotCache
	market     *memory.MarketCache
	config     Config
}

// NewService создает сервис снапшотов. hotCache, market и tickers
// могут быть nil - соответствующий шаг пропускается.
func NewService(
	source fetcher.MarketDataSource,
	tickers fetcher.TickerSource,
	candles candles_repo.CandleRepository,
	trades trades_repo.TradeRepository,
	orderbooks orderbooks_repo.OrderbookRepository,
	hotCache HotCache,
	market *memory.MarketCache,
	config Config,
) *Service {
	if config.OrderbookDepth <= 0 {
		config.OrderbookDepth = 50
	}
	if config.TradesLimit <= 0 {
		config.TradesLimit = 300
	}
	if len(config.CandleLimits) == 0 {
		config.CandleLimits = DefaultCandleLimits
	}

	return &Service{
		source:     source,
		tickers:    tickers,
		candles:    candles,
		trades:     trades,
		orderbooks: orderbooks,
		hotCache:   hotCache,
		market:     market,
		config:     config,
	}
}

// Run собирает снапшот по всем символам конфигурации
func (s *Service) Run(ctx context.Context) error {
	if len(s.config.Symbols) == 0 {
		return fmt.Errorf("snapshot: no symbols configured")
	}

	start := time.Now()
	var failures int

	for _, symbol := range s.config.Symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failures += s.snapshotSymbol(ctx, symbol)
	}

	s.refreshTickers(ctx)

	logger.Info("📊 Snapshot: собрано %d символов за %v (ошибок источников: %d)",
		len(s.config.Symbols), time.Since(start).Round(time.Millisecond), failures)
	return nil
}

// snapshotSymbol собирает данные одного символа, возвращает число сбоев
func (s *Service) snapshotSymbol(ctx context.Context, symbol string) int {
	var failures int

	for tf, limit := range s.config.CandleLimits {
		candles, err := s.source.FetchCandles(ctx, symbol, tf, nil, limit)
		if err != nil {
			logger.Warn("⚠️ Snapshot: свечи %s %s: %v", symbol, tf, err)
			failures++
			continue
		}

		inserted, err := s.candles.InsertIgnore(ctx, symbol, tf, candles)
		if err != nil {
			logger.Warn("⚠️ Snapshot: запись свечей %s %s: %v", symbol, tf, err)
			failures++
			continue
		}
		if inserted > 0 {
			logger.Debug("💾 Snapshot: %s %s +%d свечей", symbol, tf, inserted)
		}
	}

	if ob, err := s.source.FetchOrderbook(ctx, symbol, s.config.OrderbookDepth); err != nil {
		logger.Warn("⚠️ Snapshot: стакан %s: %v", symbol, err)
		failures++
	} else if ob != nil {
		if err := s.orderbooks.Insert(ctx, ob); err != nil {
			logger.Warn("⚠️ Snapshot: запись стакана %s: %v", symbol, err)
			failures++
		}
		if s.market != nil {
			s.market.SetOrderbook(ob)
		}
		if s.hotCache != nil {
			if err := s.hotCache.StoreOrderbook(ctx, ob); err != nil {
				logger.Warn("⚠️ Snapshot: кэш стакана %s: %v", symbol, err)
			}
		}
	}

	if trades, err := s.source.FetchTrades(ctx, symbol, s.config.TradesLimit); err != nil {
		logger.Warn("⚠️ Snapshot: сделки %s: %v", symbol, err)
		failures++
	} else if len(trades) > 0 {
		if _, err := s.trades.InsertIgnore(ctx, symbol, trades); err != nil {
			logger.Warn("⚠️ Snapshot: запись сделок %s: %v", symbol, err)
			failures++
		}
		if s.market != nil {
			s.market.AddTrades(symbol, trades)
		}
	}

	if _, err := s.source.FetchFundingRate(ctx, symbol); err != nil {
		// Фандинг не критичен: спот его не имеет вовсе
		logger.Debug("Snapshot: фандинг %s недоступен: %v", symbol, err)
	}

	return failures
}

// refreshTickers обновляет кэши тикеров наблюдаемых символов
func (s *Service) refreshTickers(ctx context.Context) {
	if s.tickers == nil {
		return
	}

	all, err := s.tickers.FetchTickers(ctx)
	if err != nil {
		logger.Warn("⚠️ Snapshot: тикеры: %v", err)
		return
	}

	watched := make(map[string]bool, len(s.config.Symbols))
	for _, sym := range s.config.Symbols {
		watched[sym] = true
	}

	for i := range all {
		ticker := &all[i]
		if !watched[ticker.Symbol] {
			continue
		}
		if s.market != nil {
			s.market.SetTicker(ticker)
		}
		if s.hotCache != nil {
			if err := s.hotCache.StoreTicker(ctx, ticker); err != nil {
				logger.Warn("⚠️ Snapshot: кэш тикера %s: %v", ticker.Symbol, err)
			}
		}
	}
}
