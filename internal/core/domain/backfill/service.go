// internal/core/domain/backfill/service.go
package backfill

import (
	"context"
	"fmt"
	"time"

	candles_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/candles"
	"crypto-market-advisor/internal/types/fetcher"
	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

const maxPagesPerTimeframe = 500

// Config - параметры догрузки истории
type Config struct {
	Symbols      []string
	Timeframes   []types.Timeframe
	LookbackDays int
	PageLimit    int
}

// Service догружает историю свечей страницами от последней известной
// свечи (или от начала окна lookback) до текущего момента. Вставка
// идемпотентна, поэтому перекрытие страниц безопасно.
type Service struct {
	source  fetcher.MarketDataSource
	candles candles_repo.CandleRepository
	config  Config
}

// NewService создает сервис догрузки истории
func NewService(source fetcher.MarketDataSource, candles candles_repo.CandleRepository, config Config) *Service {
	if config.LookbackDays <= 0 {
		config.LookbackDays = 120
	}
	if config.PageLimit <= 0 {
		config.PageLimit = 1000
	}
	if len(config.Timeframes) == 0 {
		config.Timeframes = []types.Timeframe{types.Timeframe1h, types.Timeframe15m, types.Timeframe1d}
	}

	return &Service{source: source, candles: candles, config: config}
}

// Run догружает историю по всем символам и таймфреймам
func (s *Service) Run(ctx context.Context) error {
	if len(s.config.Symbols) == 0 {
		return fmt.Errorf("backfill: no symbols configured")
	}

	start := time.Now()
	var total int64

	for _, symbol := range s.config.Symbols {
		for _, tf := range s.config.Timeframes {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			inserted, err := s.backfillSeries(ctx, symbol, tf)
			if err != nil {
				logger.Warn("⚠️ Backfill: %s %s: %v", symbol, tf, err)
				continue
			}
			total += inserted
		}
	}

	logger.Info("📊 Backfill: догружено %d свечей за %v", total, time.Since(start).Round(time.Millisecond))
	return nil
}

// backfillSeries догружает один ряд (символ, таймфрейм) страницами
func (s *Service) backfillSeries(ctx context.Context, symbol string, tf types.Timeframe) (int64, error) {
	cursor, err := s.startCursor(ctx, symbol, tf)
	if err != nil {
		return 0, err
	}

	step := barDuration(tf)
	var inserted int64

	for page := 0; page < maxPagesPerTimeframe; page++ {
		if !cursor.Before(time.Now().UTC()) {
			break
		}

		since := cursor
		candles, err := s.source.FetchCandles(ctx, symbol, tf, &since, s.config.PageLimit)
		if err != nil {
			return inserted, fmt.Errorf("fetch page from %s: %w", since.Format(time.RFC3339), err)
		}
		if len(candles) == 0 {
			break
		}

		n, err := s.candles.InsertIgnore(ctx, symbol, tf, candles)
		if err != nil {
			return inserted, fmt.Errorf("insert page: %w", err)
		}
		inserted += n

		last := candles[len(candles)-1].Ts
		if !last.After(cursor.Add(-step)) {
			// Источник не продвинулся - защита от зацикливания
			break
		}
		cursor = last.Add(step)

		if len(candles) < s.config.PageLimit {
			break
		}
	}

	if inserted > 0 {
		logger.Debug("💾 Backfill: %s %s +%d свечей", symbol, tf, inserted)
	}
	return inserted, nil
}

// startCursor выбирает точку старта: продолжаем с последней свечи в
// хранилище, иначе от начала окна lookback
func (s *Service) startCursor(ctx context.Context, symbol string, tf types.Timeframe) (time.Time, error) {
	latest, err := s.candles.LatestTs(ctx, symbol, tf)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest ts: %w", err)
	}

	lookbackStart := time.Now().UTC().AddDate(0, 0, -s.config.LookbackDays)
	if latest == nil || latest.Before(lookbackStart) {
		return lookbackStart, nil
	}
	return latest.Add(barDuration(tf)), nil
}

// barDuration возвращает длительность одного бара таймфрейма
func barDuration(tf types.Timeframe) time.Duration {
	return time.Duration(float64(24*time.Hour) / tf.PeriodsPerDay())
}
