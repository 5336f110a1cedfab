// internal/infrastructure/persistence/postgres/repository/candles/repository.go
package candles_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	types "crypto-market-advisor/internal/types/market"
)

// CandleRepository - хранилище свечей.
// Вставка идемпотентна по (symbol, timeframe, ts): повторная загрузка
// тех же данных - no-op, а не дубликат и не ошибка.
type CandleRepository interface {
	InsertIgnore(ctx context.Context, symbol string, tf types.Timeframe, candles []types.Candle) (int64, error)
	FindRange(ctx context.Context, symbol string, tf types.Timeframe, from, to time.Time) ([]types.Candle, error)
	FindRecent(ctx context.Context, symbol string, tf types.Timeframe, limit int) ([]types.Candle, error)
	LatestTs(ctx context.Context, symbol string, tf types.Timeframe) (*time.Time, error)
}

type candleRepoImpl struct {
	db *sqlx.DB
}

// NewCandleRepository создает реализацию CandleRepository
func NewCandleRepository(db *sqlx.DB) CandleRepository {
	return &candleRepoImpl{db: db}
}

// InsertIgnore вставляет свечи, молча пропуская дубликаты.
// Возвращает количество фактически вставленных строк.
func (r *candleRepoImpl) InsertIgnore(ctx context.Context, symbol string, tf types.Timeframe, candles []types.Candle) (int64, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO candles (symbol, timeframe, ts, open, high, low, close, volume_base, turnover_quote)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timeframe, ts) DO NOTHING
	`

	var inserted int64
	for _, candle := range candles {
		result, err := r.db.ExecContext(ctx, query,
			symbol, string(tf), candle.Ts,
			candle.Open, candle.High, candle.Low, candle.Close,
			candle.VolumeBase, candle.TurnoverQuote)
		if err != nil {
			return inserted, fmt.Errorf("CandleRepo.InsertIgnore %s %s: %w", symbol, tf, err)
		}

		if n, err := result.RowsAffected(); err == nil {
			inserted += n
		}
	}

	return inserted, nil
}

// FindRange возвращает свечи в интервале [from, to] по возрастанию времени
func (r *candleRepoImpl) FindRange(ctx context.Context, symbol string, tf types.Timeframe, from, to time.Time) ([]types.Candle, error) {
	query := `
		SELECT ts, open, high, low, close, volume_base, turnover_quote
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC
	`

	var candles []types.Candle
	if err := r.db.SelectContext(ctx, &candles, query, symbol, string(tf), from, to); err != nil {
		return nil, fmt.Errorf("CandleRepo.FindRange %s %s: %w", symbol, tf, err)
	}
	return candles, nil
}

// FindRecent возвращает последние limit свечей по возрастанию времени
func (r *candleRepoImpl) FindRecent(ctx context.Context, symbol string, tf types.Timeframe, limit int) ([]types.Candle, error) {
	query := `
		SELECT ts, open, high, low, close, volume_base, turnover_quote
		FROM (
			SELECT ts, open, high, low, close, volume_base, turnover_quote
			FROM candles
			WHERE symbol = $1 AND timeframe = $2
			ORDER BY ts DESC
			LIMIT $3
		) recent
		ORDER BY ts ASC
	`

	var candles []types.Candle
	if err := r.db.SelectContext(ctx, &candles, query, symbol, string(tf), limit); err != nil {
		return nil, fmt.Errorf("CandleRepo.FindRecent %s %s: %w", symbol, tf, err)
	}
	return candles, nil
}

// LatestTs возвращает время последней свечи, nil если данных нет
func (r *candleRepoImpl) LatestTs(ctx context.Context, symbol string, tf types.Timeframe) (*time.Time, error) {
	query := `SELECT MAX(ts) FROM candles WHERE symbol = $1 AND timeframe = $2`

	var ts sql.NullTime
	if err := r.db.GetContext(ctx, &ts, query, symbol, string(tf)); err != nil {
		return nil, fmt.Errorf("CandleRepo.LatestTs %s %s: %w", symbol, tf, err)
	}

	if !ts.Valid {
		return nil, nil
	}
	return &ts.Time, nil
}
