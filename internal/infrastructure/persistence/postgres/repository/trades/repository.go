// internal/infrastructure/persistence/postgres/repository/trades/repository.go
package trades_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	types "crypto-market-advisor/internal/types/market"
)

// TradeRepository - хранилище сделок.
// Вставка идемпотентна по (symbol, trade_id).
type TradeRepository interface {
	InsertIgnore(ctx context.Context, symbol string, trades []types.TradeTick) (int64, error)
	FindRecent(ctx context.Context, symbol string, limit int) ([]types.TradeTick, error)
	FindSince(ctx context.Context, symbol string, since time.Time) ([]types.TradeTick, error)
}

type tradeRepoImpl struct {
	db *sqlx.DB
}

// NewTradeRepository создает реализацию TradeRepository
func NewTradeRepository(db *sqlx.DB) TradeRepository {
	return &tradeRepoImpl{db: db}
}

// InsertIgnore вставляет сделки, молча пропуская дубликаты
func (r *tradeRepoImpl) InsertIgnore(ctx context.Context, symbol string, trades []types.TradeTick) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO trades (symbol, trade_id, ts, price, qty, side)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, trade_id) DO NOTHING
	`

	var inserted int64
	for _, trade := range trades {
		result, err := r.db.ExecContext(ctx, query,
			symbol, trade.TradeID, trade.Ts, trade.Price, trade.Qty, trade.Side)
		if err != nil {
			return inserted, fmt.Errorf("TradeRepo.InsertIgnore %s: %w", symbol, err)
		}

		if n, err := result.RowsAffected(); err == nil {
			inserted += n
		}
	}

	return inserted, nil
}

// FindRecent возвращает последние limit сделок по возрастанию времени
func (r *tradeRepoImpl) FindRecent(ctx context.Context, symbol string, limit int) ([]types.TradeTick, error) {
	query := `
		SELECT ts, price, qty, side, trade_id
		FROM (
			SELECT ts, price, qty, side, trade_id
			FROM trades
			WHERE symbol = $1
			ORDER BY ts DESC
			LIMIT $2
		) recent
		ORDER BY ts ASC
	`

	var trades []types.TradeTick
	if err := r.db.SelectContext(ctx, &trades, query, symbol, limit); err != nil {
		return nil, fmt.Errorf("TradeRepo.FindRecent %s: %w", symbol, err)
	}
	return trades, nil
}

// FindSince возвращает сделки с указанного момента по возрастанию времени
func (r *tradeRepoImpl) FindSince(ctx context.Context, symbol string, since time.Time) ([]types.TradeTick, error) {
	query := `
		SELECT ts, price, qty, side, trade_id
		FROM trades
		WHERE symbol = $1 AND ts >= $2
		ORDER BY ts ASC
	`

	var trades []types.TradeTick
	if err := r.db.SelectContext(ctx, &trades, query, symbol, since); err != nil {
		return nil, fmt.Errorf("TradeRepo.FindSince %s: %w", symbol, err)
	}
	return trades, nil
}
