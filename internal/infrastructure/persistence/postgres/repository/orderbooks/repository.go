// internal/infrastructure/persistence/postgres/repository/orderbooks/repository.go
package orderbooks_repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	types "crypto-market-advisor/internal/types/market"
)

// OrderbookRepository - хранилище срезов стакана.
// Уровни хранятся как JSONB, строковое представление decimal
// сохраняет точность.
type OrderbookRepository interface {
	Insert(ctx context.Context, snapshot *types.OrderbookSnapshot) error
	FindLatest(ctx context.Context, symbol string) (*types.OrderbookSnapshot, error)
}

type orderbookRepoImpl struct {
	db *sqlx.DB
}

// NewOrderbookRepository создает реализацию OrderbookRepository
func NewOrderbookRepository(db *sqlx.DB) OrderbookRepository {
	return &orderbookRepoImpl{db: db}
}

type orderbookRow struct {
	Symbol string    `db:"symbol"`
	Ts     time.Time `db:"ts"`
	Bids   []byte    `db:"bids"`
	Asks   []byte    `db:"asks"`
}

// Insert сохраняет срез стакана
func (r *orderbookRepoImpl) Insert(ctx context.Context, snapshot *types.OrderbookSnapshot) error {
	bids, err := json.Marshal(snapshot.Bids)
	if err != nil {
		return fmt.Errorf("OrderbookRepo.Insert: failed to encode bids: %w", err)
	}

	asks, err := json.Marshal(snapshot.Asks)
	if err != nil {
		return fmt.Errorf("OrderbookRepo.Insert: failed to encode asks: %w", err)
	}

	query := `INSERT INTO orderbook_snapshots (symbol, ts, bids, asks) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, snapshot.Symbol, snapshot.Ts, bids, asks); err != nil {
		return fmt.Errorf("OrderbookRepo.Insert %s: %w", snapshot.Symbol, err)
	}

	return nil
}

// FindLatest возвращает последний сохраненный срез, nil если данных нет
func (r *orderbookRepoImpl) FindLatest(ctx context.Context, symbol string) (*types.OrderbookSnapshot, error) {
	query := `
		SELECT symbol, ts, bids, asks
		FROM orderbook_snapshots
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT 1
	`

	var row orderbookRow
	if err := r.db.GetContext(ctx, &row, query, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("OrderbookRepo.FindLatest %s: %w", symbol, err)
	}

	snapshot := &types.OrderbookSnapshot{Symbol: row.Symbol, Ts: row.Ts}
	if err := json.Unmarshal(row.Bids, &snapshot.Bids); err != nil {
		return nil, fmt.Errorf("OrderbookRepo.FindLatest %s: failed to decode bids: %w", symbol, err)
	}
	if err := json.Unmarshal(row.Asks, &snapshot.Asks); err != nil {
		return nil, fmt.Errorf("OrderbookRepo.FindLatest %s: failed to decode asks: %w", symbol, err)
	}

	return snapshot, nil
}
