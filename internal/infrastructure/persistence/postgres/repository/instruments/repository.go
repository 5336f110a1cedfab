// internal/infrastructure/persistence/postgres/repository/instruments/repository.go
package instruments_repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

// InstrumentRepository - каталог инструментов
type InstrumentRepository interface {
	Upsert(ctx context.Context, instruments []types.Instrument) error
	FindAll(ctx context.Context) ([]types.Instrument, error)
	FindActive(ctx context.Context) ([]types.Instrument, error)
}

type instrumentRepoImpl struct {
	db *sqlx.DB
}

// NewInstrumentRepository создает реализацию InstrumentRepository
func NewInstrumentRepository(db *sqlx.DB) InstrumentRepository {
	return &instrumentRepoImpl{db: db}
}

// Upsert вставляет или обновляет инструменты по символу
func (r *instrumentRepoImpl) Upsert(ctx context.Context, instruments []types.Instrument) error {
	if len(instruments) == 0 {
		return nil
	}

	query := `
		INSERT INTO instruments (symbol, base, quote, tick_size, lot_size, min_notional, maker_fee_bps, taker_fee_bps, active, updated_at)
		VALUES (:symbol, :base, :quote, :tick_size, :lot_size, :min_notional, :maker_fee_bps, :taker_fee_bps, :active, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			base = EXCLUDED.base,
			quote = EXCLUDED.quote,
			tick_size = EXCLUDED.tick_size,
			lot_size = EXCLUDED.lot_size,
			min_notional = EXCLUDED.min_notional,
			maker_fee_bps = EXCLUDED.maker_fee_bps,
			taker_fee_bps = EXCLUDED.taker_fee_bps,
			active = EXCLUDED.active,
			updated_at = NOW()
	`

	for _, instrument := range instruments {
		if _, err := r.db.NamedExecContext(ctx, query, instrument); err != nil {
			return fmt.Errorf("InstrumentRepo.Upsert %s: %w", instrument.Symbol, err)
		}
	}

	logger.Info("💾 Каталог инструментов обновлен: %d записей", len(instruments))
	return nil
}

// FindAll возвращает все инструменты каталога
func (r *instrumentRepoImpl) FindAll(ctx context.Context) ([]types.Instrument, error) {
	query := `
		SELECT symbol, base, quote, tick_size, lot_size, min_notional, maker_fee_bps, taker_fee_bps, active
		FROM instruments
		ORDER BY symbol
	`

	var instruments []types.Instrument
	if err := r.db.SelectContext(ctx, &instruments, query); err != nil {
		return nil, fmt.Errorf("InstrumentRepo.FindAll: %w", err)
	}
	return instruments, nil
}

// FindActive возвращает только торгуемые инструменты
func (r *instrumentRepoImpl) FindActive(ctx context.Context) ([]types.Instrument, error) {
	query := `
		SELECT symbol, base, quote, tick_size, lot_size, min_notional, maker_fee_bps, taker_fee_bps, active
		FROM instruments
		WHERE active = TRUE
		ORDER BY symbol
	`

	var instruments []types.Instrument
	if err := r.db.SelectContext(ctx, &instruments, query); err != nil {
		return nil, fmt.Errorf("InstrumentRepo.FindActive: %w", err)
	}
	return instruments, nil
}
