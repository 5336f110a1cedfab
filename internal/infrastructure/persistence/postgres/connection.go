// internal/infrastructure/persistence/postgres/connection.go
package postgres

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"crypto-market-advisor/internal/infrastructure/config"
	"crypto-market-advisor/pkg/logger"
)

// Connect открывает пул соединений PostgreSQL и готовит схему
func Connect(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("✅ Подключение к PostgreSQL установлено")

	if err := EnsureSchema(db); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// EnsureSchema создает таблицы рыночных данных, если их нет.
// Числовые колонки хранятся как NUMERIC(38,18) для сохранения точности.
func EnsureSchema(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS instruments (
			symbol        TEXT PRIMARY KEY,
			base          TEXT NOT NULL,
			quote         TEXT NOT NULL,
			tick_size     NUMERIC(38,18) NOT NULL,
			lot_size      NUMERIC(38,18) NOT NULL,
			min_notional  NUMERIC(38,18),
			maker_fee_bps NUMERIC(38,18) NOT NULL DEFAULT 0,
			taker_fee_bps NUMERIC(38,18) NOT NULL DEFAULT 0,
			active        BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS candles (
			symbol         TEXT NOT NULL,
			timeframe      TEXT NOT NULL,
			ts             TIMESTAMPTZ NOT NULL,
			open           NUMERIC(38,18) NOT NULL,
			high           NUMERIC(38,18) NOT NULL,
			low            NUMERIC(38,18) NOT NULL,
			close          NUMERIC(38,18) NOT NULL,
			volume_base    NUMERIC(38,18) NOT NULL,
			turnover_quote NUMERIC(38,18),
			PRIMARY KEY (symbol, timeframe, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			symbol   TEXT NOT NULL,
			trade_id TEXT NOT NULL,
			ts       TIMESTAMPTZ NOT NULL,
			price    NUMERIC(38,18) NOT NULL,
			qty      NUMERIC(38,18) NOT NULL,
			side     TEXT NOT NULL,
			PRIMARY KEY (symbol, trade_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orderbook_snapshots (
			id     BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			ts     TIMESTAMPTZ NOT NULL,
			bids   JSONB NOT NULL,
			asks   JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol_ts ON trades (symbol, ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orderbook_symbol_ts ON orderbook_snapshots (symbol, ts DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	logger.Info("✅ Схема рыночных данных готова")
	return nil
}
