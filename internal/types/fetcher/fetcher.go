// internal/types/fetcher/fetcher.go
package fetcher

import (
	"context"
	"time"

	"crypto-market-advisor/internal/types/market"
)

// MarketDataSource - источник рыночных данных одной площадки.
// Реализации возвращают нормализованные строки; отсутствие данных - это
// пустой срез, а не ошибка. Ошибка означает проблему транспорта.
type MarketDataSource interface {
	// FetchCandles возвращает свечи по возрастанию времени, не более limit
	FetchCandles(ctx context.Context, symbol string, tf market.Timeframe, since *time.Time, limit int) ([]market.Candle, error)

	// FetchOrderbook возвращает текущий срез стакана заданной глубины
	FetchOrderbook(ctx context.Context, symbol string, depth int) (*market.OrderbookSnapshot, error)

	// FetchTrades возвращает последние сделки
	FetchTrades(ctx context.Context, symbol string, limit int) ([]market.TradeTick, error)

	// FetchFundingRate возвращает ставку финансирования.
	// nil без ошибки - площадка не поддерживает фандинг для символа.
	FetchFundingRate(ctx context.Context, symbol string) (*float64, error)
}

// InstrumentSource - источник каталога инструментов
type InstrumentSource interface {
	FetchInstruments(ctx context.Context) ([]market.Instrument, error)
}

// TickerSource - источник тикеров
type TickerSource interface {
	FetchTickers(ctx context.Context) ([]market.Ticker, error)
}
