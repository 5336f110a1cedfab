// internal/types/market/types.go
package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Таймфреймы свечей
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
)

// PeriodsPerDay возвращает количество баров таймфрейма в сутках.
// Используется для масштабирования реализованной волатильности.
func (tf Timeframe) PeriodsPerDay() float64 {
	switch tf {
	case Timeframe1m:
		return 1440
	case Timeframe15m:
		return 96
	case Timeframe1h:
		return 24
	case Timeframe1d:
		return 1
	default:
		return 24
	}
}

// Стороны сделки
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Candle - нормализованная OHLCV свеча.
// Уникальна по (инструмент, таймфрейм, Ts), сортировка по Ts по возрастанию.
type Candle struct {
	Ts            time.Time        `json:"ts" db:"ts"`
	Open          decimal.Decimal  `json:"open" db:"open"`
	High          decimal.Decimal  `json:"high" db:"high"`
	Low           decimal.Decimal  `json:"low" db:"low"`
	Close         decimal.Decimal  `json:"close" db:"close"`
	VolumeBase    decimal.Decimal  `json:"volume_base" db:"volume_base"`
	TurnoverQuote *decimal.Decimal `json:"turnover_quote,omitempty" db:"turnover_quote"`
}

// BookLevel - один уровень стакана
type BookLevel struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// OrderbookSnapshot - срез стакана в момент времени.
// Биды отсортированы по цене по убыванию, аски - по возрастанию.
type OrderbookSnapshot struct {
	Symbol string      `json:"symbol"`
	Ts     time.Time   `json:"ts"`
	Bids   []BookLevel `json:"bids"`
	Asks   []BookLevel `json:"asks"`
}

// BestBid возвращает лучший бид
func (ob *OrderbookSnapshot) BestBid() (BookLevel, bool) {
	if len(ob.Bids) == 0 {
		return BookLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk возвращает лучший аск
func (ob *OrderbookSnapshot) BestAsk() (BookLevel, bool) {
	if len(ob.Asks) == 0 {
		return BookLevel{}, false
	}
	return ob.Asks[0], true
}

// TradeTick - нормализованная сделка.
// TradeID уникален в рамках инструмента (ключ идемпотентной вставки).
type TradeTick struct {
	Ts      time.Time       `json:"ts" db:"ts"`
	Price   decimal.Decimal `json:"price" db:"price"`
	Qty     decimal.Decimal `json:"qty" db:"qty"`
	Side    string          `json:"side" db:"side"`
	TradeID string          `json:"trade_id" db:"trade_id"`
}

// Notional возвращает объём сделки в котируемой валюте
func (t TradeTick) Notional() decimal.Decimal {
	return t.Price.Mul(t.Qty)
}

// Instrument - торговый инструмент каталога
type Instrument struct {
	Symbol      string           `json:"symbol" db:"symbol"`
	Base        string           `json:"base" db:"base"`
	Quote       string           `json:"quote" db:"quote"`
	TickSize    decimal.Decimal  `json:"tick_size" db:"tick_size"`
	LotSize     decimal.Decimal  `json:"lot_size" db:"lot_size"`
	MinNotional *decimal.Decimal `json:"min_notional,omitempty" db:"min_notional"`
	MakerFeeBps decimal.Decimal  `json:"maker_fee_bps" db:"maker_fee_bps"`
	TakerFeeBps decimal.Decimal  `json:"taker_fee_bps" db:"taker_fee_bps"`
	Active      bool             `json:"active" db:"active"`
}

// Ticker - последние данные тикера по символу
type Ticker struct {
	Symbol      string          `json:"symbol"`
	LastPrice   decimal.Decimal `json:"last_price"`
	Volume24h   decimal.Decimal `json:"volume_24h"`
	Turnover24h decimal.Decimal `json:"turnover_24h"`
	FundingRate *float64        `json:"funding_rate,omitempty"`
	Ts          time.Time       `json:"ts"`
}

// ParseBookLevels конвертирует сырые уровни биржи ([[price, qty], ...])
// в нормализованные уровни без потери десятичной точности.
func ParseBookLevels(raw [][]string) ([]BookLevel, error) {
	levels := make([]BookLevel, 0, len(raw))

	for i, row := range raw {
		if len(row) < 2 {
			return nil, fmt.Errorf("book level %d: expected [price, qty], got %d elements", i, len(row))
		}

		price, err := decimal.NewFromString(row[0])
		if err != nil {
			return nil, fmt.Errorf("book level %d: invalid price %q: %w", i, row[0], err)
		}

		qty, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("book level %d: invalid qty %q: %w", i, row[1], err)
		}

		levels = append(levels, BookLevel{Price: price, Qty: qty})
	}

	return levels, nil
}
