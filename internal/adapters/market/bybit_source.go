// internal/adapters/market/bybit_source.go
package market

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	bybit "crypto-market-advisor/internal/infrastructure/api/exchanges/bybit"
	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

// BybitSource - источник рыночных данных Bybit. Конвертирует сырые
// строковые значения V5 API в нормализованные типы без потери
// десятичной точности.
type BybitSource struct {
	client *bybit.Client
}

// NewBybitSource создает источник данных поверх клиента Bybit
func NewBybitSource(client *bybit.Client) *BybitSource {
	return &BybitSource{client: client}
}

// intervalFor отображает таймфрейм на интервал V5 API
func intervalFor(tf types.Timeframe) (string, error) {
	switch tf {
	case types.Timeframe1m:
		return bybit.Interval1Min, nil
	case types.Timeframe15m:
		return bybit.Interval15Min, nil
	case types.Timeframe1h:
		return bybit.Interval1Hour, nil
	case types.Timeframe1d:
		return bybit.Interval1Day, nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", tf)
	}
}

// FetchCandles возвращает свечи по возрастанию времени.
// V5 API отдает список по убыванию - порядок разворачивается здесь.
func (s *BybitSource) FetchCandles(ctx context.Context, symbol string, tf types.Timeframe, since *time.Time, limit int) ([]types.Candle, error) {
	interval, err := intervalFor(tf)
	if err != nil {
		return nil, err
	}

	response, err := s.client.GetKline(ctx, symbol, interval, since, limit)
	if err != nil {
		return nil, err
	}

	candles := make([]types.Candle, 0, len(response.Result.List))
	for _, row := range response.Result.List {
		candle, err := parseKlineRow(row)
		if err != nil {
			logger.Warn("⚠️ BybitSource: пропуск свечи %s %s: %v", symbol, tf, err)
			continue
		}
		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Ts.Before(candles[j].Ts)
	})

	return candles, nil
}

// parseKlineRow разбирает строку kline:
// [startTime, open, high, low, close, volume, turnover]
func parseKlineRow(row []string) (types.Candle, error) {
	if len(row) < 6 {
		return types.Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}

	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return types.Candle{}, fmt.Errorf("invalid start time %q: %w", row[0], err)
	}

	values := make([]decimal.Decimal, 5)
	for i := 0; i < 5; i++ {
		v, err := decimal.NewFromString(row[i+1])
		if err != nil {
			return types.Candle{}, fmt.Errorf("invalid field %d %q: %w", i+1, row[i+1], err)
		}
		values[i] = v
	}

	candle := types.Candle{
		Ts:         time.UnixMilli(tsMs).UTC(),
		Open:       values[0],
		High:       values[1],
		Low:        values[2],
		Close:      values[3],
		VolumeBase: values[4],
	}

	if len(row) >= 7 && row[6] != "" {
		turnover, err := decimal.NewFromString(row[6])
		if err != nil {
			return types.Candle{}, fmt.Errorf("invalid turnover %q: %w", row[6], err)
		}
		candle.TurnoverQuote = &turnover
	}

	return candle, nil
}

// FetchOrderbook возвращает текущий срез стакана
func (s *BybitSource) FetchOrderbook(ctx context.Context, symbol string, depth int) (*types.OrderbookSnapshot, error) {
	response, err := s.client.GetOrderbook(ctx, symbol, depth)
	if err != nil {
		return nil, err
	}

	bids, err := types.ParseBookLevels(response.Result.Bids)
	if err != nil {
		return nil, fmt.Errorf("invalid bids for %s: %w", symbol, err)
	}

	asks, err := types.ParseBookLevels(response.Result.Asks)
	if err != nil {
		return nil, fmt.Errorf("invalid asks for %s: %w", symbol, err)
	}

	return &types.OrderbookSnapshot{
		Symbol: symbol,
		Ts:     time.UnixMilli(response.Result.Ts).UTC(),
		Bids:   bids,
		Asks:   asks,
	}, nil
}

// FetchTrades возвращает последние сделки
func (s *BybitSource) FetchTrades(ctx context.Context, symbol string, limit int) ([]types.TradeTick, error) {
	response, err := s.client.GetRecentTrades(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	trades := make([]types.TradeTick, 0, len(response.Result.List))
	for _, item := range response.Result.List {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			logger.Warn("⚠️ BybitSource: пропуск сделки %s, цена %q: %v", symbol, item.Price, err)
			continue
		}

		qty, err := decimal.NewFromString(item.Size)
		if err != nil {
			logger.Warn("⚠️ BybitSource: пропуск сделки %s, размер %q: %v", symbol, item.Size, err)
			continue
		}

		tsMs, err := strconv.ParseInt(item.Time, 10, 64)
		if err != nil {
			logger.Warn("⚠️ BybitSource: пропуск сделки %s, время %q: %v", symbol, item.Time, err)
			continue
		}

		trades = append(trades, types.TradeTick{
			Ts:      time.UnixMilli(tsMs).UTC(),
			Price:   price,
			Qty:     qty,
			Side:    normalizeSide(item.Side),
			TradeID: item.ExecID,
		})
	}

	return trades, nil
}

// normalizeSide приводит сторону биржи ("Buy"/"Sell") к нормализованной
func normalizeSide(side string) string {
	if side == "Sell" || side == "sell" {
		return types.SideSell
	}
	return types.SideBuy
}

// FetchFundingRate возвращает ставку финансирования,
// nil без ошибки для площадок/категорий без фандинга
func (s *BybitSource) FetchFundingRate(ctx context.Context, symbol string) (*float64, error) {
	return s.client.GetFundingRate(ctx, symbol)
}

// FetchInstruments возвращает каталог активных инструментов
func (s *BybitSource) FetchInstruments(ctx context.Context) ([]types.Instrument, error) {
	response, err := s.client.GetInstruments(ctx)
	if err != nil {
		return nil, err
	}

	instruments := make([]types.Instrument, 0, len(response.Result.List))
	for _, item := range response.Result.List {
		tickSize, err := decimal.NewFromString(item.PriceFilter.TickSize)
		if err != nil {
			logger.Warn("⚠️ BybitSource: пропуск инструмента %s, tickSize %q: %v", item.Symbol, item.PriceFilter.TickSize, err)
			continue
		}

		lotSizeRaw := item.LotSizeFilter.QtyStep
		if lotSizeRaw == "" {
			lotSizeRaw = item.LotSizeFilter.BasePrecision
		}
		lotSize, err := decimal.NewFromString(lotSizeRaw)
		if err != nil {
			logger.Warn("⚠️ BybitSource: пропуск инструмента %s, lotSize %q: %v", item.Symbol, lotSizeRaw, err)
			continue
		}

		instruments = append(instruments, types.Instrument{
			Symbol:   item.Symbol,
			Base:     item.BaseCoin,
			Quote:    item.QuoteCoin,
			TickSize: tickSize,
			LotSize:  lotSize,
			Active:   item.Status == "Trading",
		})
	}

	return instruments, nil
}

// FetchTickers возвращает последние тикеры категории
func (s *BybitSource) FetchTickers(ctx context.Context) ([]types.Ticker, error) {
	response, err := s.client.GetTickers(ctx, "")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	tickers := make([]types.Ticker, 0, len(response.Result.List))
	for _, item := range response.Result.List {
		lastPrice, err := decimal.NewFromString(item.LastPrice)
		if err != nil {
			continue
		}

		volume, err := decimal.NewFromString(item.Volume24h)
		if err != nil {
			volume = decimal.Zero
		}

		turnover, err := decimal.NewFromString(item.Turnover24h)
		if err != nil {
			turnover = decimal.Zero
		}

		ticker := types.Ticker{
			Symbol:      item.Symbol,
			LastPrice:   lastPrice,
			Volume24h:   volume,
			Turnover24h: turnover,
			Ts:          now,
		}

		if item.FundingRate != "" {
			if rate, err := strconv.ParseFloat(item.FundingRate, 64); err == nil {
				ticker.FundingRate = &rate
			}
		}

		tickers = append(tickers, ticker)
	}

	return tickers, nil
}
