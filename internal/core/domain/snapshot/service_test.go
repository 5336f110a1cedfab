// internal/core/domain/snapshot/service_test.go
package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-market-advisor/internal/infrastructure/cache/memory"
	types "crypto-market-advisor/internal/types/market"
)

type stubSource struct {
	candles      map[types.Timeframe][]types.Candle
	candlesErr   error
	orderbook    *types.OrderbookSnapshot
	orderbookErr error
	trades       []types.TradeTick
	tradesErr    error
}

func (s *stubSource) FetchCandles(_ context.Context, _ string, tf types.Timeframe, _ *time.Time, _ int) ([]types.Candle, error) {
	if s.candlesErr != nil {
		return nil, s.candlesErr
	}
	return s.candles[tf], nil
}

func (s *stubSource) FetchOrderbook(_ context.Context, _ string, _ int) (*types.OrderbookSnapshot, error) {
	return s.orderbook, s.orderbookErr
}

func (s *stubSource) FetchTrades(_ context.Context, _ string, _ int) ([]types.TradeTick, error) {
	return s.trades, s.tradesErr
}

func (s *stubSource) FetchFundingRate(_ context.Context, _ string) (*float64, error) {
	return nil, nil
}

type stubTickers struct {
	tickers []types.Ticker
	err     error
}

func (s *stubTickers) FetchTickers(_ context.Context) ([]types.Ticker, error) {
	return s.tickers, s.err
}

type stubCandleRepo struct {
	inserted map[types.Timeframe]int
	err      error
}

func (r *stubCandleRepo) InsertIgnore(_ context.Context, _ string, tf types.Timeframe, candles []types.Candle) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.inserted == nil {
		r.inserted = make(map[types.Timeframe]int)
	}
	r.inserted[tf] += len(candles)
	return int64(len(candles)), nil
}

func (r *stubCandleRepo) FindRange(_ context.Context, _ string, _ types.Timeframe, _, _ time.Time) ([]types.Candle, error) {
	return nil, nil
}

func (r *stubCandleRepo) FindRecent(_ context.Context, _ string, _ types.Timeframe, _ int) ([]types.Candle, error) {
	return nil, nil
}

func (r *stubCandleRepo) LatestTs(_ context.Context, _ string, _ types.Timeframe) (*time.Time, error) {
	return nil, nil
}

type stubTradeRepo struct {
	inserted int
	err      error
}

func (r *stubTradeRepo) InsertIgnore(_ context.Context, _ string, trades []types.TradeTick) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.inserted += len(trades)
	return int64(len(trades)), nil
}

func (r *stubTradeRepo) FindRecent(_ context.Context, _ string, _ int) ([]types.TradeTick, error) {
	return nil, nil
}

func (r *stubTradeRepo) FindSince(_ context.Context, _ string, _ time.Time) ([]types.TradeTick, error) {
	return nil, nil
}

type stubOrderbookRepo struct {
	snapshots []*types.OrderbookSnapshot
	err       error
}

func (r *stubOrderbookRepo) Insert(_ context.Context, snapshot *types.OrderbookSnapshot) error {
	if r.err != nil {
		return r.err
	}
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

func (r *stubOrderbookRepo) FindLatest(_ context.Context, _ string) (*types.OrderbookSnapshot, error) {
	return nil, nil
}

type stubHotCache struct {
	orderbooks int
	tickers    int
}

func (c *stubHotCache) StoreOrderbook(_ context.Context, _ *types.OrderbookSnapshot) error {
	c.orderbooks++
	return nil
}

func (c *stubHotCache) StoreTicker(_ context.Context, _ *types.Ticker) error {
	c.tickers++
	return nil
}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func testSource() *stubSource {
	now := time.Now().UTC()
	return &stubSource{
		candles: map[types.Timeframe][]types.Candle{
			types.Timeframe1h: {
				{Ts: now.Add(-time.Hour), Open: d("100"), High: d("110"), Low: d("95"), Close: d("105"), VolumeBase: d("10")},
			},
		},
		orderbook: &types.OrderbookSnapshot{
			Symbol: "BTCUSDT",
			Ts:     now,
			Bids:   []types.BookLevel{{Price: d("100"), Qty: d("1")}},
			Asks:   []types.BookLevel{{Price: d("101"), Qty: d("2")}},
		},
		trades: []types.TradeTick{
			{Ts: now, Price: d("100.5"), Qty: d("0.1"), Side: types.SideBuy, TradeID: "t1"},
		},
	}
}

func newTestService(source *stubSource) (*Service, *stubCandleRepo, *stubTradeRepo, *stubOrderbookRepo, *stubHotCache, *memory.MarketCache) {
	candleRepo := &stubCandleRepo{}
	tradeRepo := &stubTradeRepo{}
	obRepo := &stubOrderbookRepo{}
	hot := &stubHotCache{}
	market := memory.NewMarketCache(0)

	tickers := &stubTickers{tickers: []types.Ticker{
		{Symbol: "BTCUSDT", LastPrice: d("100.5")},
		{Symbol: "XRPUSDT", LastPrice: d("0.5")},
	}}

	svc := NewService(source, tickers, candleRepo, tradeRepo, obRepo, hot, market, Config{
		Symbols:      []string{"BTCUSDT"},
		CandleLimits: map[types.Timeframe]int{types.Timeframe1h: 200},
	})
	return svc, candleRepo, tradeRepo, obRepo, hot, market
}

func TestSnapshotRunPersistsAndCaches(t *testing.T) {
	svc, candleRepo, tradeRepo, obRepo, hot, market := newTestService(testSource())

	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, 1, candleRepo.inserted[types.Timeframe1h])
	assert.Equal(t, 1, tradeRepo.inserted)
	require.Len(t, obRepo.snapshots, 1)
	assert.Equal(t, 1, hot.orderbooks)

	// Внутрипроцессный кэш обновлен
	assert.NotNil(t, market.Orderbook("BTCUSDT"))
	assert.Len(t, market.RecentTrades("BTCUSDT"), 1)
	assert.NotNil(t, market.Ticker("BTCUSDT"))

	// Тикер чужого символа не кэшируется
	assert.Nil(t, market.Ticker("XRPUSDT"))
	assert.Equal(t, 1, hot.tickers)
}

func TestSnapshotSourceFailureDoesNotAbortRun(t *testing.T) {
	source := testSource()
	source.candlesErr = errors.New("exchange down")
	svc, candleRepo, tradeRepo, obRepo, _, _ := newTestService(source)

	// Сбой свечей не мешает стакану и сделкам
	require.NoError(t, svc.Run(context.Background()))

	assert.Empty(t, candleRepo.inserted)
	assert.Equal(t, 1, tradeRepo.inserted)
	assert.Len(t, obRepo.snapshots, 1)
}

func TestSnapshotRepoFailureDoesNotAbortRun(t *testing.T) {
	svc, candleRepo, _, obRepo, hot, _ := newTestService(testSource())
	obRepo.err = errors.New("db down")

	require.NoError(t, svc.Run(context.Background()))

	// Остальные шаги выполнены
	assert.Equal(t, 1, candleRepo.inserted[types.Timeframe1h])
	// Горячий кэш все равно обновлен: он независим от БД
	assert.Equal(t, 1, hot.orderbooks)
}

func TestSnapshotNoSymbols(t *testing.T) {
	svc := NewService(testSource(), nil, &stubCandleRepo{}, &stubTradeRepo{}, &stubOrderbookRepo{}, nil, nil, Config{})

	err := svc.Run(context.Background())

	assert.Error(t, err)
}

func TestSnapshotCancelledContext(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(testSource())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotNilCachesSkipped(t *testing.T) {
	svc := NewService(testSource(), nil, &stubCandleRepo{}, &stubTradeRepo{}, &stubOrderbookRepo{}, nil, nil, Config{
		Symbols: []string{"BTCUSDT"},
	})

	assert.NoError(t, svc.Run(context.Background()))
}
