// internal/infrastructure/cache/redis/cache.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"crypto-market-advisor/internal/core/domain/analysis"
	types "crypto-market-advisor/internal/types/market"
)

const keyPrefix = "advisor:"

// Cache - Redis-кэш поверх запущенного сервиса.
// Хранит последний результат анализа и срезы рыночных данных с TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheWithClient создает Cache с существующим клиентом
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (c *Cache) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// StoreAnalysis сохраняет результат анализа
func (c *Cache) StoreAnalysis(ctx context.Context, result *analysis.Result) error {
	return c.setJSON(ctx, "analysis:latest", result)
}

// LatestAnalysis возвращает закэшированный результат анализа,
// nil без ошибки при отсутствии
func (c *Cache) LatestAnalysis(ctx context.Context) (*analysis.Result, error) {
	var result analysis.Result
	found, err := c.getJSON(ctx, "analysis:latest", &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

// StoreOrderbook сохраняет последний срез стакана символа
func (c *Cache) StoreOrderbook(ctx context.Context, snapshot *types.OrderbookSnapshot) error {
	return c.setJSON(ctx, "orderbook:"+snapshot.Symbol, snapshot)
}

// LatestOrderbook возвращает закэшированный срез стакана,
// nil без ошибки при отсутствии
func (c *Cache) LatestOrderbook(ctx context.Context, symbol string) (*types.OrderbookSnapshot, error) {
	var snapshot types.OrderbookSnapshot
	found, err := c.getJSON(ctx, "orderbook:"+symbol, &snapshot)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

// StoreTicker сохраняет последний тикер символа
func (c *Cache) StoreTicker(ctx context.Context, ticker *types.Ticker) error {
	return c.setJSON(ctx, "ticker:"+ticker.Symbol, ticker)
}

// LatestTicker возвращает закэшированный тикер, nil без ошибки при отсутствии
func (c *Cache) LatestTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	var ticker types.Ticker
	found, err := c.getJSON(ctx, "ticker:"+symbol, &ticker)
	if err != nil || !found {
		return nil, err
	}
	return &ticker, nil
}
