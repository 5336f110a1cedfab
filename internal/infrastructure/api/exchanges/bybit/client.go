// internal/infrastructure/api/exchanges/bybit/client.go
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"crypto-market-advisor/internal/infrastructure/config"
)

// BYBIT CLIENT
// ============================================

// Client - клиент публичного V5 API Bybit
type Client struct {
	httpClient *http.Client
	baseURL    string
	category   string

	mu          sync.Mutex
	lastRequest time.Time
	rateLimit   time.Duration
}

// NewClient создает новый клиент публичного API Bybit
func NewClient(cfg *config.Config) *Client {
	category := cfg.Category
	if category == "" {
		category = CategorySpot
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rateLimit := 100 * time.Millisecond

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     cfg.BaseURL,
		category:    category,
		rateLimit:   rateLimit,
		lastRequest: time.Now().Add(-rateLimit),
	}
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ МЕТОДЫ
// ============================================

// waitForRateLimit ждет, если нужно соблюдать rate limit
func (c *Client) waitForRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.rateLimit {
		time.Sleep(c.rateLimit - elapsed)
	}
	c.lastRequest = time.Now()
}

// sendPublicRequest отправляет публичный GET-запрос
func (c *Client) sendPublicRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	c.waitForRateLimit()

	apiURL := c.baseURL + endpoint
	if len(params) > 0 {
		apiURL = apiURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CryptoMarketAdvisor/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	// Проверяем код ошибки в теле ответа API
	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.RetCode != 0 {
		return nil, fmt.Errorf("API error %d: %s", apiResp.RetCode, apiResp.RetMsg)
	}

	return body, nil
}

// ============================================
// ОСНОВНЫЕ API МЕТОДЫ
// ============================================

// GetKline получает свечные данные. since - нижняя граница по времени
// открытия (опционально), limit ограничен 1000 на стороне API.
func (c *Client) GetKline(ctx context.Context, symbol, interval string, since *time.Time, limit int) (*KlineResponse, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if since != nil {
		params.Set("start", strconv.FormatInt(since.UnixMilli(), 10))
	}

	body, err := c.sendPublicRequest(ctx, "/v5/market/kline", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get kline for %s: %w", symbol, err)
	}

	var response KlineResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}

	return &response, nil
}

// GetOrderbook получает стакан заявок указанной глубины
func (c *Client) GetOrderbook(ctx context.Context, symbol string, depth int) (*OrderbookResponse, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(depth))

	body, err := c.sendPublicRequest(ctx, "/v5/market/orderbook", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get orderbook for %s: %w", symbol, err)
	}

	var response OrderbookResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse orderbook response: %w", err)
	}

	return &response, nil
}

// GetRecentTrades получает последние публичные сделки
func (c *Client) GetRecentTrades(ctx context.Context, symbol string, limit int) (*RecentTradesResponse, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.sendPublicRequest(ctx, "/v5/market/recent-trade", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent trades for %s: %w", symbol, err)
	}

	var response RecentTradesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse trades response: %w", err)
	}

	return &response, nil
}

// GetTickers получает тикеры категории; symbol опционален
func (c *Client) GetTickers(ctx context.Context, symbol string) (*TickerResponse, error) {
	params := url.Values{}
	params.Set("category", c.category)
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	body, err := c.sendPublicRequest(ctx, "/v5/market/tickers", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickers: %w", err)
	}

	var response TickerResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse ticker response: %w", err)
	}

	return &response, nil
}

// GetInstruments получает информацию об инструментах категории
func (c *Client) GetInstruments(ctx context.Context) (*InstrumentsResponse, error) {
	params := url.Values{}
	params.Set("category", c.category)

	body, err := c.sendPublicRequest(ctx, "/v5/market/instruments-info", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get instruments: %w", err)
	}

	var response InstrumentsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse instruments response: %w", err)
	}

	return &response, nil
}

// GetFundingRate получает ставку фандинга из тикера символа.
// Для spot-категории фандинга нет: возвращается nil без ошибки.
func (c *Client) GetFundingRate(ctx context.Context, symbol string) (*float64, error) {
	if c.category == CategorySpot {
		return nil, nil
	}

	response, err := c.GetTickers(ctx, symbol)
	if err != nil {
		return nil, err
	}

	for _, ticker := range response.Result.List {
		if ticker.Symbol == symbol && ticker.FundingRate != "" {
			rate, err := strconv.ParseFloat(ticker.FundingRate, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse funding rate: %w", err)
			}
			return &rate, nil
		}
	}

	return nil, nil
}

// TestConnection проверяет доступность публичного API
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.GetTickers(ctx, ""); err != nil {
		return fmt.Errorf("tickers API test failed: %w", err)
	}
	return nil
}

// Category возвращает текущую категорию клиента
func (c *Client) Category() string {
	return c.category
}
