// internal/infrastructure/api/exchanges/bybit/types.go
package bybit

const (
	CategorySpot    = "spot"
	CategoryLinear  = "linear"  // USDT-M фьючерсы
	CategoryInverse = "inverse" // COIN-M фьючерсы

	// Интервалы свечей V5 API
	Interval1Min  = "1"
	Interval15Min = "15"
	Interval1Hour = "60"
	Interval1Day  = "D"

	// Ошибки API
	ErrCodeInvalidParams  = 10001
	ErrCodeRateLimit      = 10006
	ErrCodeSymbolNotFound = 30001
)

// APIResponse - базовый ответ API Bybit
type APIResponse struct {
	RetCode int         `json:"retCode"`
	RetMsg  string      `json:"retMsg"`
	Result  interface{} `json:"result"`
	Time    int64       `json:"time"`
}

// KlineResponse - ответ для свечных данных.
// Каждый элемент списка: [startTime, open, high, low, close, volume, turnover],
// список отсортирован по убыванию времени.
type KlineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string     `json:"category"`
		Symbol   string     `json:"symbol"`
		List     [][]string `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}

// OrderbookResponse - ответ для стакана заявок.
// b/a - уровни [цена, количество], биды по убыванию, аски по возрастанию.
type OrderbookResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
		Ts     int64      `json:"ts"`
	} `json:"result"`
	Time int64 `json:"time"`
}

// RecentTradesResponse - ответ последних сделок
type RecentTradesResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string `json:"category"`
		List     []struct {
			ExecID string `json:"execId"`
			Symbol string `json:"symbol"`
			Price  string `json:"price"`
			Size   string `json:"size"`
			Side   string `json:"side"` // "Buy" или "Sell"
			Time   string `json:"time"`
		} `json:"list"`
	} `json:"result"`
}

// TickerResponse - ответ тикеров
type TickerResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string `json:"category"`
		List     []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			Price24hPcnt string `json:"price24hPcnt"`
			Volume24h    string `json:"volume24h"`
			Turnover24h  string `json:"turnover24h"`
			High24h      string `json:"highPrice24h"`
			Low24h       string `json:"lowPrice24h"`
			FundingRate  string `json:"fundingRate"`
		} `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}

// InstrumentsResponse - ответ информации об инструментах
type InstrumentsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			Status    string `json:"status"`
			BaseCoin  string `json:"baseCoin"`
			QuoteCoin string `json:"quoteCoin"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				BasePrecision string `json:"basePrecision"`
				MinOrderQty   string `json:"minOrderQty"`
				QtyStep       string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}
