// internal/adapters/market/ws/types.go
package ws

import "encoding/json"

// wsSubscribeMsg - запрос подписки на топики
type wsSubscribeMsg struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// wsPingMsg - ping для поддержания соединения
type wsPingMsg struct {
	Op string `json:"op"`
}

// wsResponseMsg - системный ответ (pong, подтверждение подписки)
type wsResponseMsg struct {
	Op      string `json:"op"`
	Success bool   `json:"success"`
	RetMsg  string `json:"ret_msg"`
}

// wsTopicMsg - общий конверт сообщения с данными топика
type wsTopicMsg struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"` // "snapshot" или "delta" для стакана
	Ts    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

// orderbookData - данные топика orderbook.{depth}.{symbol}
type orderbookData struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
}

// tradeData - один элемент данных топика publicTrade.{symbol}
type tradeData struct {
	Ts      int64  `json:"T"`
	Symbol  string `json:"s"`
	Side    string `json:"S"` // "Buy" или "Sell"
	Qty     string `json:"v"`
	Price   string `json:"p"`
	TradeID string `json:"i"`
}

// tickerData - данные топика tickers.{symbol}
type tickerData struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	Volume24h   string `json:"volume24h"`
	Turnover24h string `json:"turnover24h"`
}
