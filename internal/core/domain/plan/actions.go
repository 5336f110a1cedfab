// internal/core/domain/plan/actions.go
package plan

import (
	"encoding/json"
	"fmt"
)

// OrderSide - сторона ордера
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType - тип ордера
type OrderType string

const (
	OrderTypeLimit    OrderType = "limit"
	OrderTypeMarket   OrderType = "market"
	OrderTypePostOnly OrderType = "post_only"
	OrderTypeIOC      OrderType = "ioc"
)

// TimeInForce - срок действия ордера
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Типы действий плана (дискриминант "action")
const (
	ActionProposedTrade = "ProposedTrade"
	ActionCancel        = "Cancel"
	ActionMoveStop      = "MoveStop"
	ActionFlatten       = "Flatten"
)

const (
	DefaultMaxSlippageBps = 50
	MaxSlippageBpsBound   = 10_000
)

// Action - закрытое множество действий плана. Ровно четыре варианта:
// ProposedTrade, CancelAction, MoveStopAction, FlattenAction. Везде, где
// действия обрабатываются, switch обязан перечислять все варианты явно,
// чтобы новый вариант не был молча проигнорирован.
type Action interface {
	ActionType() string
	validate() error
	isPlanAction()
}

// ProposedTrade - предложение открыть сделку
type ProposedTrade struct {
	Action           string      `json:"action"`
	InstrumentSymbol string      `json:"instrument_symbol"`
	Side             OrderSide   `json:"side"`
	OrderType        OrderType   `json:"order_type"`
	Qty              float64     `json:"qty"`
	Price            *float64    `json:"price,omitempty"`
	TimeInForce      TimeInForce `json:"time_in_force"`
	MaxSlippageBps   int         `json:"max_slippage_bps"`
	Stop             *float64    `json:"stop,omitempty"`
	TakeProfit       *float64    `json:"take_profit,omitempty"`
	Rationale        string      `json:"rationale,omitempty"`
}

// CancelAction - отмена ордера по клиентскому идентификатору
type CancelAction struct {
	Action        string `json:"action"`
	ClientOrderID string `json:"client_order_id"`
}

// MoveStopAction - перенос стопа по инструменту
type MoveStopAction struct {
	Action           string  `json:"action"`
	InstrumentSymbol string  `json:"instrument_symbol"`
	Stop             float64 `json:"stop"`
}

// FlattenAction - закрытие всей позиции по инструменту
type FlattenAction struct {
	Action           string `json:"action"`
	InstrumentSymbol string `json:"instrument_symbol"`
}

func (t ProposedTrade) ActionType() string  { return ActionProposedTrade }
func (c CancelAction) ActionType() string   { return ActionCancel }
func (m MoveStopAction) ActionType() string { return ActionMoveStop }
func (f FlattenAction) ActionType() string  { return ActionFlatten }

func (t ProposedTrade) isPlanAction()  {}
func (c CancelAction) isPlanAction()   {}
func (m MoveStopAction) isPlanAction() {}
func (f FlattenAction) isPlanAction()  {}

// NewProposedTrade создает ProposedTrade с валидацией на этапе
// конструирования: невалидное действие не создается вообще
func NewProposedTrade(trade ProposedTrade) (ProposedTrade, error) {
	trade.Action = ActionProposedTrade
	if trade.TimeInForce == "" {
		trade.TimeInForce = TimeInForceGTC
	}
	if err := trade.validate(); err != nil {
		return ProposedTrade{}, err
	}
	return trade, nil
}

func (t ProposedTrade) validate() error {
	if t.InstrumentSymbol == "" {
		return fmt.Errorf("proposed trade: instrument_symbol is required")
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("proposed trade: invalid side %q", t.Side)
	}

	switch t.OrderType {
	case OrderTypeLimit, OrderTypeMarket, OrderTypePostOnly, OrderTypeIOC:
	default:
		return fmt.Errorf("proposed trade: invalid order_type %q", t.OrderType)
	}

	if t.Qty <= 0 {
		return fmt.Errorf("proposed trade: qty must be positive, got %v", t.Qty)
	}

	// Рыночный ордер идет без цены, все остальные типы - только с ценой
	if t.OrderType == OrderTypeMarket && t.Price != nil {
		return fmt.Errorf("proposed trade: price must be omitted for market orders")
	}
	if t.OrderType != OrderTypeMarket && t.Price == nil {
		return fmt.Errorf("proposed trade: price is required for non-market orders")
	}

	if t.Price != nil && *t.Price <= 0 {
		return fmt.Errorf("proposed trade: price must be positive, got %v", *t.Price)
	}
	if t.Stop != nil && *t.Stop <= 0 {
		return fmt.Errorf("proposed trade: stop must be positive, got %v", *t.Stop)
	}
	if t.TakeProfit != nil && *t.TakeProfit <= 0 {
		return fmt.Errorf("proposed trade: take_profit must be positive, got %v", *t.TakeProfit)
	}

	switch t.TimeInForce {
	case TimeInForceGTC, TimeInForceIOC, TimeInForceFOK:
	default:
		return fmt.Errorf("proposed trade: invalid time_in_force %q", t.TimeInForce)
	}

	if t.MaxSlippageBps < 0 || t.MaxSlippageBps > MaxSlippageBpsBound {
		return fmt.Errorf("proposed trade: max_slippage_bps %d out of [0, %d]", t.MaxSlippageBps, MaxSlippageBpsBound)
	}

	return nil
}

func (c CancelAction) validate() error {
	if c.ClientOrderID == "" {
		return fmt.Errorf("cancel action: client_order_id is required")
	}
	return nil
}

func (m MoveStopAction) validate() error {
	if m.InstrumentSymbol == "" {
		return fmt.Errorf("move stop action: instrument_symbol is required")
	}
	if m.Stop <= 0 {
		return fmt.Errorf("move stop action: stop must be positive, got %v", m.Stop)
	}
	return nil
}

func (f FlattenAction) validate() error {
	if f.InstrumentSymbol == "" {
		return fmt.Errorf("flatten action: instrument_symbol is required")
	}
	return nil
}

// ParseProposedTrade разбирает одиночное действие ProposedTrade с
// применением дефолтов и полной валидацией. Другие варианты отклоняются.
func ParseProposedTrade(raw []byte) (ProposedTrade, error) {
	action, err := decodeAction(raw)
	if err != nil {
		return ProposedTrade{}, err
	}

	trade, ok := action.(ProposedTrade)
	if !ok {
		return ProposedTrade{}, fmt.Errorf("expected %s, got %s", ActionProposedTrade, action.ActionType())
	}
	return trade, nil
}

// decodeAction распознает вариант действия по дискриминанту "action"
// и валидирует его. Невалидное действие не конструируется.
func decodeAction(raw json.RawMessage) (Action, error) {
	var tag struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("failed to read action discriminant: %w", err)
	}

	switch tag.Action {
	case ActionProposedTrade:
		trade := ProposedTrade{
			TimeInForce:    TimeInForceGTC,
			MaxSlippageBps: DefaultMaxSlippageBps,
		}
		if err := json.Unmarshal(raw, &trade); err != nil {
			return nil, fmt.Errorf("failed to decode proposed trade: %w", err)
		}
		if err := trade.validate(); err != nil {
			return nil, err
		}
		return trade, nil

	case ActionCancel:
		var cancel CancelAction
		if err := json.Unmarshal(raw, &cancel); err != nil {
			return nil, fmt.Errorf("failed to decode cancel action: %w", err)
		}
		if err := cancel.validate(); err != nil {
			return nil, err
		}
		return cancel, nil

	case ActionMoveStop:
		var move MoveStopAction
		if err := json.Unmarshal(raw, &move); err != nil {
			return nil, fmt.Errorf("failed to decode move stop action: %w", err)
		}
		if err := move.validate(); err != nil {
			return nil, err
		}
		return move, nil

	case ActionFlatten:
		var flatten FlattenAction
		if err := json.Unmarshal(raw, &flatten); err != nil {
			return nil, fmt.Errorf("failed to decode flatten action: %w", err)
		}
		if err := flatten.validate(); err != nil {
			return nil, err
		}
		return flatten, nil

	case "":
		return nil, fmt.Errorf("action discriminant is missing")

	default:
		return nil, fmt.Errorf("unknown action type %q", tag.Action)
	}
}
