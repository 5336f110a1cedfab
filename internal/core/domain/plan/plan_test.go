// internal/core/domain/plan/plan_test.go
package plan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDecisionID = "00000000-0000-0000-0000-000000000000"

func floatPtr(v float64) *float64 { return &v }

func validTrade(t *testing.T) ProposedTrade {
	t.Helper()

	trade, err := NewProposedTrade(ProposedTrade{
		InstrumentSymbol: "BTCUSDT",
		Side:             SideBuy,
		OrderType:        OrderTypeLimit,
		Qty:              1.0,
		Price:            floatPtr(50000.0),
		MaxSlippageBps:   50,
	})
	require.NoError(t, err)

	return trade
}

func allConstraintsChecked() ConstraintsChecked {
	return ConstraintsChecked{Risk: true, Liquidity: true, Exposure: true, Drawdown: true}
}

func TestPlanAcceptsValidTrade(t *testing.T) {
	trade := validTrade(t)

	p, err := NewPlan([]Action{trade}, "ok", allConstraintsChecked(), testDecisionID)

	require.NoError(t, err)
	require.NoError(t, ValidatePlan(p))
	assert.Equal(t, 1.0, p.Actions[0].(ProposedTrade).Qty)
	assert.Equal(t, TimeInForceGTC, p.Actions[0].(ProposedTrade).TimeInForce)
}

func TestMarketOrderWithPriceRejected(t *testing.T) {
	_, err := NewProposedTrade(ProposedTrade{
		InstrumentSymbol: "BTCUSDT",
		Side:             SideBuy,
		OrderType:        OrderTypeMarket,
		Qty:              1.0,
		Price:            floatPtr(50000.0),
	})

	assert.Error(t, err)
}

func TestLimitOrderWithoutPriceRejected(t *testing.T) {
	_, err := NewProposedTrade(ProposedTrade{
		InstrumentSymbol: "BTCUSDT",
		Side:             SideBuy,
		OrderType:        OrderTypeLimit,
		Qty:              1.0,
	})

	assert.Error(t, err)
}

func TestTradeFieldBounds(t *testing.T) {
	base := func() ProposedTrade {
		return ProposedTrade{
			InstrumentSymbol: "BTCUSDT",
			Side:             SideBuy,
			OrderType:        OrderTypeLimit,
			Qty:              1.0,
			Price:            floatPtr(50000.0),
		}
	}

	cases := []struct {
		name   string
		mutate func(*ProposedTrade)
	}{
		{"zero qty", func(tr *ProposedTrade) { tr.Qty = 0 }},
		{"negative qty", func(tr *ProposedTrade) { tr.Qty = -1 }},
		{"zero price", func(tr *ProposedTrade) { tr.Price = floatPtr(0) }},
		{"negative stop", func(tr *ProposedTrade) { tr.Stop = floatPtr(-10) }},
		{"zero take profit", func(tr *ProposedTrade) { tr.TakeProfit = floatPtr(0) }},
		{"slippage above bound", func(tr *ProposedTrade) { tr.MaxSlippageBps = 10_001 }},
		{"negative slippage", func(tr *ProposedTrade) { tr.MaxSlippageBps = -1 }},
		{"empty symbol", func(tr *ProposedTrade) { tr.InstrumentSymbol = "" }},
		{"bad side", func(tr *ProposedTrade) { tr.Side = "hold" }},
		{"bad order type", func(tr *ProposedTrade) { tr.OrderType = "stop_limit" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trade := base()
			tc.mutate(&trade)
			_, err := NewProposedTrade(trade)
			assert.Error(t, err)
		})
	}
}

func TestPlanRejectsBadDecisionID(t *testing.T) {
	trade := validTrade(t)

	for _, id := range []string{"", "short", "zzzzzzzz-0000-0000-0000-00000000000g", testDecisionID + "0"} {
		_, err := NewPlan([]Action{trade}, "ok", allConstraintsChecked(), id)
		assert.Error(t, err, "decision_id %q", id)
	}
}

func TestPlanUnmarshalByDiscriminant(t *testing.T) {
	raw := `{
		"actions": [
			{"action": "ProposedTrade", "instrument_symbol": "BTCUSDT", "side": "buy", "order_type": "limit", "qty": 1.0, "price": 50000.0, "max_slippage_bps": 50},
			{"action": "Cancel", "client_order_id": "abc-1"},
			{"action": "MoveStop", "instrument_symbol": "BTCUSDT", "stop": 49000.0},
			{"action": "Flatten", "instrument_symbol": "ETHUSDT"}
		],
		"risk_summary": "ok",
		"constraints_checked": {"risk": true, "liquidity": true, "exposure": true, "drawdown": true},
		"decision_id": "00000000-0000-0000-0000-000000000000"
	}`

	var p Plan
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Len(t, p.Actions, 4)

	assert.IsType(t, ProposedTrade{}, p.Actions[0])
	assert.IsType(t, CancelAction{}, p.Actions[1])
	assert.IsType(t, MoveStopAction{}, p.Actions[2])
	assert.IsType(t, FlattenAction{}, p.Actions[3])

	trade := p.Actions[0].(ProposedTrade)
	// Умолчания подставляются при разборе
	assert.Equal(t, TimeInForceGTC, trade.TimeInForce)
	assert.Equal(t, 49000.0, p.Actions[2].(MoveStopAction).Stop)
}

func TestPlanUnmarshalDefaultsSlippage(t *testing.T) {
	raw := `{
		"actions": [
			{"action": "ProposedTrade", "instrument_symbol": "BTCUSDT", "side": "buy", "order_type": "limit", "qty": 1.0, "price": 50000.0}
		],
		"risk_summary": "ok",
		"constraints_checked": {"risk": true, "liquidity": true, "exposure": true, "drawdown": true},
		"decision_id": "00000000-0000-0000-0000-000000000000"
	}`

	var p Plan
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, DefaultMaxSlippageBps, p.Actions[0].(ProposedTrade).MaxSlippageBps)
}

func TestPlanUnmarshalRejectsUnknownAction(t *testing.T) {
	raw := `{
		"actions": [{"action": "SelfDestruct"}],
		"risk_summary": "ok",
		"constraints_checked": {"risk": true, "liquidity": true, "exposure": true, "drawdown": true},
		"decision_id": "00000000-0000-0000-0000-000000000000"
	}`

	var p Plan
	assert.Error(t, json.Unmarshal([]byte(raw), &p))
}

func TestPlanUnmarshalRejectsInvalidAction(t *testing.T) {
	// Одно невалидное действие отклоняет весь план
	raw := `{
		"actions": [
			{"action": "Cancel", "client_order_id": "abc-1"},
			{"action": "ProposedTrade", "instrument_symbol": "BTCUSDT", "side": "buy", "order_type": "market", "qty": 1.0, "price": 50000.0}
		],
		"risk_summary": "ok",
		"constraints_checked": {"risk": true, "liquidity": true, "exposure": true, "drawdown": true},
		"decision_id": "00000000-0000-0000-0000-000000000000"
	}`

	var p Plan
	assert.Error(t, json.Unmarshal([]byte(raw), &p))
}

func TestSemanticValidatorCatchesOutOfBandTrade(t *testing.T) {
	// Действие собрано напрямую, в обход конструктора
	trade := ProposedTrade{
		Action:           ActionProposedTrade,
		InstrumentSymbol: "BTCUSDT",
		Side:             SideBuy,
		OrderType:        OrderTypeMarket,
		Qty:              1.0,
		Price:            floatPtr(50000.0),
	}
	p := &Plan{
		Actions:            []Action{trade},
		RiskSummary:        "ok",
		ConstraintsChecked: allConstraintsChecked(),
		DecisionID:         testDecisionID,
	}

	err := ValidatePlan(p)

	require.Error(t, err)
	var semErr *SemanticError
	assert.True(t, errors.As(err, &semErr))
}

func TestSemanticValidatorPassesNonTradeActions(t *testing.T) {
	p := &Plan{
		Actions: []Action{
			CancelAction{Action: ActionCancel, ClientOrderID: "abc"},
			FlattenAction{Action: ActionFlatten, InstrumentSymbol: "BTCUSDT"},
		},
		RiskSummary:        "ok",
		ConstraintsChecked: allConstraintsChecked(),
		DecisionID:         testDecisionID,
	}

	assert.NoError(t, ValidatePlan(p))
}

func TestSchemaValidatesPayload(t *testing.T) {
	payload := map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{
				"action":            "ProposedTrade",
				"instrument_symbol": "BTCUSDT",
				"side":              "buy",
				"order_type":        "limit",
				"qty":               1.0,
				"price":             50000.0,
				"max_slippage_bps":  50,
			},
		},
		"risk_summary": "ok",
		"constraints_checked": map[string]interface{}{
			"risk": true, "liquidity": true, "exposure": true, "drawdown": true,
		},
		"decision_id": testDecisionID,
	}

	assert.NoError(t, ValidatePayload(payload))
}

func TestSchemaRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"missing constraints", map[string]interface{}{
			"actions": []interface{}{}, "risk_summary": "ok", "decision_id": testDecisionID,
		}},
		{"incomplete constraints", map[string]interface{}{
			"actions":      []interface{}{},
			"risk_summary": "ok",
			"constraints_checked": map[string]interface{}{
				"risk": true, "liquidity": true, "exposure": true,
			},
			"decision_id": testDecisionID,
		}},
		{"bad decision id", map[string]interface{}{
			"actions":      []interface{}{},
			"risk_summary": "ok",
			"constraints_checked": map[string]interface{}{
				"risk": true, "liquidity": true, "exposure": true, "drawdown": true,
			},
			"decision_id": "not-an-id",
		}},
		{"negative qty", map[string]interface{}{
			"actions": []interface{}{
				map[string]interface{}{
					"action":            "ProposedTrade",
					"instrument_symbol": "BTCUSDT",
					"side":              "buy",
					"order_type":        "limit",
					"qty":               -1.0,
					"price":             50000.0,
				},
			},
			"risk_summary": "ok",
			"constraints_checked": map[string]interface{}{
				"risk": true, "liquidity": true, "exposure": true, "drawdown": true,
			},
			"decision_id": testDecisionID,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, ValidatePayload(tc.payload))
		})
	}
}

func TestJSONSchemaShape(t *testing.T) {
	schema := JSONSchema()

	assert.Equal(t, "Plan", schema["title"])
	assert.Contains(t, schema["required"], "decision_id")
	assert.Contains(t, schema["properties"], "actions")
}
