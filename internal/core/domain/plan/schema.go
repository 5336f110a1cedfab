// internal/core/domain/plan/schema.go
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema возвращает публикуемую JSON Schema (draft-07) контракта
// плана. Схема - внешняя граница контракта: по ней валидируются сырые
// полезные нагрузки до разбора в типы.
func JSONSchema() map[string]interface{} {
	positiveNumber := func() map[string]interface{} {
		return map[string]interface{}{"type": "number", "exclusiveMinimum": 0}
	}

	proposedTrade := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action":            map[string]interface{}{"const": ActionProposedTrade},
			"instrument_symbol": map[string]interface{}{"type": "string", "minLength": 1},
			"side":              map[string]interface{}{"enum": []interface{}{string(SideBuy), string(SideSell)}},
			"order_type": map[string]interface{}{"enum": []interface{}{
				string(OrderTypeLimit), string(OrderTypeMarket), string(OrderTypePostOnly), string(OrderTypeIOC),
			}},
			"qty":   positiveNumber(),
			"price": positiveNumber(),
			"time_in_force": map[string]interface{}{"enum": []interface{}{
				string(TimeInForceGTC), string(TimeInForceIOC), string(TimeInForceFOK),
			}},
			"max_slippage_bps": map[string]interface{}{
				"type":    "integer",
				"minimum": 0,
				"maximum": MaxSlippageBpsBound,
			},
			"stop":        positiveNumber(),
			"take_profit": positiveNumber(),
			"rationale":   map[string]interface{}{"type": "string"},
		},
		"required":             []interface{}{"action", "instrument_symbol", "side", "order_type", "qty"},
		"additionalProperties": false,
	}

	cancelAction := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action":          map[string]interface{}{"const": ActionCancel},
			"client_order_id": map[string]interface{}{"type": "string", "minLength": 1},
		},
		"required":             []interface{}{"action", "client_order_id"},
		"additionalProperties": false,
	}

	moveStopAction := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action":            map[string]interface{}{"const": ActionMoveStop},
			"instrument_symbol": map[string]interface{}{"type": "string", "minLength": 1},
			"stop":              positiveNumber(),
		},
		"required":             []interface{}{"action", "instrument_symbol", "stop"},
		"additionalProperties": false,
	}

	flattenAction := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action":            map[string]interface{}{"const": ActionFlatten},
			"instrument_symbol": map[string]interface{}{"type": "string", "minLength": 1},
		},
		"required":             []interface{}{"action", "instrument_symbol"},
		"additionalProperties": false,
	}

	return map[string]interface{}{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title":   "Plan",
		"type":    "object",
		"properties": map[string]interface{}{
			"actions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"oneOf": []interface{}{proposedTrade, cancelAction, moveStopAction, flattenAction},
				},
			},
			"risk_summary": map[string]interface{}{"type": "string"},
			"constraints_checked": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"risk":      map[string]interface{}{"type": "boolean"},
					"liquidity": map[string]interface{}{"type": "boolean"},
					"exposure":  map[string]interface{}{"type": "boolean"},
					"drawdown":  map[string]interface{}{"type": "boolean"},
				},
				"required":             []interface{}{"risk", "liquidity", "exposure", "drawdown"},
				"additionalProperties": false,
			},
			"decision_id": map[string]interface{}{
				"type":    "string",
				"pattern": "^[0-9a-fA-F-]{36}$",
			},
		},
		"required":             []interface{}{"actions", "risk_summary", "constraints_checked", "decision_id"},
		"additionalProperties": false,
	}
}

var (
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
	compileSchemaOnce sync.Once
)

// compileSchema компилирует схему плана один раз на процесс
func compileSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		data, err := json.Marshal(JSONSchema())
		if err != nil {
			compiledSchemaErr = fmt.Errorf("failed to marshal plan schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7

		if err := compiler.AddResource("plan.json", bytes.NewReader(data)); err != nil {
			compiledSchemaErr = fmt.Errorf("failed to add plan schema resource: %w", err)
			return
		}

		compiledSchema, compiledSchemaErr = compiler.Compile("plan.json")
	})

	return compiledSchema, compiledSchemaErr
}

// ValidatePayload проверяет сырую полезную нагрузку по схеме плана
// до разбора в типы. Ошибка схемы отклоняет весь план.
func ValidatePayload(payload map[string]interface{}) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	// Перекодирование выравнивает типы значений под схемную валидацию
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode plan payload: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode plan payload: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("plan payload failed schema validation: %w", err)
	}

	return nil
}
