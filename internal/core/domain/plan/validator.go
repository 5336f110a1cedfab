// internal/core/domain/plan/validator.go
package plan

import (
	"fmt"
)

// SemanticError - ошибка второй, семантической стадии проверки.
// Отдельный тип от структурных ошибок конструирования: план, собранный
// из уже валидных действий обходным путем, все равно перепроверяется
// перед принятием.
type SemanticError struct {
	Reason string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("plan semantic validation failed: %s", e.Reason)
}

// ValidatePlan выполняет семантическую проверку плана поверх
// структурной. Любое нарушение отклоняет план целиком.
func ValidatePlan(p *Plan) error {
	if p == nil {
		return &SemanticError{Reason: "plan is nil"}
	}

	for i, action := range p.Actions {
		switch a := action.(type) {
		case ProposedTrade:
			if err := validateTradeSemantics(a); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
		case CancelAction, MoveStopAction, FlattenAction:
			// Семантическая стадия проверяет только сделки
		default:
			return &SemanticError{Reason: fmt.Sprintf("action %d has unknown variant %T", i, action)}
		}
	}

	return nil
}

// ValidateTrade выполняет семантическую перепроверку одиночной сделки
func ValidateTrade(trade ProposedTrade) error {
	return validateTradeSemantics(trade)
}

func validateTradeSemantics(trade ProposedTrade) error {
	if trade.Qty <= 0 {
		return &SemanticError{Reason: "qty must be positive"}
	}
	if trade.OrderType == OrderTypeMarket && trade.Price != nil {
		return &SemanticError{Reason: "market orders must not include price"}
	}
	if trade.MaxSlippageBps < 0 || trade.MaxSlippageBps > MaxSlippageBpsBound {
		return &SemanticError{Reason: "max_slippage_bps out of bounds"}
	}
	return nil
}
