// internal/core/domain/plan/plan.go
package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// decisionIDPattern: 36 символов, hex и дефисы (формат UUID)
var decisionIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

// ConstraintsChecked - флаги проверенных ограничений плана.
// Все четыре обязаны присутствовать в полезной нагрузке.
type ConstraintsChecked struct {
	Risk      bool `json:"risk"`
	Liquidity bool `json:"liquidity"`
	Exposure  bool `json:"exposure"`
	Drawdown  bool `json:"drawdown"`
}

// Plan - торговый план, единица выхода сервиса решений.
// План принимается целиком или отклоняется целиком: частичное
// применение списка действий не допускается.
type Plan struct {
	Actions            []Action           `json:"actions"`
	RiskSummary        string             `json:"risk_summary"`
	ConstraintsChecked ConstraintsChecked `json:"constraints_checked"`
	DecisionID         string             `json:"decision_id"`
}

// NewPlan создает план с валидацией на этапе конструирования
func NewPlan(actions []Action, riskSummary string, constraints ConstraintsChecked, decisionID string) (*Plan, error) {
	p := &Plan{
		Actions:            actions,
		RiskSummary:        riskSummary,
		ConstraintsChecked: constraints,
		DecisionID:         decisionID,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// UnmarshalJSON разбирает план, распознавая каждый элемент actions
// по дискриминанту. Любое невалидное действие отклоняет весь план.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var raw struct {
		Actions            []json.RawMessage  `json:"actions"`
		RiskSummary        string             `json:"risk_summary"`
		ConstraintsChecked ConstraintsChecked `json:"constraints_checked"`
		DecisionID         string             `json:"decision_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode plan: %w", err)
	}

	actions := make([]Action, 0, len(raw.Actions))
	for i, rawAction := range raw.Actions {
		action, err := decodeAction(rawAction)
		if err != nil {
			return fmt.Errorf("plan action %d: %w", i, err)
		}
		actions = append(actions, action)
	}

	p.Actions = actions
	p.RiskSummary = raw.RiskSummary
	p.ConstraintsChecked = raw.ConstraintsChecked
	p.DecisionID = raw.DecisionID

	return p.validate()
}

// validate - структурная стадия проверки плана
func (p *Plan) validate() error {
	if !decisionIDPattern.MatchString(p.DecisionID) {
		return fmt.Errorf("decision_id %q does not match 36-character hex-with-hyphens pattern", p.DecisionID)
	}

	for i, action := range p.Actions {
		if action == nil {
			return fmt.Errorf("plan action %d is nil", i)
		}
		if err := action.validate(); err != nil {
			return fmt.Errorf("plan action %d: %w", i, err)
		}
	}

	return nil
}
