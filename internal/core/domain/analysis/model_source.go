// internal/core/domain/analysis/model_source.go
package analysis

import (
	"context"
)

// ProposalOutcome - явный двухвариантный результат обращения к внешней модели:
// либо структурированный payload, либо причина непригодности.
// Разделение не позволяет спутать "без ошибки" с "пригодный контент".
type ProposalOutcome struct {
	payload map[string]interface{}
	reason  string
}

// Structured создает пригодный результат
func Structured(payload map[string]interface{}) ProposalOutcome {
	return ProposalOutcome{payload: payload}
}

// Unusable создает непригодный результат с причиной
func Unusable(reason string) ProposalOutcome {
	if reason == "" {
		reason = "unspecified"
	}
	return ProposalOutcome{reason: reason}
}

// Usable сообщает, пригоден ли результат
func (o ProposalOutcome) Usable() bool {
	return o.reason == ""
}

// Payload возвращает структурированный ответ модели
func (o ProposalOutcome) Payload() map[string]interface{} {
	return o.payload
}

// Reason возвращает причину непригодности
func (o ProposalOutcome) Reason() string {
	return o.reason
}

// ModelSource - внешний источник структурированного анализа.
// Таймауты, пустой и не-JSON контент реализация обязана превращать
// в Unusable, а не в ошибку.
type ModelSource interface {
	ProposeAnalysis(ctx context.Context, payload map[string]interface{}) ProposalOutcome
}
