// internal/core/domain/decision/service.go
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crypto-market-advisor/internal/core/domain/plan"
	"crypto-market-advisor/pkg/logger"
)

// ErrProposalFailed - источник не смог предложить план (сбой до валидации)
var ErrProposalFailed = errors.New("plan proposal failed")

// PlanSource - непрозрачный источник предложений плана. Всегда
// возвращает нечто проверяемое по схеме; ошибки схемы - зона
// ответственности валидатора, а не источника.
type PlanSource interface {
	ProposePlan(ctx context.Context, decisionContext map[string]interface{}) (map[string]interface{}, error)
}

// MetricsRecorder - учет валидаций и отклонений планов
type MetricsRecorder interface {
	RecordPlanValidation()
	RecordPlanRejection(stage string)
}

// Service - сервис решений: запрашивает предложение плана и пропускает
// его через двухстадийную проверку. Невалидный план не доходит ни до
// хранилища, ни до вызывающей стороны.
type Service struct {
	source  PlanSource
	metrics MetricsRecorder // nil - без учета
}

// NewService создает сервис решений
func NewService(source PlanSource) *Service {
	return &Service{source: source}
}

// SetMetrics подключает учет валидаций
func (s *Service) SetMetrics(metrics MetricsRecorder) {
	s.metrics = metrics
}

func (s *Service) recordRejection(stage string) {
	if s.metrics != nil {
		s.metrics.RecordPlanRejection(stage)
	}
}

// Decide запрашивает план по произвольному контексту решения и
// возвращает его только полностью валидным. Стадии: проверка сырой
// нагрузки по схеме, структурный разбор в типы, семантическая
// перепроверка. Любой сбой отклоняет план целиком.
func (s *Service) Decide(ctx context.Context, decisionContext map[string]interface{}) (*plan.Plan, error) {
	raw, err := s.source.ProposePlan(ctx, decisionContext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProposalFailed, err)
	}

	if s.metrics != nil {
		s.metrics.RecordPlanValidation()
	}

	if err := plan.ValidatePayload(raw); err != nil {
		logger.Warn("⚠️ DecisionService: план отклонен схемой: %v", err)
		s.recordRejection("schema")
		return nil, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan payload: %w", err)
	}

	var p plan.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		logger.Warn("⚠️ DecisionService: план отклонен на разборе: %v", err)
		s.recordRejection("decode")
		return nil, err
	}

	if err := plan.ValidatePlan(&p); err != nil {
		logger.Warn("⚠️ DecisionService: план отклонен семантической проверкой: %v", err)
		s.recordRejection("semantic")
		return nil, err
	}

	logger.Info("✅ DecisionService: план %s принят (%d действий)", p.DecisionID, len(p.Actions))

	return &p, nil
}
