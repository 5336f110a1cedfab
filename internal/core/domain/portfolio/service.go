// internal/core/domain/portfolio/service.go
package portfolio

import "sync"

// Position - открытая позиция портфеля
type Position struct {
	InstrumentSymbol string  `json:"instrument_symbol"`
	Side             string  `json:"side"`
	Qty              float64 `json:"qty"`
	AvgPrice         float64 `json:"avg_price"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	RealizedPnL      float64 `json:"realized_pnl"`
}

// PnLSummary - сводка прибыли и убытков
type PnLSummary struct {
	Realized   float64 `json:"realized"`
	Unrealized float64 `json:"unrealized"`
}

// Service - статический снимок портфеля. Заглушка: реального
// исполнения нет, позиции задаются извне (симуляция, ручная загрузка).
type Service struct {
	mu        sync.RWMutex
	positions []Position
}

// NewService создает пустой портфель
func NewService() *Service {
	return &Service{}
}

// SetPositions заменяет снимок позиций
func (s *Service) SetPositions(positions []Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions = make([]Position, len(positions))
	copy(s.positions, positions)
}

// Positions возвращает копию текущих позиций
func (s *Service) Positions() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Position, len(s.positions))
	copy(out, s.positions)
	return out
}

// PnL возвращает сводку по всем позициям
func (s *Service) PnL() PnLSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary PnLSummary
	for _, p := range s.positions {
		summary.Realized += p.RealizedPnL
		summary.Unrealized += p.UnrealizedPnL
	}
	return summary
}
