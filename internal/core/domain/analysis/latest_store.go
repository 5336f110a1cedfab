// internal/core/domain/analysis/latest_store.go
package analysis

import (
	"sync"
)

// LatestStore - защищенный мьютексом слот последнего результата анализа.
// Замена атомарна: читатели видят либо предыдущий, либо новый результат,
// никогда - частично записанный. Хранилище внедряется в оркестратор,
// а не живет глобальным состоянием пакета.
type LatestStore struct {
	mu     sync.RWMutex
	result *Result
}

// NewLatestStore создает пустое хранилище
func NewLatestStore() *LatestStore {
	return &LatestStore{}
}

// Swap атомарно заменяет последний результат
func (s *LatestStore) Swap(result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

// Latest возвращает последний результат без блокировки записи.
// До первого прогона возвращает nil.
func (s *LatestStore) Latest() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}
