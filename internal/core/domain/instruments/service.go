// internal/core/domain/instruments/service.go
package instruments

import (
	"context"
	"fmt"
	"time"

	instruments_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/instruments"
	"crypto-market-advisor/internal/types/fetcher"
	"crypto-market-advisor/pkg/logger"
)

// SyncService синхронизирует каталог инструментов биржи с локальным
// хранилищем. Символы, пропавшие из выдачи биржи, остаются в каталоге
// со старым статусом - каталог накопительный.
type SyncService struct {
	source fetcher.InstrumentSource
	repo   instruments_repo.InstrumentRepository
}

// NewSyncService создает сервис синхронизации каталога
func NewSyncService(source fetcher.InstrumentSource, repo instruments_repo.InstrumentRepository) *SyncService {
	return &SyncService{source: source, repo: repo}
}

// Sync загружает каталог с биржи и обновляет хранилище
func (s *SyncService) Sync(ctx context.Context) error {
	start := time.Now()

	instruments, err := s.source.FetchInstruments(ctx)
	if err != nil {
		return fmt.Errorf("instrument sync: fetch failed: %w", err)
	}

	if len(instruments) == 0 {
		logger.Warn("⚠️ InstrumentSync: биржа вернула пустой каталог, обновление пропущено")
		return nil
	}

	if err := s.repo.Upsert(ctx, instruments); err != nil {
		return fmt.Errorf("instrument sync: upsert failed: %w", err)
	}

	var active int
	for _, inst := range instruments {
		if inst.Active {
			active++
		}
	}

	logger.Info("🔄 InstrumentSync: %d инструментов (%d активных) за %v",
		len(instruments), active, time.Since(start).Round(time.Millisecond))
	return nil
}
