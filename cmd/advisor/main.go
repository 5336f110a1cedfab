// cmd/advisor/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-market-advisor/application/scheduler"
	"crypto-market-advisor/internal/adapters/llm"
	"crypto-market-advisor/internal/adapters/market"
	"crypto-market-advisor/internal/adapters/market/ws"
	"crypto-market-advisor/internal/core/domain/analysis"
	"crypto-market-advisor/internal/core/domain/backfill"
	"crypto-market-advisor/internal/core/domain/decision"
	"crypto-market-advisor/internal/core/domain/instruments"
	"crypto-market-advisor/internal/core/domain/portfolio"
	"crypto-market-advisor/internal/core/domain/snapshot"
	"crypto-market-advisor/internal/core/domain/symbolctx"
	"crypto-market-advisor/internal/delivery/httpapi"
	bybit "crypto-market-advisor/internal/infrastructure/api/exchanges/bybit"
	"crypto-market-advisor/internal/infrastructure/cache/memory"
	redisCache "crypto-market-advisor/internal/infrastructure/cache/redis"
	"crypto-market-advisor/internal/infrastructure/config"
	"crypto-market-advisor/internal/infrastructure/instrumentation"
	"crypto-market-advisor/internal/infrastructure/persistence/postgres"
	candles_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/candles"
	instruments_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/instruments"
	orderbooks_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/orderbooks"
	trades_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/trades"
	events "crypto-market-advisor/internal/infrastructure/transport/event_bus"
	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if err := logger.InitGlobal(cfg.LogFile, cfg.LogLevel, cfg.Debug); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	logger.Info("🚀 Запуск crypto-market-advisor (категория: %s, символов: %d)",
		cfg.Category, len(cfg.Symbols))

	// Биржевой клиент и источник рыночных данных
	bybitClient := bybit.NewClient(cfg)
	source := market.NewBybitSource(bybitClient)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if err := bybitClient.TestConnection(ctx); err != nil {
		logger.Warn("⚠️ Биржа недоступна при старте: %v", err)
	}
	cancel()

	// Хранилище
	db, err := postgres.Connect(&cfg.Database)
	if err != nil {
		logger.Error("❌ PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	candleRepo := candles_repo.NewCandleRepository(db)
	tradeRepo := trades_repo.NewTradeRepository(db)
	orderbookRepo := orderbooks_repo.NewOrderbookRepository(db)
	instrumentRepo := instruments_repo.NewInstrumentRepository(db)

	// Redis необязателен: без него работаем на внутрипроцессном кэше
	redisService := redisCache.NewRedisService(cfg)
	var hotCache *redisCache.Cache
	if err := redisService.Start(); err != nil {
		logger.Warn("⚠️ Redis недоступен, горячий кэш отключен: %v", err)
	} else {
		hotCache = redisCache.NewCacheWithClient(redisService.Client(), cfg.Redis.SnapshotTTL)
		defer redisService.Stop()
	}

	marketCache := memory.NewMarketCache(0)
	metrics := instrumentation.NewMetrics()

	// Шина событий потока рыночных данных
	eventBus := events.NewEventBus()
	eventBus.Start()
	defer eventBus.Stop()

	cacheSub := events.NewCacheSubscriber(marketCache)
	for _, et := range cacheSub.GetSubscribedEvents() {
		eventBus.Subscribe(et, cacheSub)
	}

	persistSub := events.NewPersistenceSubscriber(tradeRepo, 5*time.Second)
	eventBus.Subscribe(events.EventTradesReceived, persistSub)

	metricsSub := events.NewMetricsSubscriber(metrics)
	for _, et := range metricsSub.GetSubscribedEvents() {
		eventBus.Subscribe(et, metricsSub)
	}

	// WebSocket-поток
	var feed *ws.Feed
	if cfg.FeedEnabled {
		feed = ws.NewFeed(cfg.FeedPublicURL, cfg.Symbols, eventBus)
		if err := feed.Start(); err != nil {
			logger.Warn("⚠️ Поток рыночных данных не запущен: %v", err)
			feed = nil
		}
	}

	// Анализ: внешняя модель с откатом на эвристику
	builder := symbolctx.NewBuilder(source, symbolctx.BuilderConfig{
		CandleLimit1h:   cfg.CandleLimit1h,
		CandleLimit15m:  cfg.CandleLimit15m,
		CandleLimit1d:   cfg.CandleLimit1d,
		OrderbookDepth:  cfg.OrderbookDepth,
		TradesLimit:     cfg.TradesLimit,
		LargeTradeQuote: cfg.LargeTradeQuote,
	})

	llmClient := llm.NewClient(cfg)

	// Типизированный nil в интерфейсе не равен nil - оборачиваем явно
	var modelSource analysis.ModelSource
	if llmClient != nil {
		modelSource = llmClient
	} else {
		logger.Info("ℹ️ OPENAI_API_KEY не задан, анализ только эвристикой")
	}

	orchestrator := analysis.NewOrchestrator(builder, modelSource, analysis.NewLatestStore(), cfg.Symbols)

	var decider httpapi.Decider
	if llmClient != nil {
		decisionService := decision.NewService(llmClient)
		decisionService.SetMetrics(metrics)
		decider = decisionService
	}

	// Фоновые задачи
	snapshotService := snapshot.NewService(source, source, candleRepo, tradeRepo, orderbookRepo, hotCache, marketCache, snapshot.Config{
		Symbols:        cfg.Symbols,
		OrderbookDepth: cfg.OrderbookDepth,
		TradesLimit:    cfg.TradesLimit,
		CandleLimits: map[types.Timeframe]int{
			types.Timeframe1h:  cfg.CandleLimit1h,
			types.Timeframe15m: cfg.CandleLimit15m,
			types.Timeframe1d:  cfg.CandleLimit1d,
		},
	})

	syncService := instruments.NewSyncService(source, instrumentRepo)

	sched := scheduler.New()

	sched.Register(&scheduler.Job{
		Name:        "market_snapshot",
		Description: "Сбор среза рынка: свечи, стакан, сделки, фандинг",
		Schedule:    scheduler.Every(cfg.SnapshotInterval),
		Handler: func(ctx context.Context) error {
			metrics.SnapshotRuns.Inc()
			return snapshotService.Run(ctx)
		},
	})

	sched.Register(&scheduler.Job{
		Name:        "analysis",
		Description: "Прогон анализа по вселенной символов",
		Schedule:    scheduler.Every(cfg.AnalysisInterval),
		Timeout:     cfg.OpenAITimeout + 2*time.Minute,
		Handler: func(ctx context.Context) error {
			start := time.Now()
			result, err := orchestrator.Run(ctx, nil)
			if err == nil {
				metrics.RecordAnalysisRun(result.Source, time.Since(start).Seconds())
				if hotCache != nil {
					if cacheErr := hotCache.StoreAnalysis(ctx, result); cacheErr != nil {
						logger.Warn("⚠️ Кэш анализа: %v", cacheErr)
					}
				}
			}
			return err
		},
	})

	syncHour, syncMinute := cfg.InstrumentSyncTime()
	sched.Register(&scheduler.Job{
		Name:        "instrument_sync",
		Description: "Ежедневная синхронизация каталога инструментов",
		Schedule:    scheduler.DailyAt(syncHour, syncMinute),
		Handler:     syncService.Sync,
	})

	if cfg.BackfillEnabled {
		backfillService := backfill.NewService(source, candleRepo, backfill.Config{
			Symbols:      cfg.Symbols,
			LookbackDays: cfg.BackfillLookbackDays,
			PageLimit:    cfg.BackfillPageLimit,
		})
		sched.Register(&scheduler.Job{
			Name:        "backfill",
			Description: "Догрузка истории свечей",
			Schedule:    scheduler.Every(24 * time.Hour),
			Timeout:     30 * time.Minute,
			Handler:     backfillService.Run,
		})
		if err := sched.Trigger("backfill"); err != nil {
			logger.Warn("⚠️ Backfill: %v", err)
		}
	}

	sched.Start()
	defer sched.Stop()

	// Каталог и первый снапшот сразу при старте
	if err := sched.Trigger("instrument_sync"); err != nil {
		logger.Warn("⚠️ InstrumentSync: %v", err)
	}
	if err := sched.Trigger("market_snapshot"); err != nil {
		logger.Warn("⚠️ Snapshot: %v", err)
	}

	// HTTP API
	var server *httpapi.Server
	if cfg.HttpEnabled {
		server = httpapi.NewServer(httpapi.Config{
			Port:        cfg.HttpPort,
			CorsOrigins: cfg.CorsOrigins,
		}, httpapi.Deps{
			Analysis:       orchestrator,
			Decider:        decider,
			Jobs:           sched,
			Market:         marketCache,
			Candles:        candleRepo,
			Trades:         tradeRepo,
			Orderbooks:     orderbookRepo,
			Instruments:    instrumentRepo,
			Portfolio:      portfolio.NewService(),
			MetricsHandler: metrics.Handler(),
			RequestMetrics: metrics,
		})
		server.Start()
	}

	// Ожидание сигнала остановки
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("🛑 Получен сигнал %s, остановка...", sig)

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("❌ Остановка HTTP API: %v", err)
		}
		shutdownCancel()
	}

	if feed != nil {
		feed.Stop()
	}

	logger.Info("✅ Остановка завершена")
}
