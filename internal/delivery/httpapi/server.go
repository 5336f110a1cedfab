// internal/delivery/httpapi/server.go
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"crypto-market-advisor/application/scheduler"
	"crypto-market-advisor/internal/core/domain/analysis"
	"crypto-market-advisor/internal/core/domain/plan"
	"crypto-market-advisor/internal/core/domain/portfolio"
	"crypto-market-advisor/internal/infrastructure/cache/memory"
	candles_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/candles"
	instruments_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/instruments"
	orderbooks_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/orderbooks"
	trades_repo "crypto-market-advisor/internal/infrastructure/persistence/postgres/repository/trades"
	"crypto-market-advisor/pkg/logger"
)

// AnalysisService - прогон и чтение результатов анализа
type AnalysisService interface {
	Run(ctx context.Context, symbols []string) (*analysis.Result, error)
	Latest() *analysis.Result
}

// Decider - запрос и валидация торгового плана
type Decider interface {
	Decide(ctx context.Context, decisionContext map[string]interface{}) (*plan.Plan, error)
}

// JobLister - статусы фоновых задач
type JobLister interface {
	Jobs() []scheduler.JobStatus
}

// Deps - зависимости HTTP-сервера. Необязательные поля могут быть nil,
// соответствующие маршруты тогда отвечают 503.
type Deps struct {
	Analysis       AnalysisService
	Decider        Decider
	Jobs           JobLister
	Market         *memory.MarketCache
	Candles        candles_repo.CandleRepository
	Trades         trades_repo.TradeRepository
	Orderbooks     orderbooks_repo.OrderbookRepository
	Instruments    instruments_repo.InstrumentRepository
	Portfolio      *portfolio.Service
	MetricsHandler http.Handler
	RequestMetrics RequestMetrics
}

// RequestMetrics - учет HTTP-запросов
type RequestMetrics interface {
	RecordHTTPRequest(path string, code int)
}

// Config - параметры HTTP-сервера
type Config struct {
	Port        string
	CorsOrigins []string
}

// Server - HTTP API сервиса: результаты анализа, торговые планы
// и срезы рыночных данных
type Server struct {
	config Config
	deps   Deps
	srv    *http.Server
	start  time.Time
}

// NewServer создает HTTP-сервер
func NewServer(config Config, deps Deps) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}

	s := &Server{config: config, deps: deps, start: time.Now()}
	s.srv = &http.Server{
		Addr:         ":" + config.Port,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Router собирает маршруты API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.corsMiddleware)
	if s.deps.RequestMetrics != nil {
		r.Use(s.metricsMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	if s.deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/analysis/latest", s.handleLatestAnalysis)
		r.Post("/analysis/run", s.handleRunAnalysis)

		r.Post("/decide", s.handleDecide)
		r.Get("/schema/plan", s.handlePlanSchema)

		r.Get("/instruments", s.handleInstruments)

		r.Post("/execsim/submit", s.handleExecSim)
		r.Get("/portfolio/positions", s.handlePortfolioPositions)
		r.Get("/portfolio/pnl", s.handlePortfolioPnL)

		r.Route("/market/{symbol}", func(r chi.Router) {
			r.Get("/candles", s.handleCandles)
			r.Get("/orderbook", s.handleOrderbook)
			r.Get("/trades", s.handleTrades)
		})
	})

	return r
}

// Start запускает сервер в фоновой горутине
func (s *Server) Start() {
	go func() {
		logger.Info("🚀 HTTP API: слушает порт %s", s.config.Port)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ HTTP API: %v", err)
		}
	}()
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("🛑 HTTP API: остановка...")
	return s.srv.Shutdown(ctx)
}

// corsMiddleware отвечает на preflight и выставляет CORS-заголовки
// для разрешенных источников
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware считает запросы по шаблону маршрута и коду ответа
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		s.deps.RequestMetrics.RecordHTTPRequest(path, ww.Status())
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.CorsOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
