// internal/delivery/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"crypto-market-advisor/internal/core/domain/decision"
	"crypto-market-advisor/internal/core/domain/execsim"
	"crypto-market-advisor/internal/core/domain/plan"
	types "crypto-market-advisor/internal/types/market"
	"crypto-market-advisor/pkg/logger"
)

const (
	defaultCandleLimit = 200
	maxCandleLimit     = 1000
	defaultTradeLimit  = 100
	maxTradeLimit      = 1000
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("❌ HTTP API: ошибка кодирования ответа: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptime": time.Since(s.start).Round(time.Second).String(),
	}

	if s.deps.Jobs != nil {
		jobs := s.deps.Jobs.Jobs()
		jobStatuses := make([]map[string]interface{}, 0, len(jobs))
		for _, job := range jobs {
			js := map[string]interface{}{
				"name":     job.Name,
				"next_run": job.NextRun.UTC().Format(time.RFC3339),
				"runs":     job.Runs,
				"running":  job.Running,
			}
			if !job.LastRun.IsZero() {
				js["last_run"] = job.LastRun.UTC().Format(time.RFC3339)
			}
			if job.LastErr != nil {
				js["last_error"] = job.LastErr.Error()
			}
			jobStatuses = append(jobStatuses, js)
		}
		status["jobs"] = jobStatuses
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis service is disabled")
		return
	}

	result := s.deps.Analysis.Latest()
	if result == nil {
		writeError(w, http.StatusNotFound, "analysis not yet available")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis service is disabled")
		return
	}

	var req struct {
		Symbols []string `json:"symbols"`
	}

	// Пустое тело допустимо - анализируем вселенную по умолчанию
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.deps.Analysis.Run(r.Context(), req.Symbols)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if s.deps.Decider == nil {
		writeError(w, http.StatusServiceUnavailable, "decision service is disabled")
		return
	}

	var decisionContext map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&decisionContext); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	p, err := s.deps.Decider.Decide(r.Context(), decisionContext)
	if err != nil {
		if errors.Is(err, decision.ErrProposalFailed) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		// План отклонен валидацией - возвращаем причину
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePlanSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, plan.JSONSchema())
}

// handleExecSim исполняет сделку на бумаге по текущему mid из кэша
func (s *Server) handleExecSim(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	trade, err := plan.ParseProposedTrade(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := execsim.Simulate(trade, s.midPrice(trade.InstrumentSymbol))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// midPrice возвращает mid из кэшированного стакана, затем тикера; 0 при отсутствии
func (s *Server) midPrice(symbol string) float64 {
	if s.deps.Market == nil {
		return 0
	}

	if ob := s.deps.Market.Orderbook(symbol); ob != nil {
		bid, okBid := ob.BestBid()
		ask, okAsk := ob.BestAsk()
		if okBid && okAsk {
			mid, _ := bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)).Float64()
			return mid
		}
	}

	if ticker := s.deps.Market.Ticker(symbol); ticker != nil {
		last, _ := ticker.LastPrice.Float64()
		return last
	}

	return 0
}

func (s *Server) handlePortfolioPositions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Portfolio == nil {
		writeError(w, http.StatusServiceUnavailable, "portfolio is disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"positions": s.deps.Portfolio.Positions()})
}

func (s *Server) handlePortfolioPnL(w http.ResponseWriter, r *http.Request) {
	if s.deps.Portfolio == nil {
		writeError(w, http.StatusServiceUnavailable, "portfolio is disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Portfolio.PnL())
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Instruments == nil {
		writeError(w, http.StatusServiceUnavailable, "instrument catalog is disabled")
		return
	}

	var (
		instruments []types.Instrument
		err         error
	)
	if r.URL.Query().Get("active") == "true" {
		instruments, err = s.deps.Instruments.FindActive(r.Context())
	} else {
		instruments, err = s.deps.Instruments.FindAll(r.Context())
	}
	if err != nil {
		logger.Error("❌ HTTP API: каталог инструментов: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load instruments")
		return
	}

	if instruments == nil {
		instruments = []types.Instrument{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instruments": instruments})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Candles == nil {
		writeError(w, http.StatusServiceUnavailable, "candle storage is disabled")
		return
	}

	symbol := chi.URLParam(r, "symbol")
	tf, err := parseTimeframe(r.URL.Query().Get("tf"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), defaultCandleLimit, maxCandleLimit)

	candles, err := s.deps.Candles.FindRecent(r.Context(), symbol, tf, limit)
	if err != nil {
		logger.Error("❌ HTTP API: свечи %s %s: %v", symbol, tf, err)
		writeError(w, http.StatusInternalServerError, "failed to load candles")
		return
	}

	if candles == nil {
		candles = []types.Candle{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":    symbol,
		"timeframe": tf,
		"candles":   candles,
	})
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	// Сначала горячий кэш, затем хранилище
	if s.deps.Market != nil {
		if ob := s.deps.Market.Orderbook(symbol); ob != nil {
			writeJSON(w, http.StatusOK, ob)
			return
		}
	}

	if s.deps.Orderbooks != nil {
		ob, err := s.deps.Orderbooks.FindLatest(r.Context(), symbol)
		if err != nil {
			logger.Error("❌ HTTP API: стакан %s: %v", symbol, err)
			writeError(w, http.StatusInternalServerError, "failed to load orderbook")
			return
		}
		if ob != nil {
			writeJSON(w, http.StatusOK, ob)
			return
		}
	}

	writeError(w, http.StatusNotFound, "no orderbook data for "+symbol)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	limit := parseLimit(r.URL.Query().Get("limit"), defaultTradeLimit, maxTradeLimit)

	var trades []types.TradeTick
	if s.deps.Market != nil {
		trades = s.deps.Market.RecentTrades(symbol)
	}

	if len(trades) == 0 && s.deps.Trades != nil {
		var err error
		trades, err = s.deps.Trades.FindRecent(r.Context(), symbol, limit)
		if err != nil {
			logger.Error("❌ HTTP API: сделки %s: %v", symbol, err)
			writeError(w, http.StatusInternalServerError, "failed to load trades")
			return
		}
	}

	if len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	if trades == nil {
		trades = []types.TradeTick{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"trades": trades,
	})
}

// parseTimeframe разбирает параметр tf, пустой - 1h
func parseTimeframe(raw string) (types.Timeframe, error) {
	if raw == "" {
		return types.Timeframe1h, nil
	}

	switch tf := types.Timeframe(raw); tf {
	case types.Timeframe1m, types.Timeframe15m, types.Timeframe1h, types.Timeframe1d:
		return tf, nil
	default:
		return "", errors.New("unsupported timeframe: " + raw)
	}
}

// parseLimit разбирает параметр limit с дефолтом и верхней границей
func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
