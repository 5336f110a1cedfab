// internal/infrastructure/instrumentation/metrics.go
package instrumentation

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - все Prometheus-метрики сервиса
type Metrics struct {
	registry *prometheus.Registry

	AnalysisRuns      *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	PlanValidations   prometheus.Counter
	PlanRejections    *prometheus.CounterVec
	FeedEvents        *prometheus.CounterVec
	SnapshotRuns      prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewMetrics создает и регистрирует метрики в собственном реестре
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		AnalysisRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_analysis_runs_total",
			Help: "Total analysis runs by result source",
		}, []string{"source"}),

		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_analysis_duration_seconds",
			Help:    "Time to build contexts and produce an analysis result",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		PlanValidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "advisor_plan_validations_total",
			Help: "Total trade plan validation attempts",
		}),

		PlanRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_plan_rejections_total",
			Help: "Total trade plan rejections by stage",
		}, []string{"stage"}),

		FeedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_feed_events_total",
			Help: "Total events received from the market data feed by type",
		}, []string{"type"}),

		SnapshotRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "advisor_snapshot_runs_total",
			Help: "Total market snapshot collection runs",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_http_requests_total",
			Help: "Total HTTP requests by path and status code",
		}, []string{"path", "code"}),
	}
}

// Handler возвращает HTTP-обработчик экспорта метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAnalysisRun учитывает прогон анализа с источником результата
func (m *Metrics) RecordAnalysisRun(source string, seconds float64) {
	m.AnalysisRuns.WithLabelValues(source).Inc()
	m.AnalysisDuration.Observe(seconds)
}

// RecordPlanValidation учитывает попытку валидации плана
func (m *Metrics) RecordPlanValidation() {
	m.PlanValidations.Inc()
}

// RecordPlanRejection учитывает отклонение плана на стадии stage
func (m *Metrics) RecordPlanRejection(stage string) {
	m.PlanRejections.WithLabelValues(stage).Inc()
}

// RecordFeedEvent учитывает событие потока рыночных данных
func (m *Metrics) RecordFeedEvent(eventType string) {
	m.FeedEvents.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest учитывает HTTP-запрос
func (m *Metrics) RecordHTTPRequest(path string, code int) {
	m.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(code)).Inc()
}
