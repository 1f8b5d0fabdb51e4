// Package obs содержит метрики Prometheus сервиса.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics набор метрик. Методы безопасны для nil-получателя, чтобы компоненты
// можно было собирать без метрик (например, в тестах).
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	auditEntries       *prometheus.CounterVec
	auditWriteFailures prometheus.Counter
	admissionDenied    *prometheus.CounterVec
	tokenFailures      *prometheus.CounterVec
	inputRejections    *prometheus.CounterVec
	aiTokens           prometheus.Counter
	operationDuration  *prometheus.HistogramVec
}

// New создает метрики и регистрирует их в собственном регистре
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		auditEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_audit_entries_total",
				Help: "Audit entries written, by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		auditWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insights_audit_write_failures_total",
			Help: "Audit entries that could not be persisted.",
		}),
		admissionDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_admission_denied_total",
				Help: "Privileged calls rejected before execution, by reason.",
			},
			[]string{"reason"},
		),
		tokenFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_token_verification_failures_total",
				Help: "Bearer tokens that failed verification, by classification.",
			},
			[]string{"reason"},
		),
		inputRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_input_rejections_total",
				Help: "Free-text inputs rejected by the safety validator, by reason.",
			},
			[]string{"reason"},
		),
		aiTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insights_ai_tokens_total",
			Help: "Tokens consumed by the AI completion backend.",
		}),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insights_operation_duration_seconds",
				Help:    "Duration of intercepted privileged operations.",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"action", "outcome"},
		),
	}

	reg.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.auditEntries, m.auditWriteFailures, m.admissionDenied,
		m.tokenFailures, m.inputRejections, m.aiTokens, m.operationDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Registry возвращает регистр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler хэндлер Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AuditEntry учитывает записанную запись аудита
func (m *Metrics) AuditEntry(action, outcome string) {
	if m == nil {
		return
	}
	m.auditEntries.WithLabelValues(action, outcome).Inc()
}

// AuditWriteFailed учитывает неудачную запись в журнал
func (m *Metrics) AuditWriteFailed() {
	if m == nil {
		return
	}
	m.auditWriteFailures.Inc()
}

// AdmissionDenied учитывает отказ на этапе допуска
func (m *Metrics) AdmissionDenied(reason string) {
	if m == nil {
		return
	}
	m.admissionDenied.WithLabelValues(reason).Inc()
}

// TokenRejected учитывает непрошедший проверку токен
func (m *Metrics) TokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenFailures.WithLabelValues(reason).Inc()
}

// InputRejected учитывает отклоненный ввод
func (m *Metrics) InputRejected(reason string) {
	if m == nil {
		return
	}
	m.inputRejections.WithLabelValues(reason).Inc()
}

// AITokens учитывает расход токенов модели
func (m *Metrics) AITokens(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.aiTokens.Add(float64(n))
}

// OperationDone учитывает длительность перехваченной операции
func (m *Metrics) OperationDone(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(action, outcome).Observe(d.Seconds())
}

// Instrument обертка для измерения RPS/latency/в полёте
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// statusWriter локальная копия, чтобы знать код ответа
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
