package obs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.AuditEntry("MESSAGE_SENT", "SUCCESS")
	m.AuditEntry("MESSAGE_SENT", "SUCCESS")
	m.AuditWriteFailed()
	m.AdmissionDenied("rate_limited")
	m.TokenRejected("BadSignature")
	m.InputRejected("SQL_KEYWORDS")
	m.AITokens(120)
	m.AITokens(-5)
	m.OperationDone("MESSAGE_SENT", "SUCCESS", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.auditEntries.WithLabelValues("MESSAGE_SENT", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditWriteFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.admissionDenied.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokenFailures.WithLabelValues("BadSignature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inputRejections.WithLabelValues("SQL_KEYWORDS")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.aiTokens))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AuditEntry("a", "b")
		m.AuditWriteFailed()
		m.AdmissionDenied("x")
		m.TokenRejected("x")
		m.InputRejected("x")
		m.AITokens(1)
		m.OperationDone("a", "b", time.Second)
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Instrument(h))
}

func TestMetrics_InstrumentUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/conversations/{id}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AuditEntry("BLOCKED", "FAILURE")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `insights_audit_entries_total{action="BLOCKED",outcome="FAILURE"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
