package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAuth(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveAuth("signin", "success")
	c.ObserveAuth("signin", "success")
	c.ObserveAuth("signin", "failure")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.authOps.WithLabelValues("signin", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authOps.WithLabelValues("signin", "failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.authOps.WithLabelValues("signup", "success")))
}

func TestObserveGate(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveGate("authenticated", "pending")
	c.ObserveGate("role:admin", "denied")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.gateDecisions.WithLabelValues("authenticated", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.gateDecisions.WithLabelValues("role:admin", "denied")))
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest("GET", "ok", 120*time.Millisecond)
	c.ObserveRequest("GET", "network", 30*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiRequests.WithLabelValues("GET", "network")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.apiLatency))
}

func TestSSEClientsAndPurges(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.SSEClientConnected()
	c.SSEClientConnected()
	c.SSEClientDisconnected()
	c.TokensPurged(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sseClients))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.tokensPurged))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveAuth("signout", "success")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Result().Body)
	assert.Contains(t, string(body), `contesthub_auth_operations_total{operation="signout",outcome="success"} 1`)
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
