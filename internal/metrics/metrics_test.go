package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.ConnectionsActive)
	assert.NotNil(t, m.EnvelopesDispatched)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("/api/chat.postMessage", "200", 0.05)
	m.RecordHTTPRequest("/api/chat.postMessage", "200", 0.05)
	m.RecordHTTPRequest("/api/chat.postMessage", "500", 0.1)

	body := getMetricsBody(t, m)
	assert.True(t, strings.Contains(body, `route="/api/chat.postMessage",status="200"} 2`))
	assert.True(t, strings.Contains(body, `route="/api/chat.postMessage",status="500"} 1`))
}

func TestMetrics_RecordEnvelopeDispatched(t *testing.T) {
	m := New()
	m.RecordEnvelopeDispatched("events_api")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `emulator_envelopes_dispatched_total{type="events_api"} 1`)
}

func TestMetrics_RecordError(t *testing.T) {
	m := New()
	m.RecordError("socketbus", "ack_timeout")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `emulator_errors_total{component="socketbus",kind="ack_timeout"} 1`)
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()
	m.SetConnectionsActive(3)
	m.SetBotsConnected(2)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "emulator_socket_connections_active 3")
	assert.Contains(t, body, "emulator_bots_connected 2")
}
