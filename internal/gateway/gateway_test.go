package gateway

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slackemu/emulator/internal/config"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	cfg := &config.Config{Environment: "test", LogLevel: "error", Port: 0, SeedFile: ""}
	gw, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return gw
}

func TestGateway_HealthEndpoint(t *testing.T) {
	gw := newTestGateway(t)
	req, _ := http.NewRequest("GET", "/health", nil)
	resp, err := gw.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_MetricsEndpoint(t *testing.T) {
	gw := newTestGateway(t)
	req, _ := http.NewRequest("GET", "/metrics", nil)
	resp, err := gw.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_WebsocketUpgradeRequiredWithoutUpgradeHeaders(t *testing.T) {
	gw := newTestGateway(t)
	req, _ := http.NewRequest("GET", "/ws/socket-mode", nil)
	resp, err := gw.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestGateway_PlatformRouteMounted(t *testing.T) {
	gw := newTestGateway(t)
	req, _ := http.NewRequest("POST", "/api/auth.test", nil)
	resp, err := gw.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_ShutdownIsClean(t *testing.T) {
	gw := newTestGateway(t)
	err := gw.Shutdown(t.Context())
	assert.NoError(t, err)
}
