package webapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slackemu/emulator/internal/metrics"
	"github.com/slackemu/emulator/internal/socketbus"
	"github.com/slackemu/emulator/internal/state"
)

// testApp wires a Server's routes onto a bare Fiber app the way gateway.go
// does, minus the middleware stack (request-id/cors/recover aren't under
// test here).
func testApp(t *testing.T) (*fiber.App, *Server) {
	t.Helper()
	logger := zerolog.Nop()
	st := state.New(logger, nil)
	bus := socketbus.New(logger, st, nil)
	srv := New(logger, st, bus, metrics.New())

	app := fiber.New()
	srv.RegisterSimulator(app)
	srv.RegisterPlatform(app)
	return app, srv
}

func jsonRequest(method, path, body string) *http.Request {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAuthTest_NoTokenDefaultsToSimple(t *testing.T) {
	app, _ := testApp(t)
	resp, err := app.Test(jsonRequest("POST", "/api/auth.test", "{}"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "B_simple", body["bot_id"])
}

func TestRequireToken_RejectsMissingPrefix(t *testing.T) {
	app, _ := testApp(t)
	req := jsonRequest("POST", "/api/chat.postMessage", `{"channel":"C_GENERAL","text":"hi"}`)
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "invalid_auth", body["error"])
}

func TestChatPostMessage_RequiresChannel(t *testing.T) {
	app, _ := testApp(t)
	req := jsonRequest("POST", "/api/chat.postMessage", `{"text":"hi"}`)
	req.Header.Set("Authorization", "Bearer xoxb-simple")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "missing_required_field", body["error"])
}

func TestChatPostMessage_ThenHistoryRoundTrips(t *testing.T) {
	app, _ := testApp(t)
	req := jsonRequest("POST", "/api/chat.postMessage", `{"channel":"C_GENERAL","text":"hello there"}`)
	req.Header.Set("Authorization", "Bearer xoxb-simple")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	posted := decodeBody(t, resp)
	assert.Equal(t, true, posted["ok"])
	ts, _ := posted["ts"].(string)
	require.NotEmpty(t, ts)

	histReq, _ := http.NewRequest("GET", "/api/conversations.history?channel=C_GENERAL", nil)
	histReq.Header.Set("Authorization", "Bearer xoxb-simple")
	histResp, err := app.Test(histReq, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, histResp.StatusCode)

	hist := decodeBody(t, histResp)
	msgs, ok := hist["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 1)
}

func TestAppsConnectionsOpen_NoConnections_Returns503(t *testing.T) {
	app, _ := testApp(t)
	resp, err := app.Test(jsonRequest("POST", "/api/apps.connections.open", "{}"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "no_websocket_connection", body["error"])
}

func TestAppsConnectionsRegister_RejectsEmptyAppConfig(t *testing.T) {
	app, _ := testApp(t)
	resp, err := app.Test(jsonRequest("POST", "/api/apps.connections.register", "{}"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "invalid_config", body["error"])
}

func TestSimulatorSettings_RoundTrip(t *testing.T) {
	app, _ := testApp(t)

	getResp, err := app.Test(jsonRequest("GET", "/api/simulator/settings", ""), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	postResp, err := app.Test(jsonRequest("POST", "/api/simulator/settings", `{"theme":"dark"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, postResp.StatusCode)
}

func TestSimulatorChannels_CreateListDelete(t *testing.T) {
	app, _ := testApp(t)

	createResp, err := app.Test(jsonRequest("POST", "/api/simulator/channels", `{"name":"testing"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, createResp.StatusCode)
	created := decodeBody(t, createResp)
	channel, ok := created["channel"].(map[string]interface{})
	require.True(t, ok)
	id, _ := channel["id"].(string)
	require.NotEmpty(t, id)

	listResp, err := app.Test(jsonRequest("GET", "/api/simulator/channels", ""), -1)
	require.NoError(t, err)
	listed := decodeBody(t, listResp)
	chans, _ := listed["channels"].([]interface{})
	assert.GreaterOrEqual(t, len(chans), 1)

	delResp, err := app.Test(jsonRequest("DELETE", "/api/simulator/channels/"+id, ""), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, delResp.StatusCode)
}

func TestSimulatorUserMessage_DispatchesWithoutConnectedBots(t *testing.T) {
	app, _ := testApp(t)
	resp, err := app.Test(jsonRequest("POST", "/api/simulator/user-message", `{"channel":"C_GENERAL","text":"hi @simple"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthTest_DerivesBotIDFromToken(t *testing.T) {
	app, _ := testApp(t)
	req := jsonRequest("POST", "/api/auth.test", "{}")
	req.Header.Set("Authorization", "Bearer xoxb-mybot")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "B_mybot", body["bot_id"])
	assert.Equal(t, "U_mybot", body["user_id"])
}

func TestUnknownMethod_Returns404(t *testing.T) {
	app, _ := testApp(t)
	resp, err := app.Test(jsonRequest("POST", "/api/not.a.real.method", "{}"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "unknown_method", body["error"])
}

func TestSimulatorSettings_WiresPerBotOverrides(t *testing.T) {
	app, srv := testApp(t)

	push := `{"AI_PROVIDER":"anthropic","_app_settings":{"mybot":{"BOT_NAME":"Rosie"}}}`
	resp, err := app.Test(jsonRequest("POST", "/api/simulator/settings", push), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	merged := srv.state.GetSettingsForBot("mybot")
	assert.Equal(t, "Rosie", merged["BOT_NAME"])
	assert.Equal(t, "claude-sonnet-4-5", merged["MODEL_DEFAULT"])

	other := srv.state.GetSettingsForBot("someone-else")
	assert.Empty(t, other["BOT_NAME"])
}

func TestMessagesDeleteOne_NotFound(t *testing.T) {
	app, _ := testApp(t)
	resp, err := app.Test(jsonRequest("DELETE", "/api/simulator/messages/9999999999.000000", ""), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "message_not_found", body["error"])
}
