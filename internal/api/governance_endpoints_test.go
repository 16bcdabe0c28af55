package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate-ai/taskgate/internal/governance"
	"github.com/taskgate-ai/taskgate/internal/policy"
	"github.com/taskgate-ai/taskgate/internal/routing"
)

func newTestServer(t *testing.T) (*httptest.Server, *governance.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := governance.NewEngine(governance.Config{
		GlobalSoftLimitUSD:   10,
		GlobalHardLimitUSD:   50,
		MaxRequestsPerMinute: 1000,
		MaxTokensPerMinute:   1000000,
		Policy: governance.FallbackPolicy{
			DefaultProvider: "ollama",
			FallbackOrder:   []string{"ollama", "vllm", "openai"},
			OnAuthError:     true,
		},
	}, governance.WithLogger(logger))

	gate := policy.NewGate(true, policy.WithLogger(logger))
	router := routing.New(routing.NewHeuristicClassifier(), engine, gate, routing.WithLogger(logger))

	mux := http.NewServeMux()
	NewHandler(engine, router, logger).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, engine
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func sendJSON(t *testing.T, method, url, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestGovernanceStatusEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)
	engine.RecordUsage("openai", 2.5, 100, 1)

	var status governance.Status
	resp := getJSON(t, srv.URL+"/v1/governance/status", &status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotEmpty(t, status.CostLimits)
	assert.Equal(t, "global", status.CostLimits[0].Scope, "global scope sorts first")
	assert.Equal(t, 2.5, status.CostLimits[0].CurrentUsageUSD)
	assert.Equal(t, "ollama", status.Policy.DefaultProvider)
}

func TestCredentialHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var health []struct {
		Provider string `json:"provider"`
		Status   string `json:"status"`
	}
	resp := getJSON(t, srv.URL+"/v1/governance/credentials", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	byProvider := map[string]string{}
	for _, h := range health {
		byProvider[h.Provider] = h.Status
	}
	assert.Equal(t, "configured", byProvider["ollama"])
	assert.Equal(t, "missing_credentials", byProvider["openai"], "no credential source is configured")
}

func TestUpdateCostLimitEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)

	resp := sendJSON(t, http.MethodPut, srv.URL+"/v1/governance/limits/cost",
		`{"scope": "provider:openai", "soft_limit_usd": 1, "hard_limit_usd": 5}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	res := engine.CheckCostLimit("openai", 6)
	assert.False(t, res.Allowed, "the new provider hard limit must be enforced")

	var errBody map[string]string
	resp = sendJSON(t, http.MethodPut, srv.URL+"/v1/governance/limits/cost",
		`{"scope": "global", "soft_limit_usd": 10, "hard_limit_usd": 5}`, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errBody["error"], "soft limit")

	resp = sendJSON(t, http.MethodPut, srv.URL+"/v1/governance/limits/cost",
		`{"scope": "bogus", "soft_limit_usd": 1, "hard_limit_usd": 5}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateRateLimitEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)

	resp := sendJSON(t, http.MethodPut, srv.URL+"/v1/governance/limits/rate",
		`{"scope": "global", "max_requests_per_minute": 2, "max_tokens_per_minute": 100}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	engine.RecordUsage("ollama", 0, 10, 2)
	res := engine.CheckRateLimit("ollama", 1)
	assert.False(t, res.Allowed)

	resp = sendJSON(t, http.MethodPut, srv.URL+"/v1/governance/limits/rate",
		`{"scope": "global", "max_requests_per_minute": 0, "max_tokens_per_minute": 100}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResetUsageEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)
	engine.RecordUsage("openai", 3, 100, 1)

	resp := sendJSON(t, http.MethodPost, srv.URL+"/v1/governance/reset", `{"scope": ""}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, limit := range engine.GetStatus().CostLimits {
		assert.Zero(t, limit.CurrentUsageUSD, "scope %s", limit.Scope)
	}
}

func TestRecordUsageEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)

	resp := sendJSON(t, http.MethodPost, srv.URL+"/v1/governance/usage",
		`{"provider": "openai", "cost_usd": 1.25, "tokens": 500}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status := engine.GetStatus()
	assert.Equal(t, 1.25, status.CostLimits[0].CurrentUsageUSD)
	assert.Equal(t, int64(1), status.RateLimits[0].CurrentRequests, "requests default to 1")

	resp = sendJSON(t, http.MethodPost, srv.URL+"/v1/governance/usage", `{"cost_usd": 1}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouteEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]any
	resp := sendJSON(t, http.MethodPost, srv.URL+"/v1/route",
		`{"content": "hello there", "intent": "chat", "session_id": "s-1"}`, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "ollama", body["provider"])
	assert.Equal(t, "ollama", body["target_runtime"])
	assert.Equal(t, true, body["policy_passed"])
	assert.Equal(t, "complexity_low", body["reason_code"])
	assert.NotEmpty(t, body["created_at"])
}

func TestRouteEndpoint_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := sendJSON(t, http.MethodPost, srv.URL+"/v1/route", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
