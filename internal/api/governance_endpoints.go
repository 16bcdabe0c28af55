// Package api exposes the governance engine and router to the
// administrative HTTP surface. Limit mutations are validated here, before
// they reach the engine; the engine assumes validated input.
package api

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/taskgate-ai/taskgate/internal/governance"
	"github.com/taskgate-ai/taskgate/internal/routing"
	"github.com/taskgate-ai/taskgate/pkg/decision"
)

// Handler serves the administrative and routing endpoints.
type Handler struct {
	engine *governance.Engine
	router *routing.Router
	logger *slog.Logger
}

// NewHandler creates an API handler.
func NewHandler(engine *governance.Engine, router *routing.Router, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, router: router, logger: logger}
}

// RegisterRoutes attaches all endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /v1/governance/status", h.GovernanceStatus)
	mux.HandleFunc("GET /v1/governance/credentials", h.CredentialHealth)
	mux.HandleFunc("PUT /v1/governance/limits/cost", h.UpdateCostLimit)
	mux.HandleFunc("PUT /v1/governance/limits/rate", h.UpdateRateLimit)
	mux.HandleFunc("POST /v1/governance/reset", h.ResetUsage)
	mux.HandleFunc("POST /v1/governance/usage", h.RecordUsage)
	mux.HandleFunc("POST /v1/route", h.Route)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GovernanceStatus returns the read-only governance snapshot.
func (h *Handler) GovernanceStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GetStatus())
}

type credentialHealth struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

// CredentialHealth reports per-provider credential status. Raw credentials
// never appear here.
func (h *Handler) CredentialHealth(w http.ResponseWriter, _ *http.Request) {
	providers := decision.KnownProviders()
	out := make([]credentialHealth, 0, len(providers))
	for _, p := range providers {
		out = append(out, credentialHealth{
			Provider: p,
			Status:   string(h.engine.ValidateCredentials(p)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type costLimitRequest struct {
	Scope        string  `json:"scope"`
	SoftLimitUSD float64 `json:"soft_limit_usd"`
	HardLimitUSD float64 `json:"hard_limit_usd"`
}

// UpdateCostLimit creates or replaces the cost limit for a scope.
func (h *Handler) UpdateCostLimit(w http.ResponseWriter, r *http.Request) {
	var req costLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SoftLimitUSD <= 0 || req.HardLimitUSD <= 0 {
		writeError(w, http.StatusBadRequest, "limits must be positive")
		return
	}
	if req.SoftLimitUSD > req.HardLimitUSD {
		writeError(w, http.StatusBadRequest, "soft limit must not exceed hard limit")
		return
	}
	if err := h.engine.SetCostLimit(req.Scope, req.SoftLimitUSD, req.HardLimitUSD); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "scope": req.Scope})
}

type rateLimitRequest struct {
	Scope                string `json:"scope"`
	MaxRequestsPerMinute int64  `json:"max_requests_per_minute"`
	MaxTokensPerMinute   int64  `json:"max_tokens_per_minute"`
}

// UpdateRateLimit creates or replaces the rate limit for a scope.
func (h *Handler) UpdateRateLimit(w http.ResponseWriter, r *http.Request) {
	var req rateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxRequestsPerMinute <= 0 || req.MaxTokensPerMinute <= 0 {
		writeError(w, http.StatusBadRequest, "limits must be positive")
		return
	}
	if err := h.engine.SetRateLimit(req.Scope, req.MaxRequestsPerMinute, req.MaxTokensPerMinute); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "scope": req.Scope})
}

type resetRequest struct {
	Scope string `json:"scope"`
}

// ResetUsage zeroes usage counters for one scope, or all scopes when the
// scope is empty.
func (h *Handler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Scope == "" {
		h.engine.ResetAllUsage()
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "scope": "all"})
		return
	}
	if err := h.engine.ResetUsage(req.Scope); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "scope": req.Scope})
}

type usageRequest struct {
	Provider string  `json:"provider"`
	CostUSD  float64 `json:"cost_usd"`
	Tokens   int64   `json:"tokens"`
	Requests int64   `json:"requests"`
}

// RecordUsage feeds actual cost and token usage back into the engine after
// an inference call completes.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	if req.Requests <= 0 {
		req.Requests = 1
	}
	h.engine.RecordUsage(req.Provider, req.CostUSD, req.Tokens, req.Requests)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type routeRequest struct {
	Content        string   `json:"content"`
	Intent         string   `json:"intent,omitempty"`
	Tools          []string `json:"tools,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
	ForcedProvider string   `json:"forced_provider,omitempty"`
	ForcedTool     string   `json:"forced_tool,omitempty"`
	ActiveProvider string   `json:"active_provider,omitempty"`
	EcoMode        bool     `json:"eco_mode,omitempty"`
}

// Route builds a routing decision for a task and returns its audit form.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d := h.router.BuildRoutingDecision(r.Context(), routing.Task{
		Content:        req.Content,
		Intent:         req.Intent,
		Tools:          req.Tools,
		SessionID:      req.SessionID,
		ForcedProvider: req.ForcedProvider,
		ForcedTool:     req.ForcedTool,
	}, routing.RuntimeInfo{
		ActiveProvider: req.ActiveProvider,
		EcoMode:        req.EcoMode,
	})

	writeJSON(w, http.StatusOK, d.ToMap())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
