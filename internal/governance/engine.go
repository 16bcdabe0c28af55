// Package governance owns admission control for the task dispatcher:
// credential validation, cost and rate bookkeeping, fallback selection, and
// the fallback audit trail. All expected denials are returned as result
// values the caller branches on.
package governance

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/taskgate-ai/taskgate/internal/metrics"
	"github.com/taskgate-ai/taskgate/pkg/decision"
	taskerrors "github.com/taskgate-ai/taskgate/pkg/errors"
)

const (
	// Provider-scoped cost records created on first use get these limits.
	defaultProviderSoftLimitUSD = 5
	defaultProviderHardLimitUSD = 25

	// maxFallbackEvents bounds the audit ring.
	maxFallbackEvents = 100

	// statusFallbackCount is how many recent events the status projection exposes.
	statusFallbackCount = 10

	// rateWindow is the fixed rate-limit window.
	rateWindow = time.Minute
)

// Config seeds the engine's global limits and fallback policy.
type Config struct {
	GlobalSoftLimitUSD   float64
	GlobalHardLimitUSD   float64
	MaxRequestsPerMinute int64
	MaxTokensPerMinute   int64
	Policy               FallbackPolicy
}

// Engine is the provider governance engine. Exactly one instance serves all
// concurrent requests; the host process constructs it once at its dependency
// injection root and passes it by reference. One mutex guards all mutable
// state.
type Engine struct {
	mu         sync.Mutex
	costLimits map[limitScope]*CostLimit
	rateLimits map[limitScope]*RateLimit
	fallbacks  []FallbackEvent
	policy     FallbackPolicy

	creds  CredentialSource
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a governance engine seeded with the configured global
// cost and rate limits.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		costLimits: make(map[limitScope]*CostLimit),
		rateLimits: make(map[limitScope]*RateLimit),
		policy:     cfg.Policy,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	start := e.now()
	if cfg.GlobalHardLimitUSD > 0 {
		e.costLimits[globalScope()] = &CostLimit{
			Scope:        globalScope().String(),
			SoftLimitUSD: cfg.GlobalSoftLimitUSD,
			HardLimitUSD: cfg.GlobalHardLimitUSD,
			PeriodStart:  start,
		}
	}
	if cfg.MaxRequestsPerMinute > 0 || cfg.MaxTokensPerMinute > 0 {
		e.rateLimits[globalScope()] = &RateLimit{
			Scope:                globalScope().String(),
			MaxRequestsPerMinute: cfg.MaxRequestsPerMinute,
			MaxTokensPerMinute:   cfg.MaxTokensPerMinute,
			PeriodStart:          start,
		}
	}
	return e
}

// MaskSecret returns a diagnostic-safe rendering of a credential. Secrets
// under 8 characters mask to a fixed sentinel; longer secrets reveal only
// their first and last 4 characters. This is the only sanctioned way a
// credential fragment may reach a log or message.
func MaskSecret(secret string) string {
	if len(secret) < 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// ValidateCredentials reports credential health for a provider. Local
// runtimes and catalog-style providers are configured by construction; cloud
// providers require a non-blank externally sourced credential. The raw
// credential is never logged or returned.
func (e *Engine) ValidateCredentials(provider string) CredentialStatus {
	target, known := decision.ParseRuntimeTarget(provider)
	if known && target.IsLocal() {
		return CredentialConfigured
	}
	if !known {
		// Catalog-style entries carry their own downstream credentials.
		return CredentialConfigured
	}
	if e.creds == nil {
		return CredentialMissing
	}
	if isBlank(e.creds.Credential(provider)) {
		return CredentialMissing
	}
	return CredentialConfigured
}

// CheckCostLimit evaluates the global limit first, then the provider-scoped
// limit. Exceeding the global hard limit blocks; exceeding only the global
// soft limit allows with a warning; exceeding the provider hard limit blocks
// even when the global check passed.
func (e *Engine) CheckCostLimit(provider string, estimatedCostUSD float64) CheckResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if global, ok := e.costLimits[globalScope()]; ok {
		projected := global.CurrentUsageUSD + estimatedCostUSD
		if projected > global.HardLimitUSD {
			metrics.AdmissionDenialsTotal.WithLabelValues(string(decision.ReasonBudgetHardLimitExceeded)).Inc()
			return CheckResult{
				Allowed: false,
				Reason:  decision.ReasonBudgetHardLimitExceeded,
				Message: fmt.Sprintf("global budget exhausted (%.2f of %.2f USD used)", global.CurrentUsageUSD, global.HardLimitUSD),
			}
		}
		if global.SoftLimitUSD > 0 && projected > global.SoftLimitUSD {
			metrics.SoftLimitWarningsTotal.WithLabelValues(global.Scope).Inc()
			e.logger.Warn("global soft budget limit exceeded",
				"current_usage_usd", global.CurrentUsageUSD,
				"soft_limit_usd", global.SoftLimitUSD)
			if provRes, blocked := e.checkProviderCostLocked(provider, estimatedCostUSD); blocked {
				return provRes
			}
			return CheckResult{
				Allowed:     true,
				SoftWarning: true,
				Message:     fmt.Sprintf("approaching global budget limit (%.0f%% used)", global.UsagePercent()),
			}
		}
	}

	if provRes, blocked := e.checkProviderCostLocked(provider, estimatedCostUSD); blocked {
		return provRes
	}
	return CheckResult{Allowed: true}
}

func (e *Engine) checkProviderCostLocked(provider string, estimatedCostUSD float64) (CheckResult, bool) {
	limit, ok := e.costLimits[providerScope(provider)]
	if !ok {
		return CheckResult{}, false
	}
	if limit.CurrentUsageUSD+estimatedCostUSD > limit.HardLimitUSD {
		metrics.AdmissionDenialsTotal.WithLabelValues(string(decision.ReasonProviderBudgetExceeded)).Inc()
		return CheckResult{
			Allowed: false,
			Reason:  decision.ReasonProviderBudgetExceeded,
			Message: fmt.Sprintf("budget for provider %s exhausted (%.2f of %.2f USD used)", provider, limit.CurrentUsageUSD, limit.HardLimitUSD),
		}, true
	}
	return CheckResult{}, false
}

// CheckRateLimit admits a request against the global per-minute request and
// token ceilings. The lazy window reset shares the critical section with the
// check so a reset cannot race a concurrent check.
func (e *Engine) CheckRateLimit(provider string, estimatedTokens int64) CheckResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	limit, ok := e.rateLimits[globalScope()]
	if !ok {
		return CheckResult{Allowed: true}
	}
	e.resetRateWindowLocked(limit)

	if limit.MaxRequestsPerMinute > 0 && limit.CurrentRequests+1 > limit.MaxRequestsPerMinute {
		metrics.AdmissionDenialsTotal.WithLabelValues(string(decision.ReasonRateLimitRequestsExceeded)).Inc()
		return CheckResult{
			Allowed: false,
			Reason:  decision.ReasonRateLimitRequestsExceeded,
			Message: fmt.Sprintf("request rate limit reached (%d/min), try again shortly", limit.MaxRequestsPerMinute),
		}
	}
	if limit.MaxTokensPerMinute > 0 && limit.CurrentTokens+estimatedTokens > limit.MaxTokensPerMinute {
		metrics.AdmissionDenialsTotal.WithLabelValues(string(decision.ReasonRateLimitTokensExceeded)).Inc()
		return CheckResult{
			Allowed: false,
			Reason:  decision.ReasonRateLimitTokensExceeded,
			Message: fmt.Sprintf("token rate limit reached (%d/min), try again shortly", limit.MaxTokensPerMinute),
		}
	}

	_ = provider // rate ceilings are global; provider is kept for diagnostics parity with cost checks
	return CheckResult{Allowed: true}
}

func (e *Engine) resetRateWindowLocked(limit *RateLimit) {
	if e.now().Sub(limit.PeriodStart) <= rateWindow {
		return
	}
	limit.CurrentRequests = 0
	limit.CurrentTokens = 0
	limit.PeriodStart = e.now()
	metrics.RateWindowRequests.WithLabelValues(limit.Scope).Set(0)
	metrics.RateWindowTokens.WithLabelValues(limit.Scope).Set(0)
}

// RecordUsage atomically records the cost and rate footprint of one
// completed request. It is the only mutation path for usage counters; a
// provider-scoped cost record is created on first use with default limits.
func (e *Engine) RecordUsage(provider string, costUSD float64, tokens, requests int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if global, ok := e.costLimits[globalScope()]; ok {
		global.CurrentUsageUSD += costUSD
		metrics.CostUsageUSD.WithLabelValues(global.Scope).Set(global.CurrentUsageUSD)
	}

	scope := providerScope(provider)
	limit, ok := e.costLimits[scope]
	if !ok {
		limit = &CostLimit{
			Scope:        scope.String(),
			SoftLimitUSD: defaultProviderSoftLimitUSD,
			HardLimitUSD: defaultProviderHardLimitUSD,
			PeriodStart:  e.now(),
		}
		e.costLimits[scope] = limit
	}
	limit.CurrentUsageUSD += costUSD
	metrics.CostUsageUSD.WithLabelValues(limit.Scope).Set(limit.CurrentUsageUSD)

	if rate, ok := e.rateLimits[globalScope()]; ok {
		e.resetRateWindowLocked(rate)
		rate.CurrentRequests += requests
		rate.CurrentTokens += tokens
		metrics.RateWindowRequests.WithLabelValues(rate.Scope).Set(float64(rate.CurrentRequests))
		metrics.RateWindowTokens.WithLabelValues(rate.Scope).Set(float64(rate.CurrentTokens))
	}
}

// SelectProviderWithFallback confirms the preferred provider or substitutes
// the first usable candidate from the fallback order. An empty preferred
// provider resolves to the policy default. A non-empty reason marks the
// preferred provider as already failed for that reason and forces the
// fallback search.
func (e *Engine) SelectProviderWithFallback(preferred string, reason decision.ReasonCode) Decision {
	if preferred == "" {
		preferred = e.Policy().DefaultProvider
	}

	if reason == "" {
		if e.ValidateCredentials(preferred) == CredentialConfigured {
			return Decision{Allowed: true, Provider: preferred}
		}
		reason = decision.ReasonFallbackAuthError
	}

	fallback := e.findFallbackProvider(preferred, reason)
	if fallback == "" {
		metrics.AdmissionDenialsTotal.WithLabelValues(string(decision.ReasonNoProviderAvailable)).Inc()
		return Decision{
			Allowed:     false,
			Reason:      decision.ReasonNoProviderAvailable,
			UserMessage: "no provider is currently available for this task; please try again later",
		}
	}

	e.recordFallbackEvent(FallbackEvent{
		From:    preferred,
		To:      fallback,
		Reason:  reason,
		Message: fmt.Sprintf("provider %s unavailable, routed to %s", preferred, fallback),
		Detail:  fmt.Sprintf("reason=%s fallback_order_scan", reason),
	})

	return Decision{
		Allowed:         true,
		Provider:        fallback,
		Reason:          reason,
		UserMessage:     fmt.Sprintf("your task was routed to %s because %s is unavailable", fallback, preferred),
		FallbackApplied: true,
	}
}

// findFallbackProvider scans the configured fallback order for the first
// provider, other than the failed one, whose credentials validate. It
// returns an empty string when the policy disables fallback for the reason
// or no candidate validates.
func (e *Engine) findFallbackProvider(failedProvider string, reason decision.ReasonCode) string {
	policy := e.Policy()

	enabled := false
	switch reason {
	case decision.ReasonFallbackTimeout:
		enabled = policy.OnTimeout
	case decision.ReasonFallbackAuthError:
		enabled = policy.OnAuthError
	case decision.ReasonFallbackBudgetExceeded:
		enabled = policy.OnBudgetExceeded
	case decision.ReasonFallbackProviderDegraded, decision.ReasonFallbackProviderOffline, decision.ReasonFallbackRateLimit:
		enabled = policy.OnDegraded
	}
	if !enabled {
		return ""
	}

	for _, candidate := range policy.FallbackOrder {
		if candidate == failedProvider {
			continue
		}
		if e.ValidateCredentials(candidate) == CredentialConfigured {
			return candidate
		}
	}
	return ""
}

// RemainingGlobalBudget returns the distance to the global hard limit, or
// nil when no global limit is configured.
func (e *Engine) RemainingGlobalBudget() *float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	global, ok := e.costLimits[globalScope()]
	if !ok {
		return nil
	}
	remaining := global.HardLimitUSD - global.CurrentUsageUSD
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// Policy returns a copy of the active fallback policy.
func (e *Engine) Policy() FallbackPolicy {
	e.mu.Lock()
	defer e.mu.Unlock()

	policy := e.policy
	policy.FallbackOrder = append([]string(nil), e.policy.FallbackOrder...)
	return policy
}

// SetPolicy replaces the active fallback policy. Used by config hot reload.
func (e *Engine) SetPolicy(policy FallbackPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()

	policy.FallbackOrder = append([]string(nil), policy.FallbackOrder...)
	e.policy = policy
}

// SetCostLimit creates or replaces the cost limit for a scope, preserving
// any accumulated usage. Threshold validation (soft <= hard, positive
// magnitudes) is the caller's responsibility.
func (e *Engine) SetCostLimit(scope string, softUSD, hardUSD float64) error {
	key, ok := parseScope(scope)
	if !ok {
		return taskerrors.NewConfigurationError(fmt.Sprintf("unrecognized limit scope %q", scope))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.costLimits[key]; ok {
		existing.SoftLimitUSD = softUSD
		existing.HardLimitUSD = hardUSD
		return nil
	}
	e.costLimits[key] = &CostLimit{
		Scope:        key.String(),
		SoftLimitUSD: softUSD,
		HardLimitUSD: hardUSD,
		PeriodStart:  e.now(),
	}
	return nil
}

// SetRateLimit creates or replaces the rate limit for a scope, preserving
// the counters of the current window.
func (e *Engine) SetRateLimit(scope string, requestsPerMinute, tokensPerMinute int64) error {
	key, ok := parseScope(scope)
	if !ok {
		return taskerrors.NewConfigurationError(fmt.Sprintf("unrecognized limit scope %q", scope))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.rateLimits[key]; ok {
		existing.MaxRequestsPerMinute = requestsPerMinute
		existing.MaxTokensPerMinute = tokensPerMinute
		return nil
	}
	e.rateLimits[key] = &RateLimit{
		Scope:                key.String(),
		MaxRequestsPerMinute: requestsPerMinute,
		MaxTokensPerMinute:   tokensPerMinute,
		PeriodStart:          e.now(),
	}
	return nil
}

// ResetUsage zeroes the usage counters for one scope.
func (e *Engine) ResetUsage(scope string) error {
	key, ok := parseScope(scope)
	if !ok {
		return taskerrors.NewConfigurationError(fmt.Sprintf("unrecognized limit scope %q", scope))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetScopeLocked(key)
	return nil
}

// ResetAllUsage zeroes the usage counters of every scope.
func (e *Engine) ResetAllUsage() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key := range e.costLimits {
		e.resetScopeLocked(key)
	}
	for key := range e.rateLimits {
		e.resetScopeLocked(key)
	}
}

func (e *Engine) resetScopeLocked(key limitScope) {
	if limit, ok := e.costLimits[key]; ok {
		limit.CurrentUsageUSD = 0
		limit.PeriodStart = e.now()
		metrics.CostUsageUSD.WithLabelValues(limit.Scope).Set(0)
	}
	if limit, ok := e.rateLimits[key]; ok {
		limit.CurrentRequests = 0
		limit.CurrentTokens = 0
		limit.PeriodStart = e.now()
		metrics.RateWindowRequests.WithLabelValues(limit.Scope).Set(0)
		metrics.RateWindowTokens.WithLabelValues(limit.Scope).Set(0)
	}
}

// GetStatus returns a read-only projection of governance state: every limit
// with derived usage, the most recent fallback events in chronological
// order, and the active policy.
func (e *Engine) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := Status{
		CostLimits:      make([]CostLimitStatus, 0, len(e.costLimits)),
		RateLimits:      make([]RateLimit, 0, len(e.rateLimits)),
		RecentFallbacks: make([]FallbackEvent, 0, statusFallbackCount),
		Policy:          e.policy,
	}
	status.Policy.FallbackOrder = append([]string(nil), e.policy.FallbackOrder...)

	for _, limit := range e.costLimits {
		status.CostLimits = append(status.CostLimits, CostLimitStatus{
			CostLimit:    *limit,
			UsagePercent: limit.UsagePercent(),
		})
	}
	sort.Slice(status.CostLimits, func(i, j int) bool {
		return scopeLess(status.CostLimits[i].Scope, status.CostLimits[j].Scope)
	})

	for _, limit := range e.rateLimits {
		status.RateLimits = append(status.RateLimits, *limit)
	}
	sort.Slice(status.RateLimits, func(i, j int) bool {
		return scopeLess(status.RateLimits[i].Scope, status.RateLimits[j].Scope)
	})

	start := len(e.fallbacks) - statusFallbackCount
	if start < 0 {
		start = 0
	}
	status.RecentFallbacks = append(status.RecentFallbacks, e.fallbacks[start:]...)

	return status
}

// scopeLess orders the global scope before provider scopes, then by name.
func scopeLess(a, b string) bool {
	if a == "global" {
		return b != "global"
	}
	if b == "global" {
		return false
	}
	return a < b
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
