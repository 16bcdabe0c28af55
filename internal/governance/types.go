package governance

import (
	"strings"
	"time"

	"github.com/taskgate-ai/taskgate/pkg/decision"
)

// CredentialStatus reports the health of a provider's credentials.
type CredentialStatus string

const (
	CredentialConfigured CredentialStatus = "configured"
	CredentialMissing    CredentialStatus = "missing_credentials"
	CredentialInvalid    CredentialStatus = "invalid_credentials"
)

// CredentialSource supplies externally loaded provider credentials. It must
// never perform I/O on the request path; implementations read configuration
// already in memory.
type CredentialSource interface {
	Credential(provider string) string
}

// scopeKind discriminates the limit scope key.
type scopeKind int

const (
	scopeGlobal scopeKind = iota
	scopeProvider
)

// limitScope is the typed key for cost and rate limit maps. Its wire form
// remains "global" / "provider:<name>"; the typed key exists so scope
// handling is exhaustive instead of string concatenation.
type limitScope struct {
	kind     scopeKind
	provider string
}

func globalScope() limitScope {
	return limitScope{kind: scopeGlobal}
}

func providerScope(name string) limitScope {
	return limitScope{kind: scopeProvider, provider: name}
}

// String returns the wire form of the scope key.
func (s limitScope) String() string {
	if s.kind == scopeProvider {
		return "provider:" + s.provider
	}
	return "global"
}

// parseScope parses the wire form of a scope key.
func parseScope(s string) (limitScope, bool) {
	if s == "global" {
		return globalScope(), true
	}
	if name, ok := strings.CutPrefix(s, "provider:"); ok && name != "" {
		return providerScope(name), true
	}
	return limitScope{}, false
}

// CostLimit tracks budget thresholds and running usage for one scope.
type CostLimit struct {
	Scope           string    `json:"scope"`
	SoftLimitUSD    float64   `json:"soft_limit_usd"`
	HardLimitUSD    float64   `json:"hard_limit_usd"`
	CurrentUsageUSD float64   `json:"current_usage_usd"`
	PeriodStart     time.Time `json:"period_start"`
}

// UsagePercent returns usage as a percentage of the hard limit.
func (l *CostLimit) UsagePercent() float64 {
	if l.HardLimitUSD <= 0 {
		return 0
	}
	return l.CurrentUsageUSD / l.HardLimitUSD * 100
}

// RateLimit tracks per-minute request and token ceilings for one scope.
// Counters reset lazily once the window has been open longer than a minute.
type RateLimit struct {
	Scope                string    `json:"scope"`
	MaxRequestsPerMinute int64     `json:"max_requests_per_minute"`
	MaxTokensPerMinute   int64     `json:"max_tokens_per_minute"`
	CurrentRequests      int64     `json:"current_requests"`
	CurrentTokens        int64     `json:"current_tokens"`
	PeriodStart          time.Time `json:"period_start"`
}

// FallbackEvent is an append-only audit record of one provider substitution.
type FallbackEvent struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	From      string              `json:"from_provider"`
	To        string              `json:"to_provider"`
	Reason    decision.ReasonCode `json:"reason_code"`
	Message   string              `json:"message"`
	Detail    string              `json:"detail,omitempty"`
}

// FallbackPolicy controls fallback candidate search.
type FallbackPolicy struct {
	DefaultProvider  string   `json:"default_provider"`
	FallbackOrder    []string `json:"fallback_order"`
	OnTimeout        bool     `json:"on_timeout"`
	OnAuthError      bool     `json:"on_auth_error"`
	OnBudgetExceeded bool     `json:"on_budget_exceeded"`
	OnDegraded       bool     `json:"on_degraded"`
}

// CheckResult is the outcome of a cost or rate admission check. Denials are
// results the caller branches on, not errors.
type CheckResult struct {
	Allowed     bool
	Reason      decision.ReasonCode
	Message     string
	SoftWarning bool
}

// Decision is the outcome of provider selection with fallback.
type Decision struct {
	Allowed         bool
	Provider        string
	Reason          decision.ReasonCode
	UserMessage     string
	FallbackApplied bool
}

// CostLimitStatus is a CostLimit with its derived usage percentage, for the
// read-only status projection.
type CostLimitStatus struct {
	CostLimit
	UsagePercent float64 `json:"usage_percent"`
}

// Status is a read-only snapshot of governance state safe to expose to the
// administrative surface.
type Status struct {
	CostLimits      []CostLimitStatus `json:"cost_limits"`
	RateLimits      []RateLimit       `json:"rate_limits"`
	RecentFallbacks []FallbackEvent   `json:"recent_fallbacks"`
	Policy          FallbackPolicy    `json:"fallback_policy"`
}
