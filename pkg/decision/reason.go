package decision

// ReasonCode is a stable, machine-readable tag explaining why a routing or
// admission decision was made. The lowercase string values are a wire-level
// audit key consumed by downstream logging and analytics; renaming one is a
// breaking change.
type ReasonCode string

// Primary routing reasons.
const (
	ReasonDefaultEcoMode   ReasonCode = "default_eco_mode"
	ReasonComplexityLow    ReasonCode = "complexity_low"
	ReasonComplexityHigh   ReasonCode = "complexity_high"
	ReasonSensitiveContent ReasonCode = "sensitive_content"
	ReasonUserPreference   ReasonCode = "user_preference"
)

// Fallback reasons recorded when a preferred provider is substituted.
const (
	ReasonFallbackTimeout          ReasonCode = "fallback_timeout"
	ReasonFallbackAuthError        ReasonCode = "fallback_auth_error"
	ReasonFallbackBudgetExceeded   ReasonCode = "fallback_budget_exceeded"
	ReasonFallbackProviderDegraded ReasonCode = "fallback_provider_degraded"
	ReasonFallbackProviderOffline  ReasonCode = "fallback_provider_offline"
	ReasonFallbackRateLimit        ReasonCode = "fallback_rate_limit"
)

// Policy-block reasons for terminal admission denials.
const (
	ReasonBudgetHardLimitExceeded   ReasonCode = "budget_hard_limit_exceeded"
	ReasonProviderBudgetExceeded    ReasonCode = "provider_budget_exceeded"
	ReasonRateLimitRequestsExceeded ReasonCode = "rate_limit_requests_exceeded"
	ReasonRateLimitTokensExceeded   ReasonCode = "rate_limit_tokens_exceeded"
	ReasonNoProviderAvailable       ReasonCode = "no_provider_available"
	ReasonContentPolicyBlocked      ReasonCode = "content_policy_blocked"
)

// IsFallback reports whether the code belongs to the fallback family.
func (r ReasonCode) IsFallback() bool {
	switch r {
	case ReasonFallbackTimeout, ReasonFallbackAuthError, ReasonFallbackBudgetExceeded,
		ReasonFallbackProviderDegraded, ReasonFallbackProviderOffline, ReasonFallbackRateLimit:
		return true
	}
	return false
}

// IsBlock reports whether the code is a terminal admission denial.
func (r ReasonCode) IsBlock() bool {
	switch r {
	case ReasonBudgetHardLimitExceeded, ReasonProviderBudgetExceeded,
		ReasonRateLimitRequestsExceeded, ReasonRateLimitTokensExceeded,
		ReasonNoProviderAvailable, ReasonContentPolicyBlocked:
		return true
	}
	return false
}

// String returns the lowercase wire form of the reason code.
func (r ReasonCode) String() string {
	return string(r)
}
