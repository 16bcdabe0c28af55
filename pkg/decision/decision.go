package decision

import (
	"time"

	"github.com/goccy/go-json"
)

// NegligibleCostUSD is the epsilon below which a cloud request is treated as
// cost-free. Floating-point cost accumulation must not flag true zero-cost
// requests as paid.
const NegligibleCostUSD = 1e-4

// RoutingDecision is the central record of the routing contract: one is
// created per task and handed to the orchestrator as advisory metadata.
// It is immutable once constructed and owns no further lifecycle.
type RoutingDecision struct {
	// TargetRuntime, Provider and Model are all empty when routing failed.
	TargetRuntime RuntimeTarget `json:"target_runtime,omitempty"`
	Provider      string        `json:"provider,omitempty"`
	Model         string        `json:"model,omitempty"`

	Reason          ReasonCode `json:"reason_code"`
	ComplexityScore float64    `json:"complexity_score"`
	Sensitive       bool       `json:"is_sensitive"`

	// FallbackApplied is set when Provider differs from the originally
	// preferred provider; FallbackChain then lists the providers attempted,
	// preferred first.
	FallbackApplied bool     `json:"fallback_applied"`
	FallbackChain   []string `json:"fallback_chain,omitempty"`

	PolicyPassed bool `json:"policy_passed"`

	EstimatedCostUSD   float64  `json:"estimated_cost_usd"`
	RemainingBudgetUSD *float64 `json:"remaining_budget_usd,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	LatencyMS int64     `json:"latency_ms"`

	ErrorMessage string `json:"error,omitempty"`
}

// IsSuccessful reports whether the task may be dispatched: target and
// provider resolved, policy gate passed, and no error recorded.
func (d *RoutingDecision) IsSuccessful() bool {
	return d.TargetRuntime != "" && d.Provider != "" && d.PolicyPassed && d.ErrorMessage == ""
}

// IsCostFree reports whether the decision carries no billable cost: always
// true for local targets, and true for cloud targets whose estimate is
// below NegligibleCostUSD.
func (d *RoutingDecision) IsCostFree() bool {
	if d.TargetRuntime.IsLocal() {
		return true
	}
	return d.EstimatedCostUSD < NegligibleCostUSD
}

// ToMap serializes the decision to a flat record. Enumerated fields render
// as their lowercase string values and the timestamp as RFC 3339; this exact
// shape is part of the audit contract.
func (d *RoutingDecision) ToMap() map[string]any {
	m := map[string]any{
		"target_runtime":     string(d.TargetRuntime),
		"provider":           d.Provider,
		"model":              d.Model,
		"reason_code":        string(d.Reason),
		"complexity_score":   d.ComplexityScore,
		"is_sensitive":       d.Sensitive,
		"fallback_applied":   d.FallbackApplied,
		"fallback_chain":     append([]string(nil), d.FallbackChain...),
		"policy_passed":      d.PolicyPassed,
		"estimated_cost_usd": d.EstimatedCostUSD,
		"created_at":         d.CreatedAt.UTC().Format(time.RFC3339),
		"latency_ms":         d.LatencyMS,
		"error":              d.ErrorMessage,
	}
	if d.RemainingBudgetUSD != nil {
		m["remaining_budget_usd"] = *d.RemainingBudgetUSD
	}
	return m
}

// ToJSON renders the audit-contract map form as JSON.
func (d *RoutingDecision) ToJSON() ([]byte, error) {
	return json.Marshal(d.ToMap())
}
