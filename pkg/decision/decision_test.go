package decision

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingDecision_IsSuccessful(t *testing.T) {
	d := RoutingDecision{
		TargetRuntime: TargetOllama,
		Provider:      "ollama",
		PolicyPassed:  true,
	}
	assert.True(t, d.IsSuccessful())

	blocked := d
	blocked.PolicyPassed = false
	assert.False(t, blocked.IsSuccessful())

	failed := d
	failed.ErrorMessage = "task classification unavailable"
	assert.False(t, failed.IsSuccessful())

	empty := RoutingDecision{PolicyPassed: true}
	assert.False(t, empty.IsSuccessful())
}

func TestRoutingDecision_IsCostFree(t *testing.T) {
	local := RoutingDecision{TargetRuntime: TargetVLLM, EstimatedCostUSD: 3.50}
	assert.True(t, local.IsCostFree(), "local runtimes are always cost-free")

	cheap := RoutingDecision{TargetRuntime: TargetOpenAI, EstimatedCostUSD: 0.00009}
	assert.True(t, cheap.IsCostFree(), "sub-epsilon cloud cost is negligible")

	paid := RoutingDecision{TargetRuntime: TargetOpenAI, EstimatedCostUSD: 0.0001}
	assert.False(t, paid.IsCostFree(), "epsilon itself is billable")
}

func TestRoutingDecision_ToMap(t *testing.T) {
	remaining := 12.5
	d := RoutingDecision{
		TargetRuntime:      TargetOpenAI,
		Provider:           "openai",
		Model:              "gpt-4o-mini",
		Reason:             ReasonComplexityHigh,
		ComplexityScore:    7.5,
		FallbackApplied:    true,
		FallbackChain:      []string{"anthropic", "openai"},
		PolicyPassed:       true,
		EstimatedCostUSD:   0.012,
		RemainingBudgetUSD: &remaining,
		CreatedAt:          time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		LatencyMS:          4,
	}

	m := d.ToMap()
	assert.Equal(t, "openai", m["target_runtime"])
	assert.Equal(t, "complexity_high", m["reason_code"])
	assert.Equal(t, "2026-03-01T12:30:00Z", m["created_at"])
	assert.Equal(t, []string{"anthropic", "openai"}, m["fallback_chain"])
	assert.Equal(t, 12.5, m["remaining_budget_usd"])

	noBudget := RoutingDecision{}
	_, ok := noBudget.ToMap()["remaining_budget_usd"]
	assert.False(t, ok, "nil remaining budget must be omitted")
}

func TestRoutingDecision_ToJSON(t *testing.T) {
	d := RoutingDecision{
		TargetRuntime: TargetOllama,
		Provider:      "ollama",
		Reason:        ReasonDefaultEcoMode,
		PolicyPassed:  true,
	}

	raw, err := d.ToJSON()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "default_eco_mode", m["reason_code"])
	assert.Equal(t, "ollama", m["provider"])
}

func TestReasonCodeFamilies(t *testing.T) {
	assert.True(t, ReasonFallbackTimeout.IsFallback())
	assert.True(t, ReasonFallbackRateLimit.IsFallback())
	assert.False(t, ReasonDefaultEcoMode.IsFallback())
	assert.False(t, ReasonBudgetHardLimitExceeded.IsFallback())

	assert.True(t, ReasonBudgetHardLimitExceeded.IsBlock())
	assert.True(t, ReasonContentPolicyBlocked.IsBlock())
	assert.False(t, ReasonFallbackAuthError.IsBlock())
	assert.False(t, ReasonUserPreference.IsBlock())
}

func TestParseRuntimeTarget(t *testing.T) {
	for _, name := range KnownProviders() {
		target, ok := ParseRuntimeTarget(name)
		require.True(t, ok, name)
		assert.Equal(t, name, target.String())
		assert.True(t, target.IsLocal() != target.IsCloud(), "every target is exactly one of local or cloud")
	}

	_, ok := ParseRuntimeTarget("openrouter")
	assert.False(t, ok)
}
