// Package decision defines the routing decision contract shared by the
// governance engine, the policy gate, and the routing integration: runtime
// targets, reason codes, complexity constants, fallback orders, and the
// RoutingDecision record itself.
package decision

// RuntimeTarget identifies a backend runtime capable of executing an
// inference task. The set is closed; each target is either local or cloud.
type RuntimeTarget string

const (
	TargetOllama    RuntimeTarget = "ollama"
	TargetVLLM      RuntimeTarget = "vllm"
	TargetOpenAI    RuntimeTarget = "openai"
	TargetAnthropic RuntimeTarget = "anthropic"
	TargetGoogle    RuntimeTarget = "google"
)

// IsLocal reports whether the target runs on local hardware. Local targets
// incur no cost and never require credentials.
func (t RuntimeTarget) IsLocal() bool {
	switch t {
	case TargetOllama, TargetVLLM:
		return true
	}
	return false
}

// IsCloud reports whether the target is a hosted runtime requiring
// externally supplied credentials.
func (t RuntimeTarget) IsCloud() bool {
	switch t {
	case TargetOpenAI, TargetAnthropic, TargetGoogle:
		return true
	}
	return false
}

// String returns the lowercase wire form of the target.
func (t RuntimeTarget) String() string {
	return string(t)
}

// ParseRuntimeTarget maps a provider name to its runtime target.
// The second return value is false for names outside the closed set.
func ParseRuntimeTarget(name string) (RuntimeTarget, bool) {
	switch RuntimeTarget(name) {
	case TargetOllama, TargetVLLM, TargetOpenAI, TargetAnthropic, TargetGoogle:
		return RuntimeTarget(name), true
	}
	return "", false
}

// KnownProviders returns the provider names of every enumerated target.
func KnownProviders() []string {
	return []string{
		string(TargetOllama),
		string(TargetVLLM),
		string(TargetOpenAI),
		string(TargetAnthropic),
		string(TargetGoogle),
	}
}
