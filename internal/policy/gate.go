// Package policy implements the pre-execution safety checkpoint evaluated
// before provider selection and before tool execution. The decision and
// reason vocabulary is deliberately richer than the current ruleset so
// content, tool, and provider rules can plug in without changing the
// contract.
package policy

import (
	"log/slog"

	"github.com/taskgate-ai/taskgate/pkg/decision"
)

// Decision is the outcome of a policy evaluation.
type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionBlock  Decision = "block"
	DecisionReview Decision = "review"
)

// EvaluationContext is the value object consumed once per evaluation.
// It is never mutated after creation.
type EvaluationContext struct {
	Content        string
	Intent         string
	Provider       string
	Tools          []string
	SessionID      string
	ForcedTool     string
	ForcedProvider string
}

// EvaluationResult carries the gate's verdict. Block results must surface
// the message to the end user; it must never leak credentials or internal
// state.
type EvaluationResult struct {
	Decision Decision
	Reason   decision.ReasonCode
	Message  string
	Detail   string
}

// Gate is the process-wide safety checkpoint. The enabled flag is fixed at
// construction from external configuration; the host's dependency injection
// root constructs one gate and hands it to all callers.
type Gate struct {
	enabled bool
	logger  *slog.Logger
}

// Option configures the gate.
type Option func(*Gate)

// WithLogger sets the logger for evaluation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a policy gate. Construction is idempotent: re-running it
// reapplies the enabled flag without side effects.
func NewGate(enabled bool, opts ...Option) *Gate {
	g := &Gate{
		enabled: enabled,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Enabled reports whether the gate is administratively enabled.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Evaluate runs the ruleset against the context. A disabled gate always
// allows; the present ruleset also allows, but every evaluation is logged
// with the intent, planned provider, and planned tools for future rule
// authors.
func (g *Gate) Evaluate(ctx EvaluationContext) EvaluationResult {
	if !g.enabled {
		return EvaluationResult{
			Decision: DecisionAllow,
			Message:  "policy gate is disabled",
		}
	}

	g.logger.Debug("policy gate evaluation",
		"intent", ctx.Intent,
		"provider", ctx.Provider,
		"tools", ctx.Tools,
		"session_id", ctx.SessionID)

	return EvaluationResult{
		Decision: DecisionAllow,
		Message:  "no policy rules matched",
	}
}

// EvaluateBeforeProviderSelection is the checkpoint run before a provider is
// committed. It currently delegates to Evaluate; the split exists so the
// call sites can diverge without a signature change.
func (g *Gate) EvaluateBeforeProviderSelection(ctx EvaluationContext) EvaluationResult {
	return g.Evaluate(ctx)
}

// EvaluateBeforeToolExecution is the checkpoint run before a tool executes.
func (g *Gate) EvaluateBeforeToolExecution(ctx EvaluationContext) EvaluationResult {
	return g.Evaluate(ctx)
}
