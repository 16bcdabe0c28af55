// Package routing assembles the final routing decision for a task from a
// complexity estimate, governance, and the policy gate. BuildRoutingDecision
// is the single choke point every task passes through before backend
// dispatch; its output is advisory metadata, not an execution trigger.
package routing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskgate-ai/taskgate/internal/governance"
	"github.com/taskgate-ai/taskgate/internal/metrics"
	"github.com/taskgate-ai/taskgate/internal/policy"
	"github.com/taskgate-ai/taskgate/pkg/decision"
	taskerrors "github.com/taskgate-ai/taskgate/pkg/errors"
	"github.com/taskgate-ai/taskgate/pkg/pricing"
)

const (
	classificationTTL = 30 * time.Second

	// estimatedCharsPerToken converts content length to a token estimate.
	estimatedCharsPerToken = 4
)

// Router builds routing decisions. It depends on the external classifier,
// the governance engine, and the policy gate; one instance serves all
// concurrent requests.
type Router struct {
	classifier Classifier
	engine     *governance.Engine
	gate       *policy.Gate
	pricing    *pricing.Registry
	cache      *gocache.Cache
	logger     *slog.Logger
	tracer     trace.Tracer
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithLogger sets the logger for routing diagnostics.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithPricing replaces the default pricing registry.
func WithPricing(registry *pricing.Registry) RouterOption {
	return func(r *Router) {
		r.pricing = registry
	}
}

// New creates a router.
func New(classifier Classifier, engine *governance.Engine, gate *policy.Gate, opts ...RouterOption) *Router {
	r := &Router{
		classifier: classifier,
		engine:     engine,
		gate:       gate,
		pricing:    pricing.NewRegistry(),
		cache:      gocache.New(classificationTTL, time.Minute),
		logger:     slog.Default(),
		tracer:     otel.Tracer("taskgate/routing"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// BuildRoutingDecision resolves one task to a provider under governance and
// policy, returning the immutable decision record. Expected denials come
// back as failed decisions, never as panics or errors; only the (external)
// classifier can fail, and that failure is converted into a failed decision
// too.
func (r *Router) BuildRoutingDecision(ctx context.Context, task Task, runtime RuntimeInfo) *decision.RoutingDecision {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "routing.build_decision")
	defer span.End()

	gateResult := r.gate.EvaluateBeforeProviderSelection(policy.EvaluationContext{
		Content:        task.Content,
		Intent:         task.Intent,
		Provider:       task.ForcedProvider,
		Tools:          task.Tools,
		SessionID:      task.SessionID,
		ForcedTool:     task.ForcedTool,
		ForcedProvider: task.ForcedProvider,
	})
	if gateResult.Decision == policy.DecisionBlock {
		reason := gateResult.Reason
		if reason == "" {
			reason = decision.ReasonContentPolicyBlocked
		}
		return r.finish(span, start, &decision.RoutingDecision{
			Reason:       reason,
			PolicyPassed: false,
			ErrorMessage: gateResult.Message,
		})
	}

	cls, err := r.classify(ctx, task)
	if err != nil {
		r.logger.Error("task classification failed", "error", err, "session_id", task.SessionID)
		return r.finish(span, start, &decision.RoutingDecision{
			Reason:       decision.ReasonNoProviderAvailable,
			PolicyPassed: true,
			ErrorMessage: "task classification unavailable: " + err.Error(),
		})
	}

	preferred := r.resolvePreferred(task, cls, runtime)
	gov := r.engine.SelectProviderWithFallback(preferred, "")
	if !gov.Allowed {
		return r.finish(span, start, &decision.RoutingDecision{
			Reason:          gov.Reason,
			ComplexityScore: cls.ComplexityScore,
			Sensitive:       cls.Sensitive,
			FallbackChain:   []string{preferred},
			PolicyPassed:    true,
			ErrorMessage:    gov.UserMessage,
		})
	}

	reason := gov.Reason
	if !gov.FallbackApplied {
		reason = inferReason(cls.Hint)
	}

	target, _ := decision.ParseRuntimeTarget(gov.Provider)
	estimatedTokens := len(task.Content)/estimatedCharsPerToken + 1
	var estimatedCost float64
	if !target.IsLocal() {
		estimatedCost = r.pricing.Estimate(gov.Provider, estimatedTokens)
	}

	var chain []string
	if gov.FallbackApplied {
		chain = []string{preferred, gov.Provider}
	}

	return r.finish(span, start, &decision.RoutingDecision{
		TargetRuntime:      target,
		Provider:           gov.Provider,
		Model:              r.pricing.DefaultModel(gov.Provider),
		Reason:             reason,
		ComplexityScore:    cls.ComplexityScore,
		Sensitive:          cls.Sensitive,
		FallbackApplied:    gov.FallbackApplied,
		FallbackChain:      chain,
		PolicyPassed:       true,
		EstimatedCostUSD:   estimatedCost,
		RemainingBudgetUSD: r.engine.RemainingGlobalBudget(),
	})
}

// resolvePreferred picks the provider to confirm with governance: an
// explicit forced provider wins, then the classifier's suggestion when it
// names a known provider, then the active runtime's provider, then the
// policy default. Eco mode pins the suggestion to the contract's local-only
// order.
func (r *Router) resolvePreferred(task Task, cls Classification, runtime RuntimeInfo) string {
	if task.ForcedProvider != "" {
		return task.ForcedProvider
	}
	if runtime.EcoMode {
		return decision.SelectFallbackOrder(true, cls.Sensitive, cls.ComplexityScore)[0]
	}
	if cls.SuggestedProvider != "" {
		if _, known := decision.ParseRuntimeTarget(cls.SuggestedProvider); known {
			return cls.SuggestedProvider
		}
	}
	if runtime.ActiveProvider != "" {
		return runtime.ActiveProvider
	}
	return r.engine.Policy().DefaultProvider
}

// classify consults the short-TTL cache before calling the classifier, so
// retried tasks do not pay for repeat classification.
func (r *Router) classify(ctx context.Context, task Task) (Classification, error) {
	key := classificationKey(task)
	if cached, ok := r.cache.Get(key); ok {
		if cls, ok := cached.(Classification); ok {
			return cls, nil
		}
	}

	cls, err := r.classifier.Classify(ctx, task)
	if err != nil {
		return Classification{}, taskerrors.NewClassifierError(err.Error())
	}
	r.cache.Set(key, cls, gocache.DefaultExpiration)
	return cls, nil
}

func classificationKey(task Task) string {
	sum := sha256.Sum256([]byte(task.Intent + "\x00" + task.ForcedTool + "\x00" + task.Content))
	return hex.EncodeToString(sum[:])
}

// inferReason derives a primary reason code from the classifier's free-text
// hint. The substring protocol is preserved for compatibility with deployed
// classifiers; a structured classifier result is the intended replacement.
func inferReason(hint string) decision.ReasonCode {
	lower := strings.ToLower(hint)
	switch {
	case strings.Contains(lower, "sensitive"):
		return decision.ReasonSensitiveContent
	case strings.Contains(lower, "complexity") && strings.Contains(lower, "high"):
		return decision.ReasonComplexityHigh
	case strings.Contains(lower, "complexity") && strings.Contains(lower, "low"):
		return decision.ReasonComplexityLow
	case strings.Contains(lower, "cloud"):
		return decision.ReasonUserPreference
	default:
		return decision.ReasonDefaultEcoMode
	}
}

// finish stamps timing onto the decision and records metrics and span
// attributes shared by every exit path.
func (r *Router) finish(span trace.Span, start time.Time, d *decision.RoutingDecision) *decision.RoutingDecision {
	d.CreatedAt = time.Now().UTC()
	d.LatencyMS = time.Since(start).Milliseconds()

	providerLabel := d.Provider
	if providerLabel == "" {
		providerLabel = "none"
	}
	metrics.RoutingDecisionsTotal.WithLabelValues(string(d.Reason), providerLabel).Inc()
	metrics.DecisionLatency.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("routing.provider", d.Provider),
		attribute.String("routing.reason", string(d.Reason)),
		attribute.Bool("routing.fallback_applied", d.FallbackApplied),
		attribute.Float64("routing.complexity_score", d.ComplexityScore),
	)
	return d
}
