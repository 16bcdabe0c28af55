package routing

import "context"

// Task is the unit of work handed to the router by the orchestrator. The
// core never parses task content beyond what is needed for classification.
type Task struct {
	Content        string
	Intent         string
	Tools          []string
	SessionID      string
	ForcedProvider string
	ForcedTool     string
}

// RuntimeInfo describes the dispatcher's current execution context.
type RuntimeInfo struct {
	ActiveProvider string
	EcoMode        bool
}

// Classification is the external classifier's first-pass routing estimate.
// Hint is free text; reason inference over it is preserved for
// compatibility with existing classifier deployments.
type Classification struct {
	Hint              string
	SuggestedProvider string
	ComplexityScore   float64
	Sensitive         bool
}

// Classifier produces a first-pass routing hint and complexity score for a
// task. Implementations may be remote; failures propagate as errors and the
// router converts them into a failed decision.
type Classifier interface {
	Classify(ctx context.Context, task Task) (Classification, error)
}
