package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskgate-ai/taskgate/pkg/decision"
)

// sensitiveMarkers flag content that must never leave local hardware.
var sensitiveMarkers = []string{
	"password", "passphrase", "secret", "api key", "apikey", "credential",
	"private key", "ssn", "social security", "medical", "diagnosis",
	"salary", "confidential",
}

// structuredMarkers indicate a structured-output request.
var structuredMarkers = []string{"json", "yaml", "csv", "xml", "schema"}

// intentTaskTypes maps a forced intent to a task type.
var intentTaskTypes = map[string]decision.TaskType{
	"code":      decision.TaskTypeCode,
	"debug":     decision.TaskTypeCode,
	"refactor":  decision.TaskTypeCode,
	"research":  decision.TaskTypeResearch,
	"analyze":   decision.TaskTypeResearch,
	"summarize": decision.TaskTypeSummarize,
	"write":     decision.TaskTypeCreative,
	"creative":  decision.TaskTypeCreative,
	"chat":      decision.TaskTypeGeneric,
}

// ResolveTaskType classifies a task via forced-intent mapping, then
// forced-tool heuristics, defaulting to the generic type.
func ResolveTaskType(task Task) decision.TaskType {
	if t, ok := intentTaskTypes[strings.ToLower(task.Intent)]; ok {
		return t
	}

	tool := strings.ToLower(task.ForcedTool)
	switch {
	case tool == "":
	case strings.Contains(tool, "code"), strings.Contains(tool, "shell"), strings.Contains(tool, "exec"):
		return decision.TaskTypeCode
	case strings.Contains(tool, "search"), strings.Contains(tool, "web"), strings.Contains(tool, "browse"):
		return decision.TaskTypeResearch
	}
	return decision.TaskTypeGeneric
}

// HeuristicClassifier is the default classifier implementation. It scores
// complexity from the contract's constants and flags sensitive content by
// keyword. A remote classifier can replace it behind the Classifier
// interface.
type HeuristicClassifier struct{}

// NewHeuristicClassifier creates the default classifier.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// Classify computes a complexity score and routing hint for the task.
func (c *HeuristicClassifier) Classify(_ context.Context, task Task) (Classification, error) {
	lower := strings.ToLower(task.Content)

	score := ResolveTaskType(task).BaseComplexity()
	score += float64(len(task.Content)) / decision.CharsPerComplexityPoint
	if strings.Contains(task.Content, "```") {
		score += decision.CodeBlockBonus
	}
	for _, marker := range structuredMarkers {
		if strings.Contains(lower, marker) {
			score += decision.StructuredOutputBonus
			break
		}
	}
	if score > decision.MaxComplexityScore {
		score = decision.MaxComplexityScore
	}

	sensitive := false
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			sensitive = true
			break
		}
	}

	order := decision.SelectFallbackOrder(false, sensitive, score)

	cls := Classification{
		SuggestedProvider: order[0],
		ComplexityScore:   score,
		Sensitive:         sensitive,
	}
	switch {
	case sensitive:
		cls.Hint = "sensitive content detected; restricting to local runtimes"
	case score >= decision.HighComplexityFloor:
		cls.Hint = fmt.Sprintf("complexity high (%.1f); cloud escalation recommended", score)
	case score <= decision.LowComplexityCeiling:
		cls.Hint = fmt.Sprintf("complexity low (%.1f); local model sufficient", score)
	default:
		cls.Hint = fmt.Sprintf("complexity moderate (%.1f); default routing", score)
	}
	return cls, nil
}
