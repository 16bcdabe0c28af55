package routing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate-ai/taskgate/pkg/decision"
)

func TestResolveTaskType(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want decision.TaskType
	}{
		{"intent code", Task{Intent: "code"}, decision.TaskTypeCode},
		{"intent refactor", Task{Intent: "Refactor"}, decision.TaskTypeCode},
		{"intent research", Task{Intent: "research"}, decision.TaskTypeResearch},
		{"intent summarize", Task{Intent: "summarize"}, decision.TaskTypeSummarize},
		{"intent creative", Task{Intent: "write"}, decision.TaskTypeCreative},
		{"tool shell", Task{ForcedTool: "shell_exec"}, decision.TaskTypeCode},
		{"tool search", Task{ForcedTool: "web_search"}, decision.TaskTypeResearch},
		{"intent beats tool", Task{Intent: "summarize", ForcedTool: "web_search"}, decision.TaskTypeSummarize},
		{"no signal", Task{Content: "hello"}, decision.TaskTypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTaskType(tt.task))
		})
	}
}

func TestHeuristicClassifier_Scoring(t *testing.T) {
	c := NewHeuristicClassifier()

	// 1000 plain characters of a generic task: base 1 + 1000/500 = 3.
	cls, err := c.Classify(context.Background(), Task{Content: strings.Repeat("a", 1000)})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, cls.ComplexityScore, 1e-9)
	assert.False(t, cls.Sensitive)
	assert.Equal(t, "ollama", cls.SuggestedProvider)
	assert.Contains(t, cls.Hint, "complexity low")

	// A fenced code block adds its bonus.
	cls, err = c.Classify(context.Background(), Task{Content: strings.Repeat("a", 1000) + "```go```"})
	require.NoError(t, err)
	assert.InDelta(t, 5.016, cls.ComplexityScore, 0.01)

	// Structured-output markers add theirs, once.
	cls, err = c.Classify(context.Background(), Task{Content: "emit json and csv please"})
	require.NoError(t, err)
	assert.InDelta(t, 1+24.0/500+1, cls.ComplexityScore, 1e-9)

	// The score is capped.
	cls, err = c.Classify(context.Background(), Task{Intent: "research", Content: strings.Repeat("a", 10000)})
	require.NoError(t, err)
	assert.Equal(t, float64(decision.MaxComplexityScore), cls.ComplexityScore)
	assert.Contains(t, cls.Hint, "complexity high")
	assert.Equal(t, "openai", cls.SuggestedProvider, "high complexity suggests cloud first")
}

func TestHeuristicClassifier_SensitiveContent(t *testing.T) {
	c := NewHeuristicClassifier()

	cls, err := c.Classify(context.Background(), Task{
		Intent:  "research",
		Content: "Summarize my medical diagnosis: " + strings.Repeat("x", 5000),
	})
	require.NoError(t, err)
	assert.True(t, cls.Sensitive)
	assert.Equal(t, "ollama", cls.SuggestedProvider, "sensitive content stays local at any complexity")
	assert.Contains(t, cls.Hint, "sensitive content detected")
}
