package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectFallbackOrder(t *testing.T) {
	tests := []struct {
		name       string
		ecoMode    bool
		sensitive  bool
		complexity float64
		want       []string
	}{
		{
			name:       "sensitive overrides everything",
			ecoMode:    false,
			sensitive:  true,
			complexity: 9,
			want:       []string{"ollama", "vllm"},
		},
		{
			name:       "eco mode restricts to local",
			ecoMode:    true,
			sensitive:  false,
			complexity: 9,
			want:       []string{"ollama", "vllm"},
		},
		{
			name:       "low complexity prefers local first",
			complexity: 3,
			want:       []string{"ollama", "vllm", "openai", "anthropic", "google"},
		},
		{
			name:       "high complexity prefers cloud first",
			complexity: 8,
			want:       []string{"openai", "anthropic", "google", "ollama", "vllm"},
		},
		{
			name:       "floor itself is already high",
			complexity: HighComplexityFloor,
			want:       []string{"openai", "anthropic", "google", "ollama", "vllm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectFallbackOrder(tt.ecoMode, tt.sensitive, tt.complexity)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectFallbackOrder_ReturnsCopy(t *testing.T) {
	first := SelectFallbackOrder(false, true, 0)
	first[0] = "mutated"

	second := SelectFallbackOrder(false, true, 0)
	assert.Equal(t, "ollama", second[0], "callers must not be able to corrupt the shared order")
}
