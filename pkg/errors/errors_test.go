package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutingError_Error(t *testing.T) {
	err := NewClassifierError("endpoint unreachable")
	assert.Equal(t, "[classifier_error] endpoint unreachable", err.Error())
	assert.True(t, err.Retryable)

	withProvider := NewInternalError("openai", "unexpected state")
	assert.Equal(t, "[internal_error] unexpected state (provider=openai)", withProvider.Error())
	assert.False(t, withProvider.Retryable)

	cfg := NewConfigurationError("soft limit exceeds hard limit")
	assert.Equal(t, TypeConfiguration, cfg.Type)
	assert.False(t, cfg.Retryable)
}
