// Package errors defines the typed errors used for exceptional conditions in
// the routing core. Expected business denials (missing credentials, exceeded
// budgets, exceeded rate limits, no fallback) are result values, never errors.
package errors

import "fmt"

// RoutingError represents a failure on the routing path that is not an
// admission denial, such as an unreachable classifier.
type RoutingError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Provider  string `json:"provider,omitempty"`
	Retryable bool   `json:"-"`
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s (provider=%s)", e.Type, e.Message, e.Provider)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Error type constants.
const (
	TypeClassifier    = "classifier_error"
	TypeConfiguration = "configuration_error"
	TypeInternal      = "internal_error"
)

// NewClassifierError creates an error for a failed or unreachable classifier.
func NewClassifierError(message string) *RoutingError {
	return &RoutingError{
		Type:      TypeClassifier,
		Message:   message,
		Retryable: true,
	}
}

// NewConfigurationError creates an error for invalid configuration input.
func NewConfigurationError(message string) *RoutingError {
	return &RoutingError{
		Type:      TypeConfiguration,
		Message:   message,
		Retryable: false,
	}
}

// NewInternalError creates an unexpected internal error.
func NewInternalError(provider, message string) *RoutingError {
	return &RoutingError{
		Type:      TypeInternal,
		Message:   message,
		Provider:  provider,
		Retryable: false,
	}
}
