package governance

import (
	"github.com/google/uuid"

	"github.com/taskgate-ai/taskgate/internal/metrics"
)

// recordFallbackEvent appends an event to the audit ring, evicting the
// oldest entry beyond maxFallbackEvents. The trail is operational history,
// never an input to any decision.
func (e *Engine) recordFallbackEvent(event FallbackEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}

	e.fallbacks = append(e.fallbacks, event)
	if len(e.fallbacks) > maxFallbackEvents {
		e.fallbacks = append(e.fallbacks[:0], e.fallbacks[len(e.fallbacks)-maxFallbackEvents:]...)
	}

	metrics.FallbacksTotal.WithLabelValues(event.From, event.To, string(event.Reason)).Inc()
	e.logger.Info("provider fallback applied",
		"from", event.From,
		"to", event.To,
		"reason", string(event.Reason))
}

// FallbackEvents returns a copy of the full audit ring, oldest first.
func (e *Engine) FallbackEvents() []FallbackEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]FallbackEvent(nil), e.fallbacks...)
}
