package eventbus

import (
	"context"

	"github.com/matthewbaird/stationcu/internal/event"
)

// MutationObserver counts store mutations.
type MutationObserver interface {
	ObserveMutation(eventType, category string)
}

// MetricsConsumer forwards every event to a MutationObserver.
type MetricsConsumer struct {
	obs MutationObserver
}

// NewMetricsConsumer creates a consumer reporting to obs.
func NewMetricsConsumer(obs MutationObserver) *MetricsConsumer {
	return &MetricsConsumer{obs: obs}
}

func (c *MetricsConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.obs.ObserveMutation(evt.EventType, evt.Category)
	return nil
}
