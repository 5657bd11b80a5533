package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	log *zap.Logger
}

func NewLogConsumer(log *zap.Logger) *LogConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogConsumer{log: log.Named("event")}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	entities := make([]string, len(evt.AffectedEntities))
	for i, ref := range evt.AffectedEntities {
		entities[i] = ref.EntityType + ":" + ref.EntityID
	}
	c.log.Info(evt.Summary,
		zap.String("event_type", evt.EventType),
		zap.String("category", evt.Category),
		zap.String("weight", evt.Weight),
		zap.String("session", evt.SessionID),
		zap.String("actor", evt.Actor.ID),
		zap.Strings("entities", entities),
	)
	return nil
}
