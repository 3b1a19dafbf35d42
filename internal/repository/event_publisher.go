package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ctchen222/Battleship/internal/events"

	"github.com/go-redis/redis/v8"
)

// EventPublisher broadcasts server events to other processes.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type redisEventPublisher struct {
	rdb *redis.Client
}

// NewEventPublisher creates a publisher on the global events channel.
func NewEventPublisher(rdb *redis.Client) EventPublisher {
	return &redisEventPublisher{rdb: rdb}
}

func (p *redisEventPublisher) Publish(ctx context.Context, event events.Event) error {
	ctx, span := tracer.Start(ctx, "EventPublisher.Publish")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	return p.rdb.Publish(ctx, events.EventsChannel, data).Err()
}
