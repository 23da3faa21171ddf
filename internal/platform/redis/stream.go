package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
)

// DefaultStream is the stream shared by every bot event producer.
const DefaultStream = "bot:events"

// streamMaxLen caps the stream; trimming is approximate.
const streamMaxLen = 10000

// StreamAdder is the part of the client the publisher needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// EventPublisher appends giveaway lifecycle events to a Redis stream. Each
// entry carries flat fields for cheap filtering plus the full JSON payload.
type EventPublisher struct {
	client StreamAdder
	stream string
}

func NewEventPublisher(client StreamAdder, stream string) *EventPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &EventPublisher{client: client, stream: stream}
}

func (p *EventPublisher) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStreamError, "marshal event")
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":        string(event.Type),
			"giveaway_id": event.GiveawayID,
			"guild_id":    event.GuildID,
			"channel_id":  event.ChannelID,
			"at":          event.At.UTC().Format(time.RFC3339Nano),
			"payload":     string(payload),
		},
	}).Err()
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeStreamError, "xadd %s", p.stream)
	}
	return nil
}
