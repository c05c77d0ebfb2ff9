package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/assesshub/assesshub-backend/internal/config"
)

// RedisCompletionNotifier publishes completion events to the per-test Redis
// PubSub channel consumed by the author monitor feed. Publishing is fire and
// forget — a dropped event never fails the submit that produced it.
type RedisCompletionNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisCompletionNotifier creates a new RedisCompletionNotifier.
func NewRedisCompletionNotifier(rdb *redis.Client, log zerolog.Logger) *RedisCompletionNotifier {
	return &RedisCompletionNotifier{
		rdb: rdb,
		log: log.With().Str("component", "completion_notifier").Logger(),
	}
}

// NotifyCompletion implements CompletionNotifier.
func (n *RedisCompletionNotifier) NotifyCompletion(ctx context.Context, testID uuid.UUID, event CompletionEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		n.log.Error().Err(err).Msg("marshal completion event")
		return
	}
	channel := config.CacheKey.TestCompletionChannel(testID.String())
	if err := n.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		n.log.Warn().Err(err).Str("channel", channel).Msg("publish completion event")
	}
}
