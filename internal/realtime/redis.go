package realtime

import (
	"context"
	"encoding/json"

	"github.com/acadbuddy/acadbuddy-api/internal/metrics"
	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed fans message inserts out over a Redis Pub/Sub channel. The
// message service publishes after each successful insert.
type RedisFeed struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func ChannelName(prefix string) string {
	return prefix + ":messages:inserted"
}

func NewRedisFeed(client *redis.Client, prefix string, log *zap.Logger) *RedisFeed {
	return &RedisFeed{client: client, channel: ChannelName(prefix), log: log}
}

func (f *RedisFeed) PublishMessage(ctx context.Context, message models.Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, payload).Err()
}

func (f *RedisFeed) Run(ctx context.Context, handle Handler) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	f.log.Info("subscribed to message inserts", zap.String("channel", f.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			message, err := DecodeMessage([]byte(msg.Payload))
			if err != nil {
				f.log.Warn("skip pubsub payload", zap.Error(err))
				continue
			}
			metrics.RealtimeEvents.WithLabelValues("redis").Inc()
			handle(message)
		}
	}
}
