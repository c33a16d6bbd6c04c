package push

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/matchodds/internal/domain/progress"
)

const defaultRelayChannel = "matchodds:progress"

// RedisPublisher is the part of a redis client the relay needs.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisRelay republishes progress frames on a redis channel so other
// processes can follow a crawl.
type RedisRelay struct {
	client  RedisPublisher
	channel string
}

func NewRedisRelay(client RedisPublisher, channel string) *RedisRelay {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = defaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, topic string, payload any) error {
	frame, err := sonic.Marshal(progress.Envelope{Event: topic, Data: payload})
	if err != nil {
		return crerr.Wrapf(err, "encode %s frame", topic)
	}
	if err := r.client.Publish(ctx, r.channel, frame).Err(); err != nil {
		return crerr.Wrapf(err, "publish %s to redis channel %s", topic, r.channel)
	}
	return nil
}

func (r *RedisRelay) Channel() string {
	return r.channel
}
