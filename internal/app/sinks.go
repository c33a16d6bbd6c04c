package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/matchodds/internal/config"
	"github.com/riskibarqy/matchodds/internal/infrastructure/notify"
	"github.com/riskibarqy/matchodds/internal/infrastructure/push"
	"github.com/riskibarqy/matchodds/internal/usecase"
)

const redisPingTimeout = 5 * time.Second

// attachOptionalSinks adds the redis relay and the telegram notifier when
// they are enabled. The notifier doubles as the sweep observer.
func (r *Runtime) attachOptionalSinks(ctx context.Context, cfg config.Config, broadcaster *usecase.ProgressBroadcaster) (usecase.SweepObserver, error) {
	if cfg.RedisEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}

		r.addCloser("redis", func(context.Context) error { return client.Close() })
		broadcaster.AddSink(push.NewRedisRelay(client, cfg.RedisChannel))
		r.logger.Info("redis progress relay enabled", "addr", cfg.RedisAddr)
	}

	if !cfg.TelegramEnabled {
		return nil, nil
	}

	bot, err := notify.NewBot(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewTelegramNotifier(bot, notify.TelegramConfig{
		ChatID:       cfg.TelegramChatID,
		SendInterval: cfg.TelegramSendInterval,
		Logger:       r.logger.Named("notify"),
	})
	r.addCloser("telegram notifier", func(context.Context) error {
		notifier.Close()
		return nil
	})
	broadcaster.AddSink(notifier)
	r.logger.Info("telegram notifications enabled", "chat_id", cfg.TelegramChatID)
	return notifier, nil
}
