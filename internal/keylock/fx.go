package keylock

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/okonomi/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPrefix = "okonomi:lock:"

var Module = fx.Module("keylock",
	fx.Provide(NewLocker),
)

// NewLocker returns a redis-backed locker when REDIS_ADDR is set and an
// in-process one otherwise.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Locker, error) {
	log = log.Named("keylock")

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("redis addr is required in %s", cfg.Environment)
		}
		log.Warn("redis not configured, using in-process locks")
		return NewLocalLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			log.Info("redis locker ready", zap.String("addr", addr))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return NewRedisLocker(client, keyPrefix), nil
}
