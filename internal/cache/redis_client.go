package cache

import (
	"context"
	"fmt"
	"register-service/internal/database"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOptions accepts either a redis:// URL or a plain host:port in
// REDIS_URL. Password and DB from the config override the URL.
func redisOptions(cfg *database.Config) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.RedisURL}

	if strings.Contains(cfg.RedisURL, "://") {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	}

	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB != 0 {
		opts.DB = cfg.RedisDB
	}

	opts.PoolSize = 20
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return opts, nil
}

func ConnectRedis(ctx context.Context, cfg *database.Config) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}
