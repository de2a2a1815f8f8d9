package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/config"
)

// RedisPingTimeout bounds the connection check in ConnectRedis.
const RedisPingTimeout = 5 * time.Second

// ErrRedisNotConfigured is returned when neither REDIS_URL nor REDIS_HOST is set.
var ErrRedisNotConfigured = errors.New("redis is not configured")

// RedisOptions resolves connection settings from cfg. REDIS_URL wins over
// the host, port, password and db fields.
func RedisOptions(cfg *config.Config) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return opts, nil
	}
	if cfg.RedisHost == "" {
		return nil, ErrRedisNotConfigured
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cmp.Or(cfg.RedisPort, "6379")),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// ConnectRedis opens a client for purpose ("session", "rate_limit") and
// pings it before handing it out. The client is named after its purpose so
// CLIENT LIST shows who holds each connection.
func ConnectRedis(ctx context.Context, cfg *config.Config, purpose string, log *zap.Logger) (*redis.Client, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.ClientName = "recipehub-" + purpose
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, RedisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis for %s: %w", purpose, err)
	}

	if log != nil {
		log.Info("redis connected",
			zap.String("purpose", purpose),
			zap.String("addr", opts.Addr),
			zap.Int("db", opts.DB))
	}
	return client, nil
}
