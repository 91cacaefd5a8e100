package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"clinic-appointment-service/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 5 * time.Second

// NewRedisClient opens the client backing the refresh-token store and
// fails fast when the server cannot be reached.
func NewRedisClient(cfg config.RedisConfig, log *logrus.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	client := redis.NewClient(opts)

	if err := Ping(context.Background(), client); err != nil {
		client.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"addr": opts.Addr,
		"db":   cfg.DB,
	}).Info("Connected to Redis")

	return client, nil
}

// Ping is also used by the health endpoint.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", client.Options().Addr, err)
	}
	return nil
}
