package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisDialTimeout = 10 * time.Second

// RedisClients splits refresh-token lookups from pub/sub, since every
// websocket subscription pins a connection of its own.
type RedisClients struct {
	Tokens *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	base, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	tokenOpt := *base
	tokenOpt.ReadTimeout = 2 * time.Second
	tokenOpt.WriteTimeout = 2 * time.Second
	tokens, err := dialRedis(ctx, &tokenOpt, "tokens")
	if err != nil {
		return nil, err
	}

	// Subscribers block on reads indefinitely.
	pubsubOpt := *base
	pubsubOpt.ReadTimeout = -1
	pubsub, err := dialRedis(ctx, &pubsubOpt, "pubsub")
	if err != nil {
		tokens.Close()
		return nil, err
	}

	return &RedisClients{Tokens: tokens, PubSub: pubsub}, nil
}

func dialRedis(ctx context.Context, opt *redis.Options, role string) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	for _, c := range []*redis.Client{r.Tokens, r.PubSub} {
		if c != nil {
			c.Close()
		}
	}
}
