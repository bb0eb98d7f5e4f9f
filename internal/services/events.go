package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"studyhub-backend/internal/models"
)

// EventPublisher pushes live updates to a user's websocket connections.
type EventPublisher interface {
	Publish(ctx context.Context, userID int64, msg models.WSMessage)
}

// UserChannel is the redis pub/sub channel the websocket hub subscribes to.
func UserChannel(userID int64) string {
	return fmt.Sprintf("user_updates:%d", userID)
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish is best effort: failures are logged and never reach the caller.
func (p *RedisPublisher) Publish(ctx context.Context, userID int64, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("publish %s: marshal: %v", msg.Type, err)
		return
	}
	if err := p.client.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		log.Printf("publish %s for user %d: %v", msg.Type, userID, err)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, int64, models.WSMessage) {}
