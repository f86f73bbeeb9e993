package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/joshua-takyi/greenwich/internal/models"
)

// Publisher pushes stored notifications onto per-user Redis channels so a
// live client can pick them up without polling.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func UserChannel(userID string) string {
	return fmt.Sprintf("notifications:user:%s", userID)
}

// Enabled reports whether a Redis client is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.rdb != nil
}

// PublishNotification is a no-op without Redis.
func (p *Publisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	if !p.Enabled() {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("error encoding notification: %w", err)
	}
	if err := p.rdb.Publish(ctx, UserChannel(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("error publishing notification: %w", err)
	}
	return nil
}

// SubscribeUser opens a subscription on one user's channel. The caller closes it.
func (p *Publisher) SubscribeUser(ctx context.Context, userID string) *redis.PubSub {
	if !p.Enabled() {
		return nil
	}
	return p.rdb.Subscribe(ctx, UserChannel(userID))
}
