package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/fotara-api/internal/application/billing"
)

var _ billing.Notifier = (*RedisNotifier)(nil)

// NotificationChannel canal pub/sub del actor.
func NotificationChannel(actorID string) string {
	return "fotara:notifications:" + actorID
}

// RedisNotifier publica el resultado final en el canal del actor.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier construye el notificador.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Notify publica n como JSON en fotara:notifications:<actorID>.
func (n *RedisNotifier) Notify(ctx context.Context, actorID string, note billing.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("serializar notificación: %w", err)
	}
	if err := n.client.Publish(ctx, NotificationChannel(actorID), payload).Err(); err != nil {
		return fmt.Errorf("publicar notificación: %w", err)
	}
	return nil
}
