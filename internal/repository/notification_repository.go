package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/crm-service/internal/domain"
)

// NotificationRepository stores the activity feed, newest first.
type NotificationRepository interface {
	Prepend(ctx context.Context, notification *domain.Notification) error
	// List returns up to limit notifications, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkAllRead(ctx context.Context) error
	Clear(ctx context.Context) error
}

type notificationRecord struct {
	ID          string                      `json:"id"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Category    domain.NotificationCategory `json:"category"`
	Read        bool                        `json:"read"`
	CreatedAt   time.Time                   `json:"created_at"`
}

type redisNotificationRepository struct {
	client *redis.Client
	key    string
}

// NewRedisNotificationRepository keeps the feed in a Redis list under key.
func NewRedisNotificationRepository(client *redis.Client, key string) NotificationRepository {
	return &redisNotificationRepository{client: client, key: key}
}

func (r *redisNotificationRepository) Prepend(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(toRecord(n))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return r.client.LPush(ctx, r.key, payload).Err()
}

func (r *redisNotificationRepository) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := r.client.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return decodeNotifications(raw)
}

// MarkAllRead rewrites the list inside a MULTI block so readers never see a partial feed.
func (r *redisNotificationRepository) MarkAllRead(ctx context.Context) error {
	raw, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	items, err := decodeNotifications(raw)
	if err != nil {
		return err
	}
	values := make([]any, 0, len(items))
	for i := range items {
		items[i].Read = true
		payload, err := json.Marshal(toRecord(&items[i]))
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		values = append(values, payload)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.RPush(ctx, r.key, values...)
		return nil
	})
	return err
}

func (r *redisNotificationRepository) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func toRecord(n *domain.Notification) notificationRecord {
	return notificationRecord{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Category:    n.Category,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}

func decodeNotifications(raw []string) ([]domain.Notification, error) {
	result := make([]domain.Notification, 0, len(raw))
	for _, item := range raw {
		var rec notificationRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		result = append(result, domain.Notification{
			ID:          rec.ID,
			Title:       rec.Title,
			Description: rec.Description,
			Category:    rec.Category,
			Read:        rec.Read,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return result, nil
}
