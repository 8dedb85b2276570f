package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cogscreen-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps in-flight assessment histories in Redis so a patient can
// resume on any instance. Entries expire after ttl of inactivity.
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressStore(client *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{client: client, ttl: ttl}
}

func (s *ProgressStore) Load(ctx context.Context, userID string) ([]domain.AnsweredItem, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var history []domain.AnsweredItem
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *ProgressStore) Save(ctx context.Context, userID string, history []domain.AnsweredItem) error {
	if len(history) == 0 {
		return s.Clear(ctx, userID)
	}
	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), data, s.ttl).Err()
}

func (s *ProgressStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *ProgressStore) key(userID string) string {
	return "assessment:progress:" + userID
}
