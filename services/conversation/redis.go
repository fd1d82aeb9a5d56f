package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"bookify/models"
)

const conversationPrefix = "chat:conv:"

// RedisStore keeps conversation state in Redis with a TTL, so abandoned
// conversations expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	key := conversationPrefix + conversationID
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return &models.Conversation{}, nil
	}
	if err != nil {
		return nil, err
	}
	var conv models.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *RedisStore) Save(ctx context.Context, conversationID string, conv *models.Conversation) error {
	key := conversationPrefix + conversationID
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, conversationID string) error {
	key := conversationPrefix + conversationID
	return s.client.Del(ctx, key).Err()
}
