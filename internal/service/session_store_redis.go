package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisSessionStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisSessionStore) Name() string { return "redis" }

func (s *RedisSessionStore) Save(ctx context.Context, key string, rec SessionRecord) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.dataKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Load(ctx context.Context, key string) (*SessionRecord, error) {
	raw, err := s.client.Get(ctx, s.dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if !s.now().Before(rec.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.dataKey(key)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) dataKey(key string) string {
	return s.prefix + ":" + key
}
