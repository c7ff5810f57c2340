package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"user-center/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisStore 基于Redis的会话存储，多实例共享登录态
// 每次读取都会刷新过期时间
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建Redis会话存储
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.LoginState, error) {
	data, err := s.client.GetEx(ctx, s.key(id), s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("获取会话失败: %w", err)
	}

	var state model.LoginState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("反序列化会话失败: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, state *model.LoginState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("保存会话失败: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	return nil
}
