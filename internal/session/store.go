// Package session 服务端会话：Cookie 中只携带不透明的会话ID，登录态保存在服务端存储中
package session

import (
	"context"
	"fmt"
	"time"

	"user-center/config"
	"user-center/internal/model"

	"github.com/redis/go-redis/v9"
)

// Store 会话存储
// Get 在会话不存在或未登录时返回 (nil, nil)
type Store interface {
	Get(ctx context.Context, id string) (*model.LoginState, error)
	Set(ctx context.Context, id string, state *model.LoginState) error
	Clear(ctx context.Context, id string) error
}

// NewStore 根据配置创建会话存储，redis 模式需要已初始化的客户端
func NewStore(cfg config.SessionConfig, client *redis.Client) (Store, error) {
	ttl := cfg.MaxAge
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("session store redis: client not initialized")
		}
		return NewRedisStore(client, cfg.KeyPrefix, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Store)
	}
}
