package session

import (
	"context"
	"sync"
	"time"

	"user-center/internal/model"
)

type memoryEntry struct {
	state    *model.LoginState
	expireAt time.Time
}

// MemoryStore 进程内会话存储，适用于单实例部署与测试
// 过期条目在访问时惰性清理，并且每隔一个 ttl 在读写时整体清扫一次
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.LoginState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.maybeSweep(now)

	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if now.After(e.expireAt) {
		delete(s.entries, id)
		return nil, nil
	}
	// 访问即续期
	e.expireAt = now.Add(s.ttl)
	s.entries[id] = e
	return e.state, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, state *model.LoginState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.maybeSweep(now)
	s.entries[id] = memoryEntry{state: state, expireAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// maybeSweep 距上次清扫超过 ttl 时删除全部过期条目，调用方需持有锁
func (s *MemoryStore) maybeSweep(now time.Time) {
	if now.Sub(s.lastSweep) <= s.ttl {
		return
	}
	for id, e := range s.entries {
		if now.After(e.expireAt) {
			delete(s.entries, id)
		}
	}
	s.lastSweep = now
}

// Len 当前条目数（含未清理的过期条目）
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
