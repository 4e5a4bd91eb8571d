package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory 进程内 LRU，maxEntries<=0 不限容量，ttl<=0 不过期
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, append([]byte(nil), value...))
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.lru.Purge()
	return nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}
