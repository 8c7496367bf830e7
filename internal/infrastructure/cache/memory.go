package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 500
	DefaultTTL  = 30 * time.Minute
)

// Memory is a size bounded LRU whose entries expire ttl after being written.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.lru.Get(key)
	recordLookup("memory", ok)
	return v, ok
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.lru.Add(key, value)
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.lru.Remove(key)
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) {
	for _, key := range m.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.lru.Remove(key)
		}
	}
}

func (m *Memory) Len() int {
	return m.lru.Len()
}
