package ratelimit

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]Counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]Counter)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[key]
	if !ok {
		return Counter{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, c Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = c
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}

// Prune drops counters whose window ended before now.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, c := range s.counters {
		if c.expired(now) {
			delete(s.counters, k)
			n++
		}
	}
	return n
}
