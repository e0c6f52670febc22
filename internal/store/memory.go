package store

import (
	"context"
	"sync"
)

// MemoryStore keeps preferences in process memory. Used for local runs and tests;
// nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) GetPreference(_ context.Context, profile, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[redisKey(profile, key)]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) PutPreference(_ context.Context, profile, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[redisKey(profile, key)] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) DeletePreference(_ context.Context, profile, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := redisKey(profile, key)
	if _, ok := s.values[k]; !ok {
		return ErrPreferenceNotFound
	}
	delete(s.values, k)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }
