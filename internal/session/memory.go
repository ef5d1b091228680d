package session

import (
	"context"
	"sync"
)

type memoryProvider struct {
	mu       sync.RWMutex
	sessions map[string]map[string][]byte
}

// NewMemoryProvider builds an in-process provider for development and tests.
func NewMemoryProvider() Provider {
	return &memoryProvider{sessions: make(map[string]map[string][]byte)}
}

func (p *memoryProvider) Open(id string) Store {
	return &memoryStore{provider: p, id: id}
}

func (p *memoryProvider) Destroy(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, id)
	return nil
}

type memoryStore struct {
	provider *memoryProvider
	id       string
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()
	value, ok := s.provider.sessions[s.id][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	data, ok := s.provider.sessions[s.id]
	if !ok {
		data = make(map[string][]byte)
		s.provider.sessions[s.id] = data
	}
	data[key] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	delete(s.provider.sessions[s.id], key)
	return nil
}
