// Package storage provides the durable key-value slot used to persist chats.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrPathRequired  = errors.New("store path is required")
	ErrCorrupt       = errors.New("store document is corrupt")
)

// KV is a best-effort string key-value store. Get reports ok=false for
// missing keys; there is no transactional guarantee across keys.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open returns the KV implementation selected by driver.
func Open(driver, path string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// MemoryStore keeps values in process memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
