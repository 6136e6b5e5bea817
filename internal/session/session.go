// Package session stores builder drafts between requests.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long an untouched draft survives.
const DefaultTTL = 24 * time.Hour

// DraftKey is the store key holding the builder draft of a session.
func DraftKey(sessionKey string) string {
	return "draft:" + sessionKey
}

// Store is a JSON key-value store with absent-aware reads.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     json.RawMessage
	expiresAt time.Time
}

// MemoryStore is a process-local Store with expiry.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryEntry
}

// NewMemoryStore returns a MemoryStore; ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, items: make(map[string]memoryEntry)}
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.items, key)
		return nil, false, nil
	}
	return append(json.RawMessage(nil), entry.value...), true, nil
}

// Set stores a copy of value and refreshes its expiry.
func (s *MemoryStore) Set(_ context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.items[key] = memoryEntry{
		value:     append(json.RawMessage(nil), value...),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Remove deletes key; removing an absent key is not an error.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) cleanupLocked() {
	now := s.now()
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

// Load decodes the JSON value at key into v. ok is false when the key is absent.
func Load(ctx context.Context, s Store, key string, v any) (ok bool, err error) {
	raw, found, errGet := s.Get(ctx, key)
	if errGet != nil || !found {
		return false, errGet
	}
	if errDecode := json.Unmarshal(raw, v); errDecode != nil {
		return false, fmt.Errorf("session: decode %s: %w", key, errDecode)
	}
	return true, nil
}

// Save encodes v as JSON and stores it at key.
func Save(ctx context.Context, s Store, key string, v any) error {
	raw, errEncode := json.Marshal(v)
	if errEncode != nil {
		return fmt.Errorf("session: encode %s: %w", key, errEncode)
	}
	return s.Set(ctx, key, raw)
}
