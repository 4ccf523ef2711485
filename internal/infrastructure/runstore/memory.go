package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pillwise/backend/internal/domain"
)

// memoryItem represents a single stored run with expiration
type memoryItem struct {
	payload    []byte
	expiration time.Time
}

// MemoryStore is a thread-safe in-memory run store with TTL support
type MemoryStore struct {
	data  map[string]memoryItem
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a store and starts a janitor that evicts expired runs
func NewMemoryStore(ttl time.Duration, cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	store := &MemoryStore{
		data: make(map[string]memoryItem),
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go store.cleanupExpired(cleanupInterval)

	return store
}

// Save stores a JSON snapshot of run so later mutations by the caller are not visible
func (s *MemoryStore) Save(ctx context.Context, run *domain.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[run.ID] = memoryItem{
		payload:    payload,
		expiration: s.now().Add(s.ttl),
	}
	return nil
}

// Get returns the run or domain.ErrRunNotFound when it is unknown or expired
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	s.mutex.RLock()
	item, exists := s.data[id]
	s.mutex.RUnlock()

	if !exists || s.now().After(item.expiration) {
		return nil, domain.ErrRunNotFound
	}

	var run domain.RunRecord
	if err := json.Unmarshal(item.payload, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

// Size returns the current number of stored runs, expired or not
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Close stops the janitor
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for id, item := range s.data {
		if now.After(item.expiration) {
			delete(s.data, id)
		}
	}
}
