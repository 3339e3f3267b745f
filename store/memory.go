package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps uploads in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	uploads map[string]*Upload
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store whose uploads expire after ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		uploads: make(map[string]*Upload),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Put(ctx context.Context, upload *Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if upload.FileID == "" {
		return fmt.Errorf("upload has no file id")
	}

	stored := *upload
	stored.Content = append([]byte(nil), upload.Content...)
	stamp(&stored, m.now(), m.ttl)

	m.mu.Lock()
	m.uploads[stored.FileID] = &stored
	m.mu.Unlock()

	upload.CreatedAt = stored.CreatedAt
	upload.ExpiresAt = stored.ExpiresAt
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, fileID string) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	upload, ok := m.uploads[fileID]
	m.mu.RUnlock()

	if !ok || upload.Expired(m.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	out := *upload
	return &out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, fileID string) error {
	m.mu.Lock()
	delete(m.uploads, fileID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Sweep deletes uploads expired at now and returns how many were removed
func (m *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, upload := range m.uploads {
		if upload.Expired(now) {
			delete(m.uploads, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored uploads, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.uploads)
}
