package store

import (
	"context"
	"sync"
	"time"

	"github.com/ddabattalion/examprep-bot/internal/api"
)

// Record is everything the bot persists for one chat: the auth token, the
// cached student profile and the first-run intro flag. It is the device-local
// storage of the client; business data stays on the backend.
type Record struct {
	Token        string      `json:"token"`
	Student      api.Student `json:"student"`
	HasSeenIntro bool        `json:"has_seen_intro"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Store persists per-chat records.
type Store interface {
	Get(ctx context.Context, chatID int64) (Record, bool, error)
	Set(ctx context.Context, chatID int64, rec Record) error
	Delete(ctx context.Context, chatID int64) error
}

// MemoryStore is the in-memory implementation, used in tests and as the
// default backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[int64]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64]Record)}
}

func (m *MemoryStore) Get(_ context.Context, chatID int64) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[chatID]
	return rec, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, chatID int64, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = time.Now()
	m.data[chatID] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, chatID)
	return nil
}
