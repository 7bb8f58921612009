package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONStore keeps records in a single JSON file. Good enough for a
// single-instance deployment without a database.
type JSONStore struct {
	filename string
	mu       sync.Mutex
}

// NewJSONStore creates the backing file with an empty map if it does not
// exist yet.
func NewJSONStore(filename string) (*JSONStore, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		initial, _ := json.Marshal(map[int64]Record{})
		if err := os.WriteFile(filename, initial, 0o644); err != nil {
			return nil, fmt.Errorf("init store file: %w", err)
		}
	}
	return &JSONStore{filename: filename}, nil
}

func (j *JSONStore) load() (map[int64]Record, error) {
	data, err := os.ReadFile(j.filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.filename, err)
	}
	if len(data) == 0 {
		return make(map[int64]Record), nil
	}
	var m map[int64]Record
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", j.filename, err)
	}
	return m, nil
}

func (j *JSONStore) save(m map[int64]Record) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := os.WriteFile(j.filename, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", j.filename, err)
	}
	return nil
}

func (j *JSONStore) Get(_ context.Context, chatID int64) (Record, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	m, err := j.load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := m[chatID]
	return rec, ok, nil
}

func (j *JSONStore) Set(_ context.Context, chatID int64, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	m, err := j.load()
	if err != nil {
		return err
	}
	rec.UpdatedAt = time.Now()
	m[chatID] = rec
	return j.save(m)
}

func (j *JSONStore) Delete(_ context.Context, chatID int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	m, err := j.load()
	if err != nil {
		return err
	}
	delete(m, chatID)
	return j.save(m)
}
