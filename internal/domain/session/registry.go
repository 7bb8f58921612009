package session

import (
	"context"
	"sync"
)

// Registry tracks the single live session per chat together with the cancel
// function of its countdown goroutine. Replacing or removing an entry
// cancels the old countdown; an in-flight submit is left to finish on its
// own.
type Registry struct {
	mu      sync.Mutex
	entries map[int64]registryEntry
}

type registryEntry struct {
	sess   *Session
	cancel context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]registryEntry)}
}

// Put registers a session for the chat, cancelling any previous countdown.
func (r *Registry) Put(chatID int64, s *Session, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.entries[chatID]; ok && old.cancel != nil {
		old.cancel()
	}
	r.entries[chatID] = registryEntry{sess: s, cancel: cancel}
}

// Get returns the live session of the chat, if any.
func (r *Registry) Get(chatID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[chatID]
	return e.sess, ok
}

// Remove drops the chat's session and cancels its countdown.
func (r *Registry) Remove(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[chatID]; ok && e.cancel != nil {
		e.cancel()
	}
	delete(r.entries, chatID)
}
