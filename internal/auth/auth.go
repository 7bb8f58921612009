// Package auth holds the per-chat authentication context. It is the only
// writer of the persisted token: screens read through it and mutate it only
// via Login and Logout.
package auth

import (
	"context"
	"fmt"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/store"
)

// Manager restores, exposes and mutates the auth state of each chat. It is
// constructor-injected wherever a screen needs the token, never via globals.
type Manager struct {
	store store.Store
}

func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// Token returns the persisted bearer token for the chat, or "" when the
// chat is not logged in.
func (m *Manager) Token(ctx context.Context, chatID int64) string {
	rec, ok, err := m.store.Get(ctx, chatID)
	if err != nil || !ok {
		return ""
	}
	return rec.Token
}

// Student returns the cached profile and whether the chat is logged in.
func (m *Manager) Student(ctx context.Context, chatID int64) (api.Student, bool) {
	rec, ok, err := m.store.Get(ctx, chatID)
	if err != nil || !ok || rec.Token == "" {
		return api.Student{}, false
	}
	return rec.Student, true
}

func (m *Manager) IsAuthenticated(ctx context.Context, chatID int64) bool {
	return m.Token(ctx, chatID) != ""
}

// Login persists the token and profile returned by the backend.
func (m *Manager) Login(ctx context.Context, chatID int64, data api.AuthData) error {
	rec, _, err := m.store.Get(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	rec.Token = data.Token
	rec.Student = data.Student
	if err := m.store.Set(ctx, chatID, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Logout clears the token and cached profile but keeps the intro flag.
func (m *Manager) Logout(ctx context.Context, chatID int64) error {
	rec, ok, err := m.store.Get(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil
	}
	rec.Token = ""
	rec.Student = api.Student{}
	if err := m.store.Set(ctx, chatID, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// UpdateStudent refreshes the cached profile without touching the token.
func (m *Manager) UpdateStudent(ctx context.Context, chatID int64, s api.Student) error {
	rec, ok, err := m.store.Get(ctx, chatID)
	if err != nil || !ok {
		return err
	}
	rec.Student = s
	return m.store.Set(ctx, chatID, rec)
}

// HasSeenIntro reports whether the first-run intro was already shown.
func (m *Manager) HasSeenIntro(ctx context.Context, chatID int64) bool {
	rec, ok, err := m.store.Get(ctx, chatID)
	return err == nil && ok && rec.HasSeenIntro
}

// MarkIntroSeen gates the first-run intro off for this chat.
func (m *Manager) MarkIntroSeen(ctx context.Context, chatID int64) error {
	rec, _, err := m.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	rec.HasSeenIntro = true
	return m.store.Set(ctx, chatID, rec)
}
