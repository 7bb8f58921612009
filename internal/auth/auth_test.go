package auth

import (
	"context"
	"testing"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/store"
)

func TestManager_LoginLogout(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore())
	chatID := int64(77)

	if m.IsAuthenticated(ctx, chatID) {
		t.Fatal("fresh chat should not be authenticated")
	}
	if tok := m.Token(ctx, chatID); tok != "" {
		t.Fatalf("token on fresh chat = %q", tok)
	}

	err := m.Login(ctx, chatID, api.AuthData{
		Token:   "tok",
		Student: api.Student{ID: 3, FirstName: "Ravi"},
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !m.IsAuthenticated(ctx, chatID) {
		t.Fatal("expected authenticated after login")
	}
	s, ok := m.Student(ctx, chatID)
	if !ok || s.FirstName != "Ravi" {
		t.Errorf("student = %+v ok=%v", s, ok)
	}

	if err := m.Logout(ctx, chatID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.IsAuthenticated(ctx, chatID) {
		t.Error("still authenticated after logout")
	}
	if _, ok := m.Student(ctx, chatID); ok {
		t.Error("student still visible after logout")
	}
}

func TestManager_LogoutKeepsIntroFlag(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore())
	chatID := int64(77)

	if err := m.MarkIntroSeen(ctx, chatID); err != nil {
		t.Fatalf("MarkIntroSeen: %v", err)
	}
	if err := m.Login(ctx, chatID, api.AuthData{Token: "tok"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Logout(ctx, chatID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !m.HasSeenIntro(ctx, chatID) {
		t.Error("intro flag lost on logout")
	}
}

func TestManager_UpdateStudent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore())
	chatID := int64(5)

	if err := m.Login(ctx, chatID, api.AuthData{Token: "tok", Student: api.Student{FirstName: "Old"}}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.UpdateStudent(ctx, chatID, api.Student{FirstName: "New"}); err != nil {
		t.Fatalf("UpdateStudent: %v", err)
	}
	s, _ := m.Student(ctx, chatID)
	if s.FirstName != "New" {
		t.Errorf("student = %+v", s)
	}
	if m.Token(ctx, chatID) != "tok" {
		t.Error("token changed by UpdateStudent")
	}
}
