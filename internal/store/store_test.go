package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ddabattalion/examprep-bot/internal/api"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, 100); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	rec := Record{
		Token:        "tok",
		Student:      api.Student{ID: 5, FirstName: "Asha", Mobile: "9876543210"},
		HasSeenIntro: true,
	}
	if err := s.Set(ctx, 100, rec); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get(ctx, 100)
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if got.Token != "tok" || got.Student.FirstName != "Asha" || !got.HasSeenIntro {
		t.Errorf("record = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped on Set")
	}

	// Other chats stay isolated.
	if _, ok, _ := s.Get(ctx, 200); ok {
		t.Error("record leaked to another chat id")
	}

	got.Token = "tok2"
	if err := s.Set(ctx, 100, got); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _, _ = s.Get(ctx, 100)
	if got.Token != "tok2" {
		t.Errorf("token after overwrite = %q", got.Token)
	}

	if err := s.Delete(ctx, 100); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, 100); ok {
		t.Error("record still present after Delete")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sessions.json")
	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	exerciseStore(t, s)
}

func TestJSONStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")

	s1, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	if err := s1.Set(ctx, 42, Record{Token: "persisted"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s2, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec, ok, err := s2.Get(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if rec.Token != "persisted" {
		t.Errorf("token = %q", rec.Token)
	}
}
