package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleSession() *Session {
	return &Session{
		AccessToken: "tok-123",
		User:        &User{ID: "u1", Name: "Maria Santos", Email: "maria@bhs.ph", Role: "midwife"},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before login, got %v", err)
	}

	if err := store.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "tok-123" || got.User == nil || got.User.Role != "midwife" {
		t.Errorf("unexpected session: %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestFileStore_Keys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	if err := store.Save(context.Background(), sampleSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(path)
	for _, key := range []string{`"ACCESS_TOKEN"`, `"USER"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected key %s in %s", key, data)
		}
	}
}

func TestFileStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear without a file: %v", err)
	}
	store.Save(ctx, sampleSession())
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after Clear, got %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	os.WriteFile(path, []byte("{not json"), 0o600)

	_, err := NewFileStore(path).Load(context.Background())
	if err == nil || errors.Is(err, ErrNoSession) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFileStore_EmptyTokenIsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	os.WriteFile(path, []byte(`{"ACCESS_TOKEN":""}`), 0o600)

	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestStores_RejectEmptyToken(t *testing.T) {
	ctx := context.Background()
	stores := []Store{NewMemoryStore(), NewFileStore(filepath.Join(t.TempDir(), "s.json"))}
	for _, s := range stores {
		if err := s.Save(ctx, &Session{}); err == nil {
			t.Errorf("%T: expected error saving empty session", s)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	s := sampleSession()
	m.Save(ctx, s)
	s.AccessToken = "mutated"

	got, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "tok-123" {
		t.Errorf("store should keep its own copy, got %s", got.AccessToken)
	}

	m.Clear(ctx)
	if _, err := m.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after Clear, got %v", err)
	}
}
