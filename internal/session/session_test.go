package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"spendsmart/internal/core"
	"spendsmart/internal/kv"
	"spendsmart/internal/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.KVRepository) {
	t.Helper()
	store, err := kv.Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open kv store: %v", err)
	}
	repo := storage.NewKVRepository(store)
	return NewManager(repo, 0, nil), repo
}

func TestLoginActivatesAndPersists(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	id, err := m.Login(ctx, "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Email != "ada@example.com" || id.Name != "Ada" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	cur := m.Current()
	if cur == nil || cur.ID != id.ID {
		t.Fatalf("current identity mismatch: %+v", cur)
	}

	stored, err := repo.LoadIdentity(ctx)
	if err != nil || stored == nil || stored.ID != id.ID {
		t.Fatalf("identity not persisted: %+v %v", stored, err)
	}
}

func TestLoginSameEmailSameID(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Login(ctx, "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	second, err := m.Login(ctx, "ada@example.com", "Countess")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("same email must map to same id: %q vs %q", first.ID, second.ID)
	}
}

func TestLoginEmptyEmailRefused(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Login(context.Background(), "   ", "Ada")
	if !errors.Is(err, core.ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
	if m.Current() != nil {
		t.Fatal("failed login must not activate an identity")
	}
}

func TestLogoutIdempotent(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Login(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("second logout must succeed: %v", err)
	}
	if m.Current() != nil {
		t.Fatal("identity still active after logout")
	}
	if stored, _ := repo.LoadIdentity(ctx); stored != nil {
		t.Fatalf("identity still persisted after logout: %+v", stored)
	}
}

func TestRestoreActivatesStoredIdentity(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	id, _ := core.NewIdentity("ada@example.com", "Ada")
	if err := repo.SaveIdentity(ctx, id); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := m.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	cur := m.Current()
	if cur == nil || cur.Email != "ada@example.com" {
		t.Fatalf("restore did not activate identity: %+v", cur)
	}
}

func TestRestoreMalformedStartsUnauthenticated(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open kv store: %v", err)
	}
	if err := store.Set("identity", []byte(`{broken`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := storage.NewKVRepository(store)
	m := NewManager(repo, 0, nil)

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("restore must swallow malformed data: %v", err)
	}
	if m.Current() != nil {
		t.Fatal("malformed identity must leave session unauthenticated")
	}
}

func TestSubscribersNotified(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var seen []*core.Identity
	m.Subscribe(func(_ context.Context, id *core.Identity) {
		seen = append(seen, id)
	})

	if _, err := m.Login(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if seen[0] == nil || seen[0].Email != "ada@example.com" {
		t.Fatalf("login notification wrong: %+v", seen[0])
	}
	if seen[1] != nil {
		t.Fatalf("logout notification must carry nil, got %+v", seen[1])
	}
}
