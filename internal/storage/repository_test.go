package storage

import (
	"context"
	"path/filepath"
	"testing"

	"spendsmart/internal/core"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteIdentityLifecycle(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	got, err := repo.LoadIdentity(ctx)
	if err != nil || got != nil {
		t.Fatalf("fresh db: expected (nil, nil), got (%v, %v)", got, err)
	}

	id, _ := core.NewIdentity("ada@example.com", "Ada")
	if err := repo.SaveIdentity(ctx, id); err != nil {
		t.Fatalf("save: %v", err)
	}

	other, _ := core.NewIdentity("bob@example.com", "Bob")
	if err := repo.SaveIdentity(ctx, other); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = repo.LoadIdentity(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.Email != "bob@example.com" {
		t.Fatalf("identity table must hold exactly the latest record, got %+v", got)
	}

	if err := repo.ClearIdentity(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = repo.LoadIdentity(ctx)
	if err != nil || got != nil {
		t.Fatalf("after clear: expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestSQLiteExpensePartitions(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	mine := []core.Expense{
		{ID: "a", UserID: "u1", Amount: core.Money{Cents: 100}, Category: core.Food, Date: core.NewDate(2024, 3, 1), Description: "Lunch"},
		{ID: "b", UserID: "u1", Amount: core.Money{Cents: 200}, Category: core.Transport, Date: core.NewDate(2024, 3, 2), Description: "Bus"},
	}
	theirs := []core.Expense{
		{ID: "x", UserID: "u2", Amount: core.Money{Cents: 999}, Category: core.Health, Date: core.NewDate(2024, 1, 1), Description: "Meds"},
	}
	if err := repo.ReplaceExpenses(ctx, "u1", mine); err != nil {
		t.Fatalf("replace u1: %v", err)
	}
	if err := repo.ReplaceExpenses(ctx, "u2", theirs); err != nil {
		t.Fatalf("replace u2: %v", err)
	}
	if err := repo.ReplaceExpenses(ctx, "u1", nil); err != nil {
		t.Fatalf("empty u1: %v", err)
	}

	got, err := repo.ListExpenses(ctx, "u2")
	if err != nil {
		t.Fatalf("list u2: %v", err)
	}
	if len(got) != 1 || got[0].ID != "x" || got[0].Amount.Cents != 999 {
		t.Fatalf("u2 partition disturbed: %+v", got)
	}
	if got[0].Date.ISO() != "2024-01-01" {
		t.Fatalf("date round trip: %s", got[0].Date.ISO())
	}

	got, _ = repo.ListExpenses(ctx, "u1")
	if len(got) != 0 {
		t.Fatalf("u1 partition should be empty: %+v", got)
	}
}

func TestSQLiteInsertionOrderPreserved(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	records := []core.Expense{
		{ID: "3", UserID: "u1", Date: core.NewDate(2024, 3, 3), Description: "c"},
		{ID: "1", UserID: "u1", Date: core.NewDate(2024, 3, 1), Description: "a"},
		{ID: "2", UserID: "u1", Date: core.NewDate(2024, 3, 2), Description: "b"},
	}
	if err := repo.ReplaceExpenses(ctx, "u1", records); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := repo.ListExpenses(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, want := range []string{"3", "1", "2"} {
		if got[i].ID != want {
			t.Fatalf("position ordering broken: %+v", got)
		}
	}
}
