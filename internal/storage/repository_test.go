package storage

import (
	"context"
	"path/filepath"
	"testing"

	"presupuesto/internal/core"
	"presupuesto/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleBudget(t *testing.T) *core.Budget {
	t.Helper()
	b := core.NewDefaultBudget()
	b.Accounts = append(b.Accounts, core.Account{Name: "CD", Type: core.Certificate, Balance: core.Money{Cents: 5000_00}, Rate: 6})
	b.Debts = append(b.Debts, core.Debt{Name: "Car loan", Balance: core.Money{Cents: 8000_00}, Rate: 9.5, MinPayment: core.Money{Cents: 250_00}})
	if err := b.RecordIncome(core.Transaction{
		Date: core.NewDate(2024, 5, 1), Amount: core.Money{Cents: 2000_00},
		Category: "Salary", Subcategory: "General", Source: "Payroll Account", Recurring: true,
	}); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if err := b.RecordExpense(core.Transaction{
		Date: core.NewDate(2024, 5, 3), Amount: core.Money{Cents: 120_00},
		Category: string(core.Needs), Subcategory: "Groceries", Source: "Payroll Account",
	}); err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	b.Goals = append(b.Goals, core.Goal{Name: "Emergency fund", Target: core.Money{Cents: 10_000_00}, Saved: core.Money{Cents: 1500_00}, Deadline: core.NewDate(2025, 12, 31)})
	return b
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	scope := core.Scope{User: "u", Profile: "p"}

	want := sampleBudget(t)
	if err := s.Save(ctx, scope, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, scope)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Accounts) != 2 || got.Accounts[1].Type != core.Certificate || got.Accounts[1].Rate != 6 {
		t.Errorf("accounts = %+v", got.Accounts)
	}
	if len(got.Cards) != 1 || got.Cards[0].CutDay != 15 {
		t.Errorf("cards = %+v", got.Cards)
	}
	if len(got.Debts) != 1 || got.Debts[0].MinPayment.Cents != 250_00 {
		t.Errorf("debts = %+v", got.Debts)
	}
	if len(got.Incomes) != 1 || !got.Incomes[0].Recurring || got.Incomes[0].Date.String() != "2024-05-01" {
		t.Errorf("incomes = %+v", got.Incomes)
	}
	if len(got.Expenses) != 1 || got.Expenses[0].Subcategory != "Groceries" {
		t.Errorf("expenses = %+v", got.Expenses)
	}
	if len(got.Goals) != 1 || got.Goals[0].Saved.Cents != 1500_00 || got.Goals[0].Deadline.String() != "2025-12-31" {
		t.Errorf("goals = %+v", got.Goals)
	}
	if got.Accounts[0].Balance.Cents != want.Accounts[0].Balance.Cents {
		t.Errorf("balance = %d, want %d", got.Accounts[0].Balance.Cents, want.Accounts[0].Balance.Cents)
	}
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Load(context.Background(), core.Scope{User: "nobody", Profile: "none"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Accounts) != 1 || len(b.Cards) != 1 {
		t.Errorf("default budget = %+v", b)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	scope := core.Scope{User: "u", Profile: "p"}

	if err := s.Save(ctx, scope, sampleBudget(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// An emptied budget must not resurrect old rows.
	empty := &core.Budget{}
	if err := s.Save(ctx, scope, empty); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	got, err := s.Load(ctx, scope)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Accounts) != 0 || len(got.Incomes) != 0 || len(got.Goals) != 0 {
		t.Errorf("stale rows survived: %+v", got)
	}
}

func TestDeleteAndKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := core.Scope{User: "u", Profile: "Main"}
	second := core.Scope{User: "u", Profile: "Side"}

	if err := s.Save(ctx, first, core.NewDefaultBudget()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, second, core.NewDefaultBudget()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want 2", keys)
	}
	for _, k := range keys {
		if k != store.ScopeKey(first) && k != store.ScopeKey(second) {
			t.Errorf("unexpected key %q", k)
		}
	}

	if err := s.Delete(ctx, first); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, first); err != nil {
		t.Errorf("Delete of absent scope should be a no-op, got %v", err)
	}
	keys, err = s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != store.ScopeKey(second) {
		t.Errorf("keys after delete = %v", keys)
	}
}
