package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"presupuesto/internal/core"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestScopeKey(t *testing.T) {
	a := ScopeKey(core.Scope{User: "alice", Profile: "Main"})
	b := ScopeKey(core.Scope{User: "alice", Profile: "Side"})
	c := ScopeKey(core.Scope{User: "bob", Profile: "Main"})

	if a == b || a == c {
		t.Error("distinct scopes must map to distinct keys")
	}
	if a != ScopeKey(core.Scope{User: "alice", Profile: "Main"}) {
		t.Error("key derivation must be deterministic")
	}
	// One-way: neither part appears in the key.
	if filepath.Ext(a) != "" || len(a) != 64+2+64 {
		t.Errorf("unexpected key shape: %q", a)
	}
}

func TestLoadMissingReturnsDefaultBudget(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Load(context.Background(), core.Scope{User: "u", Profile: "p"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Accounts) != 1 || b.Accounts[0].Type != core.Debit {
		t.Errorf("default accounts = %+v, want one debit account", b.Accounts)
	}
	if len(b.Cards) != 1 || b.Cards[0].CutDay != 15 || b.Cards[0].PayDay != 5 {
		t.Errorf("default cards = %+v, want cut 15 / pay 5", b.Cards)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	scope := core.Scope{User: "u", Profile: "p"}

	b := core.NewDefaultBudget()
	if err := b.RecordIncome(core.Transaction{
		Date: core.NewDate(2024, 3, 10), Amount: core.Money{Cents: 1000_00},
		Category: "Salary", Subcategory: "General", Source: "Payroll Account", Recurring: true,
	}); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	b.Goals = append(b.Goals, core.Goal{Name: "Trip", Target: core.Money{Cents: 500_00}, Deadline: core.NewDate(2025, 6, 1)})

	if err := s.Save(ctx, scope, b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, scope)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Incomes) != 1 || got.Incomes[0].Amount.Cents != 1000_00 || !got.Incomes[0].Recurring {
		t.Errorf("incomes = %+v", got.Incomes)
	}
	if got.Incomes[0].Source != "Payroll Account" {
		t.Errorf("source = %q", got.Incomes[0].Source)
	}
	if got.Accounts[0].Balance.Cents != 1000_00 {
		t.Errorf("balance = %d", got.Accounts[0].Balance.Cents)
	}
	if len(got.Goals) != 1 || got.Goals[0].Name != "Trip" {
		t.Errorf("goals = %+v", got.Goals)
	}
}

func TestLoadLegacyDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	// A document in the shape written by the legacy tracker: float amounts,
	// "account" instead of "source", goals missing most fields, pay day out
	// of range.
	legacy := `{
	  "accounts": [{"name": "Checking", "type": "Debit", "balance": 1500.5, "rate": 2.0}],
	  "cards": [{"name": "Visa", "limit": 3000.0, "cut_day": 45, "pay_day": 0, "balance": 120.0, "cashback": 1.5}],
	  "debts": [],
	  "incomes": [{"date": "2024-01-05", "amount": 1000.0, "category": "Salary", "subcat": "General", "account": "Checking", "recurrent": false}],
	  "expenses": [],
	  "goals": [{"target": 900.0}]
	}`
	key := ScopeKey(core.Scope{User: "u", Profile: "p"})
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	b, err := s.LoadKey(context.Background(), key)
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if b.Accounts[0].Balance.Cents != 1500_50 {
		t.Errorf("balance = %d, want %d", b.Accounts[0].Balance.Cents, int64(1500_50))
	}
	if b.Incomes[0].Source != "Checking" {
		t.Errorf("legacy account alias not applied: %+v", b.Incomes[0])
	}
	if b.Cards[0].CutDay != 31 || b.Cards[0].PayDay != 1 {
		t.Errorf("card days not clamped: %+v", b.Cards[0])
	}

	g := b.Goals[0]
	if g.Target.Cents != 900_00 || g.Saved.Cents != 0 {
		t.Errorf("goal amounts = %+v", g)
	}
	if g.Name != "Goal 1" {
		t.Errorf("goal name = %q, want synthesized default", g.Name)
	}
	// Deadline defaults to roughly a year out.
	want := time.Now().AddDate(1, 0, 0)
	if g.Deadline.Year() != want.Year() || g.Deadline.Month() != int(want.Month()) {
		t.Errorf("goal deadline = %v, want about one year from now", g.Deadline)
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
	// The user registry lives in the same directory and must not be listed.
	if err := os.WriteFile(filepath.Join(s.dir, "users.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want 2 budget keys", keys)
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
	if len(keys) != 1 {
		t.Errorf("keys after delete = %v, want 1", keys)
	}
}
