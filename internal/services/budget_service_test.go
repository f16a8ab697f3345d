package services

import (
	"context"
	"errors"
	"testing"

	"presupuesto/internal/core"
	"presupuesto/internal/store"
)

func newTestService(t *testing.T) *BudgetService {
	t.Helper()
	fileStore, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewBudgetService(fileStore, nil)
}

func testScope() core.Scope {
	return core.Scope{User: "alice", Profile: "Main"}
}

func TestBudgetService_RecordIncomePersists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := testScope()

	err := svc.RecordIncome(ctx, scope, core.Transaction{
		Date:     core.NewDate(2024, 3, 1),
		Amount:   core.Money{Cents: 1000_00},
		Category: "Salary",
		Source:   "Payroll Account",
	})
	if err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}

	b, err := svc.GetBudget(ctx, scope)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if len(b.Incomes) != 1 {
		t.Fatalf("incomes = %d, want 1", len(b.Incomes))
	}
	if b.Accounts[0].Balance.Cents != 1000_00 {
		t.Errorf("balance = %d, want %d", b.Accounts[0].Balance.Cents, int64(1000_00))
	}
}

func TestBudgetService_RecordExpenseValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.RecordExpense(ctx, testScope(), core.Transaction{
		Date:     core.NewDate(2024, 3, 1),
		Amount:   core.Money{Cents: 50_00},
		Category: "NotACategory",
		Source:   "Payroll Account",
	})
	if !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("RecordExpense with bad category = %v, want ErrInvalidCategory", err)
	}

	// Nothing must have been persisted.
	b, err := svc.GetBudget(ctx, testScope())
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if len(b.Expenses) != 0 {
		t.Errorf("expenses = %d, want 0", len(b.Expenses))
	}
}

func TestBudgetService_DeleteExpenses(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := testScope()

	for _, sub := range []string{"first", "second", "third"} {
		err := svc.RecordExpense(ctx, scope, core.Transaction{
			Date:        core.NewDate(2024, 3, 1),
			Amount:      core.Money{Cents: 10_00},
			Category:    string(core.Needs),
			Subcategory: sub,
			Source:      "Payroll Account",
		})
		if err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}
	}

	removed, err := svc.DeleteExpenses(ctx, scope, []int{0, 2})
	if err != nil {
		t.Fatalf("DeleteExpenses: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed = %d, want 2", len(removed))
	}

	b, err := svc.GetBudget(ctx, scope)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if len(b.Expenses) != 1 || b.Expenses[0].Subcategory != "second" {
		t.Errorf("remaining expenses = %+v, want only the second", b.Expenses)
	}
}

func TestBudgetService_DeleteInvalidIndicesLeavesStateUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := testScope()

	err := svc.RecordIncome(ctx, scope, core.Transaction{
		Date:     core.NewDate(2024, 3, 1),
		Amount:   core.Money{Cents: 100_00},
		Category: "Salary",
		Source:   "Payroll Account",
	})
	if err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}

	if _, err := svc.DeleteIncomes(ctx, scope, []int{0, 5}); !errors.Is(err, core.ErrIndexOutOfRange) {
		t.Fatalf("DeleteIncomes = %v, want ErrIndexOutOfRange", err)
	}

	b, err := svc.GetBudget(ctx, scope)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if len(b.Incomes) != 1 {
		t.Errorf("incomes = %d, want 1 (no partial delete)", len(b.Incomes))
	}
}

func TestBudgetService_AccountCRUD(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := testScope()

	if err := svc.AddAccount(ctx, scope, core.Account{Name: "Savings", Type: core.Certificate, Rate: 5}); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if err := svc.UpdateAccount(ctx, scope, "Savings", core.Account{Name: "CD Ladder", Type: core.Certificate, Rate: 6}); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if err := svc.RemoveAccount(ctx, scope, "Payroll Account"); err != nil {
		t.Fatalf("RemoveAccount: %v", err)
	}

	b, err := svc.GetBudget(ctx, scope)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if len(b.Accounts) != 1 || b.Accounts[0].Name != "CD Ladder" || b.Accounts[0].Rate != 6 {
		t.Errorf("accounts = %+v", b.Accounts)
	}

	if err := svc.RemoveAccount(ctx, scope, "Ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("RemoveAccount missing = %v, want ErrNotFound", err)
	}
}

func TestBudgetService_GoalContribution(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := testScope()

	goal := core.Goal{Name: "Trip", Target: core.Money{Cents: 500_00}, Deadline: core.NewDate(2025, 6, 1)}
	if err := svc.AddGoal(ctx, scope, goal); err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	if err := svc.AddGoalContribution(ctx, scope, 0, core.Money{Cents: 50_00}); err != nil {
		t.Fatalf("AddGoalContribution: %v", err)
	}

	b, err := svc.GetBudget(ctx, scope)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if b.Goals[0].Saved.Cents != 50_00 {
		t.Errorf("saved = %d, want %d", b.Goals[0].Saved.Cents, int64(50_00))
	}
}

func TestBudgetService_DeleteProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := testScope()

	if err := svc.AddDebt(ctx, scope, core.Debt{Name: "Loan", Balance: core.Money{Cents: 100_00}}); err != nil {
		t.Fatalf("AddDebt: %v", err)
	}
	if err := svc.DeleteProfile(ctx, scope); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	// A fresh default budget comes back after deletion.
	b, err := svc.GetBudget(ctx, scope)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if len(b.Debts) != 0 {
		t.Errorf("debts = %+v, want empty after profile delete", b.Debts)
	}
}
