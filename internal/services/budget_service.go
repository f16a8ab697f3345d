// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
	"presupuesto/internal/log"
	"presupuesto/internal/store"
)

// BudgetService orchestrates budget mutations. Every operation is a
// load-modify-save cycle against the store; transaction events are published
// after a successful save and never fail the request.
type BudgetService struct {
	store      store.BudgetStore
	amqpClient *amqp.Client
}

func NewBudgetService(budgets store.BudgetStore, amqpClient *amqp.Client) *BudgetService {
	return &BudgetService{
		store:      budgets,
		amqpClient: amqpClient,
	}
}

// GetBudget loads the budget for a scope, initializing it on first access.
func (s *BudgetService) GetBudget(ctx context.Context, scope core.Scope) (*core.Budget, error) {
	return s.store.Load(ctx, scope)
}

// RecordIncome validates, applies, and persists an income transaction.
func (s *BudgetService) RecordIncome(ctx context.Context, scope core.Scope, tx core.Transaction) error {
	return s.record(ctx, scope, tx, amqp.KindIncome)
}

// RecordExpense validates, applies, and persists an expense transaction.
func (s *BudgetService) RecordExpense(ctx context.Context, scope core.Scope, tx core.Transaction) error {
	return s.record(ctx, scope, tx, amqp.KindExpense)
}

func (s *BudgetService) record(ctx context.Context, scope core.Scope, tx core.Transaction, kind string) error {
	b, err := s.store.Load(ctx, scope)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}

	switch kind {
	case amqp.KindIncome:
		err = b.RecordIncome(tx)
	case amqp.KindExpense:
		err = b.RecordExpense(tx)
	default:
		return fmt.Errorf("unknown transaction kind: %s", kind)
	}
	if err != nil {
		return err
	}

	if err := s.store.Save(ctx, scope, b); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}

	s.publishEvent(ctx, scope, tx, kind, false)

	slog.InfoContext(ctx, "Transaction recorded",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(kind, tx.Amount.Cents, tx.Category, tx.Source).
			ToSlice()...)
	return nil
}

// DeleteIncomes removes the incomes at the given indices, reversing their
// balance effect where the source still resolves.
func (s *BudgetService) DeleteIncomes(ctx context.Context, scope core.Scope, indices []int) ([]core.Transaction, error) {
	return s.deleteTransactions(ctx, scope, indices, amqp.KindIncome)
}

// DeleteExpenses removes the expenses at the given indices, reversing their
// balance effect where the source still resolves.
func (s *BudgetService) DeleteExpenses(ctx context.Context, scope core.Scope, indices []int) ([]core.Transaction, error) {
	return s.deleteTransactions(ctx, scope, indices, amqp.KindExpense)
}

func (s *BudgetService) deleteTransactions(ctx context.Context, scope core.Scope, indices []int, kind string) ([]core.Transaction, error) {
	b, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}

	var removed []core.Transaction
	var reversedCount int
	switch kind {
	case amqp.KindIncome:
		removed, reversedCount, err = b.DeleteIncomes(indices)
	case amqp.KindExpense:
		removed, reversedCount, err = b.DeleteExpenses(indices)
	default:
		return nil, fmt.Errorf("unknown transaction kind: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, scope, b); err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}

	if reversedCount < len(removed) {
		slog.WarnContext(ctx, "Deleted transactions with unresolved sources",
			"kind", kind,
			"unreversed", len(removed)-reversedCount)
	}
	for _, tx := range removed {
		s.publishEvent(ctx, scope, tx, kind, true)
	}

	slog.InfoContext(ctx, "Transactions deleted", "kind", kind, "count", len(removed))
	return removed, nil
}

// mutate runs fn inside a load-save cycle.
func (s *BudgetService) mutate(ctx context.Context, scope core.Scope, fn func(*core.Budget) error) error {
	b, err := s.store.Load(ctx, scope)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}
	if err := fn(b); err != nil {
		return err
	}
	if err := s.store.Save(ctx, scope, b); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (s *BudgetService) AddAccount(ctx context.Context, scope core.Scope, a core.Account) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.AddAccount(a) })
}

func (s *BudgetService) UpdateAccount(ctx context.Context, scope core.Scope, name string, a core.Account) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.UpdateAccount(name, a) })
}

func (s *BudgetService) RemoveAccount(ctx context.Context, scope core.Scope, name string) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.RemoveAccount(name) })
}

func (s *BudgetService) AddCard(ctx context.Context, scope core.Scope, c core.CreditCard) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.AddCard(c) })
}

func (s *BudgetService) UpdateCard(ctx context.Context, scope core.Scope, name string, c core.CreditCard) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.UpdateCard(name, c) })
}

func (s *BudgetService) RemoveCard(ctx context.Context, scope core.Scope, name string) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.RemoveCard(name) })
}

func (s *BudgetService) AddDebt(ctx context.Context, scope core.Scope, d core.Debt) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.AddDebt(d) })
}

func (s *BudgetService) UpdateDebt(ctx context.Context, scope core.Scope, name string, d core.Debt) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.UpdateDebt(name, d) })
}

func (s *BudgetService) RemoveDebt(ctx context.Context, scope core.Scope, name string) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.RemoveDebt(name) })
}

func (s *BudgetService) AddGoal(ctx context.Context, scope core.Scope, g core.Goal) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.AddGoal(g) })
}

func (s *BudgetService) UpdateGoal(ctx context.Context, scope core.Scope, index int, g core.Goal) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.UpdateGoal(index, g) })
}

func (s *BudgetService) RemoveGoal(ctx context.Context, scope core.Scope, name string) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.RemoveGoal(name) })
}

func (s *BudgetService) AddGoalContribution(ctx context.Context, scope core.Scope, index int, amount core.Money) error {
	return s.mutate(ctx, scope, func(b *core.Budget) error { return b.AddGoalContribution(index, amount) })
}

// DeleteProfile removes all stored state for the scope.
func (s *BudgetService) DeleteProfile(ctx context.Context, scope core.Scope) error {
	if err := s.store.Delete(ctx, scope); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile deleted")
	return nil
}

func (s *BudgetService) publishEvent(ctx context.Context, scope core.Scope, tx core.Transaction, kind string, deleted bool) {
	if s.amqpClient == nil {
		return
	}

	event := &amqp.TransactionEvent{
		Kind:        kind,
		ScopeKey:    store.ScopeKey(scope),
		Date:        tx.Date.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Subcategory: tx.Subcategory,
		Source:      tx.Source,
		Recurring:   tx.Recurring,
		Deleted:     deleted,
		Timestamp:   time.Now(),
	}
	if err := s.amqpClient.PublishTransactionEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind, "error", err)
		// Don't fail the request - the budget is saved locally
	}
}

// Close closes the store and AMQP connections
func (s *BudgetService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close budget service: %v", errs)
	}

	return nil
}
