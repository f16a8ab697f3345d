package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
	"presupuesto/internal/store"
)

// RecurringProcessor reposts recurring transactions. Transactions flagged
// recurring act as monthly templates: the most recent occurrence of each
// (category, subcategory, source) group determines the posting day, and a new
// transaction is appended through the normal recording path once per month.
type RecurringProcessor struct {
	store      store.BudgetStore
	amqpClient *amqp.Client
}

func NewRecurringProcessor(budgets store.BudgetStore, amqpClient *amqp.Client) *RecurringProcessor {
	return &RecurringProcessor{
		store:      budgets,
		amqpClient: amqpClient,
	}
}

// ProcessAll walks every stored budget and posts the recurring transactions
// that are due. Budgets that fail to load or save are skipped, not fatal.
func (p *RecurringProcessor) ProcessAll(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	keys, err := p.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budget keys: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"budgets", len(keys),
		"processing_date", now.Format("2006-01-02"))

	total := 0
	for _, key := range keys {
		created, err := p.processKey(ctx, key, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process budget",
				"scope_key", key,
				"error", err)
			continue
		}
		total += created
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"created", total,
		"budgets", len(keys))
	return total, nil
}

func (p *RecurringProcessor) processKey(ctx context.Context, key string, now time.Time) (int, error) {
	b, err := p.store.LoadKey(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load budget: %w", err)
	}

	created := p.ProcessBudget(ctx, key, b, now)
	if created == 0 {
		return 0, nil
	}

	if err := p.store.SaveKey(ctx, key, b); err != nil {
		return 0, fmt.Errorf("save budget: %w", err)
	}
	return created, nil
}

// ProcessBudget appends due recurring transactions to the budget in place and
// returns how many were created. The caller is responsible for persisting.
func (p *RecurringProcessor) ProcessBudget(ctx context.Context, key string, b *core.Budget, now time.Time) int {
	created := 0
	for _, due := range dueTemplates(b.Incomes, now) {
		tx := postingFor(due, now)
		if err := b.RecordIncome(tx); err != nil {
			slog.ErrorContext(ctx, "Failed to post recurring income",
				"category", tx.Category, "error", err)
			continue
		}
		p.publishEvent(ctx, key, tx, amqp.KindIncome)
		created++
	}
	for _, due := range dueTemplates(b.Expenses, now) {
		tx := postingFor(due, now)
		if err := b.RecordExpense(tx); err != nil {
			slog.ErrorContext(ctx, "Failed to post recurring expense",
				"category", tx.Category, "error", err)
			continue
		}
		p.publishEvent(ctx, key, tx, amqp.KindExpense)
		created++
	}
	return created
}

// dueTemplates groups recurring transactions by (category, subcategory,
// source), keeps the most recent occurrence of each group, and returns the
// ones due for posting this month.
func dueTemplates(txs []core.Transaction, now time.Time) []core.Transaction {
	type groupKey struct {
		category    string
		subcategory string
		source      string
	}

	latest := make(map[groupKey]core.Transaction)
	order := make([]groupKey, 0)
	for _, t := range txs {
		if !t.Recurring {
			continue
		}
		k := groupKey{t.Category, t.Subcategory, t.Source}
		prev, seen := latest[k]
		if !seen {
			order = append(order, k)
			latest[k] = t
			continue
		}
		if t.Date.After(prev.Date.Time) {
			latest[k] = t
		}
	}

	var due []core.Transaction
	for _, k := range order {
		t := latest[k]
		if isDueMonthly(t.Date.Time, now, t.Date.Day()) {
			due = append(due, t)
		}
	}
	return due
}

// postingFor builds this month's occurrence of a template, clamping the day
// to the current month's length.
func postingFor(template core.Transaction, now time.Time) core.Transaction {
	day := template.Date.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDayOfMonth {
		day = lastDayOfMonth
	}
	tx := template
	tx.Date = core.NewDate(now.Year(), int(now.Month()), day)
	return tx
}

func (p *RecurringProcessor) publishEvent(ctx context.Context, key string, tx core.Transaction, kind string) {
	if p.amqpClient == nil {
		return
	}
	event := &amqp.TransactionEvent{
		Kind:        kind,
		ScopeKey:    key,
		Date:        tx.Date.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Subcategory: tx.Subcategory,
		Source:      tx.Source,
		Recurring:   true,
		Timestamp:   time.Now(),
	}
	if err := p.amqpClient.PublishTransactionEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recurring transaction event",
			"kind", kind, "error", err)
	}
}
