// Package worker glues AMQP consumption to the export ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/export"
	"presupuesto/internal/log"
)

// SyncWorker forwards transaction events to the export ledger. Malformed
// events are logged and dropped; ledger failures are returned so the
// delivery is requeued.
type SyncWorker struct {
	ledger export.LedgerWriter
}

func NewSyncWorker(ledger export.LedgerWriter) *SyncWorker {
	return &SyncWorker{ledger: ledger}
}

// Run consumes transaction events until the context is cancelled.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeTransactionEvents(ctx, func(event *amqp.TransactionEvent) error {
		return w.HandleEvent(ctx, event)
	})
}

// HandleEvent appends a single event to the ledger.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	if err := validateEvent(event); err != nil {
		slog.WarnContext(ctx, "Dropping malformed transaction event", "error", err)
		return nil
	}

	if err := w.ledger.AppendEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to append event to ledger",
			"kind", event.Kind,
			"date", event.Date,
			"error", err)
		return fmt.Errorf("append event: %w", err)
	}

	slog.InfoContext(ctx, "Synced transaction event",
		log.NewFields().
			WithOperation(log.OpSync).
			WithTransaction(event.Kind, event.AmountCents, event.Category, event.Source).
			ToSlice()...)
	return nil
}

func validateEvent(event *amqp.TransactionEvent) error {
	if event.Kind != amqp.KindIncome && event.Kind != amqp.KindExpense {
		return fmt.Errorf("unknown kind %q", event.Kind)
	}
	if event.ScopeKey == "" {
		return fmt.Errorf("empty scope key")
	}
	if _, err := time.Parse("2006-01-02", event.Date); err != nil {
		return fmt.Errorf("bad date %q: %w", event.Date, err)
	}
	return nil
}
