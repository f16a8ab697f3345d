package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"presupuesto/internal/amqp"
)

type fakeLedger struct {
	events []*amqp.TransactionEvent
	err    error
}

func (f *fakeLedger) AppendEvent(_ context.Context, event *amqp.TransactionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func validEvent() *amqp.TransactionEvent {
	return &amqp.TransactionEvent{
		Kind:        amqp.KindExpense,
		ScopeKey:    "abc__def",
		Date:        "2024-03-10",
		AmountCents: 120_00,
		Category:    "Needs",
		Timestamp:   time.Now(),
	}
}

func TestSyncWorker_AppendsValidEvent(t *testing.T) {
	ledger := &fakeLedger{}
	w := NewSyncWorker(ledger)

	if err := w.HandleEvent(context.Background(), validEvent()); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(ledger.events) != 1 {
		t.Fatalf("appended = %d, want 1", len(ledger.events))
	}
	if ledger.events[0].AmountCents != 120_00 {
		t.Errorf("amount = %d, want %d", ledger.events[0].AmountCents, int64(120_00))
	}
}

func TestSyncWorker_DropsMalformedEvents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*amqp.TransactionEvent)
	}{
		{name: "unknown kind", mutate: func(e *amqp.TransactionEvent) { e.Kind = "transfer" }},
		{name: "empty scope key", mutate: func(e *amqp.TransactionEvent) { e.ScopeKey = "" }},
		{name: "bad date", mutate: func(e *amqp.TransactionEvent) { e.Date = "10/03/2024" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{}
			w := NewSyncWorker(ledger)

			event := validEvent()
			tt.mutate(event)

			// Malformed events must be dropped, not requeued.
			if err := w.HandleEvent(context.Background(), event); err != nil {
				t.Errorf("HandleEvent = %v, want nil", err)
			}
			if len(ledger.events) != 0 {
				t.Errorf("appended = %d, want 0", len(ledger.events))
			}
		})
	}
}

func TestSyncWorker_LedgerFailurePropagates(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("quota exceeded")}
	w := NewSyncWorker(ledger)

	if err := w.HandleEvent(context.Background(), validEvent()); err == nil {
		t.Error("HandleEvent = nil, want error so the delivery is requeued")
	}
}
