package export

import (
	"context"
	"testing"
	"time"

	"presupuesto/internal/amqp"
)

func TestNewSheetsLedger_MissingConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing spreadsheet ID", cfg: Config{CredentialsJSON: "{}"}},
		{name: "missing credentials", cfg: Config{SpreadsheetID: "123"}},
		{name: "unreadable credentials file", cfg: Config{SpreadsheetID: "123", CredentialsFile: "/non/existent.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSheetsLedger(context.Background(), tt.cfg); err == nil {
				t.Error("NewSheetsLedger() error = nil, want error")
			}
		})
	}
}

func TestRowForEvent(t *testing.T) {
	event := &amqp.TransactionEvent{
		Kind:        amqp.KindExpense,
		ScopeKey:    "abc__def",
		Date:        "2024-03-10",
		AmountCents: 12345,
		Category:    "Needs",
		Subcategory: "Rent",
		Source:      "Payroll Account",
		Recurring:   true,
		Deleted:     false,
		Timestamp:   time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}

	row := rowForEvent(event)
	if len(row) != 9 {
		t.Fatalf("row length = %d, want 9", len(row))
	}
	if row[0] != "2024-03-10" || row[1] != amqp.KindExpense {
		t.Errorf("row prefix = %v", row[:2])
	}
	if row[2] != 123.45 {
		t.Errorf("amount = %v, want 123.45", row[2])
	}
	if row[8] != "abc__def" {
		t.Errorf("scope key = %v", row[8])
	}
}
