// Package export appends transaction events to an external ledger. The only
// implementation writes to a Google Sheets spreadsheet with service-account
// credentials.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"presupuesto/internal/amqp"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// LedgerWriter receives transaction events for the export ledger.
type LedgerWriter interface {
	AppendEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

type SheetsLedger struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ LedgerWriter = (*SheetsLedger)(nil)

// Config carries what the ledger needs; credentials are either inline JSON
// or a file path, one of which must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func NewSheetsLedger(ctx context.Context, cfg Config) (*SheetsLedger, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Ledger"
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsLedger{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendEvent appends one row per event to the configured sheet.
func (l *SheetsLedger) AppendEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	if l.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:I", l.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{rowForEvent(event)}}

	_, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", l.sheetName, err)
	}
	return nil
}

// rowForEvent flattens an event into the ledger's column layout:
// date, kind, amount in currency units, category, subcategory, source,
// recurring, deleted, scope key.
func rowForEvent(event *amqp.TransactionEvent) []any {
	amount := float64(event.AmountCents) / 100.0
	return []any{
		event.Date,
		event.Kind,
		amount,
		event.Category,
		event.Subcategory,
		event.Source,
		event.Recurring,
		event.Deleted,
		event.ScopeKey,
	}
}
