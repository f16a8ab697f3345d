package amqp

import (
	"encoding/json"
	"time"
)

// Transaction event kinds.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// TransactionEvent is published whenever a transaction is recorded or
// deleted. It carries the full row so the sync worker can append it to the
// export ledger without loading the budget; the scope key is the opaque
// storage key, never the user identity.
type TransactionEvent struct {
	Kind        string    `json:"kind"`
	ScopeKey    string    `json:"scope_key"`
	Date        string    `json:"date"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Source      string    `json:"source"`
	Recurring   bool      `json:"recurring"`
	Deleted     bool      `json:"deleted"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON creates an event from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
