package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operations carried on the ledger event stream.
const (
	OpEntryCreated      = "entry.created"
	OpEntryErased       = "entry.erased"
	OpTransferCompleted = "transfer.completed"
	OpAccountCreated    = "account.created"
	OpAccountRemoved    = "account.removed"
)

// LedgerEvent announces a completed mutation. Consumers that need the full
// row fetch it from storage; the event carries ids only.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	AccountID int64     `json:"account_id"`
	EntryID   int64     `json:"entry_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(operation string, accountID, entryID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Operation: operation,
		AccountID: accountID,
		EntryID:   entryID,
		Timestamp: time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
