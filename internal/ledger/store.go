package ledger

import (
	"context"

	"cheque/internal/core"
)

// Store is the durable storage port the ledger writes through. The sqlite
// and in-memory implementations both satisfy it; the ledger assumes nothing
// beyond read-after-write visibility for its own writes and the unit-of-work
// semantics documented on WithTx.
type Store interface {
	// SaveAccount inserts the record when its ID is zero, otherwise updates
	// the existing row. It returns the row id.
	SaveAccount(ctx context.Context, rec AccountRecord) (int64, error)
	Accounts(ctx context.Context) ([]AccountRecord, error)
	FindAccountByName(ctx context.Context, name string) (AccountRecord, bool, error)
	DeleteAccount(ctx context.Context, id int64) error

	// SaveEntry inserts when e.ID is zero, otherwise updates the row.
	SaveEntry(ctx context.Context, e core.Entry) (int64, error)
	// EntriesByAccount returns the account's entries ordered by date,
	// insertion order breaking ties.
	EntriesByAccount(ctx context.Context, accountID int64) ([]core.Entry, error)
	// DeleteEntry removes the row; deleting an unknown id is a no-op.
	DeleteEntry(ctx context.Context, id int64) error
	DeleteEntriesByAccount(ctx context.Context, accountID int64) error

	// WithTx runs fn against a store whose writes commit or roll back as a
	// single unit. An implementation without a native transaction primitive
	// may run fn against the receiver; the ledger compensates for partial
	// transfer writes itself, so such a port still yields all-or-nothing
	// transfers.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// AccountRecord is the persisted shape of an account row.
type AccountRecord struct {
	ID      int64
	Name    string
	Balance int64
	Type    string
	Notes   string
}
