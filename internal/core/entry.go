package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Debit  Kind = "debit"
	Credit Kind = "credit"
)

// DefaultCategory tags entries created without an explicit category.
// TransferCategory tags both sides of a transfer pair.
const (
	DefaultCategory  = "General"
	TransferCategory = "Transfer"
)

type (
	// Kind is the side of an entry. The amount is always stored non-negative;
	// the kind alone decides whether it adds to or subtracts from a balance.
	Kind string

	// Entry is one ledger line belonging to exactly one account. Once
	// persisted it is immutable except for a single TransferEntryID backfill
	// while linking the two sides of a transfer.
	Entry struct {
		ID                int64
		AccountID         int64
		Kind              Kind
		Category          string
		Subject           string
		Amount            Money
		Date              time.Time
		Memo              string
		TransferAccountID int64
		TransferEntryID   int64
		Cleared           bool
		CheckNumber       string
	}

	// EntryDraft carries the caller-supplied fields for a new entry. Zero
	// values fall back to the defaults documented on NewEntry.
	EntryDraft struct {
		Kind              Kind
		Category          string
		Subject           string
		Amount            Money
		Date              time.Time
		Memo              string
		TransferAccountID int64
		TransferEntryID   int64
		Cleared           bool
		CheckNumber       string
	}
)

var (
	ErrMissingKind    = errors.New("entry kind is required")
	ErrUnknownKind    = errors.New("unknown entry kind")
	ErrMissingSubject = errors.New("entry subject is required")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// NewEntry builds a fully populated entry for the given account from a draft.
// It is pure and must run before every persist.
//
// Defaults: Date is the current time when zero, Category is DefaultCategory
// when empty, Cleared stays false until the entry is reconciled. Kind, a
// non-empty subject and a positive amount are required.
func NewEntry(accountID int64, d EntryDraft) (Entry, error) {
	switch d.Kind {
	case Debit, Credit:
	case "":
		return Entry{}, ErrMissingKind
	default:
		return Entry{}, ErrUnknownKind
	}
	if strings.TrimSpace(d.Subject) == "" {
		return Entry{}, ErrMissingSubject
	}
	if err := d.Amount.Validate(); err != nil {
		return Entry{}, err
	}

	e := Entry{
		AccountID:         accountID,
		Kind:              d.Kind,
		Category:          d.Category,
		Subject:           strings.TrimSpace(d.Subject),
		Amount:            d.Amount,
		Date:              d.Date,
		Memo:              d.Memo,
		TransferAccountID: d.TransferAccountID,
		TransferEntryID:   d.TransferEntryID,
		Cleared:           d.Cleared,
		CheckNumber:       d.CheckNumber,
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	if e.Category == "" {
		e.Category = DefaultCategory
	}
	return e, nil
}

// Signed returns the entry amount with the sign implied by its kind: positive
// for credits, negative for debits. Entries of unrecognized kind contribute
// nothing, so a balance sum never errors on them.
func (e Entry) Signed() int64 {
	switch e.Kind {
	case Credit:
		return e.Amount.Cents
	case Debit:
		return -e.Amount.Cents
	default:
		return 0
	}
}
