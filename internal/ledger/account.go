package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cheque/internal/core"
)

const openingSubject = "Opening Balance"

// Account owns an ordered sequence of entries and a cached balance. The
// cache equals the entry-derived sum after every completed operation; it may
// diverge only while a multi-step write is in flight.
//
// Operations on one account are expected to run sequentially; the only
// suspension points are the calls into the Store.
type Account struct {
	ID      int64
	Name    string
	Type    string
	Notes   string
	Balance int64 // cached cents, derived from entries

	book    *Checkbook
	entries []core.Entry
}

// BalanceFilter restricts which entries contribute to a balance computation.
// The zero value selects every entry.
type BalanceFilter struct {
	ClearedOnly bool
	Kind        core.Kind // when set, only entries of this kind are summed
}

// ComputeBalance sums the in-memory entries: +amount for credits, -amount
// for debits. Entries of unrecognized kind are skipped, not an error.
func (a *Account) ComputeBalance(f BalanceFilter) int64 {
	var balance int64
	for _, e := range a.entries {
		if f.ClearedOnly && !e.Cleared {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		balance += e.Signed()
	}
	return balance
}

// BalanceString renders the current balance with two decimals, e.g. "-15.00".
func (a *Account) BalanceString() string {
	return core.Fixed2(a.ComputeBalance(BalanceFilter{}))
}

// Entries returns a snapshot of the in-memory entry sequence.
func (a *Account) Entries() []core.Entry {
	out := make([]core.Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// LoadEntries reads all persisted entries for this account and recomputes
// the cached balance from them.
func (a *Account) LoadEntries(ctx context.Context) error {
	rows, err := a.book.store.EntriesByAccount(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load entries for account %q: %w", a.Name, err)
	}
	a.entries = rows
	a.Balance = a.ComputeBalance(BalanceFilter{})
	return nil
}

// Debit writes a debit entry and returns its persisted id. On failure the
// in-memory sequence and balance are left untouched.
func (a *Account) Debit(ctx context.Context, d core.EntryDraft) (int64, error) {
	d.Kind = core.Debit
	return a.writeEntry(ctx, d, true)
}

// Credit writes a credit entry and returns its persisted id. On failure the
// in-memory sequence and balance are left untouched.
func (a *Account) Credit(ctx context.Context, d core.EntryDraft) (int64, error) {
	d.Kind = core.Credit
	return a.writeEntry(ctx, d, true)
}

// writeEntry validates, persists and appends one entry. reconcile controls
// whether the cached balance is re-derived and persisted afterwards; Save
// passes false for the opening entry so it does not recurse into itself.
func (a *Account) writeEntry(ctx context.Context, d core.EntryDraft, reconcile bool) (int64, error) {
	e, err := core.NewEntry(a.ID, d)
	if err != nil {
		return 0, err
	}
	id, err := a.book.store.SaveEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("write %s entry on %q: %w", e.Kind, a.Name, err)
	}
	e.ID = id
	a.insertEntry(e)
	if reconcile {
		if err := a.Save(ctx); err != nil {
			return id, err
		}
	}
	slog.DebugContext(ctx, "Entry written",
		"account", a.Name, "entry_id", id, "kind", string(e.Kind), "amount_cents", e.Amount.Cents)
	return id, nil
}

// insertEntry appends and re-sorts by date. The sort is stable so entries
// with equal dates keep their insertion order.
func (a *Account) insertEntry(e core.Entry) {
	a.entries = append(a.entries, e)
	sort.SliceStable(a.entries, func(i, j int) bool {
		return a.entries[i].Date.Before(a.entries[j].Date)
	})
}

// Save reconciles the persisted balance column with the entry-derived
// balance. An account configured with a nonzero opening balance but no
// entries gets exactly one synthesized starting entry first, so the derived
// balance matches the configured one. Calling Save twice in a row without a
// mutation in between writes no new entries and changes nothing.
func (a *Account) Save(ctx context.Context) error {
	if len(a.entries) == 0 {
		preset := a.Balance
		if err := a.LoadEntries(ctx); err != nil {
			return err
		}
		if len(a.entries) == 0 {
			a.Balance = preset
			if preset != 0 {
				d := core.EntryDraft{Subject: openingSubject}
				if preset > 0 {
					d.Kind = core.Credit
					d.Amount = core.Money{Cents: preset}
				} else {
					d.Kind = core.Debit
					d.Amount = core.Money{Cents: -preset}
				}
				if _, err := a.writeEntry(ctx, d, false); err != nil {
					return err
				}
				slog.InfoContext(ctx, "Opening balance entry synthesized",
					"account", a.Name, "balance_cents", preset)
			}
		}
	}
	a.Balance = a.ComputeBalance(BalanceFilter{})
	if _, err := a.book.store.SaveAccount(ctx, a.record()); err != nil {
		return fmt.Errorf("save account %q: %w", a.Name, err)
	}
	return nil
}

func (a *Account) record() AccountRecord {
	return AccountRecord{ID: a.ID, Name: a.Name, Balance: a.Balance, Type: a.Type, Notes: a.Notes}
}

// Transfer moves the draft's amount from this account to the named target as
// one logical operation: a debit here and a credit there, cross-referencing
// each other through their transfer ids.
//
// The debit is durably written before the credit, and both before the
// cross-link backfill on the debit row; a reader observing storage
// mid-transfer may see a debit with no credit, never the reverse. All three
// writes run inside one unit of work, and each failure path erases the sides
// already written, so the caller always observes all-or-nothing.
func (a *Account) Transfer(ctx context.Context, targetName string, d core.EntryDraft) error {
	target := a.book.GetAccount(targetName)
	if target == nil {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, targetName)
	}
	if d.Amount.Cents <= 0 {
		return core.ErrInvalidAmount
	}
	if target == a {
		// allowed but economically inert: a linked pair on one account
		slog.WarnContext(ctx, "Transfer to the same account", "account", a.Name)
	}

	subject := d.Subject
	if subject == "" {
		subject = fmt.Sprintf("Transfer: %s to %s", a.Name, target.Name)
	}

	// Two independent payloads from a common template; nothing mutable is
	// shared between the two sides.
	template := d
	template.Subject = subject
	template.Category = core.TransferCategory

	debitDraft := template
	debitDraft.Kind = core.Debit
	debitDraft.TransferAccountID = target.ID

	creditDraft := template
	creditDraft.Kind = core.Credit
	creditDraft.TransferAccountID = a.ID

	debit, err := core.NewEntry(a.ID, debitDraft)
	if err != nil {
		return err
	}
	credit, err := core.NewEntry(target.ID, creditDraft)
	if err != nil {
		return err
	}

	err = a.book.store.WithTx(ctx, func(tx Store) error {
		debitID, err := tx.SaveEntry(ctx, debit)
		if err != nil {
			return fmt.Errorf("write transfer debit: %w", err)
		}
		debit.ID = debitID

		credit.TransferEntryID = debitID
		creditID, err := tx.SaveEntry(ctx, credit)
		if err != nil {
			// Compensate for ports without a native transaction; under a
			// real one the rollback discards this delete along with the
			// debit itself.
			if derr := tx.DeleteEntry(ctx, debitID); derr != nil {
				slog.ErrorContext(ctx, "Transfer compensation failed",
					"account", a.Name, "entry_id", debitID, "error", derr)
			}
			return fmt.Errorf("write transfer credit: %w", err)
		}
		credit.ID = creditID

		// Each side's id is only known once the other side exists, hence
		// this second write to the debit row.
		debit.TransferEntryID = creditID
		if _, err := tx.SaveEntry(ctx, debit); err != nil {
			if derr := tx.DeleteEntry(ctx, creditID); derr != nil {
				slog.ErrorContext(ctx, "Transfer compensation failed",
					"account", target.Name, "entry_id", creditID, "error", derr)
			}
			if derr := tx.DeleteEntry(ctx, debitID); derr != nil {
				slog.ErrorContext(ctx, "Transfer compensation failed",
					"account", a.Name, "entry_id", debitID, "error", derr)
			}
			return fmt.Errorf("link transfer pair: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.insertEntry(debit)
	target.insertEntry(credit)
	if err := a.Save(ctx); err != nil {
		return err
	}
	if err := target.Save(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transfer completed",
		"from", a.Name, "to", target.Name, "amount_cents", d.Amount.Cents,
		"debit_id", debit.ID, "credit_id", credit.ID)
	return nil
}

// EraseEntry deletes the entry with the given id. When the entry is one side
// of a transfer the counterpart is deleted with it, and every affected
// account's balance is re-derived from its remaining entries rather than
// adjusted arithmetically. Erasing an unknown id is a no-op.
func (a *Account) EraseEntry(ctx context.Context, entryID int64) error {
	var entry core.Entry
	found := false
	for _, e := range a.entries {
		if e.ID == entryID {
			entry, found = e, true
			break
		}
	}
	if !found {
		return nil
	}

	err := a.book.store.WithTx(ctx, func(tx Store) error {
		if err := tx.DeleteEntry(ctx, entry.ID); err != nil {
			return fmt.Errorf("erase entry %d: %w", entry.ID, err)
		}
		if entry.TransferEntryID != 0 {
			// A missing counterpart is tolerated here: DeleteEntry is a
			// no-op on unknown ids, so a half-linked pair still cleans up.
			if err := tx.DeleteEntry(ctx, entry.TransferEntryID); err != nil {
				return fmt.Errorf("erase linked entry %d: %w", entry.TransferEntryID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := a.LoadEntries(ctx); err != nil {
		return err
	}
	if err := a.Save(ctx); err != nil {
		return err
	}

	if entry.TransferEntryID != 0 {
		if other := a.book.GetAccountByID(entry.TransferAccountID); other != nil && other != a {
			if err := other.LoadEntries(ctx); err != nil {
				return err
			}
			if err := other.Save(ctx); err != nil {
				return err
			}
		}
	}

	slog.InfoContext(ctx, "Entry erased",
		"account", a.Name, "entry_id", entry.ID, "linked_entry_id", entry.TransferEntryID)
	return nil
}
