// Package ledger implements the checkbook's consistency engine: accounts
// with entry-derived cached balances, linked two-sided transfers and
// cascading deletions, all written through a small storage port.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

const defaultAccountType = "checking"

var (
	ErrUnknownAccount = errors.New("account does not exist")
	ErrMissingName    = errors.New("account name is required")
)

// Checkbook holds the set of accounts, keyed by name, and routes
// cross-account operations. Account names are the natural key; ids resolve
// through a linear scan since account counts stay small.
type Checkbook struct {
	store    Store
	accounts map[string]*Account
}

// AccountOptions configures a new or looked-up account.
type AccountOptions struct {
	Name    string
	Type    string // defaults to "checking"
	Balance int64  // opening balance in cents; reconciled on first Save
	Notes   string
}

// Open loads every persisted account and its entries into a new registry.
func Open(ctx context.Context, store Store) (*Checkbook, error) {
	book := &Checkbook{store: store, accounts: make(map[string]*Account)}
	recs, err := store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	for _, rec := range recs {
		acct, err := book.adopt(ctx, rec)
		if err != nil {
			return nil, err
		}
		book.accounts[acct.Name] = acct
	}
	slog.InfoContext(ctx, "Checkbook opened", "accounts", len(recs))
	return book, nil
}

// adopt builds an in-memory account from a persisted row and loads its
// entries. A row with no entries keeps its stored balance as the preset for
// the opening-balance bootstrap.
func (b *Checkbook) adopt(ctx context.Context, rec AccountRecord) (*Account, error) {
	acct := &Account{
		ID:      rec.ID,
		Name:    rec.Name,
		Type:    rec.Type,
		Notes:   rec.Notes,
		Balance: rec.Balance,
		book:    b,
	}
	if err := acct.LoadEntries(ctx); err != nil {
		return nil, err
	}
	if len(acct.entries) == 0 {
		acct.Balance = rec.Balance
	}
	return acct, nil
}

// AddOrAccessAccount returns the account with the given name, creating it if
// neither the registry nor storage has one. A row found in storage but
// missing from the registry (after a restart) is adopted rather than
// recreated. New accounts are saved immediately so a configured opening
// balance gets its synthesized entry.
func (b *Checkbook) AddOrAccessAccount(ctx context.Context, opts AccountOptions) (*Account, error) {
	if opts.Name == "" {
		return nil, ErrMissingName
	}
	if acct, ok := b.accounts[opts.Name]; ok {
		return acct, nil
	}

	rec, ok, err := b.store.FindAccountByName(ctx, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("look up account %q: %w", opts.Name, err)
	}
	if ok {
		acct, err := b.adopt(ctx, rec)
		if err != nil {
			return nil, err
		}
		b.accounts[acct.Name] = acct
		slog.InfoContext(ctx, "Account adopted from storage", "account", acct.Name, "id", acct.ID)
		return acct, nil
	}

	if opts.Type == "" {
		opts.Type = defaultAccountType
	}
	id, err := b.store.SaveAccount(ctx, AccountRecord{
		Name:    opts.Name,
		Balance: opts.Balance,
		Type:    opts.Type,
		Notes:   opts.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create account %q: %w", opts.Name, err)
	}
	acct := &Account{
		ID:      id,
		Name:    opts.Name,
		Type:    opts.Type,
		Notes:   opts.Notes,
		Balance: opts.Balance,
		book:    b,
	}
	b.accounts[acct.Name] = acct
	if err := acct.Save(ctx); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Account created",
		"account", acct.Name, "id", id, "type", acct.Type, "opening_balance_cents", opts.Balance)
	return acct, nil
}

// RemoveAccount deletes the named account: entries first, then the account
// row, then the registry mapping, so a crash never leaves entries pointing
// at a live account id.
func (b *Checkbook) RemoveAccount(ctx context.Context, name string) error {
	acct, ok := b.accounts[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, name)
	}
	if err := b.store.DeleteEntriesByAccount(ctx, acct.ID); err != nil {
		return fmt.Errorf("delete entries for account %q: %w", name, err)
	}
	if err := b.store.DeleteAccount(ctx, acct.ID); err != nil {
		return fmt.Errorf("delete account %q: %w", name, err)
	}
	delete(b.accounts, name)
	slog.InfoContext(ctx, "Account removed", "account", name, "id", acct.ID)
	return nil
}

// RemoveAccountByID removes an account by its row id.
func (b *Checkbook) RemoveAccountByID(ctx context.Context, id int64) error {
	acct := b.GetAccountByID(id)
	if acct == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownAccount, id)
	}
	return b.RemoveAccount(ctx, acct.Name)
}

// GetAccount returns the named account, or nil when the registry has none.
func (b *Checkbook) GetAccount(name string) *Account {
	return b.accounts[name]
}

// GetAccountByID scans the registry for the account with the given id.
func (b *Checkbook) GetAccountByID(id int64) *Account {
	for _, acct := range b.accounts {
		if acct.ID == id {
			return acct
		}
	}
	return nil
}

// AccountsByName returns an alphabetically sorted snapshot of the registry.
func (b *Checkbook) AccountsByName() []*Account {
	out := make([]*Account, 0, len(b.accounts))
	for _, acct := range b.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Store exposes the underlying port, mainly for callers that need to run
// their own unit of work in tests.
func (b *Checkbook) Store() Store { return b.store }
