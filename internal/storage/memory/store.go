// Package memory provides an in-memory implementation of the ledger storage
// port. It backs the memory data backend and the ledger test suite; WithTx
// rolls back through a full snapshot, so transactional behavior matches the
// sqlite store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cheque/internal/core"
	"cheque/internal/ledger"
)

type Store struct {
	mu            sync.Mutex
	accounts      map[int64]ledger.AccountRecord
	entries       map[int64]core.Entry
	nextAccountID int64
	nextEntryID   int64
}

func New() *Store {
	return &Store{
		accounts:      make(map[int64]ledger.AccountRecord),
		entries:       make(map[int64]core.Entry),
		nextAccountID: 1,
		nextEntryID:   1,
	}
}

func (s *Store) SaveAccount(ctx context.Context, rec ledger.AccountRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == 0 {
		for _, other := range s.accounts {
			if other.Name == rec.Name {
				return 0, fmt.Errorf("account name %q already exists", rec.Name)
			}
		}
		rec.ID = s.nextAccountID
		s.nextAccountID++
	} else if _, ok := s.accounts[rec.ID]; !ok {
		return 0, fmt.Errorf("account %d does not exist", rec.ID)
	}
	s.accounts[rec.ID] = rec
	return rec.ID, nil
}

func (s *Store) Accounts(ctx context.Context) ([]ledger.AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.AccountRecord, 0, len(s.accounts))
	for _, rec := range s.accounts {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindAccountByName(ctx context.Context, name string) (ledger.AccountRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.accounts {
		if rec.Name == name {
			return rec, true, nil
		}
	}
	return ledger.AccountRecord{}, false, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}

func (s *Store) SaveEntry(ctx context.Context, e core.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.nextEntryID
		s.nextEntryID++
	} else if _, ok := s.entries[e.ID]; !ok {
		return 0, fmt.Errorf("entry %d does not exist", e.ID)
	}
	s.entries[e.ID] = e
	return e.ID, nil
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID int64) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Entry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	// date order, ids breaking ties the way insertion order would
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *Store) DeleteEntriesByAccount(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.AccountID == accountID {
			delete(s.entries, id)
		}
	}
	return nil
}

// WithTx snapshots both tables, runs fn against the store itself and
// restores the snapshot when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Store) error) error {
	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	accounts      map[int64]ledger.AccountRecord
	entries       map[int64]core.Entry
	nextAccountID int64
	nextEntryID   int64
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		accounts:      make(map[int64]ledger.AccountRecord, len(s.accounts)),
		entries:       make(map[int64]core.Entry, len(s.entries)),
		nextAccountID: s.nextAccountID,
		nextEntryID:   s.nextEntryID,
	}
	for id, rec := range s.accounts {
		snap.accounts[id] = rec
	}
	for id, e := range s.entries {
		snap.entries[id] = e
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.entries = snap.entries
	s.nextAccountID = snap.nextAccountID
	s.nextEntryID = snap.nextEntryID
}

var _ ledger.Store = (*Store)(nil)
