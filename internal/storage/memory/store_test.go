package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cheque/internal/core"
	"cheque/internal/ledger"
)

func TestSaveAccountAssignsIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.SaveAccount(ctx, ledger.AccountRecord{Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.SaveAccount(ctx, ledger.AccountRecord{Name: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 || id1 == 0 {
		t.Fatalf("ids %d %d not distinct and nonzero", id1, id2)
	}

	if _, err := s.SaveAccount(ctx, ledger.AccountRecord{Name: "A"}); err == nil {
		t.Fatalf("duplicate name must be rejected")
	}
}

func TestEntriesOrderedByDateThenID(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	for _, e := range []core.Entry{
		{AccountID: 1, Kind: core.Credit, Subject: "late", Amount: core.Money{Cents: 1}, Date: day.AddDate(0, 0, 2)},
		{AccountID: 1, Kind: core.Credit, Subject: "a", Amount: core.Money{Cents: 1}, Date: day},
		{AccountID: 1, Kind: core.Credit, Subject: "b", Amount: core.Money{Cents: 1}, Date: day},
		{AccountID: 2, Kind: core.Credit, Subject: "other", Amount: core.Money{Cents: 1}, Date: day},
	} {
		if _, err := s.SaveEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.EntriesByAccount(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	if got[0].Subject != "a" || got[1].Subject != "b" || got[2].Subject != "late" {
		t.Fatalf("order: %q %q %q", got[0].Subject, got[1].Subject, got[2].Subject)
	}
}

func TestDeleteEntryNoOpOnUnknown(t *testing.T) {
	s := New()
	if err := s.DeleteEntry(context.Background(), 12345); err != nil {
		t.Fatalf("delete unknown id: %v", err)
	}
}

func TestUpdateUnknownEntryFails(t *testing.T) {
	s := New()
	_, err := s.SaveEntry(context.Background(), core.Entry{ID: 9, AccountID: 1, Kind: core.Debit, Subject: "x", Amount: core.Money{Cents: 1}})
	if err == nil {
		t.Fatalf("updating a missing row must fail")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	if _, err := s.SaveEntry(ctx, core.Entry{AccountID: 1, Kind: core.Credit, Subject: "keep", Amount: core.Money{Cents: 1}, Date: time.Now()}); err != nil {
		t.Fatal(err)
	}

	err := s.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.SaveEntry(ctx, core.Entry{AccountID: 1, Kind: core.Credit, Subject: "discard", Amount: core.Money{Cents: 1}, Date: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := s.EntriesByAccount(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Subject != "keep" {
		t.Fatalf("rollback failed, entries = %+v", got)
	}
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx ledger.Store) error {
		_, err := tx.SaveEntry(ctx, core.Entry{AccountID: 1, Kind: core.Credit, Subject: "kept", Amount: core.Money{Cents: 1}, Date: time.Now()})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.EntriesByAccount(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
}
