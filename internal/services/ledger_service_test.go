package services

import (
	"context"
	"errors"
	"testing"

	"cheque/internal/amqp"
	"cheque/internal/core"
	"cheque/internal/ledger"
	"cheque/internal/storage/memory"
)

// capturePublisher records every event instead of talking to a broker.
type capturePublisher struct {
	events []*amqp.LedgerEvent
	err    error
	closed bool
}

func (p *capturePublisher) PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error {
	p.closed = true
	return nil
}

func newService(t *testing.T) (*LedgerService, *capturePublisher) {
	t.Helper()
	book, err := ledger.Open(context.Background(), memory.New())
	if err != nil {
		t.Fatalf("open checkbook: %v", err)
	}
	pub := &capturePublisher{}
	return NewLedgerService(book, pub), pub
}

func lastEvent(t *testing.T, pub *capturePublisher) *amqp.LedgerEvent {
	t.Helper()
	if len(pub.events) == 0 {
		t.Fatal("no event published")
	}
	return pub.events[len(pub.events)-1]
}

func TestAddOrAccessAccountPublishesOnce(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	acct, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"})
	if err != nil {
		t.Fatal(err)
	}
	ev := lastEvent(t, pub)
	if ev.Operation != amqp.OpAccountCreated || ev.AccountID != acct.ID {
		t.Fatalf("event = %+v", ev)
	}

	// accessing the existing account is not a creation
	if _, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"}); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
}

func TestWriteEntry(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	acct, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"})
	if err != nil {
		t.Fatal(err)
	}

	id, err := svc.WriteEntry(ctx, "Checking", core.EntryDraft{
		Kind: core.Credit, Subject: "Deposit", Amount: core.Money{Cents: 1000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected nonzero entry id")
	}
	ev := lastEvent(t, pub)
	if ev.Operation != amqp.OpEntryCreated || ev.AccountID != acct.ID || ev.EntryID != id {
		t.Fatalf("event = %+v", ev)
	}
	if acct.Balance != 1000 {
		t.Fatalf("balance = %d, want 1000", acct.Balance)
	}
}

func TestWriteEntryKindValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"}); err != nil {
		t.Fatal(err)
	}

	draft := core.EntryDraft{Subject: "x", Amount: core.Money{Cents: 100}}
	if _, err := svc.WriteEntry(ctx, "Checking", draft); !errors.Is(err, core.ErrMissingKind) {
		t.Fatalf("expected ErrMissingKind, got %v", err)
	}
	draft.Kind = "withdrawal"
	if _, err := svc.WriteEntry(ctx, "Checking", draft); !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestWriteEntryUnknownAccount(t *testing.T) {
	svc, pub := newService(t)
	_, err := svc.WriteEntry(context.Background(), "Nope", core.EntryDraft{
		Kind: core.Debit, Subject: "x", Amount: core.Money{Cents: 100},
	})
	if !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed operation must not publish, got %d events", len(pub.events))
	}
}

func TestTransferPublishes(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	src, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking", Balance: 5000})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Savings"}); err != nil {
		t.Fatal(err)
	}

	if err := svc.Transfer(ctx, "Checking", "Savings", core.EntryDraft{Amount: core.Money{Cents: 1500}}); err != nil {
		t.Fatal(err)
	}
	ev := lastEvent(t, pub)
	if ev.Operation != amqp.OpTransferCompleted || ev.AccountID != src.ID {
		t.Fatalf("event = %+v", ev)
	}

	if err := svc.Transfer(ctx, "Nope", "Savings", core.EntryDraft{Amount: core.Money{Cents: 1}}); !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestEraseEntryPublishes(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	acct, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"})
	if err != nil {
		t.Fatal(err)
	}
	id, err := svc.WriteEntry(ctx, "Checking", core.EntryDraft{
		Kind: core.Credit, Subject: "Deposit", Amount: core.Money{Cents: 1000},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.EraseEntry(ctx, "Checking", id); err != nil {
		t.Fatal(err)
	}
	ev := lastEvent(t, pub)
	if ev.Operation != amqp.OpEntryErased || ev.AccountID != acct.ID || ev.EntryID != id {
		t.Fatalf("event = %+v", ev)
	}
}

func TestRemoveAccountPublishes(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	acct, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveAccount(ctx, "Checking"); err != nil {
		t.Fatal(err)
	}
	ev := lastEvent(t, pub)
	if ev.Operation != amqp.OpAccountRemoved || ev.AccountID != acct.ID {
		t.Fatalf("event = %+v", ev)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	svc, pub := newService(t)
	pub.err = errors.New("broker down")
	ctx := context.Background()

	if _, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"}); err != nil {
		t.Fatalf("operation must survive publish failure, got %v", err)
	}
	if _, err := svc.WriteEntry(ctx, "Checking", core.EntryDraft{
		Kind: core.Credit, Subject: "Deposit", Amount: core.Money{Cents: 100},
	}); err != nil {
		t.Fatalf("operation must survive publish failure, got %v", err)
	}
}

func TestNilPublisher(t *testing.T) {
	book, err := ledger.Open(context.Background(), memory.New())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewLedgerService(book, nil)
	ctx := context.Background()

	if _, err := svc.AddOrAccessAccount(ctx, ledger.AccountOptions{Name: "Checking"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.WriteEntry(ctx, "Checking", core.EntryDraft{
		Kind: core.Debit, Subject: "Rent", Amount: core.Money{Cents: 900},
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close with nil publisher: %v", err)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	svc, pub := newService(t)
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	if !pub.closed {
		t.Fatal("publisher not closed")
	}
}
