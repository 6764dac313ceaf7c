// Package services orchestrates ledger operations with the event stream:
// every successful mutation is announced on AMQP after it is durable, and a
// publish failure never fails the operation itself.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"cheque/internal/amqp"
	"cheque/internal/core"
	"cheque/internal/ledger"
)

// EventPublisher is satisfied by the AMQP client. A nil publisher disables
// events without changing ledger behavior.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	Close() error
}

type LedgerService struct {
	book   *ledger.Checkbook
	events EventPublisher
}

func NewLedgerService(book *ledger.Checkbook, events EventPublisher) *LedgerService {
	return &LedgerService{book: book, events: events}
}

func (s *LedgerService) Checkbook() *ledger.Checkbook { return s.book }

// AddOrAccessAccount creates or returns the named account and announces a
// creation event only when the account was not already registered.
func (s *LedgerService) AddOrAccessAccount(ctx context.Context, opts ledger.AccountOptions) (*ledger.Account, error) {
	existing := s.book.GetAccount(opts.Name)
	acct, err := s.book.AddOrAccessAccount(ctx, opts)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		s.publish(ctx, amqp.NewLedgerEvent(amqp.OpAccountCreated, acct.ID, 0))
	}
	return acct, nil
}

func (s *LedgerService) RemoveAccount(ctx context.Context, name string) error {
	acct := s.book.GetAccount(name)
	if err := s.book.RemoveAccount(ctx, name); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.OpAccountRemoved, acct.ID, 0))
	return nil
}

// WriteEntry records a single debit or credit on the named account and
// returns the persisted entry id.
func (s *LedgerService) WriteEntry(ctx context.Context, accountName string, d core.EntryDraft) (int64, error) {
	acct := s.book.GetAccount(accountName)
	if acct == nil {
		return 0, fmt.Errorf("%w: %q", ledger.ErrUnknownAccount, accountName)
	}

	var (
		id  int64
		err error
	)
	switch d.Kind {
	case core.Debit:
		id, err = acct.Debit(ctx, d)
	case core.Credit:
		id, err = acct.Credit(ctx, d)
	case "":
		return 0, core.ErrMissingKind
	default:
		return 0, core.ErrUnknownKind
	}
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.OpEntryCreated, acct.ID, id))
	return id, nil
}

func (s *LedgerService) Transfer(ctx context.Context, sourceName, targetName string, d core.EntryDraft) error {
	source := s.book.GetAccount(sourceName)
	if source == nil {
		return fmt.Errorf("%w: %q", ledger.ErrUnknownAccount, sourceName)
	}
	if err := source.Transfer(ctx, targetName, d); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.OpTransferCompleted, source.ID, 0))
	return nil
}

func (s *LedgerService) EraseEntry(ctx context.Context, accountName string, entryID int64) error {
	acct := s.book.GetAccount(accountName)
	if acct == nil {
		return fmt.Errorf("%w: %q", ledger.ErrUnknownAccount, accountName)
	}
	if err := acct.EraseEntry(ctx, entryID); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.OpEntryErased, acct.ID, entryID))
	return nil
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		// the mutation is already durable; events are best effort
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"error", err, "operation", ev.Operation, "account_id", ev.AccountID)
	}
}

func (s *LedgerService) Close() error {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			return fmt.Errorf("close event publisher: %w", err)
		}
	}
	return nil
}
