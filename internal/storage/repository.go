// Package storage implements the ledger storage port on sqlite. The schema
// is managed through embedded migrations; WithTx maps the port's unit of
// work onto a database transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cheque/internal/core"
	"cheque/internal/ledger"

	_ "modernc.org/sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every query runs
// unchanged inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteStore struct {
	db *sql.DB
	storeView
}

// storeView holds every port method except WithTx against a DBTX, shared by
// the store and its transactional view.
type storeView struct {
	q DBTX
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, storeView: storeView{q: db}}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WithTx runs fn against a view of the store backed by a single database
// transaction; any error from fn rolls everything back.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx ledger.Store) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{storeView{q: dbTx}}); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore is the in-transaction view. Nesting a unit of work inside one
// reuses the same transaction.
type txStore struct {
	storeView
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx ledger.Store) error) error {
	return fn(t)
}

func (v storeView) SaveAccount(ctx context.Context, rec ledger.AccountRecord) (int64, error) {
	if rec.ID == 0 {
		res, err := v.q.ExecContext(ctx,
			`INSERT INTO accounts (name, balance, type, notes) VALUES (?, ?, ?, ?)`,
			rec.Name, rec.Balance, rec.Type, rec.Notes)
		if err != nil {
			return 0, fmt.Errorf("insert account: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("account insert id: %w", err)
		}
		return id, nil
	}
	_, err := v.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, balance = ?, type = ?, notes = ? WHERE id = ?`,
		rec.Name, rec.Balance, rec.Type, rec.Notes, rec.ID)
	if err != nil {
		return 0, fmt.Errorf("update account: %w", err)
	}
	return rec.ID, nil
}

func (v storeView) Accounts(ctx context.Context) ([]ledger.AccountRecord, error) {
	rows, err := v.q.QueryContext(ctx,
		`SELECT id, name, balance, type, notes FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.AccountRecord
	for rows.Next() {
		var rec ledger.AccountRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Balance, &rec.Type, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (v storeView) FindAccountByName(ctx context.Context, name string) (ledger.AccountRecord, bool, error) {
	var rec ledger.AccountRecord
	err := v.q.QueryRowContext(ctx,
		`SELECT id, name, balance, type, notes FROM accounts WHERE name = ?`, name).
		Scan(&rec.ID, &rec.Name, &rec.Balance, &rec.Type, &rec.Notes)
	if err == sql.ErrNoRows {
		return ledger.AccountRecord{}, false, nil
	}
	if err != nil {
		return ledger.AccountRecord{}, false, fmt.Errorf("select account by name: %w", err)
	}
	return rec, true, nil
}

func (v storeView) DeleteAccount(ctx context.Context, id int64) error {
	if _, err := v.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

const entryColumns = `id, account_id, kind, category, subject, amount, date,
	memo, transfer_account_id, transfer_entry_id, cleared, check_number`

func (v storeView) SaveEntry(ctx context.Context, e core.Entry) (int64, error) {
	if e.ID == 0 {
		res, err := v.q.ExecContext(ctx,
			`INSERT INTO entries (account_id, kind, category, subject, amount, date,
				memo, transfer_account_id, transfer_entry_id, cleared, check_number)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.AccountID, string(e.Kind), e.Category, e.Subject, e.Amount.Cents,
			e.Date.UnixMilli(), e.Memo, e.TransferAccountID, e.TransferEntryID,
			boolToInt(e.Cleared), e.CheckNumber)
		if err != nil {
			return 0, fmt.Errorf("insert entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("entry insert id: %w", err)
		}
		return id, nil
	}
	_, err := v.q.ExecContext(ctx,
		`UPDATE entries SET account_id = ?, kind = ?, category = ?, subject = ?,
			amount = ?, date = ?, memo = ?, transfer_account_id = ?,
			transfer_entry_id = ?, cleared = ?, check_number = ?
		 WHERE id = ?`,
		e.AccountID, string(e.Kind), e.Category, e.Subject, e.Amount.Cents,
		e.Date.UnixMilli(), e.Memo, e.TransferAccountID, e.TransferEntryID,
		boolToInt(e.Cleared), e.CheckNumber, e.ID)
	if err != nil {
		return 0, fmt.Errorf("update entry: %w", err)
	}
	return e.ID, nil
}

func (v storeView) EntriesByAccount(ctx context.Context, accountID int64) ([]core.Entry, error) {
	rows, err := v.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE account_id = ? ORDER BY date, id`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (v storeView) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := v.q.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (v storeView) DeleteEntriesByAccount(ctx context.Context, accountID int64) error {
	if _, err := v.q.ExecContext(ctx, `DELETE FROM entries WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete entries by account: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (core.Entry, error) {
	var (
		e       core.Entry
		kind    string
		dateMS  int64
		cleared int64
	)
	err := rows.Scan(&e.ID, &e.AccountID, &kind, &e.Category, &e.Subject,
		&e.Amount.Cents, &dateMS, &e.Memo, &e.TransferAccountID,
		&e.TransferEntryID, &cleared, &e.CheckNumber)
	if err != nil {
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Kind = core.Kind(kind)
	e.Date = time.UnixMilli(dateMS)
	e.Cleared = cleared != 0
	return e, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

var (
	_ ledger.Store = (*SQLiteStore)(nil)
	_ ledger.Store = (*txStore)(nil)
)
