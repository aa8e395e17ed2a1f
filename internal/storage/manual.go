package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"backoffice/internal/core"
	"backoffice/internal/ports"

	"github.com/shopspring/decimal"
)

const manualColumns = `id, occurred_at, amount_cents, type, category, method, counterparty_from, counterparty_to, remark`

// ListManual returns manual entries in insertion order.
func (r *SQLiteRepository) ListManual(ctx context.Context, window core.DateRange) ([]core.Transaction, error) {
	from, to := windowArgs(window)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+manualColumns+` FROM manual_transactions WHERE `+dayClause("day")+` ORDER BY seq`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("list manual transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanManual(rows)
		if err != nil {
			return nil, err
		}
		if window.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetManual(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanManual(r.db.QueryRowContext(ctx,
		`SELECT `+manualColumns+` FROM manual_transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManual(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		occurredAt string
		cents      int64
		typ        string
	)
	if err := row.Scan(&t.ID, &occurredAt, &cents, &typ, &t.Category, &t.Method,
		&t.CounterpartyFrom, &t.CounterpartyTo, &t.Remark); err != nil {
		return core.Transaction{}, err
	}
	date, err := parseTime(occurredAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = date
	t.Amount = core.FromCents(cents)
	t.Type = core.Direction(typ)
	t.Source = core.SourceManual
	return t, nil
}

// WithinTx runs fn inside one SQLite transaction.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(ports.LedgerTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (s *sqlTx) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return getAccount(ctx, s.tx, id)
}

func (s *sqlTx) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	return adjustBalance(ctx, s.tx, id, delta)
}

func (s *sqlTx) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO manual_transactions
			(id, occurred_at, day, amount_cents, type, category, method, counterparty_from, counterparty_to, remark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, formatTime(t.Date), formatDay(t.Date), core.ToCents(t.Amount), string(t.Type),
		t.Category, t.Method, t.CounterpartyFrom, t.CounterpartyTo, t.Remark)
	if err != nil {
		return fmt.Errorf("insert transaction %q: %w", t.ID, err)
	}
	return nil
}

func (s *sqlTx) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.tx.ExecContext(ctx, `DELETE FROM manual_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %q: %w", id, err)
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "transaction", ID: id}
	}
	return nil
}

// LocateSource reports which subsystem owns a transaction id.
func (r *SQLiteRepository) LocateSource(ctx context.Context, id string) (core.Source, bool, error) {
	lookups := []struct {
		source core.Source
		query  string
	}{
		{core.SourceManual, `SELECT 1 FROM manual_transactions WHERE id = ?`},
		{core.SourceBillingPayment, `SELECT 1 FROM billing_payments WHERE payment_id = ?`},
		{core.SourceCustomerPayment, `SELECT 1 FROM customer_payments WHERE payment_id = ?`},
		{core.SourceExpense, `SELECT 1 FROM expenses WHERE expense_id = ?`},
		{core.SourcePurchasePayment, `SELECT 1 FROM purchase_payments WHERE payment_id = ?`},
		{core.SourceTransportPayment, `SELECT 1 FROM transport_payments WHERE payment_id = ?`},
	}
	for _, l := range lookups {
		var one int
		err := r.db.QueryRowContext(ctx, l.query+` LIMIT 1`, id).Scan(&one)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("locate %q in %s: %w", id, l.source, err)
		}
		return l.source, true, nil
	}
	return "", false, nil
}

var (
	_ ports.ManualStore        = (*SQLiteRepository)(nil)
	_ ports.AccountRepository  = (*Accounts)(nil)
	_ ports.CategoryRepository = (*Categories)(nil)
)
