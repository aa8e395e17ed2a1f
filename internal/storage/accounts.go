package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// Accounts is the account registry over SQLite.
type Accounts struct {
	db *sql.DB
}

func (a *Accounts) Get(ctx context.Context, id string) (core.Account, error) {
	return getAccount(ctx, a.db, id)
}

func (a *Accounts) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	return adjustBalance(ctx, a.db, id, delta)
}

func (a *Accounts) List(ctx context.Context) ([]core.Account, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, name, balance_cents FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var (
			acc   core.Account
			cents int64
		)
		if err := rows.Scan(&acc.ID, &acc.Name, &cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acc.Balance = core.FromCents(cents)
		out = append(out, acc)
	}
	return out, rows.Err()
}

// Upsert creates an account or renames it and resets its balance.
func (a *Accounts) Upsert(ctx context.Context, acc core.Account) error {
	if acc.ID == "" || acc.ID == core.MethodCash {
		return core.NewValidationError("id", fmt.Sprintf("invalid account id %q", acc.ID))
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, balance_cents) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			balance_cents = excluded.balance_cents,
			updated_at = CURRENT_TIMESTAMP`,
		acc.ID, acc.Name, core.ToCents(acc.Balance))
	if err != nil {
		return fmt.Errorf("upsert account %q: %w", acc.ID, err)
	}
	slog.InfoContext(ctx, "Account saved", "account_id", acc.ID, "balance", acc.Balance.StringFixed(2))
	return nil
}

func getAccount(ctx context.Context, q queryer, id string) (core.Account, error) {
	var (
		acc   core.Account
		cents int64
	)
	err := q.QueryRowContext(ctx, `SELECT id, name, balance_cents FROM accounts WHERE id = ?`, id).
		Scan(&acc.ID, &acc.Name, &cents)
	if err != nil {
		return core.Account{}, notFound(err, "account", id)
	}
	acc.Balance = core.FromCents(cents)
	return acc, nil
}

func adjustBalance(ctx context.Context, q queryer, id string, delta decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `
		UPDATE accounts
		SET balance_cents = balance_cents + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, core.ToCents(delta), id)
	if err != nil {
		return fmt.Errorf("adjust balance of %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance of %q: %w", id, err)
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "account", ID: id}
	}
	return nil
}
