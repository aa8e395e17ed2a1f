package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"backoffice/internal/core"
	"backoffice/internal/seed"
	"backoffice/internal/sources"
)

// paymentRow is one payment joined with its parent's key and attributes.
type paymentRow struct {
	key   string
	attrA string
	attrB string
	line  sources.PaymentLine
}

// nativeHistoryQuery selects the full history of every parent with at least
// one payment in the window, ordered by parent then position.
func nativeHistoryQuery(parentTable, paymentTable, key, attrA, attrB string) string {
	return fmt.Sprintf(`
		SELECT p.%[3]s, p.%[4]s, %[5]s, x.payment_id, x.paid_at, x.amount_cents, x.method, x.category, x.remark
		FROM %[1]s p
		JOIN %[2]s x ON x.%[3]s = p.%[3]s
		WHERE p.%[3]s IN (SELECT %[3]s FROM %[2]s WHERE %[6]s)
		ORDER BY p.%[3]s, x.position`,
		parentTable, paymentTable, key, attrA, attrB, dayClause("day"))
}

var (
	billingHistory   = nativeHistoryQuery("billing_receipts", "billing_payments", "bill_no", "customer", "''")
	customerHistory  = nativeHistoryQuery("customer_accounts", "customer_payments", "customer_id", "name", "''")
	purchaseHistory  = nativeHistoryQuery("purchases", "purchase_payments", "purchase_no", "supplier", "''")
	transportHistory = nativeHistoryQuery("transport_trips", "transport_payments", "trip_id", "transporter", "p.vehicle")
)

func (r *SQLiteRepository) queryHistories(ctx context.Context, query string, window core.DateRange) ([]paymentRow, error) {
	from, to := windowArgs(window)
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []paymentRow
	for rows.Next() {
		var (
			pr        paymentRow
			paymentID sql.NullString
			paidAt    string
			cents     int64
		)
		if err := rows.Scan(&pr.key, &pr.attrA, &pr.attrB, &paymentID, &paidAt, &cents,
			&pr.line.Method, &pr.line.Category, &pr.line.Remark); err != nil {
			return nil, err
		}
		if pr.line.Date, err = parseTime(paidAt); err != nil {
			return nil, err
		}
		pr.line.ID = paymentID.String
		pr.line.Amount = core.FromCents(cents)
		out = append(out, pr)
	}
	return out, rows.Err()
}

// groupHistories folds ordered rows into one parent per key.
func groupHistories[T any](rows []paymentRow, build func(first paymentRow, lines []sources.PaymentLine) T) []T {
	var out []T
	for i := 0; i < len(rows); {
		j := i
		var lines []sources.PaymentLine
		for ; j < len(rows) && rows[j].key == rows[i].key; j++ {
			lines = append(lines, rows[j].line)
		}
		out = append(out, build(rows[i], lines))
		i = j
	}
	return out
}

func (r *SQLiteRepository) ListBillingReceipts(ctx context.Context, window core.DateRange) ([]sources.BillingReceipt, error) {
	rows, err := r.queryHistories(ctx, billingHistory, window)
	if err != nil {
		return nil, fmt.Errorf("list billing receipts: %w", err)
	}
	return groupHistories(rows, func(p paymentRow, lines []sources.PaymentLine) sources.BillingReceipt {
		return sources.BillingReceipt{BillNo: p.key, Customer: p.attrA, Payments: lines}
	}), nil
}

func (r *SQLiteRepository) ListCustomerAccounts(ctx context.Context, window core.DateRange) ([]sources.CustomerAccount, error) {
	rows, err := r.queryHistories(ctx, customerHistory, window)
	if err != nil {
		return nil, fmt.Errorf("list customer accounts: %w", err)
	}
	return groupHistories(rows, func(p paymentRow, lines []sources.PaymentLine) sources.CustomerAccount {
		return sources.CustomerAccount{CustomerID: p.key, Name: p.attrA, Payments: lines}
	}), nil
}

func (r *SQLiteRepository) ListPurchases(ctx context.Context, window core.DateRange) ([]sources.Purchase, error) {
	rows, err := r.queryHistories(ctx, purchaseHistory, window)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return groupHistories(rows, func(p paymentRow, lines []sources.PaymentLine) sources.Purchase {
		return sources.Purchase{PurchaseNo: p.key, Supplier: p.attrA, Payments: lines}
	}), nil
}

func (r *SQLiteRepository) ListTransportTrips(ctx context.Context, window core.DateRange) ([]sources.TransportTrip, error) {
	rows, err := r.queryHistories(ctx, transportHistory, window)
	if err != nil {
		return nil, fmt.Errorf("list transport trips: %w", err)
	}
	return groupHistories(rows, func(p paymentRow, lines []sources.PaymentLine) sources.TransportTrip {
		return sources.TransportTrip{TripID: p.key, Transporter: p.attrA, Vehicle: p.attrB, Payments: lines}
	}), nil
}

// ListExpenses keeps insertion order, which fixes the ordinal of id-less records.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, window core.DateRange) ([]sources.ExpenseRecord, error) {
	from, to := windowArgs(window)
	rows, err := r.db.QueryContext(ctx, `
		SELECT expense_id, paid_at, amount_cents, category, paid_to, method, remark
		FROM expenses
		WHERE `+dayClause("day")+`
		ORDER BY seq`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []sources.ExpenseRecord
	for rows.Next() {
		var (
			e      sources.ExpenseRecord
			id     sql.NullString
			paidAt string
			cents  int64
		)
		if err := rows.Scan(&id, &paidAt, &cents, &e.Category, &e.PaidTo, &e.Method, &e.Remark); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = parseTime(paidAt); err != nil {
			return nil, err
		}
		e.ID = id.String
		e.Amount = core.FromCents(cents)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Import loads a seed dataset in one transaction. Accounts are upserted;
// native parents are replaced along with their payment histories; manual
// entries and expenses with an existing id are skipped.
func (r *SQLiteRepository) Import(ctx context.Context, ds seed.Dataset) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, a := range ds.Accounts {
		if a.ID == "" || a.ID == core.MethodCash {
			return core.NewValidationError("id", fmt.Sprintf("invalid account id %q", a.ID))
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, balance_cents) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, balance_cents = excluded.balance_cents`,
			a.ID, a.Name, core.ToCents(a.Balance)); err != nil {
			return fmt.Errorf("import account %q: %w", a.ID, err)
		}
	}
	for _, name := range ds.Categories {
		if _, err = tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("import category %q: %w", name, err)
		}
	}
	for _, v := range ds.Manual {
		t := v.ToTransaction()
		t.Source = core.SourceManual
		if err = t.Validate(); err != nil {
			return fmt.Errorf("import manual transaction %q: %w", t.ID, err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO manual_transactions
				(id, occurred_at, day, amount_cents, type, category, method, counterparty_from, counterparty_to, remark)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			t.ID, formatTime(t.Date), formatDay(t.Date), core.ToCents(t.Amount), string(t.Type),
			t.Category, t.Method, t.CounterpartyFrom, t.CounterpartyTo, t.Remark); err != nil {
			return fmt.Errorf("import manual transaction %q: %w", t.ID, err)
		}
	}

	for _, b := range ds.Billing {
		if err = replaceParent(ctx, tx, "billing_receipts", "billing_payments", "bill_no", b.BillNo,
			[]string{"customer"}, []any{b.Customer}, b.Payments); err != nil {
			return err
		}
	}
	for _, c := range ds.Customers {
		if err = replaceParent(ctx, tx, "customer_accounts", "customer_payments", "customer_id", c.CustomerID,
			[]string{"name"}, []any{c.Name}, c.Payments); err != nil {
			return err
		}
	}
	for _, p := range ds.Purchases {
		if err = replaceParent(ctx, tx, "purchases", "purchase_payments", "purchase_no", p.PurchaseNo,
			[]string{"supplier"}, []any{p.Supplier}, p.Payments); err != nil {
			return err
		}
	}
	for _, t := range ds.Transport {
		if err = replaceParent(ctx, tx, "transport_trips", "transport_payments", "trip_id", t.TripID,
			[]string{"transporter", "vehicle"}, []any{t.Transporter, t.Vehicle}, t.Payments); err != nil {
			return err
		}
	}
	for _, e := range ds.Expenses {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO expenses (expense_id, paid_at, day, amount_cents, category, paid_to, method, remark)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(expense_id) DO NOTHING`,
			nullable(e.ID), formatTime(e.Date), formatDay(e.Date), core.ToCents(e.Amount),
			e.Category, e.PaidTo, e.Method, e.Remark); err != nil {
			return fmt.Errorf("import expense: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Dataset imported",
		"accounts", len(ds.Accounts),
		"categories", len(ds.Categories),
		"manual", len(ds.Manual),
		"billing", len(ds.Billing),
		"customers", len(ds.Customers),
		"expenses", len(ds.Expenses),
		"purchases", len(ds.Purchases),
		"transport", len(ds.Transport))
	return nil
}

func replaceParent(ctx context.Context, tx *sql.Tx, parentTable, paymentTable, key, keyValue string,
	cols []string, vals []any, payments []sources.PaymentLine) error {
	if keyValue == "" {
		return core.NewValidationError(key, "must not be empty in "+parentTable)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, paymentTable, key), keyValue); err != nil {
		return fmt.Errorf("clear %s %q: %w", paymentTable, keyValue, err)
	}

	colList := key
	placeholders := "?"
	updates := ""
	for i, c := range cols {
		colList += ", " + c
		placeholders += ", ?"
		if i > 0 {
			updates += ", "
		}
		updates += fmt.Sprintf("%s = excluded.%s", c, c)
	}
	args := append([]any{keyValue}, vals...)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s`,
		parentTable, colList, placeholders, key, updates), args...); err != nil {
		return fmt.Errorf("import %s %q: %w", parentTable, keyValue, err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, position, payment_id, paid_at, day, amount_cents, method, category, remark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, paymentTable, key)
	for i, p := range payments {
		if _, err := tx.ExecContext(ctx, insert, keyValue, i, nullable(p.ID), formatTime(p.Date), formatDay(p.Date),
			core.ToCents(p.Amount), p.Method, p.Category, p.Remark); err != nil {
			return fmt.Errorf("import %s %q payment %d: %w", paymentTable, keyValue, i, err)
		}
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
