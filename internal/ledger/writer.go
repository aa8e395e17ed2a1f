package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTransferCategory labels transfers recorded without a category.
const DefaultTransferCategory = "Transfer"

// SourceLocator is optionally implemented by stores that can tell which
// subsystem owns an id. The writer uses it to reject deletes of foreign rows.
type SourceLocator interface {
	LocateSource(ctx context.Context, id string) (core.Source, bool, error)
}

// Writer records and deletes manual entries, keeping account balances in the
// same unit of work as the entry itself.
type Writer struct {
	store          ports.ManualStore
	accounts       ports.AccountRepository
	taxonomy       *Taxonomy
	locks          *accountLocks
	allowOverdraft bool
	now            func() time.Time
	newID          func() string
}

type WriterOption func(*Writer)

// WithOverdraft controls whether a write may drive an account below zero.
func WithOverdraft(allowed bool) WriterOption {
	return func(w *Writer) { w.allowOverdraft = allowed }
}

func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

func WithIDGenerator(newID func() string) WriterOption {
	return func(w *Writer) { w.newID = newID }
}

func NewWriter(store ports.ManualStore, accounts ports.AccountRepository, taxonomy *Taxonomy, opts ...WriterOption) *Writer {
	w := &Writer{
		store:          store,
		accounts:       accounts,
		taxonomy:       taxonomy,
		locks:          newAccountLocks(),
		allowOverdraft: true,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// balanceEffect is one account delta caused by a transaction.
type balanceEffect struct {
	accountID string
	delta     decimal.Decimal
}

func effectsOf(t core.Transaction) []balanceEffect {
	var effects []balanceEffect
	switch t.Type {
	case core.In:
		if core.UsesAccount(t.Method) {
			effects = append(effects, balanceEffect{t.Method, t.Amount})
		}
	case core.Out:
		if core.UsesAccount(t.Method) {
			effects = append(effects, balanceEffect{t.Method, t.Amount.Neg()})
		}
	case core.Transfer:
		if core.UsesAccount(t.CounterpartyFrom) {
			effects = append(effects, balanceEffect{t.CounterpartyFrom, t.Amount.Neg()})
		}
		if core.UsesAccount(t.CounterpartyTo) {
			effects = append(effects, balanceEffect{t.CounterpartyTo, t.Amount})
		}
	}
	return effects
}

func reversed(effects []balanceEffect) []balanceEffect {
	out := make([]balanceEffect, len(effects))
	for i, e := range effects {
		out[i] = balanceEffect{e.accountID, e.delta.Neg()}
	}
	return out
}

// RecordPayment appends a manual payment-in or payment-out.
func (w *Writer) RecordPayment(ctx context.Context, direction core.Direction, entry core.PaymentEntry) (core.Transaction, error) {
	if err := entry.Validate(direction); err != nil {
		return core.Transaction{}, err
	}
	method := strings.TrimSpace(entry.Method)
	if err := w.resolveAccount(ctx, "method", method); err != nil {
		return core.Transaction{}, err
	}

	t, err := w.commit(ctx, core.Transaction{
		ID:               w.newID(),
		Date:             w.dateOr(entry.Date),
		Amount:           entry.Amount,
		Type:             direction,
		Source:           core.SourceManual,
		Method:           method,
		CounterpartyFrom: strings.TrimSpace(entry.CounterpartyFrom),
		CounterpartyTo:   strings.TrimSpace(entry.CounterpartyTo),
		Remark:           strings.TrimSpace(entry.Remark),
	}, entry.Category)
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Payment recorded",
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"method", t.Method,
		"category", t.Category)
	return t, nil
}

// RecordTransfer debits the source and credits the destination atomically.
func (w *Writer) RecordTransfer(ctx context.Context, entry core.TransferEntry) (core.Transaction, error) {
	if err := entry.Validate(); err != nil {
		return core.Transaction{}, err
	}
	from := strings.TrimSpace(entry.CounterpartyFrom)
	to := strings.TrimSpace(entry.CounterpartyTo)
	if err := w.resolveAccount(ctx, "counterpartyFrom", from); err != nil {
		return core.Transaction{}, err
	}
	if err := w.resolveAccount(ctx, "counterpartyTo", to); err != nil {
		return core.Transaction{}, err
	}
	name := strings.TrimSpace(entry.Category)
	if name == "" {
		name = DefaultTransferCategory
	}

	t, err := w.commit(ctx, core.Transaction{
		ID:               w.newID(),
		Date:             w.dateOr(entry.Date),
		Amount:           entry.Amount,
		Type:             core.Transfer,
		Source:           core.SourceManual,
		Method:           from,
		CounterpartyFrom: from,
		CounterpartyTo:   to,
		Remark:           strings.TrimSpace(entry.Remark),
	}, name)
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transfer recorded",
		"id", t.ID,
		"from", from,
		"to", to,
		"amount", t.Amount.String())
	return t, nil
}

// DeleteManualTransaction removes a manual entry and reverses its balance
// effects. Ids owned by other sources are rejected.
func (w *Writer) DeleteManualTransaction(ctx context.Context, id string) (core.Transaction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Transaction{}, core.NewValidationError("id", "must not be empty")
	}
	t, err := w.store.GetManual(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, w.foreignOrMissing(ctx, id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction %q: %w", id, err)
	}
	if !t.IsManual() {
		return core.Transaction{}, &core.NotFoundError{Kind: "transaction", ID: id, Err: core.ErrNotManual}
	}

	effects := reversed(effectsOf(t))
	unlock := w.lockEffects(effects)
	defer unlock()

	err = w.store.WithinTx(ctx, func(tx ports.LedgerTx) error {
		if err := w.checkOverdraft(ctx, tx.GetAccount, effects); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction %q: %w", id, err)
		}
		return applyEffects(ctx, tx, effects)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Manual transaction deleted", "id", id, "type", t.Type, "amount", t.Amount.String())
	return t, nil
}

// CreateCategory returns the existing category when name is already known.
func (w *Writer) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	return w.taxonomy.CreateCategory(ctx, name)
}

// commit runs Persisted then BalancesUpdated inside one unit of work.
// The category is ensured only once the write is known to be acceptable,
// so a rejected entry leaves the taxonomy untouched.
func (w *Writer) commit(ctx context.Context, t core.Transaction, category string) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	effects := effectsOf(t)
	unlock := w.lockEffects(effects)
	defer unlock()

	if err := w.checkOverdraft(ctx, w.accounts.Get, effects); err != nil {
		return core.Transaction{}, err
	}
	cat, _, err := w.taxonomy.Ensure(ctx, category)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Category = cat.Name

	err = w.store.WithinTx(ctx, func(tx ports.LedgerTx) error {
		if err := w.checkOverdraft(ctx, tx.GetAccount, effects); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("persist transaction: %w", err)
		}
		return applyEffects(ctx, tx, effects)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func applyEffects(ctx context.Context, tx ports.LedgerTx, effects []balanceEffect) error {
	for _, e := range effects {
		if err := tx.AdjustBalance(ctx, e.accountID, e.delta); err != nil {
			return &core.BalanceUpdateFailure{AccountID: e.accountID, Err: err}
		}
	}
	return nil
}

// accountReader loads an account either through the repository or the open
// unit of work.
type accountReader func(ctx context.Context, id string) (core.Account, error)

func (w *Writer) checkOverdraft(ctx context.Context, get accountReader, effects []balanceEffect) error {
	if w.allowOverdraft {
		return nil
	}
	for _, e := range effects {
		if !e.delta.IsNegative() {
			continue
		}
		acc, err := get(ctx, e.accountID)
		if err != nil {
			return &core.BalanceUpdateFailure{AccountID: e.accountID, Err: err}
		}
		if acc.Balance.Add(e.delta).IsNegative() {
			return &core.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("exceeds balance %s of account %s", acc.Balance.StringFixed(2), acc.ID),
				Err:     core.ErrInsufficientFunds,
			}
		}
	}
	return nil
}

func (w *Writer) lockEffects(effects []balanceEffect) func() {
	ids := make([]string, len(effects))
	for i, e := range effects {
		ids[i] = e.accountID
	}
	return w.locks.lock(ids...)
}

// resolveAccount accepts "cash" or an existing account id.
func (w *Writer) resolveAccount(ctx context.Context, field, id string) error {
	if !core.UsesAccount(id) {
		return nil
	}
	if _, err := w.accounts.Get(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return &core.ValidationError{Field: field, Message: fmt.Sprintf("unknown account %q", id), Err: err}
		}
		return fmt.Errorf("resolve account %q: %w", id, err)
	}
	return nil
}

func (w *Writer) foreignOrMissing(ctx context.Context, id string) error {
	if parts, ok := core.ParseDerivedID(id); ok && parts.Source != core.SourceManual {
		return &core.NotFoundError{Kind: "transaction", ID: id, Err: core.ErrNotManual}
	}
	if loc, ok := w.store.(SourceLocator); ok {
		src, found, err := loc.LocateSource(ctx, id)
		if err != nil {
			return fmt.Errorf("locate transaction %q: %w", id, err)
		}
		if found && src != core.SourceManual {
			return &core.NotFoundError{Kind: "transaction", ID: id, Err: core.ErrNotManual}
		}
	}
	return &core.NotFoundError{Kind: "transaction", ID: id}
}

func (w *Writer) dateOr(d time.Time) time.Time {
	if d.IsZero() {
		return w.now()
	}
	return d
}
