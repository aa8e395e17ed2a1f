// Package memory is an in-process ledger backend for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"backoffice/internal/core"
	"backoffice/internal/ports"
	"backoffice/internal/seed"
	"backoffice/internal/sources"

	"github.com/shopspring/decimal"
)

// Store keeps accounts, categories, manual entries and the native records of
// the other subsystems. Zero value is not usable; use New or NewFromDataset.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]core.Account
	accountOrder []string
	categories   []core.Category
	categorySet  map[string]struct{}
	manual       map[string]core.Transaction
	manualOrder  []string

	billing   []sources.BillingReceipt
	customers []sources.CustomerAccount
	expenses  []sources.ExpenseRecord
	purchases []sources.Purchase
	transport []sources.TransportTrip
}

func New() *Store {
	return &Store{
		accounts:    make(map[string]core.Account),
		categorySet: make(map[string]struct{}),
		manual:      make(map[string]core.Transaction),
	}
}

// NewFromDataset seeds a store. Manual entries are taken as already applied
// to the seeded balances.
func NewFromDataset(ds seed.Dataset) (*Store, error) {
	s := New()
	for _, a := range ds.Accounts {
		if a.ID == "" || a.ID == core.MethodCash {
			return nil, fmt.Errorf("seed account: invalid id %q", a.ID)
		}
		if _, dup := s.accounts[a.ID]; dup {
			return nil, fmt.Errorf("seed account: duplicate id %q", a.ID)
		}
		s.accounts[a.ID] = core.Account{ID: a.ID, Name: a.Name, Balance: a.Balance}
		s.accountOrder = append(s.accountOrder, a.ID)
	}
	for _, name := range ds.Categories {
		s.addCategory(name)
	}
	for _, v := range ds.Manual {
		t := v.ToTransaction()
		t.Source = core.SourceManual
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("seed manual transaction %q: %w", t.ID, err)
		}
		if _, dup := s.manual[t.ID]; dup {
			return nil, fmt.Errorf("seed manual transaction: duplicate id %q", t.ID)
		}
		s.manual[t.ID] = t
		s.manualOrder = append(s.manualOrder, t.ID)
	}
	s.billing = slices.Clone(ds.Billing)
	s.customers = slices.Clone(ds.Customers)
	s.expenses = slices.Clone(ds.Expenses)
	s.purchases = slices.Clone(ds.Purchases)
	s.transport = slices.Clone(ds.Transport)
	return s, nil
}

// NewFromDir seeds a store from a seed directory.
func NewFromDir(dir string) (*Store, error) {
	ds, err := seed.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return NewFromDataset(ds)
}

func (s *Store) Accounts() *Accounts     { return &Accounts{s: s} }
func (s *Store) Categories() *Categories { return &Categories{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) addCategory(name string) (core.Category, bool) {
	if _, ok := s.categorySet[name]; ok {
		return core.Category{Name: name}, false
	}
	s.categorySet[name] = struct{}{}
	c := core.Category{Name: name}
	s.categories = append(s.categories, c)
	return c, true
}

// Accounts is the account registry view of a Store.
type Accounts struct{ s *Store }

func (a *Accounts) Get(_ context.Context, id string) (core.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	acc, ok := a.s.accounts[id]
	if !ok {
		return core.Account{}, &core.NotFoundError{Kind: "account", ID: id}
	}
	return acc, nil
}

func (a *Accounts) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	return a.s.WithinTx(ctx, func(tx ports.LedgerTx) error {
		return tx.AdjustBalance(ctx, id, delta)
	})
}

func (a *Accounts) List(context.Context) ([]core.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := make([]core.Account, 0, len(a.s.accountOrder))
	for _, id := range a.s.accountOrder {
		out = append(out, a.s.accounts[id])
	}
	return out, nil
}

// Categories is the taxonomy view of a Store.
type Categories struct{ s *Store }

func (c *Categories) List(context.Context) ([]core.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return slices.Clone(c.s.categories), nil
}

// Create is an upsert: an existing name is returned unchanged.
func (c *Categories) Create(_ context.Context, name string) (core.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cat, _ := c.s.addCategory(name)
	return cat, nil
}

func (c *Categories) Exists(_ context.Context, name string) (bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	_, ok := c.s.categorySet[name]
	return ok, nil
}

// ListManual returns manual entries in insertion order.
func (s *Store) ListManual(_ context.Context, window core.DateRange) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, id := range s.manualOrder {
		if t := s.manual[id]; window.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) GetManual(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.manual[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Kind: "transaction", ID: id}
	}
	return t, nil
}

// WithinTx stages every change on copies and publishes them only when fn
// succeeds. Writers are serialized; readers see the pre-write state until then.
func (s *Store) WithinTx(ctx context.Context, fn func(ports.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		accounts:    maps.Clone(s.accounts),
		manual:      maps.Clone(s.manual),
		manualOrder: slices.Clone(s.manualOrder),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.accounts = tx.accounts
	s.manual = tx.manual
	s.manualOrder = tx.manualOrder
	return nil
}

type memTx struct {
	accounts    map[string]core.Account
	manual      map[string]core.Transaction
	manualOrder []string
}

func (tx *memTx) GetAccount(_ context.Context, id string) (core.Account, error) {
	acc, ok := tx.accounts[id]
	if !ok {
		return core.Account{}, &core.NotFoundError{Kind: "account", ID: id}
	}
	return acc, nil
}

func (tx *memTx) AdjustBalance(_ context.Context, id string, delta decimal.Decimal) error {
	acc, ok := tx.accounts[id]
	if !ok {
		return &core.NotFoundError{Kind: "account", ID: id}
	}
	acc.Balance = acc.Balance.Add(delta)
	tx.accounts[id] = acc
	return nil
}

func (tx *memTx) InsertTransaction(_ context.Context, t core.Transaction) error {
	if _, dup := tx.manual[t.ID]; dup {
		return fmt.Errorf("transaction %q already exists", t.ID)
	}
	tx.manual[t.ID] = t
	tx.manualOrder = append(tx.manualOrder, t.ID)
	return nil
}

func (tx *memTx) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := tx.manual[id]; !ok {
		return &core.NotFoundError{Kind: "transaction", ID: id}
	}
	delete(tx.manual, id)
	tx.manualOrder = slices.DeleteFunc(tx.manualOrder, func(v string) bool { return v == id })
	return nil
}

// LocateSource reports which subsystem owns id.
func (s *Store) LocateSource(_ context.Context, id string) (core.Source, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.manual[id]; ok {
		return core.SourceManual, true, nil
	}
	for _, r := range s.billing {
		if hasPayment(r.Payments, id) {
			return core.SourceBillingPayment, true, nil
		}
	}
	for _, c := range s.customers {
		if hasPayment(c.Payments, id) {
			return core.SourceCustomerPayment, true, nil
		}
	}
	for _, e := range s.expenses {
		if e.ID == id {
			return core.SourceExpense, true, nil
		}
	}
	for _, p := range s.purchases {
		if hasPayment(p.Payments, id) {
			return core.SourcePurchasePayment, true, nil
		}
	}
	for _, t := range s.transport {
		if hasPayment(t.Payments, id) {
			return core.SourceTransportPayment, true, nil
		}
	}
	return "", false, nil
}

func hasPayment(lines []sources.PaymentLine, id string) bool {
	return slices.ContainsFunc(lines, func(l sources.PaymentLine) bool { return l.ID == id })
}

var (
	_ ports.ManualStore        = (*Store)(nil)
	_ ports.AccountRepository  = (*Accounts)(nil)
	_ ports.CategoryRepository = (*Categories)(nil)
	_ sources.NativeReaders    = (*Store)(nil)
)
