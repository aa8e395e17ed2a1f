package ledger

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/ports"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory ManualStore and AccountRepository with failure
// injection.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]core.Account
	manual   map[string]core.Transaction
	foreign  map[string]core.Source

	failAdjust string // account id whose AdjustBalance fails
}

func newFakeStore(accounts ...core.Account) *fakeStore {
	s := &fakeStore{
		accounts: make(map[string]core.Account),
		manual:   make(map[string]core.Transaction),
		foreign:  make(map[string]core.Source),
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, &core.NotFoundError{Kind: "account", ID: id}
	}
	return a, nil
}

func (s *fakeStore) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	return s.WithinTx(ctx, func(tx ports.LedgerTx) error { return tx.AdjustBalance(ctx, id, delta) })
}

func (s *fakeStore) List(context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.accounts)), nil
}

func (s *fakeStore) balance(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func (s *fakeStore) ListManual(_ context.Context, window core.DateRange) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.manual {
		if window.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) GetManual(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.manual[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Kind: "transaction", ID: id}
	}
	return t, nil
}

func (s *fakeStore) LocateSource(_ context.Context, id string) (core.Source, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manual[id]; ok {
		return core.SourceManual, true, nil
	}
	src, ok := s.foreign[id]
	return src, ok, nil
}

// WithinTx stages changes on copies and swaps them in only on success.
func (s *fakeStore) WithinTx(ctx context.Context, fn func(ports.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &fakeTx{
		store:    s,
		accounts: maps.Clone(s.accounts),
		manual:   maps.Clone(s.manual),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.accounts = tx.accounts
	s.manual = tx.manual
	return nil
}

type fakeTx struct {
	store    *fakeStore
	accounts map[string]core.Account
	manual   map[string]core.Transaction
}

func (tx *fakeTx) GetAccount(_ context.Context, id string) (core.Account, error) {
	a, ok := tx.accounts[id]
	if !ok {
		return core.Account{}, &core.NotFoundError{Kind: "account", ID: id}
	}
	return a, nil
}

func (tx *fakeTx) AdjustBalance(_ context.Context, id string, delta decimal.Decimal) error {
	if id == tx.store.failAdjust {
		return errors.New("disk full")
	}
	a, ok := tx.accounts[id]
	if !ok {
		return &core.NotFoundError{Kind: "account", ID: id}
	}
	a.Balance = a.Balance.Add(delta)
	tx.accounts[id] = a
	return nil
}

func (tx *fakeTx) InsertTransaction(_ context.Context, t core.Transaction) error {
	tx.manual[t.ID] = t
	return nil
}

func (tx *fakeTx) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := tx.manual[id]; !ok {
		return &core.NotFoundError{Kind: "transaction", ID: id}
	}
	delete(tx.manual, id)
	return nil
}

// fakeCategories is a CategoryRepository; Exists is slowed down to widen the
// window for concurrent creates.
type fakeCategories struct {
	mu          sync.Mutex
	names       map[string]struct{}
	createCalls atomic.Int32
	delay       time.Duration
}

func newFakeCategories(names ...string) *fakeCategories {
	c := &fakeCategories{names: make(map[string]struct{})}
	for _, n := range names {
		c.names[n] = struct{}{}
	}
	return c
}

func (c *fakeCategories) List(context.Context) ([]core.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.Category
	for _, n := range slices.Sorted(maps.Keys(c.names)) {
		out = append(out, core.Category{Name: n})
	}
	return out, nil
}

func (c *fakeCategories) Exists(_ context.Context, name string) (bool, error) {
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.names[name]
	return ok, nil
}

func (c *fakeCategories) Create(_ context.Context, name string) (core.Category, error) {
	c.createCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[name] = struct{}{}
	return core.Category{Name: name}, nil
}

func (c *fakeCategories) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

// stubAdapter returns a fixed batch or error, optionally after a delay.
type stubAdapter struct {
	source core.Source
	txs    []core.Transaction
	err    error
	delay  time.Duration
	honor  bool // return ctx.Err() when cancelled during the delay
}

func (a stubAdapter) Source() core.Source { return a.source }

func (a stubAdapter) Fetch(ctx context.Context, window core.DateRange) ([]core.Transaction, error) {
	if a.delay > 0 {
		if a.honor {
			select {
			case <-time.After(a.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			time.Sleep(a.delay)
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	var out []core.Transaction
	for _, t := range a.txs {
		if window.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
