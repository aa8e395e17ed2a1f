package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/ports"
	"backoffice/internal/seed"
	"backoffice/internal/sources"
	"backoffice/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev ports.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T, opts ...Option) *LedgerService {
	t.Helper()
	store, err := memory.NewFromDataset(seed.Dataset{
		Accounts:   []seed.Account{{ID: "AccA", Name: "Bank", Balance: amt("100")}},
		Categories: seed.DefaultCategories(),
	})
	if err != nil {
		t.Fatalf("NewFromDataset: %v", err)
	}
	tax := ledger.NewTaxonomy(store.Categories())
	return NewLedgerService(
		ledger.NewAggregator(sources.All(store, store)),
		ledger.NewWriter(store, store.Accounts(), tax),
		tax,
		store.Accounts(),
		opts...,
	)
}

func TestLedgerService_PublishesCommittedWrites(t *testing.T) {
	pub := &recordingPublisher{}
	s := newService(t, WithPublisher(pub))
	ctx := context.Background()

	tx, err := s.RecordPayment(ctx, core.In, core.PaymentEntry{
		Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Amount: amt("10"),
		CounterpartyFrom: "Acme", Method: "AccA", Category: "Sales",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if err := s.DeleteManualTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteManualTransaction: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	if pub.events[0].Kind != ports.EventTransactionRecorded || pub.events[1].Kind != ports.EventTransactionDeleted {
		t.Errorf("kinds = %s, %s", pub.events[0].Kind, pub.events[1].Kind)
	}
	if pub.events[1].Transaction.ID != tx.ID {
		t.Errorf("deleted event for %s, want %s", pub.events[1].Transaction.ID, tx.ID)
	}
}

func TestLedgerService_FailedWriteIsNotPublished(t *testing.T) {
	pub := &recordingPublisher{}
	s := newService(t, WithPublisher(pub))

	_, err := s.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("5"), CounterpartyFrom: "AccA", CounterpartyTo: "AccA",
	})
	if !core.IsValidation(err) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events for a rejected write", len(pub.events))
	}
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	s := newService(t, WithPublisher(&recordingPublisher{err: errors.New("circuit breaker is open")}))

	if _, err := s.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("5"), CounterpartyFrom: "AccA", CounterpartyTo: core.MethodCash,
	}); err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
	acc, _ := s.GetAccount(context.Background(), "AccA")
	if !acc.Balance.Equal(amt("95")) {
		t.Errorf("balance = %s, want 95", acc.Balance)
	}
}

func TestLedgerService_WithoutPublisher(t *testing.T) {
	s := newService(t)
	if _, err := s.CreateCategory(context.Background(), "Fuel"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != len(seed.DefaultCategories())+1 {
		t.Errorf("categories = %+v", cats)
	}
}

func TestLedgerService_Close(t *testing.T) {
	t.Run("no closers", func(t *testing.T) {
		if err := newService(t).Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	t.Run("joins errors and closes everything", func(t *testing.T) {
		closed := 0
		boom := errors.New("boom")
		s := newService(t, WithClosers(
			closerFunc(func() error { closed++; return boom }),
			closerFunc(func() error { closed++; return nil }),
		))
		err := s.Close()
		if !errors.Is(err, boom) {
			t.Errorf("Close = %v, want boom", err)
		}
		if closed != 2 {
			t.Errorf("closed %d resources, want 2", closed)
		}
	})
}
