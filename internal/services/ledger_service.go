// Package services orchestrates ledger commands and queries across storage
// and the event bus.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/ports"
)

// LedgerService fronts the aggregator and the writer. Committed writes are
// announced on the event bus; a publish failure never fails the write.
type LedgerService struct {
	aggregator *ledger.Aggregator
	writer     *ledger.Writer
	taxonomy   *ledger.Taxonomy
	accounts   ports.AccountRepository
	publisher  ports.EventPublisher
	closers    []io.Closer
	now        func() time.Time
}

type Option func(*LedgerService)

// WithPublisher enables ledger events. Without one, events are skipped.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithClosers registers resources released by Close, in order.
func WithClosers(c ...io.Closer) Option {
	return func(s *LedgerService) { s.closers = append(s.closers, c...) }
}

func NewLedgerService(agg *ledger.Aggregator, w *ledger.Writer, tax *ledger.Taxonomy, accounts ports.AccountRepository, opts ...Option) *LedgerService {
	s := &LedgerService{
		aggregator: agg,
		writer:     w,
		taxonomy:   tax,
		accounts:   accounts,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) Aggregate(ctx context.Context, f core.Filter) (core.AggregateResult, error) {
	return s.aggregator.Aggregate(ctx, f)
}

func (s *LedgerService) RecordPayment(ctx context.Context, dir core.Direction, e core.PaymentEntry) (core.Transaction, error) {
	t, err := s.writer.RecordPayment(ctx, dir, e)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, ports.EventTransactionRecorded, t)
	return t, nil
}

func (s *LedgerService) RecordTransfer(ctx context.Context, e core.TransferEntry) (core.Transaction, error) {
	t, err := s.writer.RecordTransfer(ctx, e)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, ports.EventTransactionRecorded, t)
	return t, nil
}

func (s *LedgerService) DeleteManualTransaction(ctx context.Context, id string) error {
	t, err := s.writer.DeleteManualTransaction(ctx, id)
	if err != nil {
		return err
	}
	s.publish(ctx, ports.EventTransactionDeleted, t)
	return nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	return s.writer.CreateCategory(ctx, name)
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.taxonomy.List(ctx)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	accs, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accs, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return s.accounts.Get(ctx, id)
}

func (s *LedgerService) publish(ctx context.Context, kind string, t core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event", "kind", kind, "id", t.ID)
		return
	}
	ev := ports.LedgerEvent{
		Kind:        kind,
		Transaction: ports.NewTransactionView(t),
		OccurredAt:  s.now().UTC(),
	}
	// The write is committed; the request context may end before the broker answers.
	if err := s.publisher.PublishLedgerEvent(context.WithoutCancel(ctx), ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"id", t.ID,
			"error", err)
	}
}

// Close releases registered resources and reports every failure.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
