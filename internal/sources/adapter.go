package sources

import (
	"context"
	"fmt"

	"backoffice/internal/core"
	"backoffice/internal/ports"
)

// Adapter fetches native records of one kind and normalizes them.
type Adapter[T any] struct {
	source    core.Source
	fetch     func(ctx context.Context, window core.DateRange) ([]T, error)
	normalize func(records []T) ([]core.Transaction, error)
}

// Source implements ports.SourceAdapter.
func (a *Adapter[T]) Source() core.Source { return a.source }

// Fetch implements ports.SourceAdapter.
func (a *Adapter[T]) Fetch(ctx context.Context, window core.DateRange) ([]core.Transaction, error) {
	records, err := a.fetch(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("fetch %s records: %w", a.source, err)
	}
	txs, err := a.normalize(records)
	if err != nil {
		return nil, fmt.Errorf("normalize %s records: %w", a.source, err)
	}
	return inWindow(txs, window)
}

func inWindow(txs []core.Transaction, window core.DateRange) ([]core.Transaction, error) {
	out := txs[:0]
	for _, t := range txs {
		if !window.Contains(t.Date) {
			continue
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %q: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func perRecord[T any](fn func(T) ([]core.Transaction, error)) func([]T) ([]core.Transaction, error) {
	return func(records []T) ([]core.Transaction, error) {
		var out []core.Transaction
		for _, r := range records {
			txs, err := fn(r)
			if err != nil {
				return nil, err
			}
			out = append(out, txs...)
		}
		return out, nil
	}
}

func NewBillingAdapter(r BillingReader) *Adapter[BillingReceipt] {
	return &Adapter[BillingReceipt]{
		source:    core.SourceBillingPayment,
		fetch:     r.ListBillingReceipts,
		normalize: perRecord(normalizeBilling),
	}
}

func NewCustomerAdapter(r CustomerReader) *Adapter[CustomerAccount] {
	return &Adapter[CustomerAccount]{
		source:    core.SourceCustomerPayment,
		fetch:     r.ListCustomerAccounts,
		normalize: perRecord(normalizeCustomer),
	}
}

func NewExpenseAdapter(r ExpenseReader) *Adapter[ExpenseRecord] {
	return &Adapter[ExpenseRecord]{
		source:    core.SourceExpense,
		fetch:     r.ListExpenses,
		normalize: normalizeExpenses,
	}
}

func NewPurchaseAdapter(r PurchaseReader) *Adapter[Purchase] {
	return &Adapter[Purchase]{
		source:    core.SourcePurchasePayment,
		fetch:     r.ListPurchases,
		normalize: perRecord(normalizePurchase),
	}
}

func NewTransportAdapter(r TransportReader) *Adapter[TransportTrip] {
	return &Adapter[TransportTrip]{
		source:    core.SourceTransportPayment,
		fetch:     r.ListTransportTrips,
		normalize: perRecord(normalizeTransport),
	}
}

// ManualAdapter exposes writer-owned entries as a source.
type ManualAdapter struct {
	store ports.ManualStore
}

func NewManualAdapter(store ports.ManualStore) *ManualAdapter {
	return &ManualAdapter{store: store}
}

func (a *ManualAdapter) Source() core.Source { return core.SourceManual }

func (a *ManualAdapter) Fetch(ctx context.Context, window core.DateRange) ([]core.Transaction, error) {
	txs, err := a.store.ListManual(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("fetch manual entries: %w", err)
	}
	return inWindow(txs, window)
}

// All returns the six adapters in fetch order: manual first, then the
// read-only projections.
func All(manual ports.ManualStore, native NativeReaders) []ports.SourceAdapter {
	return []ports.SourceAdapter{
		NewManualAdapter(manual),
		NewBillingAdapter(native),
		NewCustomerAdapter(native),
		NewExpenseAdapter(native),
		NewPurchaseAdapter(native),
		NewTransportAdapter(native),
	}
}

var (
	_ ports.SourceAdapter = (*ManualAdapter)(nil)
	_ ports.SourceAdapter = (*Adapter[BillingReceipt])(nil)
)
