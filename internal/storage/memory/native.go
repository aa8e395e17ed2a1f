package memory

import (
	"context"
	"slices"

	"backoffice/internal/core"
	"backoffice/internal/sources"
)

// Parents are returned with their complete payment history when any payment
// falls inside the window.

func (s *Store) ListBillingReceipts(_ context.Context, window core.DateRange) ([]sources.BillingReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectParents(s.billing, window, func(r sources.BillingReceipt) []sources.PaymentLine { return r.Payments },
		func(r sources.BillingReceipt) sources.BillingReceipt {
			r.Payments = slices.Clone(r.Payments)
			return r
		}), nil
}

func (s *Store) ListCustomerAccounts(_ context.Context, window core.DateRange) ([]sources.CustomerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectParents(s.customers, window, func(c sources.CustomerAccount) []sources.PaymentLine { return c.Payments },
		func(c sources.CustomerAccount) sources.CustomerAccount {
			c.Payments = slices.Clone(c.Payments)
			return c
		}), nil
}

func (s *Store) ListPurchases(_ context.Context, window core.DateRange) ([]sources.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectParents(s.purchases, window, func(p sources.Purchase) []sources.PaymentLine { return p.Payments },
		func(p sources.Purchase) sources.Purchase {
			p.Payments = slices.Clone(p.Payments)
			return p
		}), nil
}

func (s *Store) ListTransportTrips(_ context.Context, window core.DateRange) ([]sources.TransportTrip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectParents(s.transport, window, func(t sources.TransportTrip) []sources.PaymentLine { return t.Payments },
		func(t sources.TransportTrip) sources.TransportTrip {
			t.Payments = slices.Clone(t.Payments)
			return t
		}), nil
}

// ListExpenses keeps stored order, which fixes the ordinal of id-less records.
func (s *Store) ListExpenses(_ context.Context, window core.DateRange) ([]sources.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []sources.ExpenseRecord
	for _, e := range s.expenses {
		if window.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func selectParents[T any](all []T, window core.DateRange, payments func(T) []sources.PaymentLine, clone func(T) T) []T {
	var out []T
	for _, p := range all {
		if slices.ContainsFunc(payments(p), func(l sources.PaymentLine) bool { return window.Contains(l.Date) }) {
			out = append(out, clone(p))
		}
	}
	return out
}
