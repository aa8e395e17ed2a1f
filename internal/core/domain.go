// Package core holds the ledger domain shared by every layer: transactions
// and their sources, accounts, categories, filters, amounts and the typed
// errors the HTTP layer maps to status codes.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	In       Direction = "in"
	Out      Direction = "out"
	Transfer Direction = "transfer"
)

const (
	SourceManual           Source = "manual"
	SourceBillingPayment   Source = "billingPayment"
	SourceCustomerPayment  Source = "customerPayment"
	SourceExpense          Source = "expense"
	SourcePurchasePayment  Source = "purchasePayment"
	SourceTransportPayment Source = "transportPayment"
)

// MethodCash is the method used when no account is involved.
const MethodCash = "cash"

type (
	// Direction tells whether money comes in, goes out or moves between accounts.
	Direction string

	// Source is the provenance tag of a transaction.
	Source string

	Transaction struct {
		ID               string
		Date             time.Time
		Amount           decimal.Decimal // never negative, sign lives in Type
		Type             Direction
		Source           Source
		Category         string
		Method           string // account id or "cash"
		CounterpartyFrom string
		CounterpartyTo   string
		Remark           string
	}

	Account struct {
		ID      string
		Name    string
		Balance decimal.Decimal
	}

	Category struct {
		Name string
	}

	// DateRange is inclusive on both ends, compared by calendar day.
	DateRange struct {
		From time.Time
		To   time.Time
	}
)

// Sources returns every provenance tag in adapter fetch order.
func Sources() []Source {
	return []Source{
		SourceManual,
		SourceBillingPayment,
		SourceCustomerPayment,
		SourceExpense,
		SourcePurchasePayment,
		SourceTransportPayment,
	}
}

func (s Source) String() string { return string(s) }

func (s Source) IsValid() bool {
	switch s {
	case SourceManual, SourceBillingPayment, SourceCustomerPayment,
		SourceExpense, SourcePurchasePayment, SourceTransportPayment:
		return true
	}
	return false
}

// FixedDirection returns the only direction a source may produce.
// The manual source has none and reports ok=false.
func (s Source) FixedDirection() (Direction, bool) {
	switch s {
	case SourceBillingPayment, SourceCustomerPayment:
		return In, true
	case SourceExpense, SourcePurchasePayment, SourceTransportPayment:
		return Out, true
	}
	return "", false
}

// DefaultCategory is applied when a native record carries no category.
func (s Source) DefaultCategory() string {
	switch s {
	case SourceBillingPayment:
		return "Billing Payment"
	case SourceCustomerPayment:
		return "Customer Payment"
	case SourceExpense:
		return "Other Expense"
	case SourcePurchasePayment:
		return "Purchase Payment"
	case SourceTransportPayment:
		return "Transport Payment"
	}
	return ""
}

func (d Direction) String() string { return string(d) }

func (d Direction) IsValid() bool {
	switch d {
	case In, Out, Transfer:
		return true
	}
	return false
}

// IsManual reports whether the writer owns the transaction.
func (t Transaction) IsManual() bool {
	return t.Source == SourceManual
}

// UsesAccount reports whether method refers to an account rather than cash.
func UsesAccount(method string) bool {
	m := strings.TrimSpace(method)
	return m != "" && m != MethodCash
}

// Validate checks the invariants every transaction must hold regardless of source.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return NewValidationError("id", "must not be empty")
	}
	if t.Date.IsZero() {
		return NewValidationError("date", "must not be zero")
	}
	if t.Amount.IsNegative() {
		return NewValidationError("amount", "must not be negative")
	}
	if !t.Type.IsValid() {
		return NewValidationError("type", "unknown direction "+string(t.Type))
	}
	if !t.Source.IsValid() {
		return NewValidationError("source", "unknown source "+string(t.Source))
	}
	if fixed, ok := t.Source.FixedDirection(); ok && fixed != t.Type {
		return NewValidationError("type", string(t.Source)+" transactions are always "+string(fixed))
	}
	if t.Type == Transfer && t.CounterpartyFrom == t.CounterpartyTo {
		return NewValidationError("counterpartyTo", "transfer endpoints must differ")
	}
	return nil
}

// NewDateRange builds a range covering whole days from..to.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: from, To: to}
}

// Contains reports whether t falls on a day inside the range.
// A zero bound is open. Days are counted in the location of the range
// bounds, so t is converted there before truncation.
func (r DateRange) Contains(t time.Time) bool {
	loc := r.location()
	day := truncateDay(t.In(loc))
	if !r.From.IsZero() && day.Before(truncateDay(r.From.In(loc))) {
		return false
	}
	if !r.To.IsZero() && day.After(truncateDay(r.To.In(loc))) {
		return false
	}
	return true
}

func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return nil
	}
	loc := r.location()
	if truncateDay(r.To.In(loc)).Before(truncateDay(r.From.In(loc))) {
		return NewValidationError("dateRange", "end date must not be before start date")
	}
	return nil
}

// location is the zone the range's days are cut in: From's, else To's,
// else UTC.
func (r DateRange) location() *time.Location {
	switch {
	case !r.From.IsZero():
		return r.From.Location()
	case !r.To.IsZero():
		return r.To.Location()
	}
	return time.UTC
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
