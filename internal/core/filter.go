package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SortDateAsc    SortOrder = "date_asc"
	SortDateDesc   SortOrder = "date_desc"
	SortAmountAsc  SortOrder = "amount_asc"
	SortAmountDesc SortOrder = "amount_desc"
)

// DirectionAll disables direction filtering.
const DirectionAll Direction = "all"

type (
	SortOrder string

	// Filter selects and orders the aggregated ledger.
	Filter struct {
		DateRange DateRange
		Direction Direction // DirectionAll, In, Out or Transfer
		Category  string
		Method    string
		Search    string
		Sort      SortOrder
	}

	// AggregateResult is the ordered ledger plus totals over all directions.
	AggregateResult struct {
		Transactions  []Transaction
		TotalIn       decimal.Decimal
		TotalOut      decimal.Decimal
		TotalTransfer decimal.Decimal
	}
)

func (s SortOrder) IsValid() bool {
	switch s {
	case SortDateAsc, SortDateDesc, SortAmountAsc, SortAmountDesc:
		return true
	}
	return false
}

// Normalize fills defaults: all directions, newest first.
func (f Filter) Normalize() Filter {
	if f.Direction == "" {
		f.Direction = DirectionAll
	}
	if f.Sort == "" {
		f.Sort = SortDateDesc
	}
	f.Category = strings.TrimSpace(f.Category)
	f.Method = strings.TrimSpace(f.Method)
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f Filter) Validate() error {
	if f.Direction != DirectionAll && !f.Direction.IsValid() {
		return NewValidationError("direction", "must be one of all, in, out, transfer")
	}
	if !f.Sort.IsValid() {
		return NewValidationError("sort", "must be one of date_asc, date_desc, amount_asc, amount_desc")
	}
	return f.DateRange.Validate()
}

// Admits reports whether a transaction passes the direction restriction.
// Non-manual sources are checked against their fixed direction.
func (f Filter) Admits(t Transaction) bool {
	if f.Direction == DirectionAll || f.Direction == "" {
		return true
	}
	if fixed, ok := t.Source.FixedDirection(); ok {
		return fixed == f.Direction
	}
	return t.Type == f.Direction
}

// Matches applies the category, method and free-text filters.
func (f Filter) Matches(t Transaction) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Method != "" && t.Method != f.Method {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, hay := range []string{t.CounterpartyFrom, t.CounterpartyTo, t.Remark, t.Category} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// Net is TotalIn minus TotalOut; transfers never move net worth.
func (r AggregateResult) Net() decimal.Decimal {
	return r.TotalIn.Sub(r.TotalOut)
}
