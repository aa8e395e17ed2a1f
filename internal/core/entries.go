package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// PaymentEntry is the caller input of a manual payment-in or payment-out.
	PaymentEntry struct {
		Date             time.Time
		Amount           decimal.Decimal
		Category         string
		Method           string
		CounterpartyFrom string
		CounterpartyTo   string
		Remark           string
	}

	// TransferEntry moves Amount from CounterpartyFrom to CounterpartyTo.
	// Both endpoints are account ids or "cash".
	TransferEntry struct {
		Date             time.Time
		Amount           decimal.Decimal
		Category         string
		CounterpartyFrom string
		CounterpartyTo   string
		Remark           string
	}
)

const maxRemarkLength = 500

// validateEntryAmount accepts positive amounts with at most two decimals.
// Amounts are stored as integer cents, so anything finer would be rounded
// away on write.
func validateEntryAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be greater than zero", Err: ErrInvalidAmount}
	}
	if !d.Equal(d.Round(2)) {
		return &ValidationError{Field: "amount", Message: "must have at most 2 decimal places", Err: ErrInvalidAmount}
	}
	return nil
}

// Validate checks the fields that do not need a repository lookup.
func (e PaymentEntry) Validate(direction Direction) error {
	if direction != In && direction != Out {
		return NewValidationError("direction", "payments must be in or out")
	}
	if err := validateEntryAmount(e.Amount); err != nil {
		return err
	}
	if direction == In && strings.TrimSpace(e.CounterpartyFrom) == "" {
		return NewValidationError("counterpartyFrom", "is required for incoming payments")
	}
	if direction == Out && strings.TrimSpace(e.CounterpartyTo) == "" {
		return NewValidationError("counterpartyTo", "is required for outgoing payments")
	}
	if strings.TrimSpace(e.Category) == "" {
		return NewValidationError("category", "is required")
	}
	if strings.TrimSpace(e.Method) == "" {
		return NewValidationError("method", "is required")
	}
	if len(e.Remark) > maxRemarkLength {
		return NewValidationError("remark", "too long (max 500 characters)")
	}
	return nil
}

func (e TransferEntry) Validate() error {
	if err := validateEntryAmount(e.Amount); err != nil {
		return err
	}
	from := strings.TrimSpace(e.CounterpartyFrom)
	to := strings.TrimSpace(e.CounterpartyTo)
	if from == "" {
		return NewValidationError("counterpartyFrom", "is required for transfers")
	}
	if to == "" {
		return NewValidationError("counterpartyTo", "is required for transfers")
	}
	if from == to {
		return &ValidationError{Field: "counterpartyTo", Message: "must differ from counterpartyFrom", Err: ErrSameAccountTransfer}
	}
	if len(e.Remark) > maxRemarkLength {
		return NewValidationError("remark", "too long (max 500 characters)")
	}
	return nil
}
