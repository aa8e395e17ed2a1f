package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNotFound            = errors.New("not found")
	ErrNotManual           = errors.New("transaction is not a manual entry")
	ErrSameAccountTransfer = errors.New("transfer source and destination must differ")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// ValidationError is reported to the caller immediately and never retried.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError covers both missing ids and ids owned by another subsystem.
type NotFoundError struct {
	Kind string
	ID   string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err == nil {
		return ErrNotFound
	}
	return e.Err
}

// Is lets every NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AdapterFailure fails a whole aggregation; partial ledgers are never returned.
type AdapterFailure struct {
	Source Source
	Err    error
}

func (e *AdapterFailure) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *AdapterFailure) Unwrap() error { return e.Err }

// BalanceUpdateFailure means an account mutation failed and the write was rolled back.
type BalanceUpdateFailure struct {
	AccountID string
	Err       error
}

func (e *BalanceUpdateFailure) Error() string {
	return fmt.Sprintf("update balance of account %q: %v", e.AccountID, e.Err)
}

func (e *BalanceUpdateFailure) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAdapterFailure reports whether err carries an AdapterFailure.
func IsAdapterFailure(err error) bool {
	var af *AdapterFailure
	return errors.As(err, &af)
}

// IsBalanceUpdateFailure reports whether err carries a BalanceUpdateFailure.
func IsBalanceUpdateFailure(err error) bool {
	var bf *BalanceUpdateFailure
	return errors.As(err, &bf)
}
