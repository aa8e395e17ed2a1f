package ports

import (
	"context"
	"time"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// Ports for collaborators of the ledger core.
type (
	// SourceAdapter yields normalized transactions already restricted to the window.
	SourceAdapter interface {
		Source() core.Source
		Fetch(ctx context.Context, window core.DateRange) ([]core.Transaction, error)
	}

	AccountRepository interface {
		Get(ctx context.Context, id string) (core.Account, error)
		AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error
		List(ctx context.Context) ([]core.Account, error)
	}

	// CategoryRepository must back Create with a uniqueness guarantee so that
	// concurrent creates of one name leave a single row.
	CategoryRepository interface {
		List(ctx context.Context) ([]core.Category, error)
		Create(ctx context.Context, name string) (core.Category, error)
		Exists(ctx context.Context, name string) (bool, error)
	}

	// ManualStore persists writer-owned transactions.
	ManualStore interface {
		ListManual(ctx context.Context, window core.DateRange) ([]core.Transaction, error)
		GetManual(ctx context.Context, id string) (core.Transaction, error)
		// WithinTx runs fn in one unit of work. A non-nil error from fn
		// rolls back every insert, delete and balance change made through tx.
		WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
	}

	// LedgerTx is the view of the store inside a unit of work.
	LedgerTx interface {
		GetAccount(ctx context.Context, id string) (core.Account, error)
		AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error
		InsertTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	// EventPublisher announces committed ledger writes.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, event LedgerEvent) error
	}
)

const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionDeleted  = "transaction.deleted"
)

// LedgerEvent describes one committed manual write.
type LedgerEvent struct {
	Kind        string          `json:"kind"`
	Transaction TransactionView `json:"transaction"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// TransactionView is the wire shape of a transaction. Amount is never negative.
type TransactionView struct {
	ID               string          `json:"id"`
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Type             core.Direction  `json:"type"`
	Source           core.Source     `json:"source"`
	Category         string          `json:"category"`
	Method           string          `json:"method"`
	CounterpartyFrom string          `json:"counterpartyFrom,omitempty"`
	CounterpartyTo   string          `json:"counterpartyTo,omitempty"`
	Remark           string          `json:"remark,omitempty"`
}

func NewTransactionView(t core.Transaction) TransactionView {
	return TransactionView{
		ID:               t.ID,
		Date:             t.Date,
		Amount:           t.Amount,
		Type:             t.Type,
		Source:           t.Source,
		Category:         t.Category,
		Method:           t.Method,
		CounterpartyFrom: t.CounterpartyFrom,
		CounterpartyTo:   t.CounterpartyTo,
		Remark:           t.Remark,
	}
}

// ToTransaction converts the wire shape back to the domain type.
func (v TransactionView) ToTransaction() core.Transaction {
	return core.Transaction{
		ID:               v.ID,
		Date:             v.Date,
		Amount:           v.Amount,
		Type:             v.Type,
		Source:           v.Source,
		Category:         v.Category,
		Method:           v.Method,
		CounterpartyFrom: v.CounterpartyFrom,
		CounterpartyTo:   v.CounterpartyTo,
		Remark:           v.Remark,
	}
}
