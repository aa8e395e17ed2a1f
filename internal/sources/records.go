// Package sources normalizes the native records of each originating
// subsystem into ledger transactions.
package sources

import (
	"context"
	"time"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

type (
	// PaymentLine is one entry of a nested payment history.
	// ID is empty when the owning subsystem does not assign one.
	PaymentLine struct {
		ID       string          `json:"id,omitempty"`
		Date     time.Time       `json:"date"`
		Amount   decimal.Decimal `json:"amount"`
		Method   string          `json:"method,omitempty"`
		Category string          `json:"category,omitempty"`
		Remark   string          `json:"remark,omitempty"`
	}

	BillingReceipt struct {
		BillNo   string        `json:"billNo"`
		Customer string        `json:"customer"`
		Payments []PaymentLine `json:"payments"`
	}

	CustomerAccount struct {
		CustomerID string        `json:"customerId"`
		Name       string        `json:"name"`
		Payments   []PaymentLine `json:"payments"`
	}

	ExpenseRecord struct {
		ID       string          `json:"id,omitempty"`
		Date     time.Time       `json:"date"`
		Amount   decimal.Decimal `json:"amount"`
		Category string          `json:"category,omitempty"`
		PaidTo   string          `json:"paidTo"`
		Method   string          `json:"method,omitempty"`
		Remark   string          `json:"remark,omitempty"`
	}

	Purchase struct {
		PurchaseNo string        `json:"purchaseNo"`
		Supplier   string        `json:"supplier"`
		Payments   []PaymentLine `json:"payments"`
	}

	TransportTrip struct {
		TripID      string        `json:"tripId"`
		Transporter string        `json:"transporter"`
		Vehicle     string        `json:"vehicle,omitempty"`
		Payments    []PaymentLine `json:"payments"`
	}
)

// Readers over the native stores of the originating subsystems.
// Nested payment histories must be returned complete, since the ordinal of
// an id-less payment is its position in the full history. Payments outside
// the window are trimmed by the adapters.
type (
	BillingReader interface {
		ListBillingReceipts(ctx context.Context, window core.DateRange) ([]BillingReceipt, error)
	}

	CustomerReader interface {
		ListCustomerAccounts(ctx context.Context, window core.DateRange) ([]CustomerAccount, error)
	}

	ExpenseReader interface {
		ListExpenses(ctx context.Context, window core.DateRange) ([]ExpenseRecord, error)
	}

	PurchaseReader interface {
		ListPurchases(ctx context.Context, window core.DateRange) ([]Purchase, error)
	}

	TransportReader interface {
		ListTransportTrips(ctx context.Context, window core.DateRange) ([]TransportTrip, error)
	}

	// NativeReaders bundles every native reader; a backend usually implements all of them.
	NativeReaders interface {
		BillingReader
		CustomerReader
		ExpenseReader
		PurchaseReader
		TransportReader
	}
)
