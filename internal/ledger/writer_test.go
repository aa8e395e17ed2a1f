package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/ports"
)

type writerFixture struct {
	store *fakeStore
	cats  *fakeCategories
	w     *Writer
}

func newWriterFixture(opts ...WriterOption) writerFixture {
	store := newFakeStore(
		core.Account{ID: "AccA", Name: "Main bank", Balance: amt("1000")},
		core.Account{ID: "AccB", Name: "Savings", Balance: amt("200")},
	)
	cats := newFakeCategories("Other Expense", "Sales")
	seq := 0
	var mu sync.Mutex
	opts = append([]WriterOption{
		WithClock(func() time.Time { return day("2024-03-01") }),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("tx-%d", seq)
		}),
	}, opts...)
	return writerFixture{
		store: store,
		cats:  cats,
		w:     NewWriter(store, store, NewTaxonomy(cats), opts...),
	}
}

func TestWriter_CashPaymentLeavesBalancesAlone(t *testing.T) {
	fx := newWriterFixture()
	ctx := context.Background()

	tx, err := fx.w.RecordPayment(ctx, core.Out, core.PaymentEntry{
		Amount:         amt("50"),
		CounterpartyTo: "Vendor X",
		Method:         core.MethodCash,
		Category:       "Other Expense",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if tx.Type != core.Out || !tx.Amount.Equal(amt("50")) || tx.Source != core.SourceManual {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if !tx.Date.Equal(day("2024-03-01")) {
		t.Errorf("Date = %v, want clock default", tx.Date)
	}

	if got := fx.store.balance("AccA"); !got.Equal(amt("1000")) {
		t.Errorf("AccA balance = %s, want unchanged", got)
	}

	res, err := NewAggregator([]ports.SourceAdapter{manualAdapter{fx.store}}).Aggregate(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Transactions) != 1 || res.Transactions[0].ID != tx.ID {
		t.Fatalf("recorded payment missing from ledger: %+v", res.Transactions)
	}
	if !res.TotalOut.Equal(amt("50")) {
		t.Errorf("TotalOut = %s, want 50", res.TotalOut)
	}
}

// manualAdapter exposes the fake store as the manual source.
type manualAdapter struct{ store ports.ManualStore }

func (manualAdapter) Source() core.Source { return core.SourceManual }

func (a manualAdapter) Fetch(ctx context.Context, window core.DateRange) ([]core.Transaction, error) {
	return a.store.ListManual(ctx, window)
}

func TestWriter_AccountPaymentsAdjustBalance(t *testing.T) {
	fx := newWriterFixture()
	ctx := context.Background()

	if _, err := fx.w.RecordPayment(ctx, core.In, core.PaymentEntry{
		Amount: amt("150.25"), CounterpartyFrom: "Acme", Method: "AccA", Category: "Sales",
	}); err != nil {
		t.Fatalf("RecordPayment in: %v", err)
	}
	if _, err := fx.w.RecordPayment(ctx, core.Out, core.PaymentEntry{
		Amount: amt("50"), CounterpartyTo: "Vendor", Method: "AccA", Category: "Other Expense",
	}); err != nil {
		t.Fatalf("RecordPayment out: %v", err)
	}

	if got := fx.store.balance("AccA"); !got.Equal(amt("1100.25")) {
		t.Errorf("AccA balance = %s, want 1100.25", got)
	}
}

func TestWriter_PaymentValidation(t *testing.T) {
	tests := []struct {
		name  string
		dir   core.Direction
		entry core.PaymentEntry
	}{
		{"zero amount", core.In, core.PaymentEntry{Amount: amt("0"), CounterpartyFrom: "A", Method: "cash", Category: "Sales"}},
		{"missing from", core.In, core.PaymentEntry{Amount: amt("1"), Method: "cash", Category: "Sales"}},
		{"missing to", core.Out, core.PaymentEntry{Amount: amt("1"), Method: "cash", Category: "Sales"}},
		{"unknown account", core.Out, core.PaymentEntry{Amount: amt("1"), CounterpartyTo: "V", Method: "AccZ", Category: "Sales"}},
		{"missing category", core.Out, core.PaymentEntry{Amount: amt("1"), CounterpartyTo: "V", Method: "cash"}},
		{"sub-cent amount", core.Out, core.PaymentEntry{Amount: amt("0.004"), CounterpartyTo: "V", Method: "AccA", Category: "Sales"}},
		{"fractional cents", core.In, core.PaymentEntry{Amount: amt("12.345"), CounterpartyFrom: "A", Method: "cash", Category: "Sales"}},
		{"transfer direction", core.Transfer, core.PaymentEntry{Amount: amt("1"), CounterpartyTo: "V", Method: "cash", Category: "Sales"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newWriterFixture()
			_, err := fx.w.RecordPayment(context.Background(), tt.dir, tt.entry)
			if !core.IsValidation(err) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if n := len(fx.store.manual); n != 0 {
				t.Errorf("%d transactions persisted after validation failure", n)
			}
		})
	}
}

func TestWriter_NewCategoryIsCreated(t *testing.T) {
	fx := newWriterFixture()

	tx, err := fx.w.RecordPayment(context.Background(), core.Out, core.PaymentEntry{
		Amount: amt("80"), CounterpartyTo: "Shell", Method: "cash", Category: "Fuel",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if tx.Category != "Fuel" {
		t.Errorf("Category = %q, want Fuel", tx.Category)
	}
	if ok, _ := fx.cats.Exists(context.Background(), "Fuel"); !ok {
		t.Error("category Fuel was not created")
	}
}

func TestWriter_TransferMovesFunds(t *testing.T) {
	fx := newWriterFixture()

	tx, err := fx.w.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("100"), CounterpartyFrom: "AccA", CounterpartyTo: "AccB",
	})
	if err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
	if tx.Type != core.Transfer || tx.Method != "AccA" || tx.Category != DefaultTransferCategory {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if got := fx.store.balance("AccA"); !got.Equal(amt("900")) {
		t.Errorf("AccA balance = %s, want 900", got)
	}
	if got := fx.store.balance("AccB"); !got.Equal(amt("300")) {
		t.Errorf("AccB balance = %s, want 300", got)
	}
}

func TestWriter_TransferFromCash(t *testing.T) {
	fx := newWriterFixture()

	if _, err := fx.w.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("40"), CounterpartyFrom: core.MethodCash, CounterpartyTo: "AccB",
	}); err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
	if got := fx.store.balance("AccB"); !got.Equal(amt("240")) {
		t.Errorf("AccB balance = %s, want 240", got)
	}
}

func TestWriter_SameAccountTransferRejected(t *testing.T) {
	fx := newWriterFixture()

	_, err := fx.w.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("10"), CounterpartyFrom: "AccA", CounterpartyTo: "AccA",
	})
	if !core.IsValidation(err) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if !errors.Is(err, core.ErrSameAccountTransfer) {
		t.Errorf("error %v does not wrap ErrSameAccountTransfer", err)
	}
	if len(fx.store.manual) != 0 {
		t.Error("transaction persisted for rejected transfer")
	}
	if fx.cats.createCalls.Load() != 0 {
		t.Error("category created for rejected transfer")
	}
}

func TestWriter_SubCentTransferRejected(t *testing.T) {
	fx := newWriterFixture()

	_, err := fx.w.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("0.004"), CounterpartyFrom: "AccA", CounterpartyTo: "AccB",
	})
	if !core.IsValidation(err) || !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("got %v, want invalid amount validation error", err)
	}
	if len(fx.store.manual) != 0 {
		t.Error("transaction persisted for sub-cent transfer")
	}
	if got := fx.store.balance("AccA"); !got.Equal(amt("1000")) {
		t.Errorf("AccA balance = %s, want 1000", got)
	}

	tx, err := fx.w.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("0.50"), CounterpartyFrom: "AccA", CounterpartyTo: "AccB",
	})
	if err != nil {
		t.Fatalf("RecordTransfer with trailing zero: %v", err)
	}
	if !tx.Amount.Equal(amt("0.5")) {
		t.Errorf("Amount = %s, want 0.5", tx.Amount)
	}
}

func TestWriter_TransferRollsBackOnBalanceFailure(t *testing.T) {
	fx := newWriterFixture()
	fx.store.failAdjust = "AccB"

	_, err := fx.w.RecordTransfer(context.Background(), core.TransferEntry{
		Amount: amt("100"), CounterpartyFrom: "AccA", CounterpartyTo: "AccB",
	})
	if !core.IsBalanceUpdateFailure(err) {
		t.Fatalf("got %v, want BalanceUpdateFailure", err)
	}
	if got := fx.store.balance("AccA"); !got.Equal(amt("1000")) {
		t.Errorf("AccA balance = %s, want 1000 after rollback", got)
	}
	if got := fx.store.balance("AccB"); !got.Equal(amt("200")) {
		t.Errorf("AccB balance = %s, want 200 after rollback", got)
	}
	if len(fx.store.manual) != 0 {
		t.Error("transaction persisted despite balance failure")
	}
}

func TestWriter_ConcurrentTransfersDoNotLoseUpdates(t *testing.T) {
	fx := newWriterFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry := core.TransferEntry{Amount: amt("1"), CounterpartyFrom: "AccA", CounterpartyTo: "AccB"}
			if i%2 == 1 {
				entry.CounterpartyFrom, entry.CounterpartyTo = "AccB", "AccA"
			}
			if _, err := fx.w.RecordTransfer(ctx, entry); err != nil {
				t.Errorf("RecordTransfer: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fx.store.balance("AccA"); !got.Equal(amt("1000")) {
		t.Errorf("AccA balance = %s, want 1000", got)
	}
	if got := fx.store.balance("AccB"); !got.Equal(amt("200")) {
		t.Errorf("AccB balance = %s, want 200", got)
	}
	if n := len(fx.store.manual); n != 50 {
		t.Errorf("persisted %d transfers, want 50", n)
	}
}

func TestWriter_OverdraftDisabled(t *testing.T) {
	fx := newWriterFixture(WithOverdraft(false))
	ctx := context.Background()

	_, err := fx.w.RecordTransfer(ctx, core.TransferEntry{
		Amount: amt("250"), CounterpartyFrom: "AccB", CounterpartyTo: "AccA",
	})
	if !core.IsValidation(err) || !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v, want insufficient funds validation error", err)
	}
	if got := fx.store.balance("AccB"); !got.Equal(amt("200")) {
		t.Errorf("AccB balance = %s, want 200", got)
	}

	if _, err := fx.w.RecordTransfer(ctx, core.TransferEntry{
		Amount: amt("200"), CounterpartyFrom: "AccB", CounterpartyTo: "AccA",
	}); err != nil {
		t.Fatalf("transfer of the full balance: %v", err)
	}
}

func TestWriter_RejectedWriteCreatesNoCategory(t *testing.T) {
	fx := newWriterFixture(WithOverdraft(false))
	ctx := context.Background()

	_, err := fx.w.RecordPayment(ctx, core.Out, core.PaymentEntry{
		Amount: amt("250"), CounterpartyTo: "Supplier", Method: "AccB", Category: "Brand New",
	})
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v, want insufficient funds", err)
	}
	_, err = fx.w.RecordTransfer(ctx, core.TransferEntry{
		Amount: amt("250"), CounterpartyFrom: "AccB", CounterpartyTo: "AccA", Category: "Also New",
	})
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v, want insufficient funds", err)
	}

	for _, name := range []string{"Brand New", "Also New"} {
		if ok, _ := fx.cats.Exists(ctx, name); ok {
			t.Errorf("category %q created by a rejected write", name)
		}
	}
	if n := fx.cats.createCalls.Load(); n != 0 {
		t.Errorf("Create called %d times, want 0", n)
	}
}

func TestWriter_OverdraftAllowedByDefault(t *testing.T) {
	fx := newWriterFixture()

	if _, err := fx.w.RecordPayment(context.Background(), core.Out, core.PaymentEntry{
		Amount: amt("500"), CounterpartyTo: "Supplier", Method: "AccB", Category: "Other Expense",
	}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if got := fx.store.balance("AccB"); !got.Equal(amt("-300")) {
		t.Errorf("AccB balance = %s, want -300", got)
	}
}

func TestWriter_DeleteReversesBalances(t *testing.T) {
	fx := newWriterFixture()
	ctx := context.Background()

	tx, err := fx.w.RecordTransfer(ctx, core.TransferEntry{
		Amount: amt("100"), CounterpartyFrom: "AccA", CounterpartyTo: "AccB",
	})
	if err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}

	deleted, err := fx.w.DeleteManualTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("DeleteManualTransaction: %v", err)
	}
	if deleted.ID != tx.ID {
		t.Errorf("deleted %s, want %s", deleted.ID, tx.ID)
	}
	if got := fx.store.balance("AccA"); !got.Equal(amt("1000")) {
		t.Errorf("AccA balance = %s, want 1000", got)
	}
	if got := fx.store.balance("AccB"); !got.Equal(amt("200")) {
		t.Errorf("AccB balance = %s, want 200", got)
	}
	if _, err := fx.store.GetManual(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("transaction still present: %v", err)
	}
}

func TestWriter_DeleteRejectsForeignAndMissing(t *testing.T) {
	fx := newWriterFixture()
	fx.store.foreign["INV-42"] = core.SourceBillingPayment

	tests := []struct {
		name      string
		id        string
		notManual bool
	}{
		{"derived id", core.DeriveID(core.IDParts{Source: core.SourceExpense, ParentKey: "2024-01-04", Ordinal: 0}), true},
		{"native id", "INV-42", true},
		{"missing", "does-not-exist", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.w.DeleteManualTransaction(context.Background(), tt.id)
			if !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("got %v, want NotFoundError", err)
			}
			if got := errors.Is(err, core.ErrNotManual); got != tt.notManual {
				t.Errorf("errors.Is(err, ErrNotManual) = %v, want %v", got, tt.notManual)
			}
		})
	}
}

func TestWriter_CreateCategoryIdempotent(t *testing.T) {
	fx := newWriterFixture()
	ctx := context.Background()

	for range 2 {
		c, err := fx.w.CreateCategory(ctx, "Fuel")
		if err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
		if c.Name != "Fuel" {
			t.Errorf("Name = %q, want Fuel", c.Name)
		}
	}
	if got := fx.cats.createCalls.Load(); got != 1 {
		t.Errorf("Create called %d times, want 1", got)
	}
	if got := fx.cats.count(); got != 3 {
		t.Errorf("category count = %d, want 3", got)
	}
}
