package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDirMissingFilesUsesDefaults(t *testing.T) {
	ds, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(ds.Categories) != len(DefaultCategories()) {
		t.Fatalf("categories = %v, want defaults", ds.Categories)
	}
	if len(ds.Accounts) != 0 || len(ds.Expenses) != 0 {
		t.Fatalf("unexpected records in empty dataset: %+v", ds)
	}
}

func TestLoadDirParsesLedgerAndCategories(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite(CategoriesFile, "# header\nFuel\nSales\nFuel\n\nOther Expense\n")
	mustWrite(LedgerFile, `{
		"accounts": [{"id": "bank", "name": "Main bank", "balance": "1500.50"}],
		"categories": ["Rent"],
		"billing": [{"billNo": "B-1", "customer": "Acme", "payments": [
			{"date": "2024-01-15T00:00:00Z", "amount": "1200"}
		]}],
		"expenses": [{"date": "2024-01-05T00:00:00Z", "amount": "300", "paidTo": "Landlord"}]
	}`)

	ds, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(ds.Accounts) != 1 || !ds.Accounts[0].Balance.Equal(decimal.RequireFromString("1500.50")) {
		t.Errorf("accounts = %+v", ds.Accounts)
	}
	if len(ds.Billing) != 1 || len(ds.Billing[0].Payments) != 1 {
		t.Errorf("billing = %+v", ds.Billing)
	}
	if len(ds.Expenses) != 1 || ds.Expenses[0].PaidTo != "Landlord" {
		t.Errorf("expenses = %+v", ds.Expenses)
	}

	want := append(DefaultCategories(), "Rent", "Fuel", "Sales")
	if len(ds.Categories) != len(want) {
		t.Fatalf("categories = %v, want %v", ds.Categories, want)
	}
	for i := range want {
		if ds.Categories[i] != want[i] {
			t.Errorf("categories[%d] = %q, want %q", i, ds.Categories[i], want[i])
		}
	}
}

func TestLoadDirRejectsMalformedLedger(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LedgerFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected error for malformed ledger.json")
	}
}
