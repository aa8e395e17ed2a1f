// Package seed loads ledger datasets from disk. The memory backend starts from
// one and ledgerctl imports one into SQLite.
package seed

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"backoffice/internal/ports"
	"backoffice/internal/sources"

	"github.com/shopspring/decimal"
)

const (
	LedgerFile     = "ledger.json"
	CategoriesFile = "seed_categories.txt"
)

type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// Dataset is the full content of a seed directory.
type Dataset struct {
	Accounts   []Account                 `json:"accounts"`
	Categories []string                  `json:"categories"`
	Manual     []ports.TransactionView   `json:"manual"`
	Billing    []sources.BillingReceipt  `json:"billing"`
	Customers  []sources.CustomerAccount `json:"customers"`
	Expenses   []sources.ExpenseRecord   `json:"expenses"`
	Purchases  []sources.Purchase        `json:"purchases"`
	Transport  []sources.TransportTrip   `json:"transport"`
}

// DefaultCategories are available even when no seed names any.
func DefaultCategories() []string {
	return []string{
		"Billing Payment",
		"Customer Payment",
		"Other Expense",
		"Purchase Payment",
		"Transport Payment",
		"Transfer",
	}
}

// LoadDir reads ledger.json and seed_categories.txt from dir. Missing files
// are not an error; a malformed ledger.json is.
func LoadDir(dir string) (Dataset, error) {
	var ds Dataset
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, LedgerFile))
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Dataset{}, fmt.Errorf("read %s: %w", LedgerFile, err)
		default:
			if err := json.Unmarshal(data, &ds); err != nil {
				return Dataset{}, fmt.Errorf("parse %s: %w", LedgerFile, err)
			}
		}
		ds.Categories = append(ds.Categories, readLines(filepath.Join(dir, CategoriesFile))...)
	}
	ds.Categories = dedupe(append(DefaultCategories(), ds.Categories...))
	return ds, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupe keeps the first occurrence and input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
