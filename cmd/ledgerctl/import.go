package main

import (
	"context"
	"flag"
	"fmt"

	"backoffice/internal/seed"
	"backoffice/internal/storage"

	"github.com/google/subcommands"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "load a seed directory into the SQLite database" }
func (*importCmd) Usage() string {
	return `ledgerctl [-db <path>] import <seed dir>

  Reads ledger.json and seed_categories.txt from the directory. Accounts are
  upserted, native records are replaced, manual entries already present
  are kept.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	ds, err := seed.LoadDir(f.Arg(0))
	if err != nil {
		return fail(err)
	}

	cfg := loadConfig()
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	if err := repo.Import(ctx, ds); err != nil {
		return fail(err)
	}
	fmt.Printf("imported %d accounts, %d categories, %d manual entries, %d billing receipts, %d customers, %d expenses, %d purchases, %d trips into %s\n",
		len(ds.Accounts), len(ds.Categories), len(ds.Manual), len(ds.Billing),
		len(ds.Customers), len(ds.Expenses), len(ds.Purchases), len(ds.Transport), cfg.SQLiteDBPath)
	return subcommands.ExitSuccess
}
