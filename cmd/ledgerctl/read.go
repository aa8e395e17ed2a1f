package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"backoffice/internal/core"

	"github.com/google/subcommands"
)

type ledgerCmd struct {
	from, to  string
	direction string
	category  string
	method    string
	search    string
	sort      string
}

func (*ledgerCmd) Name() string     { return "ledger" }
func (*ledgerCmd) Synopsis() string { return "list the unified ledger with totals" }
func (*ledgerCmd) Usage() string {
	return `ledgerctl ledger [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-direction all|in|out|transfer]
                [-category <name>] [-method <account|cash>] [-search <text>] [-sort <order>]

  Merges manual entries with every native payment source. Totals always
  cover all directions of the selected window.
`
}

func (c *ledgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day of the window (inclusive).")
	f.StringVar(&c.to, "to", "", "Last day of the window (inclusive).")
	f.StringVar(&c.direction, "direction", "all", "Direction filter.")
	f.StringVar(&c.category, "category", "", "Exact category name.")
	f.StringVar(&c.method, "method", "", "Exact payment method.")
	f.StringVar(&c.search, "search", "", "Case-insensitive text search.")
	f.StringVar(&c.sort, "sort", string(core.SortDateDesc), "date_asc, date_desc, amount_asc or amount_desc.")
}

func (c *ledgerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, err := parseDate("from", c.from)
	if err != nil {
		return fail(err)
	}
	to, err := parseDate("to", c.to)
	if err != nil {
		return fail(err)
	}

	res, cfg, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeLedger(res)

	out, err := res.Service.Aggregate(ctx, core.Filter{
		DateRange: core.NewDateRange(from, to),
		Direction: core.Direction(c.direction),
		Category:  c.category,
		Method:    c.method,
		Search:    c.search,
		Sort:      core.SortOrder(c.sort),
	})
	if err != nil {
		return fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTYPE\tAMOUNT\tCATEGORY\tMETHOD\tFROM\tTO\tSOURCE\tID")
	for _, t := range out.Transactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date.Format(dateLayout), t.Type, core.FormatAmount(t.Amount, cfg.Currency),
			t.Category, t.Method, t.CounterpartyFrom, t.CounterpartyTo, t.Source, t.ID)
	}
	_ = w.Flush()

	fmt.Printf("\n%d transactions  in %s  out %s  transfer %s  net %s\n",
		len(out.Transactions),
		core.FormatAmount(out.TotalIn, cfg.Currency),
		core.FormatAmount(out.TotalOut, cfg.Currency),
		core.FormatAmount(out.TotalTransfer, cfg.Currency),
		core.FormatAmount(out.Net(), cfg.Currency))
	return subcommands.ExitSuccess
}

type accountsCmd struct{}

func (*accountsCmd) Name() string           { return "accounts" }
func (*accountsCmd) Synopsis() string       { return "list accounts and their balances" }
func (*accountsCmd) Usage() string          { return "ledgerctl accounts\n" }
func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	res, cfg, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeLedger(res)

	accs, err := res.Service.ListAccounts(ctx)
	if err != nil {
		return fail(err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ID\tNAME\tBALANCE\t")
	for _, a := range accs {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", a.ID, a.Name, core.FormatAmount(a.Balance, cfg.Currency))
	}
	_ = w.Flush()
	return subcommands.ExitSuccess
}

type categoriesCmd struct {
	add string
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list categories, or add one with -add" }
func (*categoriesCmd) Usage() string {
	return "ledgerctl categories [-add <name>]\n"
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.add, "add", "", "Create this category if it does not exist.")
}

func (c *categoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	res, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeLedger(res)

	if c.add != "" {
		cat, err := res.Service.CreateCategory(ctx, c.add)
		if err != nil {
			return fail(err)
		}
		fmt.Println(cat.Name)
		return subcommands.ExitSuccess
	}

	cats, err := res.Service.ListCategories(ctx)
	if err != nil {
		return fail(err)
	}
	for _, cat := range cats {
		fmt.Println(cat.Name)
	}
	return subcommands.ExitSuccess
}
