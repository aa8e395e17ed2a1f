package main

import (
	"context"
	"flag"
	"fmt"

	"backoffice/internal/core"

	"github.com/google/subcommands"
)

type payCmd struct {
	date     string
	amount   string
	category string
	method   string
	from, to string
	remark   string
}

func (*payCmd) Name() string     { return "pay" }
func (*payCmd) Synopsis() string { return "record a manual payment in or out" }
func (*payCmd) Usage() string {
	return `ledgerctl pay in|out -amount <n> -category <name> -method <account|cash>
              [-from <payer>] [-to <payee>] [-date YYYY-MM-DD] [-remark <text>]

  Incoming payments need -from, outgoing ones need -to. Unknown categories
  are created. The account named by -method is credited or debited.
`
}

func (c *payCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "Payment day, today when empty.")
	f.StringVar(&c.amount, "amount", "", "Positive amount.")
	f.StringVar(&c.category, "category", "", "Category name.")
	f.StringVar(&c.method, "method", core.MethodCash, "Account id or cash.")
	f.StringVar(&c.from, "from", "", "Payer.")
	f.StringVar(&c.to, "to", "", "Payee.")
	f.StringVar(&c.remark, "remark", "", "Free text.")
}

func (c *payCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	dir := core.Direction(f.Arg(0))
	if dir != core.In && dir != core.Out {
		f.Usage()
		return subcommands.ExitUsageError
	}
	date, err := parseDate("date", c.date)
	if err != nil {
		return fail(err)
	}
	amount, err := parseAmount(c.amount)
	if err != nil {
		return fail(err)
	}

	res, cfg, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeLedger(res)

	t, err := res.Service.RecordPayment(ctx, dir, core.PaymentEntry{
		Date:             date,
		Amount:           amount,
		Category:         c.category,
		Method:           c.method,
		CounterpartyFrom: c.from,
		CounterpartyTo:   c.to,
		Remark:           c.remark,
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("recorded %s %s %s (%s)\n", t.Type, core.FormatAmount(t.Amount, cfg.Currency), t.Category, t.ID)
	return subcommands.ExitSuccess
}

type transferCmd struct {
	date     string
	amount   string
	category string
	from, to string
	remark   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts or cash" }
func (*transferCmd) Usage() string {
	return `ledgerctl transfer -amount <n> -from <account|cash> -to <account|cash>
                   [-category <name>] [-date YYYY-MM-DD] [-remark <text>]
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "Transfer day, today when empty.")
	f.StringVar(&c.amount, "amount", "", "Positive amount.")
	f.StringVar(&c.category, "category", "", "Category name, Transfer when empty.")
	f.StringVar(&c.from, "from", "", "Source account id or cash.")
	f.StringVar(&c.to, "to", "", "Destination account id or cash.")
	f.StringVar(&c.remark, "remark", "", "Free text.")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := parseDate("date", c.date)
	if err != nil {
		return fail(err)
	}
	amount, err := parseAmount(c.amount)
	if err != nil {
		return fail(err)
	}

	res, cfg, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeLedger(res)

	t, err := res.Service.RecordTransfer(ctx, core.TransferEntry{
		Date:             date,
		Amount:           amount,
		Category:         c.category,
		CounterpartyFrom: c.from,
		CounterpartyTo:   c.to,
		Remark:           c.remark,
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("transferred %s from %s to %s (%s)\n",
		core.FormatAmount(t.Amount, cfg.Currency), t.CounterpartyFrom, t.CounterpartyTo, t.ID)
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string           { return "delete" }
func (*deleteCmd) Synopsis() string       { return "delete a manual transaction and undo its balance effect" }
func (*deleteCmd) Usage() string          { return "ledgerctl delete <transaction id>\n" }
func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	res, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeLedger(res)

	if err := res.Service.DeleteManualTransaction(ctx, f.Arg(0)); err != nil {
		return fail(err)
	}
	fmt.Println("deleted", f.Arg(0))
	return subcommands.ExitSuccess
}
