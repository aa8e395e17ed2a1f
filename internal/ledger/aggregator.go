package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Aggregator merges every source into one de-duplicated, ordered ledger.
// It holds no state between calls.
type Aggregator struct {
	adapters []ports.SourceAdapter
	timeout  time.Duration
}

type AggregatorOption func(*Aggregator)

// WithFetchTimeout bounds every Aggregate call, on top of the caller's deadline.
func WithFetchTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.timeout = d }
}

// NewAggregator keeps adapters in the given order; that order breaks sort ties.
func NewAggregator(adapters []ports.SourceAdapter, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{adapters: slices.Clone(adapters)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate fetches all sources in parallel and builds the filtered ledger.
// Any source failure fails the whole call; no partial ledger is returned.
func (a *Aggregator) Aggregate(ctx context.Context, filter core.Filter) (core.AggregateResult, error) {
	f := filter.Normalize()
	if err := f.Validate(); err != nil {
		return core.AggregateResult{}, err
	}

	start := time.Now()
	batches, err := a.fetchAll(ctx, f.DateRange)
	if err != nil {
		slog.WarnContext(ctx, "Ledger aggregation failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return core.AggregateResult{}, err
	}

	list := collect(batches, f, f.Direction)
	sortTransactions(list, f.Sort)

	res := core.AggregateResult{Transactions: list}
	res.TotalIn, res.TotalOut, res.TotalTransfer = totals(collect(batches, f, core.DirectionAll))

	slog.DebugContext(ctx, "Ledger aggregated",
		"sources", len(batches),
		"transactions", len(list),
		"direction", f.Direction,
		"sort", f.Sort,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// fetchAll runs the adapters concurrently; the first failure cancels the rest.
// Batches keep adapter order regardless of completion order.
func (a *Aggregator) fetchAll(ctx context.Context, window core.DateRange) ([][]core.Transaction, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	batches := make([][]core.Transaction, len(a.adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, ad := range a.adapters {
		g.Go(func() error {
			txs, err := ad.Fetch(gctx, window)
			if err != nil {
				return &core.AdapterFailure{Source: ad.Source(), Err: err}
			}
			for _, t := range txs {
				if err := checkContract(ad.Source(), t); err != nil {
					return &core.AdapterFailure{Source: ad.Source(), Err: err}
				}
			}
			batches[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate ledger: %w", err)
	}
	// An adapter that ignores cancellation must not leak a late partial result.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregate ledger: %w", err)
	}
	return batches, nil
}

func checkContract(src core.Source, t core.Transaction) error {
	if t.Source != src {
		return fmt.Errorf("transaction %q tagged %s", t.ID, t.Source)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("transaction %q: %w", t.ID, err)
	}
	return nil
}

// collect applies the direction restriction, de-duplicates by id keeping the
// first occurrence, then applies category, method and search filters.
func collect(batches [][]core.Transaction, f core.Filter, direction core.Direction) []core.Transaction {
	byDirection := f
	byDirection.Direction = direction

	seen := make(map[string]struct{})
	var out []core.Transaction
	for _, batch := range batches {
		for _, t := range batch {
			if !byDirection.Admits(t) {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			if f.Matches(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// sortTransactions is stable, so ties keep adapter fetch order.
func sortTransactions(txs []core.Transaction, order core.SortOrder) {
	var cmp func(a, b core.Transaction) int
	switch order {
	case core.SortDateAsc:
		cmp = func(a, b core.Transaction) int { return a.Date.Compare(b.Date) }
	case core.SortAmountAsc:
		cmp = func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) }
	case core.SortAmountDesc:
		cmp = func(a, b core.Transaction) int { return b.Amount.Cmp(a.Amount) }
	default:
		cmp = func(a, b core.Transaction) int { return b.Date.Compare(a.Date) }
	}
	slices.SortStableFunc(txs, cmp)
}

func totals(txs []core.Transaction) (in, out, transfer decimal.Decimal) {
	in, out, transfer = decimal.Zero, decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case core.In:
			in = in.Add(t.Amount)
		case core.Out:
			out = out.Add(t.Amount)
		case core.Transfer:
			transfer = transfer.Add(t.Amount)
		}
	}
	return in, out, transfer
}
