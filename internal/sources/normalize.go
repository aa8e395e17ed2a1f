package sources

import (
	"fmt"
	"strings"

	"backoffice/internal/core"
)

// flatten turns a nested payment history into one transaction per line.
// Lines without their own id get core.DeriveID(source, parentKey, ordinal).
func flatten(src core.Source, parentKey, from, to string, lines []PaymentLine) ([]core.Transaction, error) {
	dir, _ := src.FixedDirection()
	out := make([]core.Transaction, 0, len(lines))
	for i, l := range lines {
		if l.Amount.IsNegative() {
			return nil, fmt.Errorf("%s %s payment %d: negative amount %s", src, parentKey, i, l.Amount)
		}
		id := strings.TrimSpace(l.ID)
		if id == "" {
			id = core.DeriveID(core.IDParts{Source: src, ParentKey: parentKey, Ordinal: i})
		}
		out = append(out, core.Transaction{
			ID:               id,
			Date:             l.Date,
			Amount:           l.Amount,
			Type:             dir,
			Source:           src,
			Category:         categoryOr(l.Category, src),
			Method:           methodOr(l.Method),
			CounterpartyFrom: from,
			CounterpartyTo:   to,
			Remark:           l.Remark,
		})
	}
	return out, nil
}

func normalizeBilling(r BillingReceipt) ([]core.Transaction, error) {
	return flatten(core.SourceBillingPayment, r.BillNo, r.Customer, "", r.Payments)
}

func normalizeCustomer(c CustomerAccount) ([]core.Transaction, error) {
	return flatten(core.SourceCustomerPayment, c.CustomerID, c.Name, "", c.Payments)
}

func normalizePurchase(p Purchase) ([]core.Transaction, error) {
	return flatten(core.SourcePurchasePayment, p.PurchaseNo, "", p.Supplier, p.Payments)
}

func normalizeTransport(t TransportTrip) ([]core.Transaction, error) {
	to := t.Transporter
	if t.Vehicle != "" {
		to = fmt.Sprintf("%s (%s)", t.Transporter, t.Vehicle)
	}
	return flatten(core.SourceTransportPayment, t.TripID, "", to, t.Payments)
}

// normalizeExpenses keeps list order for the ordinal of id-less records,
// keyed by the expense day so unrelated days never share ids.
func normalizeExpenses(records []ExpenseRecord) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(records))
	perDay := make(map[string]int)
	for _, e := range records {
		if e.Amount.IsNegative() {
			return nil, fmt.Errorf("expense %s: negative amount %s", e.ID, e.Amount)
		}
		day := e.Date.Format("2006-01-02")
		ordinal := perDay[day]
		perDay[day]++
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = core.DeriveID(core.IDParts{Source: core.SourceExpense, ParentKey: day, Ordinal: ordinal})
		}
		out = append(out, core.Transaction{
			ID:             id,
			Date:           e.Date,
			Amount:         e.Amount,
			Type:           core.Out,
			Source:         core.SourceExpense,
			Category:       categoryOr(e.Category, core.SourceExpense),
			Method:         methodOr(e.Method),
			CounterpartyTo: e.PaidTo,
			Remark:         e.Remark,
		})
	}
	return out, nil
}

func categoryOr(c string, src core.Source) string {
	if c = strings.TrimSpace(c); c != "" {
		return c
	}
	return src.DefaultCategory()
}

func methodOr(m string) string {
	if m = strings.TrimSpace(m); m != "" {
		return m
	}
	return core.MethodCash
}
