package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"backoffice/internal/core"
	applog "backoffice/internal/log"
	"backoffice/internal/ports"

	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type ledgerResponse struct {
	Transactions []ports.TransactionView `json:"transactions"`
	Count        int                     `json:"count"`
	Totals       totalsResponse          `json:"totals"`
}

type totalsResponse struct {
	Currency  string          `json:"currency"`
	In        decimal.Decimal `json:"in"`
	Out       decimal.Decimal `json:"out"`
	Transfer  decimal.Decimal `json:"transfer"`
	Net       decimal.Decimal `json:"net"`
	Formatted formattedTotals `json:"formatted"`
}

type formattedTotals struct {
	In       string `json:"in"`
	Out      string `json:"out"`
	Transfer string `json:"transfer"`
	Net      string `json:"net"`
}

type accountResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Formatted string          `json:"formatted"`
}

type categoryResponse struct {
	Name string `json:"name"`
}

func (s *Server) ledgerBody(res core.AggregateResult) ledgerResponse {
	views := make([]ports.TransactionView, len(res.Transactions))
	for i, t := range res.Transactions {
		views[i] = ports.NewTransactionView(t)
	}
	net := res.Net()
	return ledgerResponse{
		Transactions: views,
		Count:        len(views),
		Totals: totalsResponse{
			Currency: s.currency,
			In:       res.TotalIn,
			Out:      res.TotalOut,
			Transfer: res.TotalTransfer,
			Net:      net,
			Formatted: formattedTotals{
				In:       core.FormatAmount(res.TotalIn, s.currency),
				Out:      core.FormatAmount(res.TotalOut, s.currency),
				Transfer: core.FormatAmount(res.TotalTransfer, s.currency),
				Net:      core.FormatAmount(net, s.currency),
			},
		},
	}
}

func (s *Server) accountBody(a core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   a.Balance,
		Formatted: core.FormatAmount(a.Balance, s.currency),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a domain error onto an HTTP status and logs it.
func writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, errType := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		body.Error = "internal error"
	}

	fields := applog.NewFields().WithOperation(op).WithError(err, errType)
	logger := applog.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Ledger request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(ctx, "Ledger request rejected", fields.ToSlice()...)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errMalformedRequest):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, applog.ErrorTypeTimeout
	case core.IsBalanceUpdateFailure(err):
		return http.StatusInternalServerError, applog.ErrorTypeDatabase
	case core.IsAdapterFailure(err):
		return http.StatusBadGateway, applog.ErrorTypeUpstream
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

func transactionBody(t core.Transaction) ports.TransactionView {
	return ports.NewTransactionView(t)
}
