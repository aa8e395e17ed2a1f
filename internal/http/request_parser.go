package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "2006-01-02"
	maxRequestBody = 1 << 20
)

// errMalformedRequest marks bodies that are not the expected JSON document.
var errMalformedRequest = errors.New("malformed request")

type paymentRequest struct {
	Date             string      `json:"date"`
	Amount           json.Number `json:"amount"`
	Category         string      `json:"category"`
	Method           string      `json:"method"`
	CounterpartyFrom string      `json:"counterpartyFrom"`
	CounterpartyTo   string      `json:"counterpartyTo"`
	Remark           string      `json:"remark"`
}

type transferRequest struct {
	Date             string      `json:"date"`
	Amount           json.Number `json:"amount"`
	Category         string      `json:"category"`
	CounterpartyFrom string      `json:"counterpartyFrom"`
	CounterpartyTo   string      `json:"counterpartyTo"`
	Remark           string      `json:"remark"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errMalformedRequest)
	}
	return nil
}

func (p paymentRequest) toEntry() (core.PaymentEntry, error) {
	date, err := parseOptionalDate("date", p.Date)
	if err != nil {
		return core.PaymentEntry{}, err
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return core.PaymentEntry{}, err
	}
	return core.PaymentEntry{
		Date:             date,
		Amount:           amount,
		Category:         sanitizeInput(p.Category),
		Method:           sanitizeInput(p.Method),
		CounterpartyFrom: sanitizeInput(p.CounterpartyFrom),
		CounterpartyTo:   sanitizeInput(p.CounterpartyTo),
		Remark:           sanitizeInput(p.Remark),
	}, nil
}

func (t transferRequest) toEntry() (core.TransferEntry, error) {
	date, err := parseOptionalDate("date", t.Date)
	if err != nil {
		return core.TransferEntry{}, err
	}
	amount, err := parseAmount(t.Amount)
	if err != nil {
		return core.TransferEntry{}, err
	}
	return core.TransferEntry{
		Date:             date,
		Amount:           amount,
		Category:         sanitizeInput(t.Category),
		CounterpartyFrom: sanitizeInput(t.CounterpartyFrom),
		CounterpartyTo:   sanitizeInput(t.CounterpartyTo),
		Remark:           sanitizeInput(t.Remark),
	}, nil
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	d, err := core.ParseAmount(n.String())
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "amount", Message: "must be a positive number", Err: err}
	}
	return d, nil
}

// parseFilter reads the ledger query string. Unknown keys are ignored.
func parseFilter(q url.Values) (core.Filter, error) {
	from, err := parseOptionalDate("from", q.Get("from"))
	if err != nil {
		return core.Filter{}, err
	}
	to, err := parseOptionalDate("to", q.Get("to"))
	if err != nil {
		return core.Filter{}, err
	}
	f := core.Filter{
		DateRange: core.NewDateRange(from, to),
		Direction: core.Direction(strings.ToLower(strings.TrimSpace(q.Get("direction")))),
		Category:  sanitizeInput(q.Get("category")),
		Method:    sanitizeInput(q.Get("method")),
		Search:    sanitizeInput(q.Get("search")),
		Sort:      core.SortOrder(strings.ToLower(strings.TrimSpace(q.Get("sort")))),
	}
	return f.Normalize(), nil
}

func parseOptionalDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// pathParam returns the unescaped value of a route parameter.
func pathParam(raw string) (string, error) {
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: bad path parameter", errMalformedRequest)
	}
	return v, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
