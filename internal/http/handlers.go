package http

import (
	"net/http"

	"backoffice/internal/core"
	applog "backoffice/internal/log"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(ctx, w, applog.OpAggregate, err)
		return
	}
	res, err := s.api.Aggregate(ctx, f)
	if err != nil {
		writeError(ctx, w, applog.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledgerBody(res))
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dir := core.Direction(chi.URLParam(r, "direction"))
	if dir != core.In && dir != core.Out {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "payment direction must be in or out"})
		return
	}

	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, applog.OpRecord, err)
		return
	}
	entry, err := req.toEntry()
	if err != nil {
		writeError(ctx, w, applog.OpRecord, err)
		return
	}

	t, err := s.api.RecordPayment(ctx, dir, entry)
	if err != nil {
		writeError(ctx, w, applog.OpRecord, err)
		return
	}
	s.logWrite(r, applog.OpRecord, t)
	writeJSON(w, http.StatusCreated, transactionBody(t))
}

func (s *Server) handleRecordTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, applog.OpTransfer, err)
		return
	}
	entry, err := req.toEntry()
	if err != nil {
		writeError(ctx, w, applog.OpTransfer, err)
		return
	}

	t, err := s.api.RecordTransfer(ctx, entry)
	if err != nil {
		writeError(ctx, w, applog.OpTransfer, err)
		return
	}
	s.logWrite(r, applog.OpTransfer, t)
	writeJSON(w, http.StatusCreated, transactionBody(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, applog.OpDelete, err)
		return
	}
	if err := s.api.DeleteManualTransaction(ctx, id); err != nil {
		writeError(ctx, w, applog.OpDelete, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Manual transaction deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldTransactionID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accs, err := s.api.ListAccounts(r.Context())
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	body := make([]accountResponse, len(accs))
	for i, a := range accs {
		body[i] = s.accountBody(a)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	acc, err := s.api.GetAccount(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, s.accountBody(acc))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.api.ListCategories(r.Context())
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	body := make([]categoryResponse, len(cats))
	for i, c := range cats {
		body[i] = categoryResponse{Name: c.Name}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}
	c, err := s.api.CreateCategory(ctx, sanitizeInput(req.Name))
	if err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{Name: c.Name})
}

func (s *Server) logWrite(r *http.Request, op string, t core.Transaction) {
	fields := applog.NewFields().
		WithOperation(op).
		WithTransaction(t.ID, string(t.Type), string(t.Source), t.Amount.StringFixed(2), t.Category, t.Method)
	applog.FromContext(r.Context()).InfoContext(r.Context(),
		"Manual transaction recorded", fields.ToSlice()...)
}
