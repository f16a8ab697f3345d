package http

import (
	"net/http"

	"presupuesto/internal/core"
	applog "presupuesto/internal/log"
	"presupuesto/internal/store"
)

// invalidateDashboards drops every cached dashboard view for a scope. Called
// after any mutation so reads never serve stale aggregates.
func (s *Server) invalidateDashboards(scope core.Scope) {
	s.dashCache.DeletePrefix(store.ScopeKey(scope) + ":")
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	s.handleRecordTransaction(w, r, "income")
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	s.handleRecordTransaction(w, r, "expense")
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request, kind string) {
	var tx core.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx.Category = sanitizeInput(tx.Category)
	tx.Subcategory = sanitizeInput(tx.Subcategory)
	tx.Source = sanitizeInput(tx.Source)

	scope := scopeFrom(r)
	var err error
	if kind == "income" {
		err = s.budgets.RecordIncome(r.Context(), scope, tx)
	} else {
		err = s.budgets.RecordExpense(r.Context(), scope, tx)
	}
	if err != nil {
		status := domainStatus(err)
		if status == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Record transaction failed", "kind", kind, "error", err)
			writeError(w, status, "could not save transaction")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	s.invalidateDashboards(scope)
	writeJSON(w, http.StatusCreated, tx)
}

type deleteIndicesRequest struct {
	Indices []int `json:"indices"`
}

type deletedTransactionsResponse struct {
	Deleted []core.Transaction `json:"deleted"`
}

func (s *Server) handleDeleteIncomes(w http.ResponseWriter, r *http.Request) {
	s.handleDeleteTransactions(w, r, "income")
}

func (s *Server) handleDeleteExpenses(w http.ResponseWriter, r *http.Request) {
	s.handleDeleteTransactions(w, r, "expense")
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request, kind string) {
	var req deleteIndicesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Indices) == 0 {
		writeError(w, http.StatusBadRequest, "indices are required")
		return
	}

	scope := scopeFrom(r)
	var (
		removed []core.Transaction
		err     error
	)
	if kind == "income" {
		removed, err = s.budgets.DeleteIncomes(r.Context(), scope, req.Indices)
	} else {
		removed, err = s.budgets.DeleteExpenses(r.Context(), scope, req.Indices)
	}
	if err != nil {
		status := domainStatus(err)
		if status == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Delete transactions failed", "kind", kind, "error", err)
			writeError(w, status, "could not delete transactions")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	s.invalidateDashboards(scope)
	writeJSON(w, http.StatusOK, deletedTransactionsResponse{Deleted: removed})
}
