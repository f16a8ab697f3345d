package http

import (
	"net/http"
	"strconv"

	"presupuesto/internal/core"
	applog "presupuesto/internal/log"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.GetBudget(r.Context(), scopeFrom(r))
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Load budget failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load budget")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	if err := s.budgets.DeleteProfile(r.Context(), scope); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Delete profile failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete profile")
		return
	}
	s.invalidateDashboards(scope)
	w.WriteHeader(http.StatusNoContent)
}

// writeMutation reports a mutation result, translating domain errors.
func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, scope core.Scope, op string, status int, err error) {
	if err != nil {
		code := domainStatus(err)
		if code == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Mutation failed", "op", op, "error", err)
			writeError(w, code, "could not save changes")
			return
		}
		writeError(w, code, err.Error())
		return
	}
	s.invalidateDashboards(scope)
	w.WriteHeader(status)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.Name = sanitizeInput(a.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "add_account", http.StatusCreated, s.budgets.AddAccount(r.Context(), scope, a))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.Name = sanitizeInput(a.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "update_account", http.StatusOK,
		s.budgets.UpdateAccount(r.Context(), scope, r.PathValue("name"), a))
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "remove_account", http.StatusNoContent,
		s.budgets.RemoveAccount(r.Context(), scope, r.PathValue("name")))
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var c core.CreditCard
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.Name = sanitizeInput(c.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "add_card", http.StatusCreated, s.budgets.AddCard(r.Context(), scope, c))
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var c core.CreditCard
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.Name = sanitizeInput(c.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "update_card", http.StatusOK,
		s.budgets.UpdateCard(r.Context(), scope, r.PathValue("name"), c))
}

func (s *Server) handleRemoveCard(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "remove_card", http.StatusNoContent,
		s.budgets.RemoveCard(r.Context(), scope, r.PathValue("name")))
}

func (s *Server) handleAddDebt(w http.ResponseWriter, r *http.Request) {
	var d core.Debt
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d.Name = sanitizeInput(d.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "add_debt", http.StatusCreated, s.budgets.AddDebt(r.Context(), scope, d))
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	var d core.Debt
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d.Name = sanitizeInput(d.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "update_debt", http.StatusOK,
		s.budgets.UpdateDebt(r.Context(), scope, r.PathValue("name"), d))
}

func (s *Server) handleRemoveDebt(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "remove_debt", http.StatusNoContent,
		s.budgets.RemoveDebt(r.Context(), scope, r.PathValue("name")))
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var g core.Goal
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g.Name = sanitizeInput(g.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "add_goal", http.StatusCreated, s.budgets.AddGoal(r.Context(), scope, g))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal index")
		return
	}
	var g core.Goal
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g.Name = sanitizeInput(g.Name)
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "update_goal", http.StatusOK,
		s.budgets.UpdateGoal(r.Context(), scope, index, g))
}

func (s *Server) handleRemoveGoal(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "remove_goal", http.StatusNoContent,
		s.budgets.RemoveGoal(r.Context(), scope, r.PathValue("name")))
}

type contributionRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleGoalContribution(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal index")
		return
	}
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope := scopeFrom(r)
	s.writeMutation(w, r, scope, "goal_contribution", http.StatusOK,
		s.budgets.AddGoalContribution(r.Context(), scope, index, req.Amount))
}
