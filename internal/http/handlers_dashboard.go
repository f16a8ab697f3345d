package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"presupuesto/internal/core"
	applog "presupuesto/internal/log"
	"presupuesto/internal/store"
)

// serveView answers a dashboard read, serving from the LRU cache when the
// view was computed recently for this scope. Cache keys are prefixed with the
// scope key so mutations can invalidate every view of one budget at once.
func (s *Server) serveView(w http.ResponseWriter, r *http.Request, view string, compute func(*core.Budget) any) {
	scope := scopeFrom(r)
	key := store.ScopeKey(scope) + ":" + view

	if data, ok := s.dashCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	b, err := s.budgets.GetBudget(r.Context(), scope)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Load budget failed", "view", view, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load budget")
		return
	}

	data, err := json.Marshal(compute(b))
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Encode view failed", "view", view, "error", err)
		writeError(w, http.StatusInternalServerError, "could not encode view")
		return
	}

	s.dashCache.Set(key, data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	s.serveView(w, r, fmt.Sprintf("split:%d-%02d", year, month), func(b *core.Budget) any {
		return b.Split(year, month)
	})
}

func (s *Server) handleCategorySpend(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	s.serveView(w, r, fmt.Sprintf("categories:%d-%02d", year, month), func(b *core.Budget) any {
		return b.CategorySpend(year, month)
	})
}

func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, "evolution", func(b *core.Budget) any {
		return b.MonthlyEvolution()
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	s.serveView(w, r, fmt.Sprintf("forecast:%d-%02d", now.Year(), int(now.Month())), func(b *core.Budget) any {
		return b.Forecast(now)
	})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	s.serveView(w, r, "reminders:"+now.Format("2006-01-02"), func(b *core.Budget) any {
		return b.PaymentReminders(now)
	})
}

func (s *Server) handlePassiveIncome(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, "passive-income", func(b *core.Budget) any {
		return map[string]core.Money{"monthly": b.PassiveIncome()}
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, "balances", func(b *core.Budget) any {
		return b.Balances()
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, "history", func(b *core.Budget) any {
		return b.History()
	})
}

// goalProgress augments a goal with its required saving pace.
type goalProgress struct {
	core.Goal
	MonthsLeft   int        `json:"months_left"`
	NeedPerMonth core.Money `json:"need_per_month"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	s.serveView(w, r, "goals:"+now.Format("2006-01-02"), func(b *core.Budget) any {
		progress := make([]goalProgress, len(b.Goals))
		for i, g := range b.Goals {
			progress[i] = goalProgress{
				Goal:         g,
				MonthsLeft:   g.MonthsLeft(now),
				NeedPerMonth: g.NeedPerMonth(now),
			}
		}
		return progress
	})
}
