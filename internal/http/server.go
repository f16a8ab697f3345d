// Package http exposes the budget API over JSON endpoints.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"presupuesto/internal/auth"
	"presupuesto/internal/cache"
	applog "presupuesto/internal/log"
	"presupuesto/internal/services"
)

// Server wraps http.Server with the budget service, auth components and a
// per-scope dashboard cache.
type Server struct {
	http.Server

	budgets *services.BudgetService
	users   *auth.Registry
	tokens  *auth.TokenIssuer

	rateLimiter  *rateLimiter
	dashCache    *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// rateLimiter tracks request counts per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup removes clients that have been idle for more than 10 minutes.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and caches, returning a ready-to-run http.Server.
func NewServer(addr string, budgets *services.BudgetService, users *auth.Registry, tokens *auth.TokenIssuer) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		budgets:      budgets,
		users:        users,
		tokens:       tokens,
		rateLimiter:  newRateLimiter(),
		dashCache:    cache.NewLRUCache[[]byte](500, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.withSecurityHeaders(s.handleLogin))

	mux.HandleFunc("GET /api/budget", s.authenticated(s.handleGetBudget))
	mux.HandleFunc("DELETE /api/budget", s.authenticated(s.handleDeleteProfile))

	mux.HandleFunc("POST /api/incomes", s.authenticated(s.handleRecordIncome))
	mux.HandleFunc("DELETE /api/incomes", s.authenticated(s.handleDeleteIncomes))
	mux.HandleFunc("POST /api/expenses", s.authenticated(s.handleRecordExpense))
	mux.HandleFunc("DELETE /api/expenses", s.authenticated(s.handleDeleteExpenses))

	mux.HandleFunc("POST /api/accounts", s.authenticated(s.handleAddAccount))
	mux.HandleFunc("PUT /api/accounts/{name}", s.authenticated(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{name}", s.authenticated(s.handleRemoveAccount))

	mux.HandleFunc("POST /api/cards", s.authenticated(s.handleAddCard))
	mux.HandleFunc("PUT /api/cards/{name}", s.authenticated(s.handleUpdateCard))
	mux.HandleFunc("DELETE /api/cards/{name}", s.authenticated(s.handleRemoveCard))

	mux.HandleFunc("POST /api/debts", s.authenticated(s.handleAddDebt))
	mux.HandleFunc("PUT /api/debts/{name}", s.authenticated(s.handleUpdateDebt))
	mux.HandleFunc("DELETE /api/debts/{name}", s.authenticated(s.handleRemoveDebt))

	mux.HandleFunc("POST /api/goals", s.authenticated(s.handleAddGoal))
	mux.HandleFunc("PUT /api/goals/{index}", s.authenticated(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{name}", s.authenticated(s.handleRemoveGoal))
	mux.HandleFunc("POST /api/goals/{index}/contributions", s.authenticated(s.handleGoalContribution))

	mux.HandleFunc("GET /api/dashboard/split", s.authenticated(s.handleSplit))
	mux.HandleFunc("GET /api/dashboard/categories", s.authenticated(s.handleCategorySpend))
	mux.HandleFunc("GET /api/dashboard/evolution", s.authenticated(s.handleEvolution))
	mux.HandleFunc("GET /api/dashboard/forecast", s.authenticated(s.handleForecast))
	mux.HandleFunc("GET /api/dashboard/reminders", s.authenticated(s.handleReminders))
	mux.HandleFunc("GET /api/dashboard/passive-income", s.authenticated(s.handlePassiveIncome))
	mux.HandleFunc("GET /api/dashboard/balances", s.authenticated(s.handleBalances))
	mux.HandleFunc("GET /api/dashboard/history", s.authenticated(s.handleHistory))
	mux.HandleFunc("GET /api/dashboard/goals", s.authenticated(s.handleGoals))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		reqLogger := applog.FromContext(ctx).With(applog.FieldRequestID, requestID)
		ctx = applog.IntoContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		reqLogger.InfoContext(ctx, "Request started",
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating requests only
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		reqLogger.InfoContext(ctx, "Request completed",
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
