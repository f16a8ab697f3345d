package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"presupuesto/internal/auth"
	"presupuesto/internal/core"
	"presupuesto/internal/services"
	"presupuesto/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	users, err := auth.NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	srv := NewServer(":0", services.NewBudgetService(fs, nil), users, auth.NewTokenIssuer("test-secret-0123456789", time.Hour))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

// loginAs registers a user and returns a valid bearer token.
func loginAs(t *testing.T, srv *Server, username string) string {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"password":"hunter22"}`, username)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp.Token
}

// do issues an authenticated JSON request against the test server.
func do(t *testing.T, srv *Server, token, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	token := loginAs(t, srv, "alice")
	if token == "" {
		t.Fatal("expected token")
	}

	// Duplicate registration
	body := `{"username":"alice","password":"hunter22"}`
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body)))
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rr.Code)
	}

	// Wrong password
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rr.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	// No token
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/budget", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rr.Code)
	}

	// Garbage token
	req := httptest.NewRequest(http.MethodGet, "/api/budget", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "alice")

	rr := do(t, srv, token, http.MethodGet, "/api/budget", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestProfilesAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "alice")

	acct := core.Account{Name: "Checking", Type: core.Debit, Balance: core.Money{Cents: 100_00}}
	rr := do(t, srv, token, http.MethodPost, "/api/accounts?profile=personal", acct)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add account status = %d, body %s", rr.Code, rr.Body.String())
	}

	var personal, shared core.Budget
	rr = do(t, srv, token, http.MethodGet, "/api/budget?profile=personal", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &personal); err != nil {
		t.Fatalf("decode personal: %v", err)
	}
	rr = do(t, srv, token, http.MethodGet, "/api/budget?profile=shared", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &shared); err != nil {
		t.Fatalf("decode shared: %v", err)
	}

	if findAccount(&personal, "Checking") == nil {
		t.Error("Checking missing from personal profile")
	}
	if findAccount(&shared, "Checking") != nil {
		t.Error("Checking leaked into shared profile")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request 61 should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other client should not be limited")
	}
}
