package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/chartwatch/internal/shared"
	"golang.org/x/oauth2"
)

const loginPage = `<!DOCTYPE html>
<html><body>
<form method="post" action="/login/">
  <input type="hidden" name="csrfmiddlewaretoken" value="csrf-123">
  <input type="hidden" name="next" value="/o/authorize/continue">
  <input type="text" name="username">
  <input type="password" name="password">
</form>
</body></html>`

// identityProvider is a fake OAuth provider covering the authorize page,
// login form, redirect target, and token endpoint.
type identityProvider struct {
	mux        *http.ServeMux
	server     *httptest.Server
	tokenCalls atomic.Int64
}

func newIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()

	p := &identityProvider{mux: http.NewServeMux()}
	p.server = httptest.NewServer(p.mux)
	t.Cleanup(p.server.Close)

	p.mux.HandleFunc("GET /o/authorize/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage)
	})

	p.mux.HandleFunc("POST /login/", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("csrfmiddlewaretoken") != "csrf-123" {
			http.Error(w, "missing csrf", http.StatusForbidden)
			return
		}
		if r.FormValue("username") != "operator" || r.FormValue("password") != "secret" {
			// Wrong credentials land back on the login page, no code.
			fmt.Fprint(w, loginPage)
			return
		}
		http.Redirect(w, r, p.server.URL+"/account/oauth-login?code=auth-code-1", http.StatusFound)
	})

	p.mux.HandleFunc("GET /account/oauth-login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	p.mux.HandleFunc("POST /o/token/", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		switch r.FormValue("grant_type") {
		case "authorization_code":
			if r.FormValue("code") != "auth-code-1" || r.FormValue("code_verifier") == "" {
				http.Error(w, "invalid code", http.StatusBadRequest)
				return
			}
			writeTokenJSON(w, "access-1", "refresh-1")
		case "refresh_token":
			if r.FormValue("refresh_token") != "refresh-1" {
				http.Error(w, "invalid refresh token", http.StatusBadRequest)
				return
			}
			// Refresh responses omit the refresh token.
			writeTokenJSON(w, "access-2", "")
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
		}
	})

	return p
}

func writeTokenJSON(w http.ResponseWriter, access, refresh string) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if refresh != "" {
		payload["refresh_token"] = refresh
	}
	json.NewEncoder(w).Encode(payload)
}

func newTestManager(t *testing.T, p *identityProvider, store CredentialStore) *TokenManager {
	t.Helper()

	cfg := shared.AuthConfig{
		Username:    "operator",
		Password:    "secret",
		ClientID:    "test-client",
		BaseURL:     p.server.URL,
		RedirectURI: p.server.URL + "/account/oauth-login",
	}
	if store == nil {
		store = NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
	}

	return NewTokenManager(cfg, store, &http.Client{Timeout: 5 * time.Second}, shared.NewLogger(nil))
}

func TestTokenManager(t *testing.T) {
	t.Run("Full Login When Cache Empty", func(t *testing.T) {
		p := newIdentityProvider(t)
		store := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
		m := newTestManager(t, p, store)

		token, err := m.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "access-1" {
			t.Errorf("expected access-1, got %s", token)
		}

		// Login must persist the token set.
		cached, err := store.Load()
		if err != nil || cached == nil {
			t.Fatalf("expected persisted token, got %v / %v", cached, err)
		}
		if cached.RefreshToken != "refresh-1" {
			t.Errorf("expected refresh-1 persisted, got %s", cached.RefreshToken)
		}
	})

	t.Run("Cached Token Reused Without Network Call", func(t *testing.T) {
		p := newIdentityProvider(t)
		m := newTestManager(t, p, nil)

		first, err := m.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		calls := p.tokenCalls.Load()

		second, err := m.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if first != second {
			t.Errorf("expected identical tokens, got %s and %s", first, second)
		}
		if p.tokenCalls.Load() != calls {
			t.Error("expected no additional token endpoint calls")
		}
	})

	t.Run("Expired Token Refreshed With Merge", func(t *testing.T) {
		p := newIdentityProvider(t)
		store := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
		store.Save(&oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(-time.Minute),
		})
		m := newTestManager(t, p, store)

		token, err := m.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "access-2" {
			t.Errorf("expected refreshed access-2, got %s", token)
		}

		// The omitted refresh token must be merged back in and persisted.
		cached, _ := store.Load()
		if cached.RefreshToken != "refresh-1" {
			t.Errorf("expected refresh-1 retained, got %s", cached.RefreshToken)
		}
	})

	t.Run("Token Inside Margin Treated As Expired", func(t *testing.T) {
		p := newIdentityProvider(t)
		store := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
		store.Save(&oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(30 * time.Second),
		})
		m := newTestManager(t, p, store)

		token, err := m.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "access-2" {
			t.Errorf("expected refresh inside 60s margin, got %s", token)
		}
	})

	t.Run("Corrupt Cache Falls Back To Login", func(t *testing.T) {
		p := newIdentityProvider(t)
		path := filepath.Join(t.TempDir(), "tokens.json")
		if err := os.WriteFile(path, []byte("{corrupt"), 0600); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}
		m := newTestManager(t, p, NewFileStore(path))

		token, err := m.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "access-1" {
			t.Errorf("expected full login result, got %s", token)
		}
	})

	t.Run("Invalid Credentials Surface Error", func(t *testing.T) {
		p := newIdentityProvider(t)
		store := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
		cfg := shared.AuthConfig{
			Username:    "operator",
			Password:    "wrong",
			ClientID:    "test-client",
			BaseURL:     p.server.URL,
			RedirectURI: p.server.URL + "/account/oauth-login",
		}
		m := NewTokenManager(cfg, store, &http.Client{Timeout: 5 * time.Second}, shared.NewLogger(nil))

		if _, err := m.AccessToken(context.Background()); err == nil {
			t.Error("expected error for invalid credentials")
		}
	})

	t.Run("Login Replaces Cached Tokens", func(t *testing.T) {
		p := newIdentityProvider(t)
		store := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
		store.Save(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(time.Hour)})
		m := newTestManager(t, p, store)

		token, err := m.Login(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "access-1" {
			t.Errorf("expected access-1, got %s", token.AccessToken)
		}

		cached, _ := store.Load()
		if cached.AccessToken != "access-1" {
			t.Errorf("expected cache replaced, got %s", cached.AccessToken)
		}
	})
}

func TestParseLoginForm(t *testing.T) {
	base, err := url.Parse("https://auth.example.com")
	if err != nil {
		t.Fatalf("failed to parse base URL: %v", err)
	}

	t.Run("Valid Page", func(t *testing.T) {
		form, err := parseLoginForm(strings.NewReader(loginPage), base)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if form.csrf != "csrf-123" {
			t.Errorf("expected csrf-123, got %s", form.csrf)
		}
		if form.action != "https://auth.example.com/login/" {
			t.Errorf("expected resolved action, got %s", form.action)
		}
		if form.next != "/o/authorize/continue" {
			t.Errorf("expected next value, got %s", form.next)
		}
	})

	t.Run("Missing CSRF Token", func(t *testing.T) {
		page := `<html><body><form action="/login/"></form></body></html>`
		if _, err := parseLoginForm(strings.NewReader(page), base); err != shared.ErrCSRFNotFound {
			t.Errorf("expected ErrCSRFNotFound, got %v", err)
		}
	})

	t.Run("Missing Form", func(t *testing.T) {
		page := `<html><body><input name="csrfmiddlewaretoken" value="x"></body></html>`
		if _, err := parseLoginForm(strings.NewReader(page), base); err != shared.ErrLoginFormMissing {
			t.Errorf("expected ErrLoginFormMissing, got %v", err)
		}
	})
}
