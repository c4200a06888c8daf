package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartwatch/internal/shared"
	"golang.org/x/oauth2"
)

const (
	authorizePath = "/o/authorize/"
	tokenPath     = "/o/token/"

	// Tokens are refreshed one minute early to absorb clock skew against
	// the identity provider.
	expiryMargin = 60 * time.Second
)

// TokenManager caches OAuth tokens and refreshes them when expired.
//
// All credential mutation is serialized by a single mutex, so concurrent
// callers observe at most one login or refresh per expiry cycle.
type TokenManager struct {
	cfg    shared.AuthConfig
	oauth  *oauth2.Config
	store  CredentialStore
	client *http.Client
	logger *log.Logger

	mu     sync.Mutex
	token  *oauth2.Token
	loaded bool
}

// NewTokenManager creates a TokenManager for the configured identity provider.
// The HTTP client defaults to one with a 30s timeout; the logger to stderr.
func NewTokenManager(cfg shared.AuthConfig, store CredentialStore, client *http.Client, logger *log.Logger) *TokenManager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	oc := &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.BaseURL + authorizePath,
			TokenURL: cfg.BaseURL + tokenPath,
			// Public client: client_id travels in the POST body, no secret.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &TokenManager{
		cfg:    cfg,
		oauth:  oc,
		store:  store,
		client: client,
		logger: logger,
	}
}

// AccessToken returns a valid access token, refreshing or logging in as needed.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		token, err := m.store.Load()
		if err != nil {
			m.logger.Warn("token cache unreadable, ignoring", "err", err)
		} else if token != nil {
			m.logger.Debug("loaded cached token set")
		}
		m.token = token
		m.loaded = true
	}

	if m.token != nil && m.token.AccessToken != "" && time.Now().Add(expiryMargin).Before(m.token.Expiry) {
		return m.token.AccessToken, nil
	}

	if m.token != nil && m.token.RefreshToken != "" {
		token, err := m.refresh(ctx, m.token.RefreshToken)
		if err != nil {
			m.logger.Warn("token refresh failed", "err", err)
		} else {
			m.setToken(token)
			return token.AccessToken, nil
		}
	}

	m.logger.Info("no valid token available, performing full login")
	token, err := m.login(ctx)
	if err != nil {
		return "", err
	}
	m.setToken(token)

	return token.AccessToken, nil
}

// Login performs the full PKCE login flow, replaces the cached token set, and
// returns the new tokens. Used by the interactive auth command.
func (m *TokenManager) Login(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.login(ctx)
	if err != nil {
		return nil, err
	}
	m.loaded = true
	m.setToken(token)

	return token, nil
}

// setToken replaces the in-memory token set and persists it. Callers must
// hold the mutex.
func (m *TokenManager) setToken(token *oauth2.Token) {
	m.token = token
	if err := m.store.Save(token); err != nil {
		m.logger.Warn("failed to persist token set", "err", err)
	}
}

// refresh exchanges a refresh token for a new token set.
func (m *TokenManager) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	m.logger.Info("attempting token refresh")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)
	src := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	// The provider may omit the refresh token in a refresh response.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return token, nil
}

// login drives the provider's authorize → login-form → redirect flow and
// exchanges the resulting authorization code for tokens.
func (m *TokenManager) login(ctx context.Context) (*oauth2.Token, error) {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required for login", shared.ErrMissingCredentials)
	}

	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}

	authURL := m.oauth.AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", CodeChallenge(verifier)),
	)

	code, err := m.authorize(ctx, authURL)
	if err != nil {
		return nil, err
	}

	m.logger.Info("exchanging authorization code for tokens")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)
	token, err := m.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}

	return token, nil
}

// authorize fetches the login page, submits credentials, and extracts the
// authorization code from the final redirect URL.
func (m *TokenManager) authorize(ctx context.Context, authURL string) (string, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create cookie jar: %w", err)
	}
	// Session and CSRF cookies must survive across the form round trip.
	client := &http.Client{Transport: m.client.Transport, Timeout: m.client.Timeout, Jar: jar}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	m.logger.Info("fetching login page", "user", m.cfg.Username)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch login page: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	base, err := url.Parse(m.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid auth base URL: %v", shared.ErrInvalidConfig, err)
	}

	form, err := parseLoginForm(resp.Body, base)
	if err != nil {
		return "", err
	}

	payload := url.Values{
		"csrfmiddlewaretoken": {form.csrf},
		"username":            {m.cfg.Username},
		"password":            {m.cfg.Password},
		"next":                {form.next},
	}

	post, err := http.NewRequestWithContext(ctx, http.MethodPost, form.action, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.Header.Set("Referer", authURL)

	m.logger.Debug("submitting credentials", "action", form.action)
	final, err := client.Do(post)
	if err != nil {
		return "", fmt.Errorf("%w: submit login form: %v", shared.ErrAuthFailed, err)
	}
	defer final.Body.Close()
	io.Copy(io.Discard, final.Body)

	code := final.Request.URL.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: check credentials", shared.ErrAuthCodeMissing)
	}

	return code, nil
}
