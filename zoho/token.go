// ABOUTME: OAuth access token lifecycle for the Zoho CRM API
// ABOUTME: Caches the token, refreshes via the refresh-token grant, and enforces a cooldown
package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harperreed/leadsync/credstore"
)

const (
	// DefaultAccountsURL is the Zoho accounts server hosting the token endpoint.
	DefaultAccountsURL = "https://accounts.zoho.com"

	// Zoho tokens live ~3600s; expire ours 5 minutes early so in-flight
	// requests never straddle the real expiry.
	tokenSafetyMargin = 5 * time.Minute

	// Minimum spacing between refresh attempts. Zoho locks the token
	// endpoint after a handful of calls per minute, so failed attempts
	// must not storm it.
	defaultRefreshCooldown = 60 * time.Second
)

// TokenManager owns the single Zoho credential for the process. All CRM
// calls obtain their bearer token through it. Safe for concurrent use;
// concurrent callers during a refresh observe the same attempt.
type TokenManager struct {
	mu sync.Mutex

	httpClient  *http.Client
	accountsURL string
	store       credstore.Store
	now         func() time.Time
	cooldown    time.Duration

	clientID     string
	clientSecret string
	refreshToken string

	accessToken   string
	expiry        time.Time
	cooldownUntil time.Time
}

// NewTokenManager builds a manager from the credential store. A previously
// persisted access token is reused until its recorded expiry.
func NewTokenManager(store credstore.Store, accountsURL string) *TokenManager {
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}

	tm := &TokenManager{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		accountsURL: strings.TrimRight(accountsURL, "/"),
		store:       store,
		now:         time.Now,
		cooldown:    defaultRefreshCooldown,
	}

	tm.clientID, _ = store.Get(credstore.KeyZohoClientID)
	tm.clientSecret, _ = store.Get(credstore.KeyZohoClientSecret)
	tm.refreshToken, _ = store.Get(credstore.KeyZohoRefreshToken)

	if token, ok := store.Get(credstore.KeyZohoAccessToken); ok {
		if raw, ok := store.Get(credstore.KeyZohoTokenExpiry); ok {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				tm.accessToken = token
				tm.expiry = time.UnixMilli(ms)
			}
		}
	}

	return tm
}

// Token returns a valid access token, refreshing if the cached one has
// expired. A cached token inside its validity window costs zero network
// calls. Inside the cooldown window after a refresh attempt it fails fast
// with ErrRateLimited instead of hitting the token endpoint again.
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.accessToken != "" && tm.now().Before(tm.expiry) {
		return tm.accessToken, nil
	}

	return tm.refreshLocked(ctx)
}

// ForceRefresh discards the cached token and refreshes, still subject to
// the cooldown. Used by the client's single bounded retry after an auth
// failure on a record call.
func (tm *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.accessToken = ""
	return tm.refreshLocked(ctx)
}

// Valid reports whether a usable cached token exists, without refreshing.
func (tm *TokenManager) Valid() (bool, time.Time) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.accessToken != "" && tm.now().Before(tm.expiry), tm.expiry
}

// refreshLocked performs the refresh-token grant. Caller holds tm.mu, so a
// concurrent Token() blocks here and picks up the fresh token on re-entry
// rather than issuing its own attempt.
func (tm *TokenManager) refreshLocked(ctx context.Context) (string, error) {
	now := tm.now()
	if now.Before(tm.cooldownUntil) {
		return "", fmt.Errorf("%w: refresh attempted %s ago, cooling down until %s",
			ErrRateLimited, tm.cooldown-tm.cooldownUntil.Sub(now), tm.cooldownUntil.Format(time.RFC3339))
	}

	if tm.refreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token configured, run auth init", ErrAuthExpired)
	}

	tm.cooldownUntil = now.Add(tm.cooldown)

	form := url.Values{
		"refresh_token": {tm.refreshToken},
		"client_id":     {tm.clientID},
		"client_secret": {tm.clientSecret},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		tm.accountsURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransientAuth, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading token response: %v", ErrTransientAuth, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		// Server-side throttle: back off for twice the base window
		tm.cooldownUntil = now.Add(2 * tm.cooldown)
		return "", fmt.Errorf("%w: token endpoint returned 429", ErrRateLimited)
	}

	var payload struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int64  `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: unparseable token response (%d): %s", ErrTransientAuth, resp.StatusCode, body)
	}

	if payload.Error != "" || payload.AccessToken == "" {
		refreshErr := classifyRefreshError(payload.Error, payload.ErrorDescription)
		if IsRateLimited(refreshErr) {
			tm.cooldownUntil = now.Add(2 * tm.cooldown)
		}
		return "", refreshErr
	}

	tm.accessToken = payload.AccessToken
	tm.expiry = now.Add(time.Duration(payload.ExpiresIn)*time.Second - tokenSafetyMargin)

	// Persist so the next process start reuses this token until expiry.
	// A write failure is logged, not fatal; the in-memory token still works.
	if err := tm.store.Set(credstore.KeyZohoAccessToken, tm.accessToken); err != nil {
		log.Printf("warning: failed to persist access token: %v", err)
	}
	if err := tm.store.Set(credstore.KeyZohoTokenExpiry, strconv.FormatInt(tm.expiry.UnixMilli(), 10)); err != nil {
		log.Printf("warning: failed to persist token expiry: %v", err)
	}

	return tm.accessToken, nil
}
