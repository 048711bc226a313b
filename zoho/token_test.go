// ABOUTME: Tests for the token manager lifecycle
// ABOUTME: Covers cache hits, cooldown fast-fail, refresh classification, and persistence
package zoho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/credstore"
)

func newTestStore(t *testing.T) credstore.Store {
	t.Helper()
	store := credstore.NewFileStore(filepath.Join(t.TempDir(), "credentials.env"))
	require.NoError(t, store.Set(credstore.KeyZohoClientID, "client-id"))
	require.NoError(t, store.Set(credstore.KeyZohoClientSecret, "client-secret"))
	require.NoError(t, store.Set(credstore.KeyZohoRefreshToken, "refresh-token"))
	return store
}

func TestTokenCachedWithinValidityWindow(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"tok-fresh","expires_in":3600}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)

	first, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", first)

	second, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Second call must be served from cache
	assert.Equal(t, int64(1), calls.Load())
}

func TestTokenReusesPersistedToken(t *testing.T) {
	store := newTestStore(t)
	expiry := time.Now().Add(30 * time.Minute)
	require.NoError(t, store.Set(credstore.KeyZohoAccessToken, "tok-persisted"))
	require.NoError(t, store.Set(credstore.KeyZohoTokenExpiry, strconv.FormatInt(expiry.UnixMilli(), 10)))

	// No server: any network call would fail loudly
	tm := NewTokenManager(store, "http://127.0.0.1:0")

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-persisted", token)
}

func TestTokenCooldownFailsFastWithoutNetworkCall(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"server_error"}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)

	_, err := tm.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransientAuth)
	assert.Equal(t, int64(1), calls.Load())

	// Within the cooldown the second attempt must not reach the endpoint
	_, err = tm.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int64(1), calls.Load())
}

func TestTokenCooldownExpires(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)
	tm.now = func() time.Time { return now }
	tm.cooldownUntil = now.Add(10 * time.Second)

	_, err := tm.Token(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)

	// Advance past the cooldown; refresh proceeds
	now = now.Add(11 * time.Second)
	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, int64(1), calls.Load())
}

func TestRefreshSendsRefreshTokenGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-token", r.Form.Get("refresh_token"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "client-secret", r.Form.Get("client_secret"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)

	_, err := tm.Token(context.Background())
	require.NoError(t, err)
}

func TestRefreshPersistsTokenAndExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok-persist","expires_in":3600}`))
	}))
	defer server.Close()

	store := newTestStore(t)
	tm := NewTokenManager(store, server.URL)
	before := time.Now()

	_, err := tm.Token(context.Background())
	require.NoError(t, err)

	persisted, ok := store.Get(credstore.KeyZohoAccessToken)
	require.True(t, ok)
	assert.Equal(t, "tok-persist", persisted)

	raw, ok := store.Get(credstore.KeyZohoTokenExpiry)
	require.True(t, ok)
	ms, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)

	// expires_in minus the 5 minute safety margin
	expiry := time.UnixMilli(ms)
	assert.WithinDuration(t, before.Add(55*time.Minute), expiry, 5*time.Second)

	// Unrelated keys untouched by the persist
	clientID, ok := store.Get(credstore.KeyZohoClientID)
	require.True(t, ok)
	assert.Equal(t, "client-id", clientID)
}

func TestRefreshInvalidTokenIsAuthExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"invalid_code"}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)

	_, err := tm.Token(context.Background())
	assert.ErrorIs(t, err, ErrAuthExpired)
}

func TestRefreshThrottleExtendsCooldown(t *testing.T) {
	now := time.Now()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"too_many_requests","error_description":"You have made too many requests continuously"}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)
	tm.now = func() time.Time { return now }

	_, err := tm.Token(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)

	// Cooldown doubled: still blocked past the base window
	assert.Equal(t, now.Add(2*tm.cooldown), tm.cooldownUntil)
}

func TestRefreshWithoutRefreshTokenIsAuthExpired(t *testing.T) {
	store := credstore.NewFileStore(filepath.Join(t.TempDir(), "credentials.env"))
	tm := NewTokenManager(store, "http://127.0.0.1:0")

	_, err := tm.Token(context.Background())
	assert.ErrorIs(t, err, ErrAuthExpired)
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"tok-shared","expires_in":3600}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = tm.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-shared", tokens[i])
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestForceRefreshDiscardsCachedToken(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			_, _ = w.Write([]byte(`{"access_token":"tok-old","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-new","expires_in":3600}`))
	}))
	defer server.Close()

	tm := NewTokenManager(newTestStore(t), server.URL)
	tm.cooldown = 0 // allow immediate forced refresh in the test

	first, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-old", first)

	second, err := tm.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-new", second)
}
