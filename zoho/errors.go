// ABOUTME: Error taxonomy for Zoho CRM and OAuth failures
// ABOUTME: Distinguishes auth expiry, rate limiting, validation, and upstream errors
package zoho

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers classify with errors.Is; the boundary layer maps
// ErrRateLimited to HTTP 429 and everything else to 5xx.
var (
	// ErrAuthExpired means the refresh token itself is invalid or revoked.
	// Not retryable; an operator must issue a new refresh token.
	ErrAuthExpired = errors.New("zoho: refresh token invalid or revoked")

	// ErrRateLimited covers both the client-side refresh cooldown and
	// server-side throttling.
	ErrRateLimited = errors.New("zoho: rate limited")

	// ErrTransientAuth is a refresh failure that may succeed later.
	ErrTransientAuth = errors.New("zoho: transient auth failure")
)

// APIError carries a non-2xx response from the Zoho record API, with the
// upstream body attached for diagnostics.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("zoho: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("zoho: unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsAuth reports whether the response indicates an expired or invalid
// access token, i.e. a refresh plus one retry is worth attempting.
func (e *APIError) IsAuth() bool {
	switch e.Code {
	case "INVALID_TOKEN", "AUTHENTICATION_FAILURE", "OAUTH_SCOPE_MISMATCH":
		return true
	}
	return e.StatusCode == 401
}

// IsValidation reports whether Zoho rejected the record shape itself.
func (e *APIError) IsValidation() bool {
	switch e.Code {
	case "MANDATORY_NOT_FOUND", "INVALID_DATA", "DUPLICATE_DATA":
		return true
	}
	return false
}

// IsRateLimit reports a server-side throttle response.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == 429 || e.Code == "TOO_MANY_REQUESTS"
}

// IsAuthError reports whether err warrants a token refresh and retry.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsAuth()
	}
	return false
}

// IsRateLimited reports whether err is a throttle of either origin.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimit()
	}
	return false
}

// classifyRefreshError maps the OAuth endpoint's error payload onto the
// taxonomy. Zoho reports an invalid refresh token as invalid_code.
func classifyRefreshError(errCode, description string) error {
	switch errCode {
	case "invalid_code", "invalid_grant", "invalid_client":
		return fmt.Errorf("%w: %s", ErrAuthExpired, errCode)
	}
	lower := strings.ToLower(errCode + " " + description)
	if strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate") {
		return fmt.Errorf("%w: %s", ErrRateLimited, errCode)
	}
	return fmt.Errorf("%w: %s %s", ErrTransientAuth, errCode, description)
}
