// ABOUTME: Zoho CRM record API client for Contacts and Accounts
// ABOUTME: Handles search by criteria, create/update with data envelopes, and bounded auth retry
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harperreed/leadsync/models"
)

// DefaultAPIBase is the Zoho CRM v2 REST root.
const DefaultAPIBase = "https://www.zohoapis.com/crm/v2"

// Record is a raw CRM record as returned by list and search calls.
type Record map[string]any

// ID returns the CRM-assigned record id.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Field returns a string field by API name, or "" when absent.
func (r Record) Field(name string) string {
	v, _ := r[name].(string)
	return v
}

// Client talks to the Zoho record API. Every call obtains its bearer token
// from the TokenManager; an auth-classified failure triggers exactly one
// forced refresh and one retry, then propagates.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenManager
}

// NewClient creates a record API client. baseURL may be empty for the
// production endpoint.
func NewClient(tokens *TokenManager, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
	}
}

type listInfo struct {
	MoreRecords bool `json:"more_records"`
	Count       int  `json:"count"`
}

type recordEnvelope struct {
	Data []Record  `json:"data"`
	Info *listInfo `json:"info,omitempty"`
}

type writeEnvelope struct {
	Data []struct {
		Code    string `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

// SearchContactsByEmail returns contacts whose Email equals email exactly.
// Zoho may return several rows for one address; callers take the first and
// leave the rest alone (known limitation, mirrors upstream behavior).
func (c *Client) SearchContactsByEmail(ctx context.Context, email string) ([]Record, error) {
	return c.search(ctx, "Contacts", "Email", email)
}

// SearchAccountsByName returns accounts whose Account_Name equals name.
// The equality operator is case-sensitive on Zoho's side.
func (c *Client) SearchAccountsByName(ctx context.Context, name string) ([]Record, error) {
	return c.search(ctx, "Accounts", "Account_Name", name)
}

func (c *Client) search(ctx context.Context, module, field, value string) ([]Record, error) {
	criteria := fmt.Sprintf("(%s:equals:%s)", field, value)
	path := "/" + module + "/search?criteria=" + url.QueryEscape(criteria)

	var envelope recordEnvelope
	status, err := c.do(ctx, http.MethodGet, path, nil, &envelope)
	if err != nil {
		return nil, err
	}
	// 204 means no matching records, a control-flow branch rather than a failure
	if status == http.StatusNoContent {
		return nil, nil
	}
	return envelope.Data, nil
}

// CreateContact creates a contact and returns the new record id.
func (c *Client) CreateContact(ctx context.Context, contact models.ZohoContact) (string, error) {
	return c.create(ctx, "Contacts", contact)
}

// UpdateContact overwrites an existing contact's mapped fields.
func (c *Client) UpdateContact(ctx context.Context, id string, contact models.ZohoContact) error {
	_, err := c.write(ctx, http.MethodPut, "/Contacts/"+id, contact)
	return err
}

// CreateAccount creates an account and returns the new record id.
func (c *Client) CreateAccount(ctx context.Context, account models.ZohoAccount) (string, error) {
	return c.create(ctx, "Accounts", account)
}

func (c *Client) create(ctx context.Context, module string, record any) (string, error) {
	return c.write(ctx, http.MethodPost, "/"+module, record)
}

func (c *Client) write(ctx context.Context, method, path string, record any) (string, error) {
	payload, err := json.Marshal(map[string]any{"data": []any{record}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	var envelope writeEnvelope
	if _, err := c.do(ctx, method, path, payload, &envelope); err != nil {
		return "", err
	}

	if len(envelope.Data) == 0 {
		return "", &APIError{StatusCode: http.StatusOK, Message: "empty write response"}
	}

	row := envelope.Data[0]
	if !strings.EqualFold(row.Status, "success") {
		// Per-record rejection inside a 2xx envelope, e.g. MANDATORY_NOT_FOUND
		return "", &APIError{StatusCode: http.StatusBadRequest, Code: row.Code, Message: row.Message}
	}

	return row.Details.ID, nil
}

// ListContacts fetches one page of contacts. fromIndex is 1-based per the
// Zoho pagination contract.
func (c *Client) ListContacts(ctx context.Context, fromIndex, perPage int) ([]Record, bool, error) {
	path := fmt.Sprintf("/Contacts?page=%d&per_page=%d",
		pageFromIndex(fromIndex, perPage), perPage)

	var envelope recordEnvelope
	status, err := c.do(ctx, http.MethodGet, path, nil, &envelope)
	if err != nil {
		return nil, false, err
	}
	if status == http.StatusNoContent {
		return nil, false, nil
	}

	more := envelope.Info != nil && envelope.Info.MoreRecords
	return envelope.Data, more, nil
}

func pageFromIndex(fromIndex, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if fromIndex < 1 {
		fromIndex = 1
	}
	return (fromIndex-1)/perPage + 1
}

// do performs one authenticated call with the bounded auth retry: on an
// auth-classified failure it forces a single token refresh and retries the
// same request once. A second failure propagates.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	status, err := c.roundTrip(ctx, method, path, body, token, out)
	if err == nil || !IsAuthError(err) {
		return status, err
	}

	token, refreshErr := c.tokens.ForceRefresh(ctx)
	if refreshErr != nil {
		return 0, fmt.Errorf("auth retry aborted: %w", refreshErr)
	}

	return c.roundTrip(ctx, method, path, body, token, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, token string, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("zoho request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read zoho response: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
		var detail struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &detail) == nil {
			apiErr.Code = detail.Code
			apiErr.Message = detail.Message
		}
		return resp.StatusCode, apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode zoho response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
