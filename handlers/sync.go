// ABOUTME: Sync MCP tool handlers
// ABOUTME: Implements run_sync, sync_status, and preview_mapping tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadsync/apollo"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

// TokenStatus is the token manager slice sync_status reads.
type TokenStatus interface {
	Valid() (bool, time.Time)
}

type SyncHandlers struct {
	runner *sync.Runner
	mapper *sync.Mapper
	tokens TokenStatus
	db     *sql.DB
}

func NewSyncHandlers(runner *sync.Runner, mapper *sync.Mapper, tokens TokenStatus, database *sql.DB) *SyncHandlers {
	return &SyncHandlers{runner: runner, mapper: mapper, tokens: tokens, db: database}
}

type RunSyncInput struct {
	Keywords  string   `json:"keywords,omitempty" jsonschema:"Keyword search across person and company fields"`
	Titles    []string `json:"titles,omitempty" jsonschema:"Job titles to filter by"`
	Locations []string `json:"locations,omitempty" jsonschema:"Locations to filter by"`
	Page      int      `json:"page,omitempty" jsonschema:"Result page to fetch (default 1)"`
	PerPage   int      `json:"per_page,omitempty" jsonschema:"Results per page (default 25)"`
	BatchSize int      `json:"batch_size,omitempty" jsonschema:"Records per concurrent group (default 5)"`
}

type RunSyncOutput struct {
	RunID     string              `json:"run_id"`
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Skipped   int                 `json:"skipped"`
	Results   []models.SyncResult `json:"results"`
}

func (h *SyncHandlers) RunSync(ctx context.Context, request *mcp.CallToolRequest, input RunSyncInput) (*mcp.CallToolResult, RunSyncOutput, error) {
	if input.Keywords == "" && len(input.Titles) == 0 && len(input.Locations) == 0 {
		return nil, RunSyncOutput{}, fmt.Errorf("at least one of keywords, titles, or locations is required")
	}

	query := apollo.SearchQuery{
		Keywords:        input.Keywords,
		PersonTitles:    input.Titles,
		PersonLocations: input.Locations,
		Page:            input.Page,
		PerPage:         input.PerPage,
	}
	opts := sync.BatchOptions{BatchSize: input.BatchSize}

	summary, err := h.runner.Run(ctx, query, opts, nil)
	if err != nil {
		return nil, RunSyncOutput{}, fmt.Errorf("sync failed: %w", err)
	}

	return nil, summaryToOutput(summary), nil
}

type SyncStatusInput struct{}

type SyncStatusOutput struct {
	TokenValid   bool   `json:"token_valid"`
	TokenExpiry  string `json:"token_expiry,omitempty"`
	SyncStatus   string `json:"sync_status,omitempty"`
	LastSyncTime string `json:"last_sync_time,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (h *SyncHandlers) SyncStatus(_ context.Context, request *mcp.CallToolRequest, input SyncStatusInput) (*mcp.CallToolResult, SyncStatusOutput, error) {
	output := SyncStatusOutput{}

	valid, expiry := h.tokens.Valid()
	output.TokenValid = valid
	if valid {
		output.TokenExpiry = expiry.Format(time.RFC3339)
	}

	if h.db != nil {
		state, err := db.GetSyncState(h.db, sync.ServiceApollo)
		if err != nil {
			return nil, SyncStatusOutput{}, fmt.Errorf("failed to read sync state: %w", err)
		}
		if state != nil {
			output.SyncStatus = state.Status
			output.ErrorMessage = state.ErrorMessage
			if state.LastSyncTime != nil {
				output.LastSyncTime = state.LastSyncTime.Format(time.RFC3339)
			}
		}
	}

	return nil, output, nil
}

type PreviewMappingInput struct {
	Person models.ApolloPerson `json:"person" jsonschema:"Apollo person record to map"`
}

type PreviewMappingOutput struct {
	Contact models.ZohoContact  `json:"contact"`
	Account *models.ZohoAccount `json:"account,omitempty"`
}

// PreviewMapping shows the CRM payload a record would produce without
// touching Zoho.
func (h *SyncHandlers) PreviewMapping(_ context.Context, request *mcp.CallToolRequest, input PreviewMappingInput) (*mcp.CallToolResult, PreviewMappingOutput, error) {
	if input.Person.ID == "" {
		return nil, PreviewMappingOutput{}, fmt.Errorf("person.id is required")
	}

	output := PreviewMappingOutput{
		Contact: h.mapper.Contact(input.Person),
	}
	if input.Person.Organization != nil {
		account := h.mapper.Organization(*input.Person.Organization)
		output.Account = &account
	}

	return nil, output, nil
}

func summaryToOutput(summary models.BatchSummary) RunSyncOutput {
	return RunSyncOutput{
		RunID:     summary.RunID,
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Results:   summary.Results,
	}
}
