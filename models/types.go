// ABOUTME: Data models for Apollo source records and Zoho CRM field sets
// ABOUTME: Defines ApolloPerson, ZohoContact, ZohoAccount, and sync result types
package models

import "time"

// ApolloPerson is a person record as returned by Apollo's people search API.
// Records are immutable once fetched; the mapper reads them, never writes.
type ApolloPerson struct {
	ID               string              `json:"id"`
	FirstName        string              `json:"first_name"`
	LastName         string              `json:"last_name"`
	Name             string              `json:"name"`
	Email            string              `json:"email"`
	Title            string              `json:"title"`
	Seniority        string              `json:"seniority"`
	LinkedinURL      string              `json:"linkedin_url"`
	TwitterURL       string              `json:"twitter_url"`
	Phone            string              `json:"sanitized_phone"`
	City             string              `json:"city"`
	State            string              `json:"state"`
	Country          string              `json:"country"`
	OrganizationName string              `json:"organization_name"`
	Organization     *ApolloOrganization `json:"organization,omitempty"`
}

// ApolloOrganization is the company block nested in a person record.
type ApolloOrganization struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	WebsiteURL            string `json:"website_url"`
	Industry              string `json:"industry"`
	Phone                 string `json:"phone"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	Country               string `json:"country"`
	EstimatedNumEmployees int    `json:"estimated_num_employees"`
	AnnualRevenuePrinted  string `json:"annual_revenue_printed"`
	LinkedinURL           string `json:"linkedin_url"`
}

// CompanyName returns the organization name, preferring the nested block.
func (p *ApolloPerson) CompanyName() string {
	if p.Organization != nil && p.Organization.Name != "" {
		return p.Organization.Name
	}
	return p.OrganizationName
}

// AccountRef references a Zoho account either by id (existing) or by
// name (to be resolved or created before the contact is written).
type AccountRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ZohoContact is the field set sent to Zoho's Contacts module.
// Last_Name is mandatory in the Zoho schema; everything else is optional
// and omitted from the payload when empty. The mailing address trio uses
// pointers so the mapper can emit explicit empty strings for the group.
type ZohoContact struct {
	LastName       string      `json:"Last_Name"`
	FirstName      string      `json:"First_Name,omitempty"`
	Email          string      `json:"Email,omitempty"`
	Title          string      `json:"Title,omitempty"`
	Phone          string      `json:"Phone,omitempty"`
	Account        *AccountRef `json:"Account_Name,omitempty"`
	MailingCity    *string     `json:"Mailing_City,omitempty"`
	MailingState   *string     `json:"Mailing_State,omitempty"`
	MailingCountry *string     `json:"Mailing_Country,omitempty"`
	LinkedIn       string      `json:"LinkedIn__s,omitempty"`
	Twitter        string      `json:"Twitter,omitempty"`
	LeadSource     string      `json:"Lead_Source,omitempty"`
	Description    string      `json:"Description,omitempty"`
}

// ZohoAccount is the field set sent to Zoho's Accounts module.
type ZohoAccount struct {
	AccountName    string  `json:"Account_Name"`
	Website        string  `json:"Website,omitempty"`
	Industry       string  `json:"Industry,omitempty"`
	Phone          string  `json:"Phone,omitempty"`
	BillingCity    *string `json:"Billing_City,omitempty"`
	BillingState   *string `json:"Billing_State,omitempty"`
	BillingCountry *string `json:"Billing_Country,omitempty"`
	Employees      int     `json:"Employees,omitempty"`
	AnnualRevenue  int64   `json:"Annual_Revenue,omitempty"`
}

// SyncResult is the per-record outcome of a batch upsert.
type SyncResult struct {
	SourceID  string `json:"source_id"`
	Success   bool   `json:"success"`
	ZohoID    string `json:"zoho_id,omitempty"`
	WasUpdate bool   `json:"was_update,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	RunID     string       `json:"run_id"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Results   []SyncResult `json:"results"`
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// SyncState tracks the last run for a service in the local database.
type SyncState struct {
	Service      string     `json:"service"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
