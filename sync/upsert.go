// ABOUTME: Upsert engine for idempotent create-or-update against Zoho
// ABOUTME: Resolves the parent account first, then matches contacts by email
package sync

import (
	"context"
	"fmt"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/zoho"
)

// CRM is the slice of the Zoho client the engine needs; narrowed so tests
// can count and order calls with a fake.
type CRM interface {
	SearchAccountsByName(ctx context.Context, name string) ([]zoho.Record, error)
	CreateAccount(ctx context.Context, account models.ZohoAccount) (string, error)
	SearchContactsByEmail(ctx context.Context, email string) ([]zoho.Record, error)
	CreateContact(ctx context.Context, contact models.ZohoContact) (string, error)
	UpdateContact(ctx context.Context, id string, contact models.ZohoContact) error
}

// UpsertResult reports where a record landed.
type UpsertResult struct {
	ID        string
	WasUpdate bool
}

// Engine performs create-or-update of contacts keyed by email, with
// account resolution always completing before any contact call. Zoho has
// no native upsert primitive, so the engine composes search + create/update.
type Engine struct {
	crm CRM
}

// NewEngine creates an upsert engine over crm.
func NewEngine(crm CRM) *Engine {
	return &Engine{crm: crm}
}

// UpsertContact writes one mapped contact. When the contact references its
// account by name, the account is resolved or created first; an account
// failure aborts the upsert before any contact call, so the engine never
// partially applies. When Zoho returns several contacts for one email the
// first is updated and the rest are left alone (documented limitation).
func (e *Engine) UpsertContact(ctx context.Context, contact models.ZohoContact) (UpsertResult, error) {
	if contact.Account != nil && contact.Account.ID == "" && contact.Account.Name != "" {
		accountID, err := e.resolveAccount(ctx, contact.Account.Name)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to resolve account %q: %w", contact.Account.Name, err)
		}
		contact.Account = &models.AccountRef{ID: accountID}
	}

	if contact.Email != "" {
		matches, err := e.crm.SearchContactsByEmail(ctx, contact.Email)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to search contacts: %w", err)
		}
		if len(matches) > 0 {
			existingID := matches[0].ID()
			if err := e.crm.UpdateContact(ctx, existingID, contact); err != nil {
				return UpsertResult{}, fmt.Errorf("failed to update contact %s: %w", existingID, err)
			}
			return UpsertResult{ID: existingID, WasUpdate: true}, nil
		}
	}

	id, err := e.crm.CreateContact(ctx, contact)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to create contact: %w", err)
	}
	return UpsertResult{ID: id}, nil
}

// resolveAccount finds an account by exact name or creates a name-only one.
func (e *Engine) resolveAccount(ctx context.Context, name string) (string, error) {
	matches, err := e.crm.SearchAccountsByName(ctx, name)
	if err != nil {
		return "", err
	}
	if len(matches) > 0 {
		return matches[0].ID(), nil
	}

	return e.crm.CreateAccount(ctx, models.ZohoAccount{AccountName: name})
}
