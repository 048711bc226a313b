// ABOUTME: Field mapping from Apollo person/organization records to Zoho field sets
// ABOUTME: Pure transforms; Last_Name fallback chain guarantees the Zoho mandatory field
package sync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/leadsync/models"
)

// Mapper converts Apollo records into Zoho payloads. The clock is
// injectable so the generated description header is testable.
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a mapper using the wall clock.
func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// Contact maps an Apollo person to the Zoho Contacts field set.
// Last_Name is resolved via the fallback chain last_name → first_name →
// email local-part → "Unknown", because Zoho rejects contacts without it.
func (m *Mapper) Contact(p models.ApolloPerson) models.ZohoContact {
	contact := models.ZohoContact{
		LastName:   resolveLastName(p),
		FirstName:  p.FirstName,
		Email:      p.Email,
		Title:      p.Title,
		Phone:      p.Phone,
		LinkedIn:   p.LinkedinURL,
		Twitter:    p.TwitterURL,
		LeadSource: "Apollo",
	}

	if name := p.CompanyName(); name != "" {
		contact.Account = &models.AccountRef{Name: name}
	}

	// Mailing address fields travel as a trio: when any of the three is
	// present all three are emitted, missing ones as empty strings.
	if p.City != "" || p.State != "" || p.Country != "" {
		contact.MailingCity = ptr(p.City)
		contact.MailingState = ptr(p.State)
		contact.MailingCountry = ptr(p.Country)
	}

	contact.Description = m.describe(p)

	return contact
}

// Organization maps an Apollo organization to the Zoho Accounts field set.
func (m *Mapper) Organization(o models.ApolloOrganization) models.ZohoAccount {
	account := models.ZohoAccount{
		AccountName: o.Name,
		Website:     o.WebsiteURL,
		Industry:    MapIndustry(o.Industry),
		Phone:       o.Phone,
		Employees:   o.EstimatedNumEmployees,
	}

	if o.City != "" || o.State != "" || o.Country != "" {
		account.BillingCity = ptr(o.City)
		account.BillingState = ptr(o.State)
		account.BillingCountry = ptr(o.Country)
	}

	if revenue, ok := parseRevenue(o.AnnualRevenuePrinted); ok {
		account.AnnualRevenue = revenue
	}

	return account
}

// resolveLastName walks the fallback chain; first non-empty wins.
func resolveLastName(p models.ApolloPerson) string {
	if p.LastName != "" {
		return p.LastName
	}
	if p.FirstName != "" {
		return p.FirstName
	}
	if local := emailLocalPart(p.Email); local != "" {
		return local
	}
	return "Unknown"
}

func emailLocalPart(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.SplitN(email, "@", 2)
	return parts[0]
}

// describe synthesizes a human-readable note from the present fields,
// headed by the generation timestamp.
func (m *Mapper) describe(p models.ApolloPerson) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Imported from Apollo on %s", m.now().Format("2006-01-02 15:04")))

	if name := p.CompanyName(); name != "" {
		lines = append(lines, "Company: "+name)
	}
	if p.Title != "" {
		lines = append(lines, "Title: "+p.Title)
	}
	if p.Seniority != "" {
		lines = append(lines, "Seniority: "+p.Seniority)
	}
	if p.LinkedinURL != "" {
		lines = append(lines, "LinkedIn: "+p.LinkedinURL)
	}

	return strings.Join(lines, "\n")
}

// parseRevenue strips everything but digits from a printed revenue figure
// ("$1.2M", "10,000,000") and parses the remainder. Reports false when no
// digits survive, so the field is omitted rather than sent as zero.
func parseRevenue(printed string) (int64, bool) {
	if printed == "" {
		return 0, false
	}

	var digits strings.Builder
	for _, r := range printed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func ptr(s string) *string {
	return &s
}
