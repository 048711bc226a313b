// ABOUTME: Contact listing CLI command
// ABOUTME: Reads the Zoho contact listing through the TTL cache
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/leadsync/zoho"
)

// ListContactsCommand prints the cached Zoho contact listing. --refresh
// bypasses the TTL and forces a live fetch.
func ListContactsCommand(cache *zoho.ContactCache, args []string) error {
	fs := flag.NewFlagSet("contacts", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "Force a live fetch instead of the cache")
	limit := fs.Int("limit", 50, "Max contacts to print")
	_ = fs.Parse(args)

	records, err := cache.Contacts(context.Background(), *refresh)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No contacts found.")
		return nil
	}

	shown := len(records)
	if shown > *limit {
		shown = *limit
	}

	for _, record := range records[:shown] {
		name := record.Field("Full_Name")
		if name == "" {
			name = record.Field("Last_Name")
		}
		line := fmt.Sprintf("  %s  %s", record.ID(), name)
		if email := record.Field("Email"); email != "" {
			line += "  <" + email + ">"
		}
		// Account_Name arrives as a nested {id, name} object
		if acct, ok := record["Account_Name"].(map[string]any); ok {
			if name, _ := acct["name"].(string); name != "" {
				line += "  @ " + name
			}
		}
		fmt.Println(line)
	}

	if shown < len(records) {
		fmt.Printf("  ... and %d more (raise --limit to see them)\n", len(records)-shown)
	}
	fmt.Printf("\n%d contacts total\n", len(records))

	return nil
}
