// ABOUTME: Zoho auth CLI commands
// ABOUTME: Exchanges a self-client grant code for tokens and stores credentials
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/harperreed/leadsync/credstore"
	"github.com/harperreed/leadsync/zoho"
)

// AuthInitCommand walks through the Zoho self-client flow: the user
// generates a grant code in the Zoho API console, we exchange it for a
// refresh token and persist everything in the credential store.
func AuthInitCommand(store credstore.Store, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	clientID := fs.String("client-id", "", "Zoho client ID (prompted if omitted)")
	accountsURL := fs.String("accounts-url", zoho.DefaultAccountsURL, "Zoho accounts server")
	_ = fs.Parse(args)

	reader := bufio.NewReader(os.Stdin)

	id := *clientID
	if id == "" {
		fmt.Print("Zoho client ID: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read client ID: %w", err)
		}
		id = strings.TrimSpace(line)
	}
	if id == "" {
		return fmt.Errorf("client ID is required")
	}

	fmt.Print("Zoho client secret: ")
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read client secret: %w", err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return fmt.Errorf("client secret is required")
	}

	fmt.Println("\nGenerate a grant code in the Zoho API console (self-client,")
	fmt.Println("scope ZohoCRM.modules.ALL) and paste it below.")
	fmt.Print("Grant code: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read grant code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return fmt.Errorf("grant code is required")
	}

	config := &oauth2.Config{
		ClientID:     id,
		ClientSecret: secret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  strings.TrimRight(*accountsURL, "/") + "/oauth/v2/auth",
			TokenURL: strings.TrimRight(*accountsURL, "/") + "/oauth/v2/token",
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange grant code: %w", err)
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("token response carried no refresh token; generate a fresh grant code and retry")
	}

	pairs := map[string]string{
		credstore.KeyZohoClientID:     id,
		credstore.KeyZohoClientSecret: secret,
		credstore.KeyZohoRefreshToken: token.RefreshToken,
		credstore.KeyZohoAccessToken:  token.AccessToken,
		credstore.KeyZohoTokenExpiry:  strconv.FormatInt(token.Expiry.UnixMilli(), 10),
	}
	for key, value := range pairs {
		if err := store.Set(key, value); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
	}

	fmt.Printf("\n✓ Authenticated successfully\n")
	fmt.Printf("✓ Credentials saved to %s\n\n", credstore.DefaultPath())
	fmt.Println("Ready to sync! Run 'leadsync sync run' to import contacts.")

	return nil
}

// AuthStatusCommand reports whether a usable token is on hand.
func AuthStatusCommand(store credstore.Store, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	accountsURL := fs.String("accounts-url", zoho.DefaultAccountsURL, "Zoho accounts server")
	_ = fs.Parse(args)

	if _, ok := store.Get(credstore.KeyZohoRefreshToken); !ok {
		fmt.Println("✗ Not authenticated. Run 'leadsync auth init' first.")
		return nil
	}

	tokens := zoho.NewTokenManager(store, *accountsURL)
	valid, expiry := tokens.Valid()
	if valid {
		fmt.Printf("✓ Access token valid until %s\n", expiry.Format(time.RFC3339))
	} else {
		fmt.Println("✓ Refresh token configured; access token will refresh on next use")
	}

	if _, ok := store.Get(credstore.KeyApolloAPIKey); ok {
		fmt.Println("✓ Apollo API key configured")
	} else {
		fmt.Printf("✗ Apollo API key missing; set %s\n", credstore.KeyApolloAPIKey)
	}

	return nil
}
