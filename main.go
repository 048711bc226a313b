// ABOUTME: Entry point for the leadsync CLI, API server, and MCP server
// ABOUTME: Routes commands and wires the Apollo and Zoho clients together
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/harperreed/leadsync/apollo"
	"github.com/harperreed/leadsync/cli"
	"github.com/harperreed/leadsync/credstore"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/handlers"
	"github.com/harperreed/leadsync/sync"
	"github.com/harperreed/leadsync/web"
	"github.com/harperreed/leadsync/zoho"
)

const version = "0.1.0"

func main() {
	// Local .env overrides are convenient in development
	_ = godotenv.Load()

	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/leadsync/leadsync.db)")
	credPath := flag.String("credentials", "", "Credentials file (default: ~/.local/share/leadsync/credentials.env)")
	addr := flag.String("addr", ":8090", "Listen address (use with 'serve')")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("leadsync version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	store := openStore(*credPath)
	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "auth":
		if len(commandArgs) == 0 {
			fmt.Println("Error: auth requires a subcommand (init, status)")
			os.Exit(1)
		}
		switch commandArgs[0] {
		case "init":
			if err := cli.AuthInitCommand(store, commandArgs[1:]); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "status":
			if err := cli.AuthStatusCommand(store, commandArgs[1:]); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown auth command: %s\n", commandArgs[0])
			os.Exit(1)
		}

	case "sync":
		if len(commandArgs) == 0 {
			fmt.Println("Error: sync requires a subcommand (run)")
			os.Exit(1)
		}
		switch commandArgs[0] {
		case "run":
			app := buildApp(store, *dbPath)
			defer app.close()
			if err := cli.SyncRunCommand(app.runner, commandArgs[1:]); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown sync command: %s\n", commandArgs[0])
			os.Exit(1)
		}

	case "contacts":
		app := buildApp(store, *dbPath)
		defer app.close()
		if err := cli.ListContactsCommand(app.cache, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "serve":
		app := buildApp(store, *dbPath)
		defer app.close()
		server := web.NewServer(app.runner, app.tokens, app.database)
		if err := server.Start(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}

	case "mcp":
		app := buildApp(store, *dbPath)
		defer app.close()
		syncHandlers := handlers.NewSyncHandlers(app.runner, app.mapper, app.tokens, app.database)
		if err := cli.MCPCommand(syncHandlers); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// app holds the wired object graph shared by the long-running commands.
type app struct {
	database *sql.DB
	tokens   *zoho.TokenManager
	mapper   *sync.Mapper
	runner   *sync.Runner
	cache    *zoho.ContactCache
}

func (a *app) close() {
	if a.database != nil {
		_ = a.database.Close()
	}
}

func openStore(credPath string) credstore.Store {
	// Environment credentials win so containers skip the file entirely
	if _, ok := os.LookupEnv(credstore.KeyZohoClientID); ok {
		return credstore.NewEnvStore()
	}
	if credPath == "" {
		credPath = credstore.DefaultPath()
	}
	return credstore.NewFileStore(credPath)
}

func buildApp(store credstore.Store, dbPath string) *app {
	if dbPath == "" {
		dbPath = db.DefaultPath()
	}
	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	tokens := zoho.NewTokenManager(store, zoho.DefaultAccountsURL)
	crm := zoho.NewClient(tokens, "")

	apolloKey, _ := store.Get(credstore.KeyApolloAPIKey)
	source := apollo.NewClient(apolloKey, "")

	mapper := sync.NewMapper()
	engine := sync.NewEngine(crm)
	coordinator := sync.NewCoordinator(engine, mapper, db.NewLog(database))
	runner := sync.NewRunner(source, coordinator, database)

	return &app{
		database: database,
		tokens:   tokens,
		mapper:   mapper,
		runner:   runner,
		cache:    zoho.NewContactCache(crm),
	}
}

func printUsage() {
	fmt.Printf(`leadsync v%s - Apollo to Zoho CRM contact sync

USAGE:
  leadsync [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/leadsync/leadsync.db)
  --credentials <path>   Credentials file (default: ~/.local/share/leadsync/credentials.env)
  --addr <addr>          Listen address for 'serve' (default: :8090)

COMMANDS:
  auth init              Authenticate against Zoho (self-client grant code)
  auth status            Show credential and token state
  sync run               Search Apollo and upsert matches into Zoho
  contacts               List Zoho contacts through the local cache
  serve                  Start the JSON API server
  mcp                    Start MCP server for Claude Desktop

SYNC FLAGS:
  leadsync sync run
    --keywords <text>        Keyword search across person and company fields
    --titles <a,b>           Comma-separated job titles
    --locations <a,b>        Comma-separated locations
    --page <n>               Result page (default: 1)
    --per-page <n>           Results per page (default: 25)
    --batch-size <n>         Records per concurrent group (default: 5)
    --delay-ms <n>           Delay between groups (default: 2000)
    --tui                    Interactive progress view

EXAMPLES:
  # Authenticate once
  leadsync auth init

  # Sync fintech CTOs in Chicago
  leadsync sync run --keywords fintech --titles CTO --locations "Chicago, IL"

  # Start the API server
  leadsync serve --addr :8090

  # Start MCP server for Claude Desktop
  leadsync mcp

`, version)
}
