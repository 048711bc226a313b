// ABOUTME: MCP server subcommand
// ABOUTME: Exposes sync tools over stdio for Claude Desktop integration
package cli

import (
	"context"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadsync/handlers"
)

// MCPCommand starts the MCP server on stdio.
func MCPCommand(syncHandlers *handlers.SyncHandlers) error {
	log.Println("Starting leadsync MCP server...")

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "leadsync",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_sync",
		Description: "Search Apollo for people and upsert them into Zoho CRM",
	}, syncHandlers.RunSync)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Report token validity and the state of the last sync run",
	}, syncHandlers.SyncStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_mapping",
		Description: "Show the Zoho payload an Apollo person would produce, without writing to the CRM",
	}, syncHandlers.PreviewMapping)

	ctx := context.Background()
	return server.Run(ctx, &mcp.StdioTransport{})
}
