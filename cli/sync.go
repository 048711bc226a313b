// ABOUTME: Sync CLI command driving a batch run from the terminal
// ABOUTME: Plain ✓/✗ progress lines by default, bubbletea view with --tui
package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadsync/apollo"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
	"github.com/harperreed/leadsync/tui"
)

// SyncRunCommand fetches a page of Apollo people matching the filters and
// upserts them into Zoho.
func SyncRunCommand(runner *sync.Runner, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	keywords := fs.String("keywords", "", "Keyword search across person and company fields")
	titles := fs.String("titles", "", "Comma-separated job titles")
	locations := fs.String("locations", "", "Comma-separated locations")
	page := fs.Int("page", 1, "Result page to fetch")
	perPage := fs.Int("per-page", 25, "Results per page")
	batchSize := fs.Int("batch-size", sync.DefaultBatchSize, "Records per concurrent group")
	delayMS := fs.Int("delay-ms", int(sync.DefaultInterBatchDelay/time.Millisecond), "Delay between groups in milliseconds")
	useTUI := fs.Bool("tui", false, "Show interactive progress view")
	_ = fs.Parse(args)

	query := apollo.SearchQuery{
		Keywords:        *keywords,
		PersonTitles:    splitList(*titles),
		PersonLocations: splitList(*locations),
		Page:            *page,
		PerPage:         *perPage,
	}
	if query.Keywords == "" && len(query.PersonTitles) == 0 && len(query.PersonLocations) == 0 {
		return fmt.Errorf("at least one of --keywords, --titles, or --locations is required")
	}

	opts := sync.BatchOptions{
		BatchSize:       *batchSize,
		InterBatchDelay: time.Duration(*delayMS) * time.Millisecond,
	}

	ctx := context.Background()

	if *useTUI {
		return runWithTUI(ctx, runner, query, opts)
	}

	fmt.Println("Syncing Apollo → Zoho...")
	progress := func(done, total int, result models.SyncResult) {
		fmt.Printf("  %s [%d/%d]\n", formatResult(result), done, total)
	}

	summary, err := runner.Run(ctx, query, opts, progress)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

// runWithTUI bridges the coordinator's progress callback into the
// bubbletea program over a channel.
func runWithTUI(ctx context.Context, runner *sync.Runner, query apollo.SearchQuery, opts sync.BatchOptions) error {
	events := make(chan tea.Msg, 64)
	program := tea.NewProgram(tui.NewModel(0, events))

	progress := func(done, total int, result models.SyncResult) {
		events <- tui.ResultMsg{Done: done, Total: total, Result: result}
	}

	var summary models.BatchSummary
	var runErr error
	go func() {
		summary, runErr = runner.Run(ctx, query, opts, progress)
		events <- tui.DoneMsg{Summary: summary}
		close(events)
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("progress view failed: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	printSummary(summary)
	return nil
}

func formatResult(result models.SyncResult) string {
	switch {
	case result.Skipped:
		return fmt.Sprintf("- %s already synced", result.SourceID)
	case result.Success && result.WasUpdate:
		return fmt.Sprintf("✓ %s updated (%s)", result.SourceID, result.ZohoID)
	case result.Success:
		return fmt.Sprintf("✓ %s created (%s)", result.SourceID, result.ZohoID)
	default:
		return fmt.Sprintf("✗ %s failed: %s", result.SourceID, result.Error)
	}
}

func printSummary(summary models.BatchSummary) {
	fmt.Printf("\nRun %s: %d total, %d synced, %d failed, %d skipped\n",
		summary.RunID, summary.Total, summary.Succeeded, summary.Failed, summary.Skipped)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
