package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodledger/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Mood Ledger MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes mood recording,
listing, statistics, update and delete as MCP tools via STDIO.

Storage is chosen by --driver (sqlite by default). For SQLite the --db flag is
optional; if not provided, a system-specific default location will be used:
- Windows: %USERPROFILE%\AppData\Roaming\moodledger\moodledger.db
- macOS: ~/Library/Application Support/moodledger/moodledger.db
- Linux: ~/.local/share/moodledger/moodledger.db

Example:
  moodledger mcp
  moodledger mcp --db moods.db --timezone Europe/Berlin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcp.NewMoodMCPServer(a.ledger, a.log)

		// stdout carries the JSON-RPC stream.
		fmt.Fprintf(os.Stderr, "Mood Ledger MCP server started. Driver: %s, timezone: %s\n", a.cfg.Driver, a.ledger.Location())
		fmt.Fprintln(os.Stderr, "Available tools: ping, record_mood, upsert_today_mood, get_mood_entry, list_mood_entries, get_mood_statistics, update_mood_entry, delete_mood_entry")
		fmt.Fprintln(os.Stderr, "Listening for MCP JSON-RPC on STDIN/STDOUT ... (Ctrl+C to quit)")

		return srv.Start()
	},
}

