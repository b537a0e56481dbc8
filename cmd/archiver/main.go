// Command archiver drives the Discord archiver: ingesting live gateway
// events and backfilled history into the local SQLite store, checking blob
// consistency, and exporting human-readable hard links.
package main

import (
	"fmt"
	"os"
	goruntime "runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Build info (set via ldflags).
	Version = "dev"
	Build   = "unknown"
)

var (
	// Global flags.
	flagDataDir    string
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "archiver",
		Short: "Discord archive ingester and exporter",
		Long: `archiver ingests a Discord server's history and live events into a
local, queryable SQLite store, deduplicating attached media by content hash,
and can export the archived media as human-named hard links.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("json") && !isInteractive() {
				flagJSON = true
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Archive data directory (or ARCHIVER_DATA_DIR env var)")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Config file path (default ./archiver.json)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "JSON-formatted log output (default: auto-detected from whether stderr is a terminal)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Debug-level logging")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("archiver v{{.Version}} (build: " + Build + ", " + goruntime.Version() + ")\n")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(fsckCmd())
	rootCmd.AddCommand(linkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isInteractive reports whether stderr — where internal/logging writes —
// is attached to a terminal rather than a file or pipe. Automation piping
// the archiver's output wants JSON logs by default; a developer watching a
// terminal wants the human-readable text handler.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
