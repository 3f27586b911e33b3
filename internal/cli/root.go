// Package cli implements the coursewatch command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const exitFailure = 1

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	dryRun    bool
	logLevel  string
	logJSON   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "coursewatch" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coursewatch",
		Short: "Watch a Blackboard portal and mail what changed",
		Long: "coursewatch crawls a Blackboard portal, keeps the last seen state in a\n" +
			"local SQLite store and mails new assignments, announcements, content,\n" +
			"urgent reminders and a daily summary.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (env COURSEWATCH_CONFIG_DIR)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (env COURSEWATCH_DATA_DIR)")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "log notifications instead of sending mail")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVar(&flags.logJSON, "log-json", false, "write logs as JSON")

	root.AddCommand(
		newRunCmd(),
		newWatchCmd(),
		newListCmd(),
		newExportCmd(),
		newImportCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitFailure)
	}
}
