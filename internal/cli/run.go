package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coursewatch/internal/cycle"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one polling cycle",
		Long:  "Log in, crawl every course, reconcile against the store and send notifications.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			store, release, err := e.cycleStore()
			if err != nil {
				return err
			}
			defer release()

			runner, err := e.newRunner(store)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rep, err := runner.Run(ctx)
			if err != nil {
				runner.Fail(ctx, err)
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}

func printReport(w io.Writer, rep cycle.Report) {
	fmt.Fprintf(w, "cycle %s finished in %s\n", rep.ID, rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	if rep.FirstRun {
		fmt.Fprintln(w, "first run: store populated, notifications suppressed")
	}
	for _, g := range rep.Changes.Counts() {
		fmt.Fprintf(w, "  %-14s +%d -%d\n", g.Group, g.Added, g.Removed)
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}
