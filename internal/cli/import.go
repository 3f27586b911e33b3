package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coursewatch/internal/archive"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore snapshots from a JSONL export",
		Long:  "Upsert every snapshot in the file into the event store. Nothing is written if any record is invalid.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			store, err := e.attachStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			n, err := archive.Import(store, args[0])
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d snapshots\n", n)
			return nil
		},
	}
}
