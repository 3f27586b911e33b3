package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coursewatch/internal/config"
	"github.com/mesh-intelligence/coursewatch/internal/paths"
	"github.com/mesh-intelligence/coursewatch/internal/sqlite"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config and data directories",
		Long:  "Write a default config.yaml if none exists and initialize the event store.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	// An existing config may already name the data directory.
	var configured string
	if cfg, err := config.Load(configDir); err == nil {
		configured = cfg.DataDir
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, configured)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	written, err := config.WriteDefault(configDir, dataDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := backend.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "wrote %s\n", filepath.Join(configDir, config.FileName))
	} else {
		fmt.Fprintf(out, "kept existing %s\n", filepath.Join(configDir, config.FileName))
	}
	fmt.Fprintf(out, "data directory %s\n", dataDir)
	return nil
}
