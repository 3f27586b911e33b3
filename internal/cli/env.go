package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coursewatch/internal/config"
	"github.com/mesh-intelligence/coursewatch/internal/paths"
	"github.com/mesh-intelligence/coursewatch/internal/sqlite"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// env is the resolved runtime shared by the commands.
type env struct {
	cfg       *config.Config
	configDir string
	dataDir   string
	loc       *time.Location
	log       *slog.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	log, err := newLogger(cmd.ErrOrStderr(), flags.logLevel, flags.logJSON)
	if err != nil {
		return nil, err
	}
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, configDir: configDir, dataDir: dataDir, loc: loc, log: log}, nil
}

// attachStore opens the event store under the data directory. The caller
// must Detach it.
func (e *env) attachStore() (*sqlite.Backend, error) {
	backend := sqlite.NewBackend()
	err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: e.dataDir})
	if err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return backend, nil
}

func newLogger(w io.Writer, level string, asJSON bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// cycleStore opens the store a cycle writes to. On --dry-run that is a
// scratch copy of the real store in a temporary directory, so the crawl and
// pruning leave the real store untouched. The returned func releases it.
func (e *env) cycleStore() (*sqlite.Backend, func(), error) {
	primary, err := e.attachStore()
	if err != nil {
		return nil, nil, err
	}
	if !flags.dryRun {
		return primary, func() { primary.Detach() }, nil
	}

	snaps, err := primary.All()
	primary.Detach()
	if err != nil {
		return nil, nil, fmt.Errorf("copy store for dry run: %w", err)
	}
	dir, err := os.MkdirTemp("", "coursewatch-dry-run-")
	if err != nil {
		return nil, nil, fmt.Errorf("create dry-run store: %w", err)
	}
	scratch := sqlite.NewBackend()
	release := func() {
		scratch.Detach()
		os.RemoveAll(dir)
	}
	if err := scratch.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}); err != nil {
		os.RemoveAll(dir)
		return nil, nil, fmt.Errorf("attach dry-run store: %w", err)
	}
	if err := scratch.Restore(snaps); err != nil {
		release()
		return nil, nil, fmt.Errorf("copy store for dry run: %w", err)
	}
	e.log.Info("dry run: using a scratch copy of the store", "entities", len(snaps), "dir", dir)
	return scratch, release, nil
}
