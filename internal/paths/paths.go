// Package paths resolves the configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "coursewatch"

// Environment variables overriding the directories.
const (
	EnvConfigDir = "COURSEWATCH_CONFIG_DIR"
	EnvDataDir   = "COURSEWATCH_DATA_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/coursewatch (fallback ~/.config/coursewatch)
// macOS:   ~/Library/Application Support/coursewatch
// Windows: %APPDATA%/coursewatch
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the per-user data directory holding events.db and
// deliveries.jsonl.
//
// Linux:   $XDG_DATA_HOME/coursewatch (fallback ~/.local/share/coursewatch)
// macOS and Windows: same as the configuration directory.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, homeRel string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// ResolveConfigDir applies flag > COURSEWATCH_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir applies flag > COURSEWATCH_DATA_DIR > configured value >
// DefaultDataDir.
func ResolveDataDir(flag, configured string) (string, error) {
	return firstAbs(DefaultDataDir, flag, os.Getenv(EnvDataDir), configured)
}

// firstAbs returns the first non-empty candidate made absolute, or the
// fallback.
func firstAbs(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
