// Package archive dumps the event store to a JSONL file and restores it.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/mesh-intelligence/coursewatch/internal/jsonl"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Source lists every stored snapshot.
type Source interface {
	All() ([]types.Snapshot, error)
}

// Sink writes snapshots in one all-or-nothing step.
type Sink interface {
	Restore(snapshots []types.Snapshot) error
}

// FileName is the default export name for a dump taken at t.
func FileName(t time.Time) string {
	return "coursewatch-" + t.UTC().Format("20060102T150405Z") + ".jsonl"
}

// Export writes one snapshot per line to path, replacing it atomically.
// It returns the number of snapshots written.
func Export(src Source, path string) (int, error) {
	snaps, err := src.All()
	if err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}
	records, err := jsonl.Marshal(snaps)
	if err != nil {
		return 0, err
	}
	if err := jsonl.WriteAtomic(path, records); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	return len(snaps), nil
}

// Import reads a file written by Export and restores it into dst. Lines
// that are not JSON are skipped; a line that is JSON but not a valid
// snapshot fails the whole import.
func Import(dst Sink, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("import file %s: %w", path, types.ErrNotFound)
		}
		return 0, fmt.Errorf("import file %s: %w", path, err)
	}

	records, err := jsonl.Read(path)
	if err != nil {
		return 0, err
	}
	snaps := make([]types.Snapshot, 0, len(records))
	for i, rec := range records {
		snap, err := types.DecodeSnapshot(rec)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		snaps = append(snaps, snap)
	}
	if err := dst.Restore(snaps); err != nil {
		return 0, err
	}
	return len(snaps), nil
}
