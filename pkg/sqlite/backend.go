// Package sqlite provides the public API for the SQLite event store.
// It exposes the factory while keeping the implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/coursewatch/internal/sqlite"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// NewBackend creates a new SQLite event store.
// The store is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/coursewatch",
//	})
//	defer store.Detach()
func NewBackend() types.Store {
	return sqlite.NewBackend()
}
