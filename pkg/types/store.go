package types

import "errors"

// EventStore maps (Kind, Identity) to the latest snapshot of an entity.
type EventStore interface {
	// Upsert writes or replaces the record for (e.EntityKind(), e.EntityID()).
	// Repeating an identical write has no observable effect.
	Upsert(e Entity) error

	// Get returns the entity, or ErrNotFound.
	Get(kind Kind, id string) (Entity, error)

	// Filter returns every entity of kind whose attributes match filter.
	Filter(kind Kind, filter Filter) ([]Entity, error)

	// Delete removes the record. Deleting a missing record succeeds.
	Delete(kind Kind, id string) error
}

// Store is an EventStore with an attach/detach lifecycle.
type Store interface {
	EventStore

	// Attach opens the backend described by config, creating DataDir if
	// needed. Returns ErrAlreadyAttached when called twice.
	Attach(config Config) error

	// Detach releases the backend. Idempotent.
	Detach() error
}

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if c.Backend != BackendSQLite {
		return ErrBackendUnknown
	}
	return nil
}
