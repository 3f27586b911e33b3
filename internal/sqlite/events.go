package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Upsert writes or replaces the snapshot of e. Last write wins.
func (b *Backend) Upsert(e types.Entity) error {
	if e == nil {
		return types.ErrInvalidData
	}
	snap := e.Snapshot()
	if err := validateKey(snap.Kind, snap.ID); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	if err := writeSnapshot(b.db, snap); err != nil {
		return fmt.Errorf("upserting %s %s: %w", snap.Kind, snap.ID, err)
	}
	return nil
}

// Get returns the entity stored under (kind, id).
// Returns ErrNotFound if no such row exists.
func (b *Backend) Get(kind types.Kind, id string) (types.Entity, error) {
	if err := validateKey(kind, id); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	var body string
	err := b.db.QueryRow(
		"SELECT body FROM events WHERE kind = ? AND entity_id = ?",
		string(kind), id,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s %s: %w", kind, id, err)
	}
	return hydrate(body)
}

// Filter returns every entity of kind whose attributes match filter, ordered
// by identity. The course_id attribute is matched in SQL; the others after
// decoding.
func (b *Backend) Filter(kind types.Kind, filter types.Filter) ([]types.Entity, error) {
	if !kind.Valid() {
		return nil, types.ErrInvalidKind
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	query := "SELECT body FROM events WHERE kind = ?"
	args := []any{string(kind)}
	if courseID, ok := filter[types.AttrCourseID]; ok {
		query += " AND course_id = ?"
		args = append(args, courseID)
	}
	query += " ORDER BY entity_id"

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("filtering %s: %w", kind, err)
	}
	defer rows.Close()

	var results []types.Entity
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		snap, err := types.DecodeSnapshot([]byte(body))
		if err != nil {
			return nil, err
		}
		if !snap.Matches(filter) {
			continue
		}
		e, err := snap.Entity()
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", kind, err)
	}
	return results, nil
}

// Delete removes the row for (kind, id). Deleting a missing row succeeds.
func (b *Backend) Delete(kind types.Kind, id string) error {
	if err := validateKey(kind, id); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	if _, err := b.db.Exec("DELETE FROM events WHERE kind = ? AND entity_id = ?", string(kind), id); err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	return nil
}

// All returns every stored snapshot ordered by kind and identity.
func (b *Backend) All() ([]types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.Query("SELECT body FROM events ORDER BY kind, entity_id")
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var out []types.Snapshot
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		snap, err := types.DecodeSnapshot([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Restore upserts snapshots in one transaction: either all are written or
// none. Each snapshot must decode to a valid entity.
func (b *Backend) Restore(snapshots []types.Snapshot) error {
	for _, snap := range snapshots {
		if _, err := snap.Entity(); err != nil {
			return fmt.Errorf("restoring %s %s: %w", snap.Kind, snap.ID, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning restore transaction: %w", err)
	}
	defer tx.Rollback()

	for _, snap := range snapshots {
		if err := writeSnapshot(tx, snap); err != nil {
			return fmt.Errorf("restoring %s %s: %w", snap.Kind, snap.ID, err)
		}
	}
	return tx.Commit()
}

func writeSnapshot(db execer, snap types.Snapshot) error {
	if snap.Version == 0 {
		snap.Version = types.SnapshotVersion
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = db.Exec(upsertEvent,
		string(snap.Kind), snap.ID, snap.Version, snap.Title, snap.CourseID,
		string(body), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func hydrate(body string) (types.Entity, error) {
	snap, err := types.DecodeSnapshot([]byte(body))
	if err != nil {
		return nil, err
	}
	return snap.Entity()
}

func validateKey(kind types.Kind, id string) error {
	if !kind.Valid() {
		return types.ErrInvalidKind
	}
	if id == "" {
		return types.ErrInvalidID
	}
	return nil
}
