// Package reconcile compares the stored snapshot with a fresh crawl and
// removes what disappeared from the portal.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Diff compares two lists by identity only. added keeps fresh order and
// removed keeps stored order; entities present in both are in neither.
func Diff[E types.Entity](stored, fresh []E) (added, removed []E) {
	storedByRef := make(map[types.Ref]bool, len(stored))
	for _, e := range stored {
		storedByRef[types.RefOf(e)] = true
	}
	freshByRef := make(map[types.Ref]bool, len(fresh))
	for _, e := range fresh {
		ref := types.RefOf(e)
		freshByRef[ref] = true
		if !storedByRef[ref] {
			added = append(added, e)
		}
	}
	for _, e := range stored {
		if !freshByRef[types.RefOf(e)] {
			removed = append(removed, e)
		}
	}
	return added, removed
}

// Set is the content of the store, or of one crawl, grouped the way it is
// reconciled. Contents holds both Content and File entities.
type Set struct {
	Courses         []*types.Course
	Folders         []*types.Folder
	Contents        []*types.Content
	Assignments     []*types.Assignment
	Announcements   []*types.Announcement
	CalendarEntries []*types.CalendarEntry
}

// Len returns the number of entities in the set.
func (s Set) Len() int {
	return len(s.Courses) + len(s.Folders) + len(s.Contents) +
		len(s.Assignments) + len(s.Announcements) + len(s.CalendarEntries)
}

// Empty reports whether the set holds no entity of any kind.
func (s Set) Empty() bool { return s.Len() == 0 }

// Delta is the identity diff of one group.
type Delta[E types.Entity] struct {
	Added   []E
	Removed []E
}

func diff[E types.Entity](stored, fresh []E) Delta[E] {
	added, removed := Diff(stored, fresh)
	return Delta[E]{Added: added, Removed: removed}
}

// Changes is the per-group diff between two sets.
type Changes struct {
	Courses         Delta[*types.Course]
	Folders         Delta[*types.Folder]
	Contents        Delta[*types.Content]
	Assignments     Delta[*types.Assignment]
	Announcements   Delta[*types.Announcement]
	CalendarEntries Delta[*types.CalendarEntry]
}

// Plan diffs every group of stored against fresh.
func Plan(stored, fresh Set) Changes {
	return Changes{
		Courses:         diff(stored.Courses, fresh.Courses),
		Folders:         diff(stored.Folders, fresh.Folders),
		Contents:        diff(stored.Contents, fresh.Contents),
		Assignments:     diff(stored.Assignments, fresh.Assignments),
		Announcements:   diff(stored.Announcements, fresh.Announcements),
		CalendarEntries: diff(stored.CalendarEntries, fresh.CalendarEntries),
	}
}

// GroupCount summarizes one group of a Changes.
type GroupCount struct {
	Group   string
	Added   int
	Removed int
}

// Counts returns added and removed totals per group in a fixed order.
func (c Changes) Counts() []GroupCount {
	return []GroupCount{
		{"courses", len(c.Courses.Added), len(c.Courses.Removed)},
		{"folders", len(c.Folders.Added), len(c.Folders.Removed)},
		{"contents", len(c.Contents.Added), len(c.Contents.Removed)},
		{"assignments", len(c.Assignments.Added), len(c.Assignments.Removed)},
		{"announcements", len(c.Announcements.Added), len(c.Announcements.Removed)},
		{"calendar", len(c.CalendarEntries.Added), len(c.CalendarEntries.Removed)},
	}
}

// Removed returns every removed entity across groups.
func (c Changes) Removed() []types.Entity {
	var out []types.Entity
	out = appendEntities(out, c.Courses.Removed)
	out = appendEntities(out, c.Folders.Removed)
	out = appendEntities(out, c.Contents.Removed)
	out = appendEntities(out, c.Assignments.Removed)
	out = appendEntities(out, c.Announcements.Removed)
	out = appendEntities(out, c.CalendarEntries.Removed)
	return out
}

func appendEntities[E types.Entity](dst []types.Entity, src []E) []types.Entity {
	for _, e := range src {
		dst = append(dst, e)
	}
	return dst
}

// Deleter removes entities from the store.
type Deleter interface {
	Delete(kind types.Kind, id string) error
}

// Prune deletes every removed entity under its own kind. All deletions are
// attempted; failures are joined.
func Prune(store Deleter, changes Changes) error {
	var errs []error
	for _, e := range changes.Removed() {
		if err := store.Delete(e.EntityKind(), e.EntityID()); err != nil {
			errs = append(errs, fmt.Errorf("pruning %s: %w", types.RefOf(e), err))
		}
	}
	return errors.Join(errs...)
}

// Reader lists stored entities by kind.
type Reader interface {
	Filter(kind types.Kind, filter types.Filter) ([]types.Entity, error)
}

// Snapshot loads the whole stored set. It must be read before a crawl,
// since the crawl persists what it finds.
func Snapshot(store Reader) (Set, error) {
	var s Set
	for _, kind := range types.Kinds {
		entities, err := store.Filter(kind, nil)
		if err != nil {
			return Set{}, fmt.Errorf("loading stored %s: %w", kind, err)
		}
		for _, e := range entities {
			s.add(e)
		}
	}
	return s, nil
}

func (s *Set) add(e types.Entity) {
	switch v := e.(type) {
	case *types.Course:
		s.Courses = append(s.Courses, v)
	case *types.Folder:
		s.Folders = append(s.Folders, v)
	case *types.Content:
		s.Contents = append(s.Contents, v)
	case *types.Assignment:
		s.Assignments = append(s.Assignments, v)
	case *types.Announcement:
		s.Announcements = append(s.Announcements, v)
	case *types.CalendarEntry:
		s.CalendarEntries = append(s.CalendarEntries, v)
	}
}
