package reconcile

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/coursewatch/internal/sqlite"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

func courses(ids ...string) []*types.Course {
	out := make([]*types.Course, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.NewCourse(id, "Course "+id))
	}
	return out
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name        string
		stored      []string
		fresh       []string
		wantAdded   []string
		wantRemoved []string
	}{
		{"both empty", nil, nil, []string{}, []string{}},
		{"first crawl", nil, []string{"a", "b"}, []string{"a", "b"}, []string{}},
		{"everything gone", []string{"a", "b"}, nil, []string{}, []string{"a", "b"}},
		{"unchanged", []string{"a", "b"}, []string{"b", "a"}, []string{}, []string{}},
		{"mixed keeps order", []string{"c", "a", "d"}, []string{"e", "a", "b"}, []string{"e", "b"}, []string{"c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := Diff(courses(tt.stored...), courses(tt.fresh...))
			assert.Equal(t, tt.wantAdded, types.IDs(added))
			assert.Equal(t, tt.wantRemoved, types.IDs(removed))
		})
	}
}

func TestDiffIgnoresTitle(t *testing.T) {
	stored := []*types.Course{types.NewCourse("c1", "Old name")}
	fresh := []*types.Course{types.NewCourse("c1", "New name")}
	added, removed := Diff(stored, fresh)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestDiffCompleteness(t *testing.T) {
	stored := courses("a", "b", "c", "d")
	fresh := courses("c", "d", "e")
	added, removed := Diff(stored, fresh)

	in := func(list []*types.Course, id string) bool {
		for _, c := range list {
			if c.ID == id {
				return true
			}
		}
		return false
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		inStored, inFresh := in(stored, id), in(fresh, id)
		assert.Equal(t, inFresh && !inStored, in(added, id), "added %s", id)
		assert.Equal(t, inStored && !inFresh, in(removed, id), "removed %s", id)
	}
}

func TestDiffSameKindOnly(t *testing.T) {
	stored := []*types.Content{types.NewContent(types.KindContent, "c1", "x1", "Notes", "A/Notes", "")}
	fresh := []*types.Content{types.NewContent(types.KindFile, "c1", "x1", "Notes", "A/Notes", "")}
	added, removed := Diff(stored, fresh)
	require.Len(t, added, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, types.KindFile, added[0].Kind)
	assert.Equal(t, types.KindContent, removed[0].Kind)
}

func TestPlanFirstRun(t *testing.T) {
	a1 := types.NewAssignment("C1", "A1", "HW1", "Course C1/HW1")
	fresh := Set{Courses: courses("C1"), Assignments: []*types.Assignment{a1}}

	changes := Plan(Set{}, fresh)
	assert.Equal(t, []string{"C1"}, types.IDs(changes.Courses.Added))
	assert.Equal(t, []string{"A1"}, types.IDs(changes.Assignments.Added))
	assert.Empty(t, changes.Removed())
	assert.True(t, Set{}.Empty())
	assert.Equal(t, 2, fresh.Len())
}

func TestPlanIdentical(t *testing.T) {
	s := Set{
		Courses:       courses("C1"),
		Folders:       []*types.Folder{types.NewFolder("C1", "F1", "Week 1", "C1/Week 1")},
		Announcements: []*types.Announcement{types.NewAnnouncement("C1", "N1", "Hi", "")},
	}
	for _, g := range Plan(s, s).Counts() {
		assert.Zero(t, g.Added, g.Group)
		assert.Zero(t, g.Removed, g.Group)
	}
}

type recordingDeleter struct {
	deleted []types.Ref
	fail    map[string]error
}

func (d *recordingDeleter) Delete(kind types.Kind, id string) error {
	if err := d.fail[id]; err != nil {
		return err
	}
	d.deleted = append(d.deleted, types.Ref{Kind: kind, ID: id})
	return nil
}

func TestPruneUsesOwnKind(t *testing.T) {
	stored := Set{
		Courses:  courses("C1"),
		Folders:  []*types.Folder{types.NewFolder("C1", "F1", "Week 1", "C1/Week 1")},
		Contents: []*types.Content{types.NewContent(types.KindFile, "C1", "f1", "Slides", "C1/Week 1/Slides", "")},
	}
	d := &recordingDeleter{}
	require.NoError(t, Prune(d, Plan(stored, Set{Courses: courses("C1")})))
	assert.Equal(t, []types.Ref{
		{Kind: types.KindContentFolder, ID: "F1"},
		{Kind: types.KindFile, ID: "f1"},
	}, d.deleted)
}

func TestPruneContinuesAfterFailure(t *testing.T) {
	boom := errors.New("disk full")
	stored := Set{Courses: courses("C1", "C2")}
	d := &recordingDeleter{fail: map[string]error{"C1": boom}}

	err := Prune(d, Plan(stored, Set{}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []types.Ref{{Kind: types.KindCourse, ID: "C2"}}, d.deleted)
}

func TestRemovedFolderIsDeletedFromStore(t *testing.T) {
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: filepath.Join(t.TempDir(), "data")}))
	t.Cleanup(func() { store.Detach() })

	require.NoError(t, store.Upsert(types.NewFolder("C1", "F1", "Week 1", "C1/Week 1")))

	stored, err := Snapshot(store)
	require.NoError(t, err)
	require.Equal(t, []string{"F1"}, types.IDs(stored.Folders))

	changes := Plan(stored, Set{})
	assert.Equal(t, []string{"F1"}, types.IDs(changes.Folders.Removed))
	require.NoError(t, Prune(store, changes))

	_, err = store.Get(types.KindContentFolder, "F1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSnapshotGroupsKinds(t *testing.T) {
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })

	entities := []types.Entity{
		types.NewCourse("C1", "Algebra"),
		types.NewContent(types.KindContent, "C1", "x1", "Syllabus", "Algebra/Syllabus", ""),
		types.NewContent(types.KindFile, "C1", "x2", "Slides", "Algebra/Slides", ""),
		types.NewAssignment("C1", "A1", "HW1", "Algebra/HW1"),
		&types.CalendarEntry{ID: "E1", Title: "Quiz", Metadata: types.Metadata{}},
	}
	for _, e := range entities {
		require.NoError(t, store.Upsert(e))
	}

	s, err := Snapshot(store)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, []string{"x1", "x2"}, types.IDs(s.Contents))
	assert.Equal(t, []string{"A1"}, types.IDs(s.Assignments))
	assert.Equal(t, []string{"E1"}, types.IDs(s.CalendarEntries))
}
