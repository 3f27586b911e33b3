package types

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the schema version written by this build. Readers accept
// any version up to and including it.
const SnapshotVersion = 1

// Filter attribute names that address snapshot fields rather than metadata.
const (
	AttrTitle    = "title"
	AttrCourseID = "course_id"
	AttrPath     = "path"
)

// Filter selects snapshots whose attributes equal every given value.
// An empty filter selects everything.
type Filter map[string]string

// Snapshot is the storage form of an entity: a plain field list decoupled
// from the in-memory types. Children holds root folders for a course and
// child refs for a folder.
type Snapshot struct {
	Version  int      `json:"v"`
	Kind     Kind     `json:"kind"`
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	CourseID string   `json:"course_id,omitempty"`
	Path     string   `json:"path,omitempty"`
	Children []Ref    `json:"children,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
}

func newSnapshot(kind Kind, id, title, courseID, path string, md Metadata) Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Kind:     kind,
		ID:       id,
		Title:    title,
		CourseID: courseID,
		Path:     path,
		Metadata: md.Clone(),
	}
}

// Attr returns the attribute named key: a snapshot field for the Attr*
// names, otherwise the metadata value.
func (s Snapshot) Attr(key string) (string, bool) {
	switch key {
	case AttrTitle:
		return s.Title, true
	case AttrCourseID:
		return s.CourseID, true
	case AttrPath:
		return s.Path, true
	}
	v, ok := s.Metadata[key]
	return v, ok
}

// Matches reports whether every filter entry equals the snapshot attribute.
func (s Snapshot) Matches(f Filter) bool {
	for k, want := range f {
		got, ok := s.Attr(k)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Entity rebuilds the typed entity described by s.
func (s Snapshot) Entity() (Entity, error) {
	if s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedSnapshot, s.Version)
	}
	if s.ID == "" {
		return nil, ErrInvalidID
	}
	md := s.Metadata.Clone()
	switch s.Kind {
	case KindCourse:
		c := &Course{ID: s.ID, Title: s.Title, Metadata: md}
		for _, r := range s.Children {
			c.RootFolders = append(c.RootFolders, r.ID)
		}
		return c, nil
	case KindContent, KindFile:
		return &Content{Kind: s.Kind, ID: s.ID, Title: s.Title, CourseID: s.CourseID, Path: s.Path, Metadata: md}, nil
	case KindContentFolder:
		return &Folder{
			ID:       s.ID,
			Title:    s.Title,
			CourseID: s.CourseID,
			Path:     s.Path,
			Children: append([]Ref(nil), s.Children...),
			Metadata: md,
		}, nil
	case KindAssignment:
		return &Assignment{ID: s.ID, Title: s.Title, CourseID: s.CourseID, Path: s.Path, Metadata: md}, nil
	case KindAnnouncement:
		return &Announcement{ID: s.ID, Title: s.Title, CourseID: s.CourseID, Metadata: md}, nil
	case KindCalendarEntry:
		return &CalendarEntry{ID: s.ID, Title: s.Title, CourseID: s.CourseID, Metadata: md}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, s.Kind)
	}
}

// EncodeSnapshot serializes the snapshot of e.
func EncodeSnapshot(e Entity) ([]byte, error) {
	return json.Marshal(e.Snapshot())
}

// DecodeSnapshot parses a stored snapshot. Unknown fields are ignored so that
// older builds can read rows written by newer ones of the same version.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	return s, nil
}
