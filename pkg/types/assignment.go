package types

import "time"

// Assignment is a content node with a due time and a completion state.
// Both live in Metadata under MetaDue and MetaFinished, and the instructions
// text under MetaDetail.
type Assignment struct {
	ID       string
	Title    string
	CourseID string
	Path     string
	Metadata Metadata
}

// NewAssignment creates an assignment without resolved detail.
func NewAssignment(courseID, id, title, path string) *Assignment {
	return &Assignment{ID: id, Title: title, CourseID: courseID, Path: path, Metadata: Metadata{}}
}

func (a *Assignment) EntityKind() Kind    { return KindAssignment }
func (a *Assignment) EntityID() string    { return a.ID }
func (a *Assignment) EntityTitle() string { return a.Title }
func (a *Assignment) OwnerID() string     { return a.CourseID }

// Due returns the due time. The zero time is returned when it was never set.
func (a *Assignment) Due() time.Time {
	t, _ := a.Metadata.Time(MetaDue)
	return t
}

// Finished reports whether the assignment was submitted and reviewed or is
// already past due as of the crawl that produced it.
func (a *Assignment) Finished() bool { return a.Metadata.Bool(MetaFinished) }

func (a *Assignment) Detail() string { return a.Metadata.Get(MetaDetail) }

// Resolve records the detail fields read from the assignment pages.
func (a *Assignment) Resolve(due time.Time, finished bool, detail string) {
	if a.Metadata == nil {
		a.Metadata = Metadata{}
	}
	a.Metadata.SetTime(MetaDue, due)
	a.Metadata.SetBool(MetaFinished, finished)
	a.Metadata[MetaDetail] = detail
}

func (a *Assignment) Snapshot() Snapshot {
	return newSnapshot(KindAssignment, a.ID, a.Title, a.CourseID, a.Path, a.Metadata)
}
