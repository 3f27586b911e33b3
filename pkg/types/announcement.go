package types

import "time"

// Announcement is a course notice. It is not part of the content tree.
type Announcement struct {
	ID       string
	Title    string
	CourseID string
	Metadata Metadata
}

func NewAnnouncement(courseID, id, title, detail string) *Announcement {
	return &Announcement{ID: id, Title: title, CourseID: courseID, Metadata: Metadata{MetaDetail: detail}}
}

func (a *Announcement) EntityKind() Kind    { return KindAnnouncement }
func (a *Announcement) EntityID() string    { return a.ID }
func (a *Announcement) EntityTitle() string { return a.Title }
func (a *Announcement) OwnerID() string     { return a.CourseID }
func (a *Announcement) Detail() string      { return a.Metadata.Get(MetaDetail) }

func (a *Announcement) Snapshot() Snapshot {
	return newSnapshot(KindAnnouncement, a.ID, a.Title, a.CourseID, "", a.Metadata)
}

// CalendarEntry is an item of the personal calendar feed. CourseID is set
// when the feed names a course calendar the crawler knows about.
type CalendarEntry struct {
	ID       string
	Title    string
	CourseID string
	Metadata Metadata
}

func (c *CalendarEntry) EntityKind() Kind    { return KindCalendarEntry }
func (c *CalendarEntry) EntityID() string    { return c.ID }
func (c *CalendarEntry) EntityTitle() string { return c.Title }
func (c *CalendarEntry) OwnerID() string     { return c.CourseID }

func (c *CalendarEntry) Start() time.Time {
	t, _ := c.Metadata.Time(MetaStart)
	return t
}

func (c *CalendarEntry) End() time.Time {
	t, _ := c.Metadata.Time(MetaEnd)
	return t
}

func (c *CalendarEntry) Snapshot() Snapshot {
	return newSnapshot(KindCalendarEntry, c.ID, c.Title, c.CourseID, "", c.Metadata)
}
