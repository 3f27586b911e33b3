package types

import "strings"

// Entity is implemented by every record the crawler produces and the store
// persists. Identity is unique within EntityKind.
type Entity interface {
	EntityKind() Kind
	EntityID() string
	EntityTitle() string
	// OwnerID is the id of the owning course, or "" for roots.
	OwnerID() string
	// Snapshot returns the storage form of the entity.
	Snapshot() Snapshot
}

// RefOf returns the reference to e.
func RefOf(e Entity) Ref {
	return Ref{Kind: e.EntityKind(), ID: e.EntityID()}
}

// ChildPath builds a content path: parent + "/" + title.
func ChildPath(parentPath, title string) string {
	return parentPath + "/" + title
}

// IDs returns the identities of entities in order.
func IDs[E Entity](entities []E) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.EntityID())
	}
	return out
}

// Course is a root of the ownership graph. It holds only the ids of its root
// content folders, never the full tree.
type Course struct {
	ID          string
	Title       string
	RootFolders []string
	Metadata    Metadata
}

// NewCourse creates a course with no root folders.
func NewCourse(id, title string) *Course {
	return &Course{ID: id, Title: strings.TrimSpace(title), Metadata: Metadata{}}
}

func (c *Course) EntityKind() Kind    { return KindCourse }
func (c *Course) EntityID() string    { return c.ID }
func (c *Course) EntityTitle() string { return c.Title }
func (c *Course) OwnerID() string     { return "" }
func (c *Course) String() string      { return c.Title }

// AddRootFolder records a root folder id. Duplicates are ignored; the return
// value reports whether the list changed.
func (c *Course) AddRootFolder(id string) bool {
	for _, existing := range c.RootFolders {
		if existing == id {
			return false
		}
	}
	c.RootFolders = append(c.RootFolders, id)
	return true
}

func (c *Course) Snapshot() Snapshot {
	s := newSnapshot(KindCourse, c.ID, c.Title, "", "", c.Metadata)
	for _, id := range c.RootFolders {
		s.Children = append(s.Children, Ref{Kind: KindContentFolder, ID: id})
	}
	return s
}

// Content is a leaf of a course's content tree: a document, a file, a video,
// a discussion link. Kind is KindContent or KindFile.
type Content struct {
	Kind     Kind
	ID       string
	Title    string
	CourseID string
	Path     string
	Metadata Metadata
}

// NewContent creates a leaf content node. kind must be KindContent or KindFile.
func NewContent(kind Kind, courseID, id, title, path, detail string) *Content {
	return &Content{
		Kind:     kind,
		ID:       id,
		Title:    title,
		CourseID: courseID,
		Path:     path,
		Metadata: Metadata{MetaDetail: detail},
	}
}

func (c *Content) EntityKind() Kind    { return c.Kind }
func (c *Content) EntityID() string    { return c.ID }
func (c *Content) EntityTitle() string { return c.Title }
func (c *Content) OwnerID() string     { return c.CourseID }
func (c *Content) Detail() string      { return c.Metadata.Get(MetaDetail) }

func (c *Content) Snapshot() Snapshot {
	return newSnapshot(c.Kind, c.ID, c.Title, c.CourseID, c.Path, c.Metadata)
}

// Folder is an interior node of the content tree. Children are references
// into the same run's node set; a folder with children has been expanded.
type Folder struct {
	ID       string
	Title    string
	CourseID string
	Path     string
	Children []Ref
	Metadata Metadata
}

// NewFolder creates an unexpanded folder.
func NewFolder(courseID, id, title, path string) *Folder {
	return &Folder{ID: id, Title: title, CourseID: courseID, Path: path, Metadata: Metadata{}}
}

func (f *Folder) EntityKind() Kind    { return KindContentFolder }
func (f *Folder) EntityID() string    { return f.ID }
func (f *Folder) EntityTitle() string { return f.Title }
func (f *Folder) OwnerID() string     { return f.CourseID }

// Expanded reports whether the folder's listing has been read.
func (f *Folder) Expanded() bool { return len(f.Children) > 0 }

// AddChild appends r unless a child with the same ref is already present.
func (f *Folder) AddChild(r Ref) bool {
	for _, c := range f.Children {
		if c == r {
			return false
		}
	}
	f.Children = append(f.Children, r)
	return true
}

func (f *Folder) Snapshot() Snapshot {
	s := newSnapshot(KindContentFolder, f.ID, f.Title, f.CourseID, f.Path, f.Metadata)
	s.Children = append([]Ref(nil), f.Children...)
	return s
}
