package types

import "fmt"

// Kind is the closed category of an entity. Identity is unique within a Kind.
type Kind string

// Entity kinds. The string values are the store's kind column.
const (
	KindCourse        Kind = "Course"
	KindContent       Kind = "Content"
	KindContentFolder Kind = "ContentFolder"
	KindFile          Kind = "File"
	KindAssignment    Kind = "Assignment"
	KindAnnouncement  Kind = "Announcement"
	KindCalendarEntry Kind = "CalendarEntry"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	KindCourse,
	KindContentFolder,
	KindContent,
	KindFile,
	KindAssignment,
	KindAnnouncement,
	KindCalendarEntry,
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsContent reports whether k shares the content identity space
// (Content, File, Assignment, ContentFolder).
func (k Kind) IsContent() bool {
	switch k {
	case KindContent, KindFile, KindAssignment, KindContentFolder:
		return true
	}
	return false
}

// ParseKind converts a user-supplied string to a Kind. Matching is exact on
// the canonical name; lower-case aliases such as "folder" and "calendar" are
// accepted for the CLI.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if k.Valid() {
		return k, nil
	}
	if alias, ok := kindAliases[s]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

var kindAliases = map[string]Kind{
	"course":        KindCourse,
	"courses":       KindCourse,
	"content":       KindContent,
	"contents":      KindContent,
	"folder":        KindContentFolder,
	"folders":       KindContentFolder,
	"file":          KindFile,
	"files":         KindFile,
	"assignment":    KindAssignment,
	"assignments":   KindAssignment,
	"announcement":  KindAnnouncement,
	"announcements": KindAnnouncement,
	"calendar":      KindCalendarEntry,
}

// Ref is a non-owning reference to an entity: its kind and identity.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID
}
