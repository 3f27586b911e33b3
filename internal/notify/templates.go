package notify

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/mesh-intelligence/coursewatch/internal/portal"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Template names. They are also the template column of the delivery log.
const (
	TmplNewAssignments        = "new_assignments"
	TmplNewAnnouncements      = "new_announcements"
	TmplUnfinishedAssignments = "unfinished_assignments"
	TmplNewContent            = "new_content"
	TmplDailySummary          = "daily_summary"
	TmplError                 = "error"
	TmplWarning               = "warning"
)

var subjects = map[string]string{
	TmplNewAssignments:        "Blackboard: New assignment available",
	TmplNewAnnouncements:      "Blackboard: New announcement available",
	TmplUnfinishedAssignments: "Blackboard: Unfinished assignment due soon",
	TmplNewContent:            "Blackboard: New content available",
	TmplDailySummary:          "Blackboard: Daily summary",
	TmplError:                 "Runtime Error",
	TmplWarning:               "Warning",
}

const bodies = `
{{define "assignment"}}Course: {{.Course}}

Assignment: {{.Title}}

DUE DATE: {{.Due}}

Description: {{.Detail}}

You can view the assignment at: {{.Link}}
{{end}}

{{define "new_assignments"}}New assignment available.

{{template "assignment" .}}{{end}}

{{define "unfinished_assignments"}}You have an unfinished assignment due soon.

{{template "assignment" .}}{{end}}

{{define "new_announcements"}}New announcement available.

Course: {{.Course}}

Title: {{.Title}}

Description: {{.Detail}}

You can view the announcements at: {{.Link}}
{{end}}

{{define "new_content"}}New content available.

Course: {{.Course}}

Title: {{.Title}}

Description: {{.Detail}}

You can view the content at: {{.Link}}
{{end}}

{{define "bucket"}}{{range .}}{{.Course}}
    {{.Title}} - {{.Due}}
{{end}}{{end}}

{{define "daily_summary"}}Daily summary for {{.Day}}.

Due within 24 hours:

{{if .Today}}{{template "bucket" .Today}}{{else}}No unfinished assignments today.
{{end}}
Due within 3 days:

{{if .Soon}}{{template "bucket" .Soon}}{{else}}No unfinished assignments in 3 days.
{{end}}
All unfinished:

{{if .All}}{{template "bucket" .All}}{{else}}No unfinished assignments.
{{end}}
Don't forget to submit your work!
{{end}}

{{define "error"}}{{.}}
{{end}}

{{define "warning"}}{{range .}}{{.}}
{{end}}{{end}}
`

var templates = template.Must(template.New("notify").Parse(bodies))

// itemView is the data of the per-entity templates.
type itemView struct {
	Course string
	Title  string
	Due    string
	Detail string
	Link   string
}

type summaryView struct {
	Day   string
	Today []itemView
	Soon  []itemView
	All   []itemView
}

// renderer turns entities into message subjects and bodies.
type renderer struct {
	baseURL string
	courses map[string]string
	now     time.Time
}

func (r renderer) render(name string, data any) (subject, body string, err error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return subjects[name], sb.String(), nil
}

func (r renderer) course(id string) string {
	if title, ok := r.courses[id]; ok {
		return title
	}
	return id
}

func (r renderer) link(path string, params url.Values) string {
	return strings.TrimRight(r.baseURL, "/") + path + "?" + params.Encode()
}

func (r renderer) contentLink(courseID, contentID string) string {
	return r.link(portal.PathListContent, url.Values{
		"course_id":  {courseID},
		"content_id": {contentID},
		"mode":       {"reset"},
	})
}

func (r renderer) assignment(a *types.Assignment) itemView {
	return itemView{
		Course: r.course(a.CourseID),
		Title:  a.Title,
		Due:    dueText(a.Due(), r.now),
		Detail: a.Detail(),
		Link:   r.contentLink(a.CourseID, a.ID),
	}
}

func (r renderer) announcement(a *types.Announcement) itemView {
	return itemView{
		Course: r.course(a.CourseID),
		Title:  a.Title,
		Detail: a.Detail(),
		Link: r.link(portal.PathAnnouncements, url.Values{
			"method":     {"search"},
			"context":    {"mybb"},
			"course_id":  {a.CourseID},
			"viewChoice": {"2"},
		}),
	}
}

func (r renderer) content(c *types.Content) itemView {
	return itemView{
		Course: r.course(c.CourseID),
		Title:  c.Title,
		Detail: c.Detail(),
		Link:   r.contentLink(c.CourseID, c.ID),
	}
}

// dueText formats a due time with the time left: hours when under a day,
// days otherwise.
func dueText(due, now time.Time) string {
	stamp := due.In(now.Location()).Format("01/02 15:04 Mon")
	left := due.Sub(now)
	switch {
	case left < 0:
		return stamp + "  overdue"
	case left < 24*time.Hour:
		return fmt.Sprintf("%s  in %d hours", stamp, int(left.Hours()))
	default:
		return fmt.Sprintf("%s  in %d days", stamp, int(left.Hours()/24))
	}
}
