// Package parser extracts records from portal pages. It only reads
// structure; building entities and deciding what a row means is the
// crawler's job. Pages without the expected structure yield empty results.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// CourseEntry is one course link on the course tab.
type CourseEntry struct {
	ID    string
	Title string
}

// RootEntry is a top-level content area on a course's module page.
type RootEntry struct {
	ContentID string
	Title     string
}

// ContentRow is one item of a content listing. The three title fields hold
// the candidates for the row layouts the portal uses; any may be empty.
type ContentRow struct {
	ID  string
	Tag string
	// LinkTitle is the text of h3 > a > span.
	LinkTitle string
	// PlainTitle is the text of the second span directly under h3.
	PlainTitle string
	// SpanTitle is the first non-empty span directly under h3.
	SpanTitle string
	Detail    string
}

// AssignmentDetail holds the raw fields of an assignment's attempt page.
type AssignmentDetail struct {
	DueDate      string
	DueTime      string
	Instructions string
}

// AnnouncementRow is one entry of the announcement list.
type AnnouncementRow struct {
	ID     string
	Title  string
	Detail string
}

// CalendarRow is one event of the calendar JSON feed.
type CalendarRow struct {
	ID                      string `json:"id"`
	Title                   string `json:"title"`
	CalendarName            string `json:"calendarName"`
	CalendarNameLocalizable string `json:"calendarNameLocalizable"`
	Start                   string `json:"start"`
	End                     string `json:"end"`
	EventType               string `json:"eventType"`
}

// HTML parses portal pages with goquery.
type HTML struct{}

// New returns the portal page parser.
func New() HTML { return HTML{} }

func load(page []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: reading html: %v", types.ErrParse, err)
	}
	return doc, nil
}

// Courses returns the course launcher links of the course tab.
func (HTML) Courses(page []byte) ([]CourseEntry, error) {
	doc, err := load(page)
	if err != nil {
		return nil, err
	}
	var out []CourseEntry
	seen := map[string]bool{}
	doc.Find(`a[href*="type=Course"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		id := queryParam(href, "id")
		title := strings.TrimSpace(a.Text())
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, CourseEntry{ID: id, Title: title})
	})
	return out, nil
}

// RootEntries returns the list items whose link references a content id.
func (HTML) RootEntries(page []byte) ([]RootEntry, error) {
	doc, err := load(page)
	if err != nil {
		return nil, err
	}
	var out []RootEntry
	seen := map[string]bool{}
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		a := li.ChildrenFiltered("a").First()
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, "content_id") {
			return
		}
		id := queryParam(href, "content_id")
		title := ownText(a.ChildrenFiltered("span").First())
		if id == "" || title == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, RootEntry{ContentID: id, Title: title})
	})
	return out, nil
}

// ContentRows returns the items of #content_listContainer in page order.
func (HTML) ContentRows(page []byte) ([]ContentRow, error) {
	doc, err := load(page)
	if err != nil {
		return nil, err
	}
	var out []ContentRow
	doc.Find("#content_listContainer").First().ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		row := ContentRow{}
		if id, ok := li.Attr("id"); ok {
			if _, after, found := strings.Cut(id, ":"); found {
				row.ID = after
			}
		}
		if src, ok := li.ChildrenFiltered("img").First().Attr("src"); ok {
			row.Tag, _, _ = strings.Cut(path.Base(src), "_")
		}

		h3 := li.ChildrenFiltered("div").First().ChildrenFiltered("h3").First()
		row.LinkTitle = ownText(h3.ChildrenFiltered("a").First().ChildrenFiltered("span").First())
		spans := h3.ChildrenFiltered("span")
		row.PlainTitle = ownText(spans.Eq(1))
		spans.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			row.SpanTitle = ownText(s)
			return row.SpanTitle == ""
		})

		row.Detail = strings.TrimSpace(li.ChildrenFiltered("div").Eq(1).
			ChildrenFiltered("div").Eq(1).
			ChildrenFiltered("div").First().
			ChildrenFiltered("span").First().Text())
		out = append(out, row)
	})
	return out, nil
}

// Submitted reports whether the submission page offers a review of a
// submitted attempt.
func (HTML) Submitted(page []byte) bool {
	return bytes.Contains(page, []byte("Review Submission"))
}

// AssignmentDetail reads the due date, due time and instructions of an
// attempt page. Missing fields are returned empty.
func (HTML) AssignmentDetail(page []byte) (AssignmentDetail, error) {
	doc, err := load(page)
	if err != nil {
		return AssignmentDetail{}, err
	}
	due := doc.Find("#metadata").First().
		ChildrenFiltered("div").First().
		ChildrenFiltered("div").First().
		ChildrenFiltered("div").First().
		ChildrenFiltered("div").Eq(1)
	return AssignmentDetail{
		DueDate:      ownText(due),
		DueTime:      ownText(due.ChildrenFiltered("span").First()),
		Instructions: strings.Join(textLines(doc.Find("#instructions").First()), "\n"),
	}, nil
}

// Announcements returns the entries of #announcementList. The detail is the
// entry's text without its first line, which repeats the title.
func (HTML) Announcements(page []byte) ([]AnnouncementRow, error) {
	doc, err := load(page)
	if err != nil {
		return nil, err
	}
	var out []AnnouncementRow
	doc.Find("#announcementList").First().Find(`li[id^="_"]`).Each(func(_ int, li *goquery.Selection) {
		id, _ := li.Attr("id")
		lines := textLines(li)
		detail := ""
		if len(lines) > 1 {
			detail = strings.Join(lines[1:], "\n")
		}
		out = append(out, AnnouncementRow{
			ID:     id,
			Title:  ownText(li.ChildrenFiltered("h3").First()),
			Detail: detail,
		})
	})
	return out, nil
}

// CalendarRows decodes the calendar feed, a JSON array of events.
func (HTML) CalendarRows(page []byte) ([]CalendarRow, error) {
	var rows []CalendarRow
	if err := json.Unmarshal(page, &rows); err != nil {
		return nil, fmt.Errorf("%w: calendar feed: %v", types.ErrParse, err)
	}
	return rows, nil
}

// ownText returns the first non-empty text node directly under s, trimmed.
func ownText(s *goquery.Selection) string {
	text := ""
	s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if goquery.NodeName(c) == "#text" {
			text = strings.TrimSpace(c.Text())
		}
		return text == ""
	})
	return text
}

// textLines returns the non-empty trimmed lines of the text under s.
func textLines(s *goquery.Selection) []string {
	var out []string
	for _, line := range strings.Split(s.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func queryParam(href, key string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}
