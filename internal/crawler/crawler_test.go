package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/coursewatch/internal/parser"
	"github.com/mesh-intelligence/coursewatch/internal/portal"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// fakeSite answers every request with a page whose body is its own route
// name, so the stub parser can look records up by page.
type fakeSite struct {
	calls map[string]int
	fail  map[string]error
}

func newFakeSite() *fakeSite {
	return &fakeSite{calls: map[string]int{}, fail: map[string]error{}}
}

func route(path string, params url.Values) string {
	switch path {
	case portal.PathCourseTab:
		return "tab"
	case portal.PathModulePage:
		return "module:" + params.Get("course_id")
	case portal.PathListContent:
		return "list:" + params.Get("content_id")
	case portal.PathUploadAssign:
		if params.Get("action") == "newAttempt" {
			return "attempt:" + params.Get("content_id")
		}
		return "submit:" + params.Get("content_id")
	case portal.PathAnnouncements:
		return "ann:" + params.Get("course_id")
	case portal.PathCalendarEvents:
		return "calendar"
	}
	return "unknown"
}

func (s *fakeSite) Get(_ context.Context, path string, params url.Values) ([]byte, error) {
	name := route(path, params)
	s.calls[name]++
	if err := s.fail[name]; err != nil {
		return nil, err
	}
	return []byte(name), nil
}

func (s *fakeSite) Post(ctx context.Context, path string, params, _ url.Values) ([]byte, error) {
	return s.Get(ctx, path, params)
}

type stubParser struct {
	courses       []parser.CourseEntry
	roots         map[string][]parser.RootEntry
	rows          map[string][]parser.ContentRow
	submitted     map[string]bool
	details       map[string]parser.AssignmentDetail
	announcements map[string][]parser.AnnouncementRow
	calendar      []parser.CalendarRow
}

func (p *stubParser) Courses([]byte) ([]parser.CourseEntry, error) { return p.courses, nil }
func (p *stubParser) RootEntries(page []byte) ([]parser.RootEntry, error) {
	return p.roots[string(page)], nil
}
func (p *stubParser) ContentRows(page []byte) ([]parser.ContentRow, error) {
	return p.rows[string(page)], nil
}
func (p *stubParser) Submitted(page []byte) bool { return p.submitted[string(page)] }
func (p *stubParser) AssignmentDetail(page []byte) (parser.AssignmentDetail, error) {
	return p.details[string(page)], nil
}
func (p *stubParser) Announcements(page []byte) ([]parser.AnnouncementRow, error) {
	return p.announcements[string(page)], nil
}
func (p *stubParser) CalendarRows([]byte) ([]parser.CalendarRow, error) { return p.calendar, nil }

type memStore struct {
	snaps   map[types.Ref]types.Snapshot
	upserts int
}

func newMemStore() *memStore { return &memStore{snaps: map[types.Ref]types.Snapshot{}} }

func (m *memStore) Upsert(e types.Entity) error {
	m.upserts++
	m.snaps[types.RefOf(e)] = e.Snapshot()
	return nil
}

var (
	shanghai, _ = time.LoadLocation("Asia/Shanghai")
	fixedNow    = time.Date(2024, 3, 8, 10, 0, 0, 0, shanghai)
)

// algebraSite is one course with a two-level tree:
//
//	Algebra/Lectures/{Syllabus, Recording, Week 1/{Slides, HW1}}
func algebraSite() *stubParser {
	return &stubParser{
		courses: []parser.CourseEntry{{ID: "c1", Title: "Algebra"}},
		roots: map[string][]parser.RootEntry{
			"module:c1": {{ContentID: "F1", Title: "Lectures"}},
		},
		rows: map[string][]parser.ContentRow{
			"list:F1": {
				{ID: "d1", Tag: "document", PlainTitle: "Syllabus", Detail: "Read me"},
				{ID: "p1", Tag: "panopto", SpanTitle: "Recording"},
				{ID: "F2", Tag: "folder", LinkTitle: "Week 1"},
			},
			"list:F2": {
				{ID: "f1", Tag: "file", LinkTitle: "Slides"},
				{ID: "a1", Tag: "assignment", LinkTitle: "HW1"},
				{ID: "f1", Tag: "file", LinkTitle: "Slides"},
			},
		},
		details: map[string]parser.AssignmentDetail{
			"attempt:a1": {DueDate: "Sunday, March 10, 2024", DueTime: "11:59PM", Instructions: "Solve 1-5"},
		},
		announcements: map[string][]parser.AnnouncementRow{
			"ann:c1": {{ID: "_n1_1", Title: "Welcome", Detail: "Hello"}},
		},
	}
}

func newTestCrawler(site *fakeSite, p PageParser, store Writer) *Crawler {
	return New(site, p, store, Options{
		Location: shanghai,
		Now:      func() time.Time { return fixedNow },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCrawl(t *testing.T) {
	site, store := newFakeSite(), newMemStore()
	c := newTestCrawler(site, algebraSite(), store)

	res, err := c.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"c1"}, types.IDs(res.Courses))
	assert.Equal(t, []string{"F1", "F2"}, types.IDs(res.Folders))
	assert.Equal(t, []string{"d1", "p1", "f1"}, types.IDs(res.Contents))
	assert.Equal(t, []string{"a1"}, types.IDs(res.Assignments))
	assert.Equal(t, []string{"_n1_1"}, types.IDs(res.Announcements))
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.CalendarEntries)

	f2 := res.Folders[1]
	assert.Equal(t, []types.Ref{
		{Kind: types.KindFile, ID: "f1"},
		{Kind: types.KindAssignment, ID: "a1"},
	}, f2.Children, "duplicate rows are attached once")

	assert.Equal(t, []string{"F1"}, res.Courses[0].RootFolders)
	assert.Equal(t, 1, site.calls["list:F1"])
	assert.Equal(t, 1, site.calls["list:F2"])
	assert.Equal(t, 0, site.calls["calendar"])
}

func TestCrawlPaths(t *testing.T) {
	site, store := newFakeSite(), newMemStore()
	c := newTestCrawler(site, algebraSite(), store)
	_, err := c.Crawl(context.Background())
	require.NoError(t, err)

	tests := []struct {
		ref  types.Ref
		want string
	}{
		{types.Ref{Kind: types.KindContentFolder, ID: "F1"}, "Algebra/Lectures"},
		{types.Ref{Kind: types.KindContent, ID: "d1"}, "Algebra/Lectures/Syllabus"},
		{types.Ref{Kind: types.KindContentFolder, ID: "F2"}, "Algebra/Lectures/Week 1"},
		{types.Ref{Kind: types.KindFile, ID: "f1"}, "Algebra/Lectures/Week 1/Slides"},
		{types.Ref{Kind: types.KindAssignment, ID: "a1"}, "Algebra/Lectures/Week 1/HW1"},
	}
	for _, tt := range tests {
		t.Run(tt.ref.String(), func(t *testing.T) {
			snap, ok := store.snaps[tt.ref]
			require.True(t, ok, "node persisted")
			assert.Equal(t, tt.want, snap.Path)
			assert.Equal(t, "c1", snap.CourseID)
		})
	}

	course := store.snaps[types.Ref{Kind: types.KindCourse, ID: "c1"}]
	assert.Equal(t, []types.Ref{{Kind: types.KindContentFolder, ID: "F1"}}, course.Children)
}

func TestCrawlDetails(t *testing.T) {
	site, store := newFakeSite(), newMemStore()
	c := newTestCrawler(site, algebraSite(), store)
	res, err := c.Crawl(context.Background())
	require.NoError(t, err)

	byID := map[string]*types.Content{}
	for _, content := range res.Contents {
		byID[content.ID] = content
	}
	assert.Equal(t, "Read me", byID["d1"].Detail())
	assert.Equal(t, "Panopto Video", byID["p1"].Detail())
	assert.Equal(t, types.KindFile, byID["f1"].Kind)

	a := res.Assignments[0]
	assert.True(t, time.Date(2024, 3, 10, 23, 59, 0, 0, shanghai).Equal(a.Due()))
	assert.False(t, a.Finished())
	assert.Equal(t, "Solve 1-5", a.Detail())
}

func TestAssignmentResolution(t *testing.T) {
	tests := []struct {
		name         string
		detail       parser.AssignmentDetail
		submitted    bool
		wantDue      time.Time
		wantFinished bool
		wantWarning  bool
	}{
		{
			name:    "open",
			detail:  parser.AssignmentDetail{DueDate: "Sunday, March 10, 2024", DueTime: "11:59 PM"},
			wantDue: time.Date(2024, 3, 10, 23, 59, 0, 0, shanghai),
		},
		{
			name:         "submitted",
			detail:       parser.AssignmentDetail{DueDate: "Sunday, March 10, 2024", DueTime: "11:59PM"},
			submitted:    true,
			wantDue:      time.Date(2024, 3, 10, 23, 59, 0, 0, shanghai),
			wantFinished: true,
		},
		{
			name:         "past due",
			detail:       parser.AssignmentDetail{DueDate: "Monday, March 4, 2024", DueTime: "9:00AM"},
			wantDue:      time.Date(2024, 3, 4, 9, 0, 0, 0, shanghai),
			wantFinished: true,
		},
		{
			name:        "unparseable due",
			detail:      parser.AssignmentDetail{DueDate: "No due date"},
			wantDue:     fixedNow.Add(24 * time.Hour),
			wantWarning: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := algebraSite()
			p.details["attempt:a1"] = tt.detail
			p.submitted = map[string]bool{"submit:a1": tt.submitted}
			c := newTestCrawler(newFakeSite(), p, newMemStore())

			res, err := c.Crawl(context.Background())
			require.NoError(t, err, "due date problems never abort the crawl")
			require.Len(t, res.Assignments, 1)
			a := res.Assignments[0]
			assert.True(t, tt.wantDue.Equal(a.Due()), "due %s", a.Due())
			assert.Equal(t, tt.wantFinished, a.Finished())

			if tt.wantWarning {
				require.Len(t, res.Warnings, 1)
				assert.Equal(t, types.Warning{Course: "Algebra", Title: "HW1", Message: MsgDueNotFound}, res.Warnings[0])
			} else {
				assert.Empty(t, res.Warnings)
			}
		})
	}
}

func TestExpandFallback(t *testing.T) {
	tests := []struct {
		name       string
		row        parser.ContentRow
		wantTitle  string
		wantDetail string
		wantErr    string
	}{
		{"unknown tag with link title", parser.ContentRow{ID: "x1", Tag: "blti", LinkTitle: "Quiz Tool"}, "Quiz Tool", "blti", ""},
		{"unknown tag with plain title", parser.ContentRow{ID: "x1", Tag: "link", PlainTitle: "Library"}, "Library", "link", ""},
		{"unknown tag without title", parser.ContentRow{ID: "x1", Tag: "wiki"}, "", "", "unknown content type"},
		{"known tag missing title", parser.ContentRow{ID: "x1", Tag: "file", PlainTitle: "wrong layout"}, "", "", "missing title"},
		{"row without tag", parser.ContentRow{ID: "x1", LinkTitle: "Lost"}, "", "", "without id or type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := algebraSite()
			p.rows["list:F1"] = []parser.ContentRow{tt.row}
			store := newMemStore()
			c := newTestCrawler(newFakeSite(), p, store)

			_, err := c.Crawl(context.Background())
			if tt.wantErr != "" {
				var perr *types.ParseError
				require.True(t, errors.As(err, &perr), "got %v", err)
				assert.ErrorIs(t, err, types.ErrParse)
				assert.Equal(t, "Algebra", perr.Course)
				assert.Equal(t, "Algebra/Lectures", perr.Path)
				assert.Contains(t, perr.Reason, tt.wantErr)
				return
			}
			require.NoError(t, err)
			snap := store.snaps[types.Ref{Kind: types.KindContent, ID: "x1"}]
			assert.Equal(t, tt.wantTitle, snap.Title)
			assert.Equal(t, tt.wantDetail, snap.Metadata[types.MetaDetail])
		})
	}
}

func TestUnknownTagErrorMessage(t *testing.T) {
	p := algebraSite()
	p.rows["list:F2"] = []parser.ContentRow{{ID: "x9", Tag: "scorm"}}
	c := newTestCrawler(newFakeSite(), p, newMemStore())

	_, err := c.Crawl(context.Background())
	require.Error(t, err)
	assert.Equal(t, "ParseError: unknown content type under course=Algebra,path=Algebra/Lectures/Week 1,tag=scorm", err.Error())
}

func TestExpandOncePerRun(t *testing.T) {
	site := newFakeSite()
	c := newTestCrawler(site, algebraSite(), newMemStore())
	ctx := context.Background()

	courses, err := c.Courses(ctx)
	require.NoError(t, err)
	roots, err := c.RootFolders(ctx, courses[0])
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		leaves, err := c.CollectLeaves(ctx, roots[0])
		require.NoError(t, err)
		assert.Len(t, leaves, 4)
	}
	again, err := c.RootFolders(ctx, courses[0])
	require.NoError(t, err)
	assert.Same(t, roots[0], again[0])

	assert.Equal(t, 1, site.calls["tab"])
	assert.Equal(t, 1, site.calls["module:c1"])
	assert.Equal(t, 1, site.calls["list:F1"])
	assert.Equal(t, 1, site.calls["list:F2"])
	assert.Equal(t, 2, c.cache.expansions)

	c.Reset()
	_, err = c.Crawl(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, site.calls["tab"], "Reset invalidates the course cache")
	assert.Equal(t, 2, site.calls["list:F1"])
}

func TestCrawlFetchErrorAborts(t *testing.T) {
	site := newFakeSite()
	boom := errors.New("connection reset")
	site.fail["list:F2"] = boom
	c := newTestCrawler(site, algebraSite(), newMemStore())

	_, err := c.Crawl(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, site.calls["ann:c1"])
}

func TestCalendarEntries(t *testing.T) {
	p := algebraSite()
	p.calendar = []parser.CalendarRow{
		{ID: "_e1_1", Title: "Quiz 1", CalendarName: "MAT", CalendarNameLocalizable: "Algebra",
			Start: "2024-03-10T09:00:00", End: "2024-03-10T10:00:00", EventType: "Course"},
		{ID: "", Title: "no id"},
		{ID: "_e2_1", Title: "Holiday", CalendarName: "Personal", Start: "soon", EventType: "Personal"},
	}
	site, store := newFakeSite(), newMemStore()
	c := New(site, p, store, Options{
		Location: shanghai,
		Now:      func() time.Time { return fixedNow },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Calendar: true,
	})

	res, err := c.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, res.CalendarEntries, 2)

	quiz := res.CalendarEntries[0]
	assert.Equal(t, "c1", quiz.CourseID)
	assert.Equal(t, "MAT", quiz.Title)
	assert.Equal(t, "Quiz 1", quiz.Metadata[types.MetaSubTitle])
	assert.True(t, time.Date(2024, 3, 10, 9, 0, 0, 0, shanghai).Equal(quiz.Start()))

	holiday := res.CalendarEntries[1]
	assert.Equal(t, "", holiday.CourseID)
	assert.Equal(t, "soon", holiday.Metadata[types.MetaStart])
	assert.Contains(t, store.snaps, types.Ref{Kind: types.KindCalendarEntry, ID: "_e2_1"})
	assert.Equal(t, 1, site.calls["calendar"])
}
