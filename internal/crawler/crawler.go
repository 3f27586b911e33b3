// Package crawler discovers the content tree of every course on the portal
// and persists each node as soon as it is found.
//
// A crawl walks courses, their root content areas and, lazily, every nested
// folder. A run cache remembers what has been built so that a folder is
// listed at most once per cycle; Reset clears it before the next cycle.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mesh-intelligence/coursewatch/internal/parser"
	"github.com/mesh-intelligence/coursewatch/internal/portal"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Fetcher retrieves raw portal pages.
type Fetcher interface {
	Get(ctx context.Context, path string, params url.Values) ([]byte, error)
	Post(ctx context.Context, path string, params, form url.Values) ([]byte, error)
}

// PageParser turns pages into records. Pages without the expected
// structure yield empty results, not errors.
type PageParser interface {
	Courses(page []byte) ([]parser.CourseEntry, error)
	RootEntries(page []byte) ([]parser.RootEntry, error)
	ContentRows(page []byte) ([]parser.ContentRow, error)
	Submitted(page []byte) bool
	AssignmentDetail(page []byte) (parser.AssignmentDetail, error)
	Announcements(page []byte) ([]parser.AnnouncementRow, error)
	CalendarRows(page []byte) ([]parser.CalendarRow, error)
}

// Writer persists entities as they are discovered.
type Writer interface {
	Upsert(e types.Entity) error
}

// Options tune a Crawler. Zero values select the defaults.
type Options struct {
	// Location is the zone assignment due times are read in.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
	// Calendar enables the calendar feed; CalendarWindow is the span
	// fetched on each side of now.
	Calendar       bool
	CalendarWindow time.Duration
}

const defaultCalendarWindow = 2 * 365 * 24 * time.Hour

// Result is everything one crawl found. Contents holds Content and File
// leaves; assignments and folders are listed separately.
type Result struct {
	Courses         []*types.Course
	Folders         []*types.Folder
	Contents        []*types.Content
	Assignments     []*types.Assignment
	Announcements   []*types.Announcement
	CalendarEntries []*types.CalendarEntry
	Warnings        []types.Warning
}

// Crawler walks the portal. It is not safe for concurrent use.
type Crawler struct {
	fetch Fetcher
	parse PageParser
	store Writer
	opts  Options
	log   *slog.Logger

	cache    *runCache
	warnings []types.Warning
}

// New creates a crawler with an empty run cache.
func New(fetch Fetcher, parse PageParser, store Writer, opts Options) *Crawler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CalendarWindow <= 0 {
		opts.CalendarWindow = defaultCalendarWindow
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Crawler{
		fetch: fetch,
		parse: parse,
		store: store,
		opts:  opts,
		log:   log.With("component", "crawler"),
		cache: newRunCache(),
	}
}

// Reset drops the run cache and queued warnings.
func (c *Crawler) Reset() {
	c.cache = newRunCache()
	c.warnings = nil
}

// Warnings returns the warnings queued since the last Reset.
func (c *Crawler) Warnings() []types.Warning {
	return append([]types.Warning(nil), c.warnings...)
}

func (c *Crawler) now() time.Time { return c.opts.Now().In(c.opts.Location) }

func (c *Crawler) warn(w types.Warning) {
	c.log.Warn("crawl warning", "course", w.Course, "title", w.Title, "message", w.Message)
	c.warnings = append(c.warnings, w)
}

func (c *Crawler) persist(e types.Entity) error {
	if err := c.store.Upsert(e); err != nil {
		return fmt.Errorf("persisting %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return nil
}

// courseTitle names a course for errors and warnings.
func (c *Crawler) courseTitle(id string) string {
	if course, ok := c.cache.courseByID[id]; ok {
		return course.Title
	}
	return id
}

// Courses returns the enrolled courses, fetching the course tab once per run.
func (c *Crawler) Courses(ctx context.Context) ([]*types.Course, error) {
	if c.cache.coursesLoaded {
		return c.cache.courses, nil
	}
	page, err := c.fetch.Get(ctx, portal.PathCourseTab, url.Values{"tab_tab_group_id": {"_1_1"}})
	if err != nil {
		return nil, fmt.Errorf("fetching course list: %w", err)
	}
	entries, err := c.parse.Courses(page)
	if err != nil {
		return nil, fmt.Errorf("parsing course list: %w", err)
	}
	for _, entry := range entries {
		course := types.NewCourse(entry.ID, entry.Title)
		if err := c.persist(course); err != nil {
			return nil, err
		}
		c.cache.addCourse(course)
	}
	c.cache.coursesLoaded = true
	c.log.Debug("courses loaded", "count", len(c.cache.courses))
	return c.cache.courses, nil
}

// RootFolders returns the top-level content folders of course. A course that
// already has root folders in this run is not fetched again.
func (c *Crawler) RootFolders(ctx context.Context, course *types.Course) ([]*types.Folder, error) {
	if len(course.RootFolders) > 0 {
		if folders, ok := c.cache.foldersFor(course.RootFolders); ok {
			return folders, nil
		}
	}
	page, err := c.fetch.Get(ctx, portal.PathModulePage, url.Values{"course_id": {course.ID}})
	if err != nil {
		return nil, fmt.Errorf("fetching module page of %s: %w", course.Title, err)
	}
	entries, err := c.parse.RootEntries(page)
	if err != nil {
		return nil, fmt.Errorf("parsing module page of %s: %w", course.Title, err)
	}

	var roots []*types.Folder
	for _, entry := range entries {
		folder := c.cache.folder(entry.ContentID)
		if folder == nil {
			folder = types.NewFolder(course.ID, entry.ContentID, entry.Title, types.ChildPath(course.Title, entry.Title))
			if err := c.persist(folder); err != nil {
				return nil, err
			}
			c.cache.add(folder)
		}
		course.AddRootFolder(folder.ID)
		roots = append(roots, folder)
	}
	if err := c.persist(course); err != nil {
		return nil, err
	}
	return roots, nil
}

// Expand lists folder and attaches its children. A folder that already has
// children is left alone. Any row the crawler cannot interpret aborts the
// expansion with a *types.ParseError.
func (c *Crawler) Expand(ctx context.Context, folder *types.Folder) error {
	if folder.Expanded() {
		return nil
	}
	c.cache.add(folder)

	page, err := c.fetch.Get(ctx, portal.PathListContent, url.Values{
		"course_id":  {folder.CourseID},
		"content_id": {folder.ID},
		"mode":       {"reset"},
	})
	if err != nil {
		return fmt.Errorf("listing %s: %w", folder.Path, err)
	}
	rows, err := c.parse.ContentRows(page)
	if err != nil {
		return fmt.Errorf("parsing listing of %s: %w", folder.Path, err)
	}

	for _, row := range rows {
		child, err := c.buildRow(ctx, folder, row)
		if err != nil {
			return err
		}
		if known := c.cache.node(types.RefOf(child)); known != nil {
			child = known
		} else {
			if err := c.persist(child); err != nil {
				return err
			}
			c.cache.add(child)
		}
		folder.AddChild(types.RefOf(child))
	}
	c.cache.expansions++
	return c.persist(folder)
}

// CollectLeaves returns every non-folder node under folder, depth first,
// expanding folders as it goes.
func (c *Crawler) CollectLeaves(ctx context.Context, folder *types.Folder) ([]types.Entity, error) {
	if err := c.Expand(ctx, folder); err != nil {
		return nil, err
	}
	var leaves []types.Entity
	for _, ref := range folder.Children {
		node := c.cache.node(ref)
		if node == nil {
			continue
		}
		sub, ok := node.(*types.Folder)
		if !ok {
			leaves = append(leaves, node)
			continue
		}
		more, err := c.CollectLeaves(ctx, sub)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, more...)
	}
	return leaves, nil
}

// Announcements fetches and persists the announcements of course.
func (c *Crawler) Announcements(ctx context.Context, course *types.Course) ([]*types.Announcement, error) {
	page, err := c.fetch.Get(ctx, portal.PathAnnouncements, url.Values{
		"method":     {"search"},
		"context":    {"mybb"},
		"course_id":  {course.ID},
		"viewChoice": {"2"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching announcements of %s: %w", course.Title, err)
	}
	rows, err := c.parse.Announcements(page)
	if err != nil {
		return nil, fmt.Errorf("parsing announcements of %s: %w", course.Title, err)
	}
	out := make([]*types.Announcement, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		a := types.NewAnnouncement(course.ID, row.ID, row.Title, row.Detail)
		if err := c.persist(a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Crawl runs a full discovery: courses, their content trees and
// announcements, then the calendar when enabled.
func (c *Crawler) Crawl(ctx context.Context) (Result, error) {
	var res Result
	courses, err := c.Courses(ctx)
	if err != nil {
		return res, err
	}
	res.Courses = courses

	seen := map[types.Ref]bool{}
	for _, course := range courses {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		roots, err := c.RootFolders(ctx, course)
		if err != nil {
			return res, err
		}
		leafCount := 0
		for _, root := range roots {
			leaves, err := c.CollectLeaves(ctx, root)
			if err != nil {
				return res, err
			}
			for _, leaf := range leaves {
				ref := types.RefOf(leaf)
				if seen[ref] {
					continue
				}
				seen[ref] = true
				leafCount++
				switch v := leaf.(type) {
				case *types.Assignment:
					res.Assignments = append(res.Assignments, v)
				case *types.Content:
					res.Contents = append(res.Contents, v)
				}
			}
		}
		announcements, err := c.Announcements(ctx, course)
		if err != nil {
			return res, err
		}
		res.Announcements = append(res.Announcements, announcements...)
		c.log.Info("course crawled", "course", course.Title, "roots", len(roots),
			"leaves", leafCount, "announcements", len(announcements))
	}
	res.Folders = c.cache.allFolders()

	if c.opts.Calendar {
		entries, err := c.CalendarEntries(ctx)
		if err != nil {
			return res, err
		}
		res.CalendarEntries = entries
	}
	res.Warnings = c.Warnings()
	return res, nil
}
