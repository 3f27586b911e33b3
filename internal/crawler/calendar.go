package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mesh-intelligence/coursewatch/internal/portal"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

var calendarLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// CalendarEntries fetches the personal calendar for the configured window
// around now and persists each event.
func (c *Crawler) CalendarEntries(ctx context.Context) ([]*types.CalendarEntry, error) {
	now := c.now()
	params := url.Values{
		"start":     {strconv.FormatInt(now.Add(-c.opts.CalendarWindow).UnixMilli(), 10)},
		"end":       {strconv.FormatInt(now.Add(c.opts.CalendarWindow).UnixMilli(), 10)},
		"course_id": {""},
		"mode":      {"personal"},
	}
	page, err := c.fetch.Get(ctx, portal.PathCalendarEvents, params)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	rows, err := c.parse.CalendarRows(page)
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	var out []*types.CalendarEntry
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		entry := &types.CalendarEntry{
			ID:       row.ID,
			Title:    row.CalendarName,
			CourseID: c.cache.courseIDByTitle(row.CalendarNameLocalizable),
			Metadata: types.Metadata{
				types.MetaLocation:  row.CalendarNameLocalizable,
				types.MetaSubTitle:  row.Title,
				types.MetaEventType: row.EventType,
			},
		}
		c.setCalendarTime(entry.Metadata, types.MetaStart, row.Start)
		c.setCalendarTime(entry.Metadata, types.MetaEnd, row.End)
		if err := c.persist(entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	c.log.Debug("calendar loaded", "entries", len(out))
	return out, nil
}

// setCalendarTime stores value normalized to RFC3339 when it parses, and as
// given otherwise.
func (c *Crawler) setCalendarTime(md types.Metadata, key, value string) {
	for _, layout := range calendarLayouts {
		if t, err := time.ParseInLocation(layout, value, c.opts.Location); err == nil {
			md.SetTime(key, t)
			return
		}
	}
	md[key] = value
}
