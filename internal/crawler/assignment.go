package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mesh-intelligence/coursewatch/internal/portal"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Due date layouts of the attempt page, e.g. "Sunday, March 10, 2024 11:59PM".
var dueLayouts = []string{
	"Monday, January 2, 2006 3:04PM",
	"Monday, January 2, 2006 3:04 PM",
}

// MsgDueNotFound is the warning queued when an assignment's due date cannot
// be read.
const MsgDueNotFound = "Due date not found, set to tomorrow"

// resolveAssignment reads the submission and attempt pages of a. A due date
// that cannot be parsed is replaced by now+24h and reported as a warning.
func (c *Crawler) resolveAssignment(ctx context.Context, a *types.Assignment) error {
	params := url.Values{"course_id": {a.CourseID}, "content_id": {a.ID}}
	submission, err := c.fetch.Get(ctx, portal.PathUploadAssign, params)
	if err != nil {
		return fmt.Errorf("fetching submission of %s: %w", a.Path, err)
	}

	attemptParams := url.Values{"action": {"newAttempt"}, "course_id": {a.CourseID}, "content_id": {a.ID}}
	attempt, err := c.fetch.Get(ctx, portal.PathUploadAssign, attemptParams)
	if err != nil {
		return fmt.Errorf("fetching attempt page of %s: %w", a.Path, err)
	}
	detail, err := c.parse.AssignmentDetail(attempt)
	if err != nil {
		return fmt.Errorf("parsing attempt page of %s: %w", a.Path, err)
	}

	now := c.now()
	due, err := parseDue(detail.DueDate, detail.DueTime, c.opts.Location)
	if err != nil {
		due = now.Add(24 * time.Hour)
		c.warn(types.Warning{Course: c.courseTitle(a.CourseID), Title: a.Title, Message: MsgDueNotFound})
	}
	finished := c.parse.Submitted(submission) || due.Before(now)
	a.Resolve(due, finished, detail.Instructions)
	return nil
}

func parseDue(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("due date %q %q: missing field", date, clock)
	}
	value := date + " " + clock
	var lastErr error
	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
