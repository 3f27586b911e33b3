// Package cycle runs one polling cycle: read the stored snapshot, crawl,
// reconcile and notify.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/coursewatch/internal/crawler"
	"github.com/mesh-intelligence/coursewatch/internal/notify"
	"github.com/mesh-intelligence/coursewatch/internal/reconcile"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Authenticator opens a portal session.
type Authenticator interface {
	Login(ctx context.Context) error
}

// Crawler discovers the current portal content.
type Crawler interface {
	Reset()
	Crawl(ctx context.Context) (crawler.Result, error)
}

// Store is the part of the event store a cycle reads and prunes.
type Store interface {
	reconcile.Reader
	reconcile.Deleter
}

// Notifier sends the cycle's notifications.
type Notifier interface {
	Dispatch(ctx context.Context, b notify.Batch) error
	Warn(ctx context.Context, warnings []types.Warning) error
	Error(ctx context.Context, cause error) error
}

// Report describes a finished cycle.
type Report struct {
	ID       string
	Started  time.Time
	Finished time.Time
	// FirstRun is set when the store was empty; no notifications were sent.
	FirstRun bool
	Changes  reconcile.Changes
	Warnings []types.Warning
}

// Runner executes cycles. Auth may be nil when the fetcher needs no login.
type Runner struct {
	Auth     Authenticator
	Crawler  Crawler
	Store    Store
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (r *Runner) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Run executes one cycle. Warnings are mailed as soon as the crawl ends.
// On the first run the store is populated and nothing else is sent.
func (r *Runner) Run(ctx context.Context) (rep Report, err error) {
	rep = Report{ID: newCycleID(), Started: r.now()}
	log := r.log().With("cycle", rep.ID)
	defer func() { rep.Finished = r.now() }()

	stored, err := reconcile.Snapshot(r.Store)
	if err != nil {
		return rep, fmt.Errorf("reading stored snapshot: %w", err)
	}
	rep.FirstRun = stored.Empty()
	log.Info("cycle started", "stored", stored.Len(), "first_run", rep.FirstRun)

	if r.Auth != nil {
		if err := r.Auth.Login(ctx); err != nil {
			return rep, err
		}
	}

	r.Crawler.Reset()
	res, err := r.Crawler.Crawl(ctx)
	if err != nil {
		return rep, fmt.Errorf("crawl: %w", err)
	}
	rep.Warnings = res.Warnings

	var errs []error
	if err := r.Notifier.Warn(ctx, res.Warnings); err != nil {
		errs = append(errs, err)
	}

	rep.Changes = reconcile.Plan(stored, freshSet(res))
	if err := reconcile.Prune(r.Store, rep.Changes); err != nil {
		return rep, errors.Join(append(errs, err)...)
	}
	for _, g := range rep.Changes.Counts() {
		if g.Added > 0 || g.Removed > 0 {
			log.Info("changes", "group", g.Group, "added", g.Added, "removed", g.Removed)
		}
	}

	if rep.FirstRun {
		log.Info("first run, notifications suppressed")
		return rep, errors.Join(errs...)
	}

	batch := notify.Batch{
		Courses:          courseTitles(res.Courses),
		NewAssignments:   rep.Changes.Assignments.Added,
		NewAnnouncements: rep.Changes.Announcements.Added,
		NewContents:      rep.Changes.Contents.Added,
		Assignments:      res.Assignments,
	}
	if err := r.Notifier.Dispatch(ctx, batch); err != nil {
		errs = append(errs, err)
	}
	return rep, errors.Join(errs...)
}

// Fail reports a failed cycle by mail. A failure to send is only logged.
func (r *Runner) Fail(ctx context.Context, cause error) {
	r.log().Error("cycle failed", "error", cause)
	if err := r.Notifier.Error(ctx, cause); err != nil {
		r.log().Error("error notification failed", "error", err)
	}
}

func freshSet(res crawler.Result) reconcile.Set {
	return reconcile.Set{
		Courses:         res.Courses,
		Folders:         res.Folders,
		Contents:        res.Contents,
		Assignments:     res.Assignments,
		Announcements:   res.Announcements,
		CalendarEntries: res.CalendarEntries,
	}
}

func courseTitles(courses []*types.Course) map[string]string {
	out := make(map[string]string, len(courses))
	for _, c := range courses {
		out[c.ID] = c.Title
	}
	return out
}

func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
