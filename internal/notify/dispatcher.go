// Package notify classifies detected changes into notifications, renders
// them and hands them to a Sender. The daily summary is gated by the
// delivery log so that each receiver gets it at most once per calendar day.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Config controls what the dispatcher sends and to whom.
type Config struct {
	Receivers []string
	// Location is the zone for calendar days and the summary hour.
	Location     *time.Location
	SummaryHour  int
	UrgentWindow time.Duration
	NewContent   bool
	// DryRun consults the delivery log but never writes to it.
	DryRun bool
	// BaseURL is the portal root used in links.
	BaseURL string
	Now     func() time.Time
	Logger  *slog.Logger
}

// Batch is the input of one dispatch: what is new since the last cycle and
// every assignment currently on the portal.
type Batch struct {
	// Courses maps course ids to titles for rendering.
	Courses          map[string]string
	NewAssignments   []*types.Assignment
	NewAnnouncements []*types.Announcement
	NewContents      []*types.Content
	Assignments      []*types.Assignment
}

// Dispatcher sends notifications. Not safe for concurrent use.
type Dispatcher struct {
	sender     Sender
	deliveries *DeliveryLog
	cfg        Config
	log        *slog.Logger
}

// NewDispatcher returns a dispatcher writing confirmed sends to deliveries.
func NewDispatcher(sender Sender, deliveries *DeliveryLog, cfg Config) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.UrgentWindow <= 0 {
		cfg.UrgentWindow = 2 * time.Hour
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{sender: sender, deliveries: deliveries, cfg: cfg, log: log.With("component", "notify")}
}

func (d *Dispatcher) now() time.Time { return d.cfg.Now().In(d.cfg.Location) }

// Dispatch sends every notification b calls for. A failed send does not stop
// the others; all failures are returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, b Batch) error {
	now := d.now()
	r := renderer{baseURL: d.cfg.BaseURL, courses: b.Courses, now: now}
	var errs []error

	for _, a := range b.NewAssignments {
		errs = append(errs, d.broadcast(ctx, TmplNewAssignments, r.assignment(a), r, true)...)
	}
	for _, a := range b.NewAnnouncements {
		errs = append(errs, d.broadcast(ctx, TmplNewAnnouncements, r.announcement(a), r, true)...)
	}
	if d.cfg.NewContent {
		for _, c := range b.NewContents {
			errs = append(errs, d.broadcast(ctx, TmplNewContent, r.content(c), r, true)...)
		}
	}
	for _, a := range d.Urgent(b.Assignments) {
		errs = append(errs, d.broadcast(ctx, TmplUnfinishedAssignments, r.assignment(a), r, true)...)
	}
	errs = append(errs, d.dailySummary(ctx, b.Assignments, r)...)
	return errors.Join(errs...)
}

// Urgent returns the unfinished assignments due within the urgent window.
// They are reminded of on every cycle until finished.
func (d *Dispatcher) Urgent(assignments []*types.Assignment) []*types.Assignment {
	now := d.now()
	var out []*types.Assignment
	for _, a := range assignments {
		if a.Finished() {
			continue
		}
		if a.Due().Sub(now) <= d.cfg.UrgentWindow {
			out = append(out, a)
		}
	}
	return out
}

// dailySummary sends the summary to each receiver that has not had one
// today, once the local hour reaches SummaryHour.
func (d *Dispatcher) dailySummary(ctx context.Context, assignments []*types.Assignment, r renderer) []error {
	now := r.now
	if now.Hour() < d.cfg.SummaryHour {
		return nil
	}
	view := summarize(assignments, r)

	var errs []error
	for _, receiver := range d.cfg.Receivers {
		sent, err := d.deliveries.SentOn(TmplDailySummary, receiver, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading delivery log: %w", err))
			continue
		}
		if sent {
			d.log.Debug("daily summary already sent", "receiver", receiver)
			continue
		}
		if err := d.send(ctx, TmplDailySummary, receiver, view, r, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// summarize partitions unfinished assignments by time left, earliest first.
func summarize(assignments []*types.Assignment, r renderer) summaryView {
	open := make([]*types.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if !a.Finished() {
			open = append(open, a)
		}
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].Due().Before(open[j].Due()) })

	view := summaryView{Day: r.now.Format("Monday, January 2, 2006")}
	for _, a := range open {
		item := r.assignment(a)
		left := a.Due().Sub(r.now)
		switch {
		case left < 24*time.Hour:
			view.Today = append(view.Today, item)
		case left < 72*time.Hour:
			view.Soon = append(view.Soon, item)
		}
		view.All = append(view.All, item)
	}
	return view
}

// Warn sends the crawl warnings as one message per receiver. Not logged.
func (d *Dispatcher) Warn(ctx context.Context, warnings []types.Warning) error {
	if len(warnings) == 0 {
		return nil
	}
	r := renderer{now: d.now()}
	return errors.Join(d.broadcast(ctx, TmplWarning, warnings, r, false)...)
}

// Error reports a failed cycle to every receiver. Not logged.
func (d *Dispatcher) Error(ctx context.Context, cause error) error {
	r := renderer{now: d.now()}
	return errors.Join(d.broadcast(ctx, TmplError, cause, r, false)...)
}

func (d *Dispatcher) broadcast(ctx context.Context, name string, data any, r renderer, record bool) []error {
	var errs []error
	for _, receiver := range d.cfg.Receivers {
		if err := d.send(ctx, name, receiver, data, r, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// send renders and sends one message. The delivery is recorded only after
// the sender accepted it.
func (d *Dispatcher) send(ctx context.Context, name, receiver string, data any, r renderer, record bool) error {
	subject, body, err := r.render(name, data)
	if err != nil {
		return &types.DeliveryError{Template: name, Receiver: receiver, Err: err}
	}
	msg := types.Message{Template: name, To: receiver, Subject: subject, Body: body}
	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Error("send failed", "template", name, "receiver", receiver, "error", err)
		return &types.DeliveryError{Template: name, Receiver: receiver, Err: err}
	}
	d.log.Info("notification sent", "template", name, "receiver", receiver)
	if !record || d.cfg.DryRun {
		return nil
	}
	if _, err := d.deliveries.Record(name, receiver, r.now); err != nil {
		return fmt.Errorf("%s to %s sent but not recorded: %w", name, receiver, err)
	}
	return nil
}
