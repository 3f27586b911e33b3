package cli

import (
	"path/filepath"

	"github.com/mesh-intelligence/coursewatch/internal/crawler"
	"github.com/mesh-intelligence/coursewatch/internal/cycle"
	"github.com/mesh-intelligence/coursewatch/internal/notify"
	"github.com/mesh-intelligence/coursewatch/internal/parser"
	"github.com/mesh-intelligence/coursewatch/internal/portal"
	"github.com/mesh-intelligence/coursewatch/internal/sqlite"
)

// newRunner wires the portal client, crawler, store and dispatcher into a
// cycle runner.
func (e *env) newRunner(store *sqlite.Backend) (*cycle.Runner, error) {
	if err := e.cfg.RequirePortal(); err != nil {
		return nil, err
	}
	sender, err := e.sender()
	if err != nil {
		return nil, err
	}

	pc := e.cfg.Portal
	client, err := portal.New(portal.Config{
		BaseURL:     pc.BaseURL,
		AuthURL:     pc.AuthURL,
		ClientID:    pc.ClientID,
		RedirectURI: pc.RedirectURI,
		Domain:      pc.Domain,
		Username:    pc.Username,
		Password:    pc.Password,
		Timeout:     pc.Timeout,
	})
	if err != nil {
		return nil, err
	}

	deliveries := notify.OpenDeliveryLog(filepath.Join(e.dataDir, notify.DeliveryFileName), e.loc)
	dispatcher := notify.NewDispatcher(sender, deliveries, notify.Config{
		Receivers:    e.cfg.Mail.ReceiverList(),
		Location:     e.loc,
		SummaryHour:  e.cfg.Notify.SummaryHour,
		UrgentWindow: e.cfg.Notify.UrgentWindow,
		NewContent:   e.cfg.Notify.NewContent,
		DryRun:       flags.dryRun,
		BaseURL:      pc.BaseURL,
		Logger:       e.log,
	})

	cr := crawler.New(client, parser.New(), store, crawler.Options{
		Location:       e.loc,
		Logger:         e.log,
		Calendar:       e.cfg.Crawl.Calendar,
		CalendarWindow: e.cfg.Crawl.CalendarWindow,
	})

	return &cycle.Runner{
		Auth:     client,
		Crawler:  cr,
		Store:    store,
		Notifier: dispatcher,
		Logger:   e.log,
	}, nil
}

// sender returns the mail sender, or a logging sender on --dry-run.
func (e *env) sender() (notify.Sender, error) {
	if flags.dryRun {
		return notify.LogSender{Logger: e.log}, nil
	}
	if err := e.cfg.RequireMail(); err != nil {
		return nil, err
	}
	m := e.cfg.Mail
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
	}), nil
}
