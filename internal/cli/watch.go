package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run cycles on an interval until interrupted",
		Long: "Run a cycle every watch.interval_minutes. With watch.aligned the interval\n" +
			"must divide 60 and cycles start on the wall-clock grid (:00, :30, ...).\n" +
			"A failed cycle is reported and the loop continues.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			store, release, err := e.cycleStore()
			if err != nil {
				return err
			}
			defer release()

			runner, err := e.newRunner(store)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			interval := e.cfg.WatchInterval()
			aligned := e.cfg.Watch.Aligned
			e.log.Info("watching", "interval", interval, "aligned", aligned)

			watch(ctx, e.log, func(ctx context.Context) {
				rep, err := runner.Run(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					runner.Fail(ctx, err)
					return
				}
				e.log.Info("cycle finished", "cycle", rep.ID, "first_run", rep.FirstRun,
					"warnings", len(rep.Warnings))
			}, func(now time.Time) time.Duration {
				return nextDelay(now.In(e.loc), interval, aligned)
			}, aligned)

			e.log.Info("watch stopped")
			return nil
		},
	}
}

// watch calls cycle until ctx is done, sleeping next(now) between calls.
// With waitFirst the first call also waits.
func watch(ctx context.Context, log *slog.Logger, cycle func(context.Context), next func(time.Time) time.Duration, waitFirst bool) {
	if !waitFirst {
		cycle(ctx)
	}
	for {
		if ctx.Err() != nil {
			return
		}
		delay := next(time.Now())
		log.Debug("next cycle", "in", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		cycle(ctx)
	}
}

// nextDelay returns the time until the next cycle. Aligned cycles fall on
// multiples of interval past the hour in now's zone.
func nextDelay(now time.Time, interval time.Duration, aligned bool) time.Duration {
	if !aligned || interval <= 0 {
		return interval
	}
	hour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	elapsed := now.Sub(hour)
	next := hour.Add((elapsed/interval + 1) * interval)
	return next.Sub(now)
}
