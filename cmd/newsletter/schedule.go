package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsletter-agent/delivery"
	"newsletter-agent/newsletter"
	"newsletter-agent/scheduler"
)

func newScheduleCommand(a *app) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate and deliver newsletters on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Schedule
			when := sc.Cron
			if when == "" {
				when = sc.Time
			}
			if when == "" {
				return errors.New("schedule.cron or schedule.time is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			source, err := buildLinkSource(sc, a.log)
			if err != nil {
				return err
			}
			d, err := buildDeliverer(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer d.Close()
			if d.Len() == 0 {
				a.log.Warn("no delivery sinks configured, newsletters will only be logged")
			}

			job := &scheduledJob{
				ctx:      ctx,
				source:   source,
				pipeline: buildPipeline(a.cfg, a.log),
				deliver:  d,
				log:      a.log.Named("schedule"),
			}

			sched, err := scheduler.New(sc.Timezone, a.log.Named("scheduler"))
			if err != nil {
				return err
			}
			if err := sched.Schedule(when, job.run); err != nil {
				return err
			}
			sched.Start()
			a.log.Info("scheduler started", zap.Time("next_run", sched.Next()))

			if runNow {
				// Shares the job's guard with the cron entry.
				go job.run()
			}

			<-ctx.Done()
			a.log.Info("received signal, shutting down")
			sched.Stop()
			a.log.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run once immediately in addition to the schedule")
	return cmd
}

// scheduledJob is one generate-and-deliver run. Runs never overlap: a run
// that starts while another is in progress is skipped.
type scheduledJob struct {
	ctx      context.Context
	source   linkSource
	pipeline *newsletter.Pipeline
	deliver  *delivery.Deliverer
	log      *zap.Logger

	mu sync.Mutex
}

func (j *scheduledJob) run() {
	if !j.mu.TryLock() {
		j.log.Info("previous run still in progress, skipping")
		return
	}
	defer j.mu.Unlock()

	start := time.Now()
	j.log.Info("scheduled run starting")

	links, err := j.source.Links(j.ctx)
	if err != nil {
		j.log.Error("loading links failed", zap.Error(err))
		return
	}
	if len(links) == 0 {
		j.log.Warn("no links to process, skipping run")
		return
	}

	nl := j.pipeline.Generate(j.ctx, links)
	if err := j.deliver.Deliver(j.ctx, nl); err != nil {
		j.log.Error("delivery incomplete", zap.Error(err))
	}

	j.log.Info("scheduled run completed",
		zap.Int("links", len(links)),
		zap.Int("summaries", len(nl.Links)),
		zap.Duration("elapsed", time.Since(start)))
}
