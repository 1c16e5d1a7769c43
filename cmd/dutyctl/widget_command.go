package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"dutyroster/internal/config"
	"dutyroster/internal/presence"
	"dutyroster/internal/roster"
	"dutyroster/internal/scheduler"
	"dutyroster/internal/widget"
	logx "dutyroster/pkg/logx"
)

func newWidgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "widget",
		Short: "Show the duty widget in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withHost(cmd.Context(), cmd.ErrOrStderr(), nil, func(c context.Context, h *roster.Host) error {
				return widget.Run(c, widget.New(h, widgetOptions(cfg, ctx.logger(cmd.ErrOrStderr()))))
			})
		},
	}
}

func widgetOptions(cfg *config.Config, log logx.Logger) widget.Options {
	opts := widget.Options{
		StartupCheck: cfg.Scheduler.StartupCheckEnabled(),
		Actor:        "widget:" + cliActor(),
	}
	if cfg.Scheduler.Enabled {
		opts.CheckEvery = 30 * time.Minute
		if ps, err := scheduler.ParseSchedule(cfg.Scheduler.Check); err == nil && ps.Kind == scheduler.SpecInterval {
			opts.CheckEvery = ps.Every
		}
	}
	if cfg.Presence.Enabled {
		poll := config.MustDuration(cfg.Presence.Poll, 1500*time.Millisecond)
		sig := presence.NewProcessSignal(cfg.Presence.Processes)
		opts.Presence = presence.NewWatcher(sig, nil, poll, nil, log.With(logx.String("comp", "presence")))
		opts.PresencePoll = poll
	}
	return opts
}
