// Package app wires the duty daemon: config, logging, the roster host,
// the check scheduler and the optional Telegram bot.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dutyroster/internal/config"
	"dutyroster/internal/dutybot"
	"dutyroster/internal/eventbus"
	"dutyroster/internal/notifier"
	"dutyroster/internal/roster"
	rtsup "dutyroster/internal/runtime/supervisor"
	"dutyroster/internal/scheduler"
	kit "dutyroster/internal/transport"
	"dutyroster/internal/transport/telegram"
	logx "dutyroster/pkg/logx"
	"dutyroster/pkg/systemd"
)

// CheckSchedule is the scheduler entry running the daily rotation rule.
const CheckSchedule = "duty.check"

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	state *State
	host  *roster.Host
	sched *scheduler.Service

	// nil without a telegram token
	adapter  kit.Adapter
	notif    *notifier.Service
	bot      *dutybot.Bot
	announce *dutybot.Announcer

	updates chan kit.Update
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfgm.SetValidator(ValidateRuntime)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.NewService(cfg.Logging.Logx())
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	bus := eventbus.New()

	state, err := OpenState(ctx, cfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		logs.Close()
		return nil, err
	}
	dates, err := NewDateSource(cfg, log.With(logx.String("comp", "clock")))
	if err != nil {
		_ = state.Close()
		logs.Close()
		return nil, err
	}
	host := state.Host(dates, bus, log.With(logx.String("comp", "roster")))

	a := &App{
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logs,
		bus:     bus,
		state:   state,
		host:    host,
		sched:   scheduler.New(mapSchedulerConfig(cfg), log.With(logx.String("comp", "scheduler")), bus),
		updates: make(chan kit.Update, 64),
	}
	if err := a.registerCheck(cfg.Scheduler.Check); err != nil {
		_ = a.close()
		return nil, err
	}
	if strings.TrimSpace(cfg.Telegram.Token) != "" {
		if err := a.initTelegram(cfg, log); err != nil {
			_ = a.close()
			return nil, err
		}
	} else {
		a.log.Info("telegram token not set; bot disabled")
	}
	return a, nil
}

func (a *App) initTelegram(cfg *config.Config, log logx.Logger) error {
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	ad, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: poll}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return err
	}
	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return err
	}
	a.adapter = ad
	a.notif = notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), a.bus)
	a.bot = dutybot.New(dutybot.Deps{
		Roster:    a.host,
		Audit:     a.state.Store,
		Schedules: a.sched,
		Adapter:   ad,
		Owners:    cfg.Telegram.OwnerUserIDs,
		Log:       log.With(logx.String("comp", "commands")),
	})
	a.announce = dutybot.NewAnnouncer(a.bus, a.notif, notifyTarget(cfg), log.With(logx.String("comp", "announce")))
	return nil
}

func notifyTarget(cfg *config.Config) kit.ChatTarget {
	return kit.ChatTarget{ChatID: cfg.Telegram.NotifyChatID, ThreadID: cfg.Telegram.NotifyThreadID}
}

func (a *App) registerCheck(spec string) error {
	norm, err := a.sched.AddSchedule(CheckSchedule, spec, 30*time.Second, func(ctx context.Context) error {
		if roster.ActorFrom(ctx) == "system" {
			ctx = roster.WithActor(ctx, "scheduler")
		}
		_, err := a.host.Check(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("scheduler.check: %w", err)
	}
	a.log.Debug("rotation check scheduled", logx.String("spec", norm))
	return nil
}

// Host exposes the roster host (tests, embedding).
func (a *App) Host() *roster.Host { return a.host }

// Done is closed when the app supervisor context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.sup.Go("roster.host", a.host.Run)

	if a.adapter != nil {
		if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
			return err
		}
		if a.notif.Enabled() {
			a.notif.Start(a.sup.Context())
		}
		a.sup.Go("commands.dispatch", func(c context.Context) error {
			return a.bot.DispatchLoop(c, a.updates)
		})
		a.sup.Go("duty.announce", a.announce.Run)
		a.sup.Go("commands.menu", func(c context.Context) error {
			mctx, cancel := context.WithTimeout(c, 10*time.Second)
			defer cancel()
			if err := a.bot.PublishMenu(mctx); err != nil {
				a.log.Warn("command menu update failed", logx.Err(err))
			}
			return nil
		})
	}

	a.sched.Start(a.sup.Context())
	if cfg.Scheduler.StartupCheckEnabled() {
		a.sup.Go("duty.startup_check", func(c context.Context) error {
			if err := a.sched.Trigger(roster.WithActor(c, "startup"), CheckSchedule); err != nil {
				a.log.Warn("startup rotation check failed", logx.Err(err))
			}
			return nil
		})
	}

	a.sup.Go("eventbus.log", a.logEvents)
	a.sup.Go("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		return systemd.Watchdog(c, func() bool { return a.sup.Err() == nil }, a.log)
	})

	if _, err := systemd.Ready(); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Err(err))
	}
	st := a.state.Engine.State()
	_, _ = systemd.Status("on duty: " + st.String())
	a.log.Info("app started", logx.String("state", st.String()), logx.Bool("telegram", a.adapter != nil))
	return nil
}

func (a *App) logEvents(c context.Context) error {
	events, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-c.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			if ch, ok := e.Data.(roster.Change); ok {
				_, _ = systemd.Status("on duty: " + ch.After.String())
			}
		}
	}
}

func (a *App) reloadLoop(c context.Context) error {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	last := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return nil
		case cfg, ok := <-sub:
			if !ok {
				return nil
			}
			a.apply(c, last, cfg)
			last = cfg
		}
	}
}

func (a *App) apply(c context.Context, old, cfg *config.Config) {
	sections := changedSections(old, cfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range sections {
		if restartSections[s] {
			a.log.Warn("config section changed; restart required for it to take effect", logx.String("section", s))
		}
	}

	a.logs.Apply(cfg.Logging.Logx())

	a.sched.Apply(mapSchedulerConfig(cfg))
	if old.Scheduler.Check != cfg.Scheduler.Check {
		if err := a.registerCheck(cfg.Scheduler.Check); err != nil {
			a.log.Warn("invalid check schedule; keeping previous", logx.Err(err))
		}
	}

	if a.adapter != nil {
		if tokenChanged(old, cfg) {
			a.log.Warn("telegram token changed; restart required for it to take effect")
		}
		a.bot.SetOwners(cfg.Telegram.OwnerUserIDs)
		a.announce.SetTarget(notifyTarget(cfg))

		ncfg, err := mapNotifierConfig(cfg)
		if err != nil {
			a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
		} else {
			was := a.notif.Enabled()
			a.notif.Apply(ncfg)
			switch {
			case was && !ncfg.Enabled:
				sctx, cancel := context.WithTimeout(c, 3*time.Second)
				a.notif.Stop(sctx)
				cancel()
				a.log.Info("notifier disabled via config")
			case !was && ncfg.Enabled:
				a.notif.Start(c)
				a.log.Info("notifier enabled via config")
			}
		}
	} else if strings.TrimSpace(cfg.Telegram.Token) != "" {
		a.log.Warn("telegram token added; restart required to start the bot")
	}
	a.log.Info("config reloaded", logx.String("changed", strings.Join(sections, ",")))
}

// Stop shuts components down in reverse dependency order. The roster host
// flushes the state as it exits.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = systemd.Stopping()
	a.sup.Cancel()

	a.step(ctx, "scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	if a.adapter != nil {
		a.step(ctx, "notifier", time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
		a.step(ctx, "adapter", 2*time.Second, a.adapter.Stop)
	}
	a.step(ctx, "supervisor", 3*time.Second, a.sup.Wait)
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.state.Close() })

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}

// step runs fn with its own deadline, capped by the caller's.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		limit = min(limit, time.Until(dl))
	}
	if limit <= 0 {
		a.log.Warn("stop step skipped; deadline passed", logx.String("name", name))
		return
	}
	sctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(sctx)
	}()
	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-sctx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}

func (a *App) close() error {
	err := a.state.Close()
	a.logs.Close()
	return err
}
