package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dutyroster/internal/clock"
	"dutyroster/internal/config"
	"dutyroster/internal/notifier"
	"dutyroster/internal/roster"
	"dutyroster/internal/scheduler"
	"dutyroster/internal/storage"
	logx "dutyroster/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = "ini"
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		path = storage.DefaultPath(driver)
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
}

func mapEngineOptions(cfg *config.Config) (roster.Options, error) {
	days, err := roster.ParseWeekdays(cfg.Roster.Workdays)
	if err != nil {
		return roster.Options{}, fmt.Errorf("roster.workdays: %w", err)
	}
	return roster.Options{Slots: cfg.Roster.Slots, Step: cfg.Roster.Step, Workdays: days}, nil
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: cfg.Clock.Timezone,
		Spread:   scheduler.DefaultSpread,
	}
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	var errs []error
	dur := func(path, raw string, def time.Duration) time.Duration {
		d, err := config.ParseDurationOrDefault(path, raw, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	out := notifier.Config{
		Enabled:         n.Enabled,
		Workers:         n.Workers,
		QueueSize:       n.QueueSize,
		RatePerSec:      n.RatePerSec,
		RetryMax:        n.RetryMax,
		RetryBase:       dur("notifier.retry_base", n.RetryBase, 500*time.Millisecond),
		RetryMaxDelay:   dur("notifier.retry_max_delay", n.RetryMaxDelay, 10*time.Second),
		DedupWindow:     dur("notifier.dedup_window", n.DedupWindow, time.Minute),
		DedupMaxEntries: n.DedupMaxEntries,
	}
	return out, errors.Join(errs...)
}

// NewDateSource builds the "today" provider from the clock section.
func NewDateSource(cfg *config.Config, log logx.Logger) (clock.Provider, error) {
	loc, err := clock.LoadLocation(cfg.Clock.Timezone)
	if err != nil {
		return nil, err
	}
	sys := clock.System{Loc: loc}
	if !strings.EqualFold(strings.TrimSpace(cfg.Clock.Source), "ntp") {
		return sys, nil
	}
	timeout, err := config.ParseDurationOrDefault("clock.ntp_timeout", cfg.Clock.NTPTimeout, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return clock.NTP{
		Servers:  cfg.Clock.NTPServers,
		Timeout:  timeout,
		Loc:      loc,
		Fallback: sys,
		Log:      log,
	}, nil
}

// ValidateRuntime checks the settings config.Validate cannot see: schedule
// syntax and derived service configs. Installed as the manager's validator.
func ValidateRuntime(_ context.Context, cfg *config.Config) error {
	var errs []error
	if cfg.Scheduler.Enabled {
		if _, err := scheduler.ParseSchedule(cfg.Scheduler.Check); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.check: %w", err))
		}
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapEngineOptions(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
