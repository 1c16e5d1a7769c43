package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"dutyroster/internal/roster"
)

// Built-in defaults.
const (
	DefaultCheck        = "@every 30m"
	DefaultPresencePoll = "1500ms"
	DefaultNTPTimeout   = "2s"
	DefaultPollTimeout  = "10s"
)

// DefaultPresenceProcesses are slide-show hosts known to go full screen.
var DefaultPresenceProcesses = []string{
	"soffice.bin --show",
	"libreoffice --show",
	"impress",
	"wpp",
	"evince --presentation",
	"okular --presentation",
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{
		Scheduler: SchedulerConfig{Enabled: true},
		Notifier:  NotifierConfig{Enabled: true},
		Logging:   LoggingConfig{Level: "info", Console: true},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values in place.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	r := &cfg.Roster
	if r.Slots <= 0 {
		r.Slots = roster.DefaultSlots
	}
	if r.Step <= 0 {
		r.Step = roster.DefaultStep
	}
	if len(r.Workdays) == 0 {
		r.Workdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	}

	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = "ini"
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	if strings.TrimSpace(cfg.Clock.Source) == "" {
		cfg.Clock.Source = "system"
	}
	cfg.Clock.Source = strings.ToLower(strings.TrimSpace(cfg.Clock.Source))
	if cfg.Clock.NTPTimeout == "" {
		cfg.Clock.NTPTimeout = DefaultNTPTimeout
	}

	if strings.TrimSpace(cfg.Scheduler.Check) == "" {
		cfg.Scheduler.Check = DefaultCheck
	}
	if cfg.Telegram.PollTimeout == "" {
		cfg.Telegram.PollTimeout = DefaultPollTimeout
	}

	n := &cfg.Notifier
	if n.Workers <= 0 {
		n.Workers = 1
	}
	if n.QueueSize <= 0 {
		n.QueueSize = 64
	}
	if n.RatePerSec <= 0 {
		n.RatePerSec = 1
	}
	if n.RetryMax <= 0 {
		n.RetryMax = 3
	}
	if n.RetryBase == "" {
		n.RetryBase = "500ms"
	}
	if n.RetryMaxDelay == "" {
		n.RetryMaxDelay = "10s"
	}
	if n.DedupWindow == "" {
		n.DedupWindow = "1m"
	}
	if n.DedupMaxEntries <= 0 {
		n.DedupMaxEntries = 256
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Presence.Poll == "" {
		cfg.Presence.Poll = DefaultPresencePoll
	}
	if len(cfg.Presence.Processes) == 0 {
		cfg.Presence.Processes = append([]string(nil), DefaultPresenceProcesses...)
	}
}

// envOverlay lists the settings that may come from the environment.
type envOverlay struct {
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	LogLevel      string `env:"LOG_LEVEL"`
	StorageDriver string `env:"STORAGE_DRIVER"`
	StoragePath   string `env:"STORAGE_PATH"`
	Timezone      string `env:"TIMEZONE"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DUTY_"

// ApplyEnv overlays DUTY_* variables onto cfg. A nil environ reads the
// process environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	if cfg == nil {
		return nil
	}
	var o envOverlay
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	if o.TelegramToken != "" {
		cfg.Telegram.Token = o.TelegramToken
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.StorageDriver != "" {
		cfg.Storage.Driver = strings.ToLower(o.StorageDriver)
	}
	if o.StoragePath != "" {
		cfg.Storage.Path = o.StoragePath
	}
	if o.Timezone != "" {
		cfg.Clock.Timezone = o.Timezone
	}
	return nil
}

// Validate checks a defaulted config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if cfg.Roster.Slots < 3 {
		add("roster.slots: need at least 3, got %d", cfg.Roster.Slots)
	}
	if cfg.Roster.Step <= 0 || cfg.Roster.Step >= cfg.Roster.Slots {
		add("roster.step: must be in 1..%d, got %d", cfg.Roster.Slots-1, cfg.Roster.Step)
	}
	if _, err := roster.ParseWeekdays(cfg.Roster.Workdays); err != nil {
		add("roster.workdays: %v", err)
	}

	switch cfg.Storage.Driver {
	case "ini", "file", "sqlite", "sqlite3":
	default:
		add("storage.driver: unknown %q", cfg.Storage.Driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	switch cfg.Clock.Source {
	case "system", "ntp":
	default:
		add("clock.source: unknown %q", cfg.Clock.Source)
	}
	if cfg.Clock.Timezone != "" && !strings.EqualFold(cfg.Clock.Timezone, "local") {
		if _, err := time.LoadLocation(cfg.Clock.Timezone); err != nil {
			add("clock.timezone: %v", err)
		}
	}

	for _, f := range []struct{ path, raw string }{
		{"clock.ntp_timeout", cfg.Clock.NTPTimeout},
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout},
		{"notifier.retry_base", cfg.Notifier.RetryBase},
		{"notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay},
		{"notifier.dedup_window", cfg.Notifier.DedupWindow},
		{"presence.poll", cfg.Presence.Poll},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.Scheduler.Enabled && strings.TrimSpace(cfg.Scheduler.Check) == "" {
		add("scheduler.check: required when scheduler is enabled")
	}
	if cfg.Telegram.Token != "" && len(cfg.Telegram.OwnerUserIDs) == 0 {
		add("telegram.owner_user_ids: at least one owner is required with a token")
	}
	return errors.Join(errs...)
}
