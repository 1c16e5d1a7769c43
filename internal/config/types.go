package config

import logx "dutyroster/pkg/logx"

// Config is the on-disk configuration shared by dutybot and dutyctl.
//
// All durations are Go duration strings ("500ms", "30s", "2m").
type Config struct {
	Roster    RosterConfig    `json:"roster"`
	Storage   StorageConfig   `json:"storage"`
	Clock     ClockConfig     `json:"clock"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Telegram  TelegramConfig  `json:"telegram"`
	Notifier  NotifierConfig  `json:"notifier"`
	Logging   LoggingConfig   `json:"logging"`
	Presence  PresenceConfig  `json:"presence"`
}

// RosterConfig describes the rotation geometry.
//
// Defaults: slots 47, step 2, workdays monday..friday.
type RosterConfig struct {
	Slots    int      `json:"slots,omitempty"`
	Step     int      `json:"step,omitempty"`
	Workdays []string `json:"workdays,omitempty"`
}

// StorageConfig selects where the roster state lives.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./duty_state.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`         // empty: next to the executable
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// ClockConfig selects the source of "today".
type ClockConfig struct {
	Source     string   `json:"source"`             // system | ntp
	Timezone   string   `json:"timezone,omitempty"` // IANA name, empty for local
	NTPServers []string `json:"ntp_servers,omitempty"`
	NTPTimeout string   `json:"ntp_timeout,omitempty"`
}

// SchedulerConfig controls the periodic rotation check.
//
// StartupCheck is a pointer so an omitted key can default to true.
type SchedulerConfig struct {
	Enabled      bool   `json:"enabled"`
	Check        string `json:"check,omitempty"` // cron spec, @every, duration or HH:MM
	StartupCheck *bool  `json:"check_on_startup,omitempty"`
}

type TelegramConfig struct {
	Token          string  `json:"token"`
	OwnerUserIDs   []int64 `json:"owner_user_ids"`
	NotifyChatID   int64   `json:"notify_chat_id,omitempty"`
	NotifyThreadID int     `json:"notify_thread_id,omitempty"`
	PollTimeout    string  `json:"poll_timeout,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers,omitempty"`
	QueueSize       int    `json:"queue_size,omitempty"`
	RatePerSec      int    `json:"rate_per_sec,omitempty"`
	RetryMax        int    `json:"retry_max,omitempty"`
	RetryBase       string `json:"retry_base,omitempty"`
	RetryMaxDelay   string `json:"retry_max_delay,omitempty"`
	DedupWindow     string `json:"dedup_window,omitempty"`
	DedupMaxEntries int    `json:"dedup_max_entries,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PresenceConfig hides the widget while a full-screen presentation runs.
type PresenceConfig struct {
	Enabled   bool     `json:"enabled"`
	Poll      string   `json:"poll,omitempty"`
	Processes []string `json:"processes,omitempty"`
}

// StartupCheckEnabled reports whether a rotation check runs at start.
func (s SchedulerConfig) StartupCheckEnabled() bool {
	return s.StartupCheck == nil || *s.StartupCheck
}

// Logx converts the section to the logging service config.
func (l LoggingConfig) Logx() logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
	}
}
