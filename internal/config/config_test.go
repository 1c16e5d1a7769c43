package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()): %v", err)
	}
	if cfg.Roster.Slots != 47 || cfg.Roster.Step != 2 || len(cfg.Roster.Workdays) != 5 {
		t.Fatalf("roster defaults = %+v", cfg.Roster)
	}
	if cfg.Scheduler.Check != "@every 30m" || !cfg.Scheduler.StartupCheckEnabled() {
		t.Fatalf("scheduler defaults = %+v", cfg.Scheduler)
	}
	if cfg.Presence.Poll != "1500ms" || cfg.Storage.Driver != "ini" || cfg.Clock.Source != "system" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		body string
		err  string
	}{
		{name: "unknown field", file: "c.json", body: `{"roster":{"slotz":4}}`, err: "unknown field"},
		{name: "trailing data", file: "c.json", body: `{} {}`, err: "trailing data"},
		{name: "bad yaml", file: "c.yaml", body: "roster: [", err: "yaml"},
		{name: "yaml unknown field", file: "c.yml", body: "clock:\n  sauce: ntp\n", err: "unknown field"},
	}
	for _, tt := range tests {
		_, err := Decode(tt.file, []byte(tt.body))
		if err == nil || !strings.Contains(err.Error(), tt.err) {
			t.Fatalf("%s: err = %v, want containing %q", tt.name, err, tt.err)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "dutyroster.yaml", `
roster:
  workdays: [mon, tue, wed, thu, fri, sat]
storage:
  driver: SQLite
  path: /tmp/duty.db
clock:
  source: ntp
  timezone: UTC
scheduler:
  enabled: true
  check: "08:30"
  check_on_startup: false
telegram:
  token: "123:abc"
  owner_user_ids: [42]
  notify_chat_id: -100123
`)
	m := NewConfigManager(p)
	m.SetEnviron(map[string]string{})
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Clock.Source != "ntp" || len(cfg.Roster.Workdays) != 6 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Scheduler.StartupCheckEnabled() {
		t.Fatal("check_on_startup: false ignored")
	}
	if cfg.Telegram.NotifyChatID != -100123 || cfg.Telegram.OwnerUserIDs[0] != 42 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "c.json", `{"roster":{"step":50},"clock":{"source":"sundial"},"presence":{"poll":"soon"}}`)
	m := NewConfigManager(p)
	m.SetEnviron(map[string]string{})
	_, err := m.Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"roster.step", "clock.source", "presence.poll"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("err %q missing %q", err, want)
		}
	}
}

func TestEnvOverlay(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "c.json", `{"telegram":{"token":"file","owner_user_ids":[1]},"logging":{"level":"info"}}`)
	m := NewConfigManager(p)
	m.SetEnviron(map[string]string{
		"DUTY_TELEGRAM_TOKEN": "env-token",
		"DUTY_LOG_LEVEL":      "debug",
		"DUTY_STORAGE_DRIVER": "SQLITE",
		"DUTY_STORAGE_PATH":   "/var/lib/duty.db",
		"DUTY_TIMEZONE":       "UTC",
		"UNRELATED_LOG_LEVEL": "error",
	})
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Logging.Level != "debug" {
		t.Fatalf("env not applied: %+v %+v", cfg.Telegram, cfg.Logging)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/var/lib/duty.db" || cfg.Clock.Timezone != "UTC" {
		t.Fatalf("env not applied: %+v %+v", cfg.Storage, cfg.Clock)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(filepath.Join(t.TempDir(), "missing.json"))
	m.SetEnviron(map[string]string{"DUTY_LOG_LEVEL": "warn"})
	if _, err := m.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load err = %v, want ErrNotFound", err)
	}
	cfg, err := m.LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Roster.Slots != 47 || cfg.Logging.Level != "warn" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationOrDefault("x", "", time.Second); err != nil || d != time.Second {
		t.Fatalf("empty -> %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "1500ms", time.Second); err != nil || d != 1500*time.Millisecond {
		t.Fatalf("1500ms -> %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative accepted")
	}
}

func TestWatchPublishesValidChanges(t *testing.T) {
	p := writeFile(t, "c.json", `{"logging":{"level":"info"}}`)
	m := NewConfigManager(p)
	m.SetEnviron(map[string]string{})
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(200 * time.Millisecond)

	// Invalid content is never published.
	_ = os.WriteFile(p, []byte(`{"clock":{"source":"sundial"}}`), 0o600)
	time.Sleep(600 * time.Millisecond)
	_ = os.WriteFile(p, []byte(`{"logging":{"level":"debug"}}`), 0o600)

	select {
	case cfg := <-ch:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("published %+v", cfg.Logging)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published")
	}
}
