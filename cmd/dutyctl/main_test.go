package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	state := filepath.ToSlash(filepath.Join(dir, "duty_config.ini"))
	path := filepath.Join(dir, "config.yaml")
	body := "storage:\n  driver: ini\n  path: " + state + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestShowAdjustAndHistory(t *testing.T) {
	cfg := setupConfig(t)

	out, _, err := runCLI(t, cfg, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "on duty: #1 and #2")
	requireContains(t, out, "last rotation: never")

	out, _, err = runCLI(t, cfg, "next")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	requireContains(t, out, "on duty: #3 and #4")
	requireContains(t, out, "adjusted manually from #1 and #2")

	if _, _, err := runCLI(t, cfg, "restore"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	out, _, err = runCLI(t, cfg, "prev")
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	requireContains(t, out, "on duty: #46 and #47")

	out, _, err = runCLI(t, cfg, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "When\tAction") {
		t.Fatalf("history output:\n%s", out)
	}
	requireContains(t, lines[3], "prev\t#1/#2\t#46/#47")
}

func TestCheckWithDate(t *testing.T) {
	cfg := setupConfig(t)

	out, _, err := runCLI(t, cfg, "check", "--date", "20240106")
	if err != nil {
		t.Fatalf("check saturday: %v", err)
	}
	requireContains(t, out, "already updated today or not a workday (20240106)")

	out, _, err = runCLI(t, cfg, "check", "--date", "20240108")
	if err != nil {
		t.Fatalf("check monday: %v", err)
	}
	requireContains(t, out, "updated for 20240108")
	requireContains(t, out, "on duty: #3 and #4")

	out, _, err = runCLI(t, cfg, "check", "--date", "20240108")
	if err != nil {
		t.Fatalf("check monday again: %v", err)
	}
	requireContains(t, out, "already updated today")

	if _, _, err := runCLI(t, cfg, "check", "--date", "2024-01-08"); err == nil {
		t.Fatal("expected bad date error")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := setupConfig(t)
	out, _, err := runCLI(t, cfg, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"roster": {"slots": 2}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, bad, "config", "validate"); err == nil {
		t.Fatal("expected validation error for slots=2")
	}
}

func TestMissingConfigUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.json")
	out, _, err := runCLI(t, missing, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}
