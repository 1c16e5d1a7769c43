package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dutyroster/internal/roster"
	logx "dutyroster/pkg/logx"
)

func openTemp(t *testing.T, driver, name string) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

func TestStoresRoundTrip(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ driver, name string }{
		{driver: "ini", name: "duty_config.ini"},
		{driver: "sqlite", name: "duty_state.db"},
	} {
		tc := tc
		t.Run(tc.driver, func(t *testing.T) {
			t.Parallel()
			st, _ := openTemp(t, tc.driver, tc.name)
			ctx := context.Background()

			got, ok, err := st.Load(ctx)
			if err != nil || ok {
				t.Fatalf("empty Load = %+v ok=%v err=%v", got, ok, err)
			}
			if got != roster.DefaultState() {
				t.Fatalf("empty Load = %+v, want defaults", got)
			}

			want := roster.State{Index1: 12, Index2: 13, LastUpdate: "20240103", Origin1: 10, Origin2: 11}
			if err := st.Save(ctx, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, ok, err = st.Load(ctx)
			if err != nil || !ok || got != want {
				t.Fatalf("Load = %+v ok=%v err=%v, want %+v", got, ok, err, want)
			}
		})
	}
}

func TestINILayout(t *testing.T) {
	t.Parallel()
	st, path := openTemp(t, "ini", "duty_config.ini")
	if err := st.Save(context.Background(), roster.State{Index1: 2, Index2: 3, LastUpdate: "20240103", Origin1: 2, Origin2: 3}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(b)
	for _, want := range []string{"[duty]", "[date]", "[origin]", "lastUpdate", "20240103"} {
		if !strings.Contains(text, want) {
			t.Fatalf("ini missing %q:\n%s", want, text)
		}
	}
}

func TestINIInvalidValuesDefault(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "duty_config.ini")
	raw := "[duty]\nindex1 = abc\nindex2 = 9\n[date]\nlastUpdate = 20240101\n[extra]\nkeep = me\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Driver: "ini", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	got, ok, err := st.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load ok=%v err=%v", ok, err)
	}
	want := roster.State{Index1: 0, Index2: 9, LastUpdate: "20240101", Origin1: 0, Origin2: 1}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}

	if err := st.Save(context.Background(), got); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "keep") {
		t.Fatalf("foreign section dropped:\n%s", b)
	}
}

func TestAuditRecent(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ driver, name string }{
		{driver: "ini", name: "duty_config.ini"},
		{driver: "sqlite", name: "duty_state.db"},
	} {
		tc := tc
		t.Run(tc.driver, func(t *testing.T) {
			t.Parallel()
			st, _ := openTemp(t, tc.driver, tc.name)
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				c := roster.Change{
					Action: roster.ActionNext,
					Actor:  "cli",
					Before: roster.State{Index1: i, Index2: i + 1},
					After:  roster.State{Index1: i + 2, Index2: i + 3},
					At:     time.Now(),
				}
				if err := st.AppendAudit(ctx, AuditFromChange(c)); err != nil {
					t.Fatalf("AppendAudit: %v", err)
				}
			}
			got, err := st.RecentAudit(ctx, 3)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 3 {
				t.Fatalf("len = %d, want 3", len(got))
			}
			if got[0].Before1 != 3 || got[2].Before1 != 5 || got[2].After1 != 7 {
				t.Fatalf("unexpected order/content: %+v", got)
			}
			if got[0].ID == "" {
				t.Fatal("expected generated id")
			}
		})
	}
}

func TestUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "mongo", Path: filepath.Join(t.TempDir(), "x")}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLockIsExclusive(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "duty_config.ini")
	l1, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := AcquireLock(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("second lock err = %v, want ErrLocked", err)
	}
	if err := l1.Release(); err != nil {
		t.Fatal(err)
	}
	if err := l1.Release(); err != nil {
		t.Fatalf("double release: %v", err)
	}
	l2, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = l2.Release()
}
