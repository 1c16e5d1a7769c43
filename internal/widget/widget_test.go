package widget

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"dutyroster/internal/presence"
	"dutyroster/internal/roster"
	logx "dutyroster/pkg/logx"
)

type engineRoster struct {
	eng    *roster.Engine
	today  string
	actors []string
	fail   error
}

func (e *engineRoster) Current(context.Context) (roster.State, error) { return e.eng.State(), nil }

func (e *engineRoster) Check(ctx context.Context) (roster.Result, error) {
	e.actors = append(e.actors, roster.ActorFrom(ctx))
	d, _ := time.ParseInLocation(roster.DateLayout, e.today, time.UTC)
	changed, err := e.eng.AdvanceIfDue(ctx, d)
	return roster.Result{State: e.eng.State(), Changed: changed, Date: e.today}, err
}

func (e *engineRoster) op(ctx context.Context, fn func(*roster.Engine, context.Context) error) (roster.Result, error) {
	e.actors = append(e.actors, roster.ActorFrom(ctx))
	if e.fail != nil {
		return roster.Result{State: e.eng.State()}, e.fail
	}
	before := e.eng.State()
	err := fn(e.eng, ctx)
	after := e.eng.State()
	return roster.Result{State: after, Changed: before != after, Collision: after.Collides()}, err
}

func (e *engineRoster) Next(ctx context.Context) (roster.Result, error) {
	return e.op(ctx, (*roster.Engine).AdvanceManually)
}
func (e *engineRoster) Prev(ctx context.Context) (roster.Result, error) {
	return e.op(ctx, (*roster.Engine).RewindManually)
}
func (e *engineRoster) Restore(ctx context.Context) (roster.Result, error) {
	return e.op(ctx, (*roster.Engine).RestoreToOrigin)
}

func newRoster(today string) *engineRoster {
	return &engineRoster{eng: roster.NewEngine(roster.DefaultState(), roster.Options{}, nil), today: today}
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// press sends a key and feeds the resulting command's message back in.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(keyRunes(k))
	m = next.(Model)
	if cmd == nil {
		return m
	}
	msg := cmd()
	next, _ = m.Update(msg)
	return next.(Model)
}

func TestKeysDriveRoster(t *testing.T) {
	t.Parallel()
	r := newRoster("20240103")
	m := New(r, Options{})

	m = press(t, m, "c")
	if a, b := m.st.Pair(); a != 3 || b != 4 || m.status != "updated" {
		t.Fatalf("after check: pair=%d,%d status=%q", a, b, m.status)
	}
	m = press(t, m, "c")
	if m.status != "already updated today or not a workday" {
		t.Fatalf("second check status = %q", m.status)
	}
	m = press(t, m, "n")
	m = press(t, m, "n")
	if a, _ := m.st.Pair(); a != 7 {
		t.Fatalf("after next x2: first = %d", a)
	}
	m = press(t, m, "p")
	m = press(t, m, "r")
	if a, b := m.st.Pair(); a != 3 || b != 4 {
		t.Fatalf("after restore: pair=%d,%d", a, b)
	}
	for _, actor := range r.actors {
		if actor != "widget" {
			t.Fatalf("actor = %q", actor)
		}
	}
}

func TestQuitKey(t *testing.T) {
	t.Parallel()
	m := New(newRoster("20240103"), Options{})
	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestErrorShownInView(t *testing.T) {
	t.Parallel()
	r := newRoster("20240103")
	r.fail = errors.New("state locked")
	m := press(t, New(r, Options{}), "n")
	if !strings.Contains(m.View(), "next failed: state locked") {
		t.Fatalf("view = %q", m.View())
	}
}

func TestToggleAndPresenceHide(t *testing.T) {
	t.Parallel()
	active := false
	sig := presence.SignalFunc(func(context.Context) (bool, error) { return active, nil })
	w := presence.NewWatcher(sig, nil, 0, nil, logx.Nop())
	m := New(newRoster("20240103"), Options{Presence: w})

	m = press(t, m, "h")
	if m.visible || !strings.Contains(m.View(), "hidden") {
		t.Fatalf("toggle did not hide: %q", m.View())
	}
	m = press(t, m, "h")
	if !m.visible {
		t.Fatal("toggle did not show")
	}

	active = true
	next, _ := m.Update(presenceMsg(mustPoll(t, w)))
	m = next.(Model)
	if m.visible {
		t.Fatal("fullscreen content should hide the widget")
	}
	active = false
	next, _ = m.Update(presenceMsg(mustPoll(t, w)))
	if !next.(Model).visible {
		t.Fatal("widget should reappear")
	}
}

func mustPoll(t *testing.T, w *presence.Watcher) presence.Change {
	t.Helper()
	c, _ := w.Poll(context.Background())
	return c
}

func TestBigNumber(t *testing.T) {
	t.Parallel()
	got := strings.Split(bigNumber(47), "\n")
	if len(got) != 5 || got[0] != "█ █ ███" || got[4] != "  █   █" {
		t.Fatalf("bigNumber(47) = %q", got)
	}
}

func TestViewShowsAdjustment(t *testing.T) {
	t.Parallel()
	m := New(newRoster("20240103"), Options{})
	next, _ := m.Update(stateMsg{st: roster.State{Index1: 4, Index2: 5, LastUpdate: "20240103", Origin1: 2, Origin2: 3}})
	v := next.(Model).View()
	if !strings.Contains(v, "2024-01-03") || !strings.Contains(v, "adjusted from #3/#4") {
		t.Fatalf("view = %q", v)
	}
}
