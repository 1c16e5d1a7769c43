package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"dutyroster/internal/eventbus"
	logx "dutyroster/pkg/logx"
)

func TestVisibilityTransitions(t *testing.T) {
	t.Parallel()
	v := NewVisibility()
	steps := []struct {
		name    string
		apply   func() (bool, bool)
		visible bool
		changed bool
	}{
		{"idle", func() (bool, bool) { return v.Observe(false) }, true, false},
		{"slideshow starts", func() (bool, bool) { return v.Observe(true) }, false, true},
		{"still running", func() (bool, bool) { return v.Observe(true) }, false, false},
		{"user hides", v.Toggle, false, false},
		{"slideshow ends", func() (bool, bool) { return v.Observe(false) }, false, false},
		{"user shows", v.Toggle, true, true},
	}
	for _, s := range steps {
		visible, changed := s.apply()
		if visible != s.visible || changed != s.changed {
			t.Fatalf("%s: visible=%v changed=%v, want %v/%v", s.name, visible, changed, s.visible, s.changed)
		}
	}
}

func TestWatcherPublishesOnce(t *testing.T) {
	t.Parallel()
	readings := []bool{false, true, true, false}
	i := 0
	sig := SignalFunc(func(context.Context) (bool, error) {
		r := readings[i%len(readings)]
		i++
		return r, nil
	})
	bus := eventbus.New()
	sub, unsub := bus.Subscribe(8)
	defer unsub()
	w := NewWatcher(sig, nil, time.Millisecond, bus, logx.Nop())

	for range readings {
		w.Poll(context.Background())
	}
	var got []bool
	for len(sub) > 0 {
		e := <-sub
		if e.Type != EventChanged {
			t.Fatalf("type = %s", e.Type)
		}
		got = append(got, e.Data.(Change).Visible)
	}
	if len(got) != 2 || got[0] || !got[1] {
		t.Fatalf("published = %v, want [false true]", got)
	}
}

func TestWatcherSignalErrorShows(t *testing.T) {
	t.Parallel()
	sig := SignalFunc(func(context.Context) (bool, error) { return true, errors.New("boom") })
	w := NewWatcher(sig, nil, 0, nil, logx.Nop())
	if c, _ := w.Poll(context.Background()); !c.Visible {
		t.Fatalf("change = %+v, want visible", c)
	}
}

func TestNormalizePatterns(t *testing.T) {
	t.Parallel()
	got := normalizePatterns([]string{"  Soffice.bin --show ", "", "WPP"})
	if len(got) != 2 || got[0] != "soffice.bin --show" || got[1] != "wpp" {
		t.Fatalf("patterns = %q", got)
	}
}
