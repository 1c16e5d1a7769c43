package presence

import (
	"context"
	"time"

	"dutyroster/internal/eventbus"
	logx "dutyroster/pkg/logx"
)

// EventChanged carries a Change when the visible state flips.
const EventChanged = "presence.changed"

type Change struct {
	Visible    bool
	Fullscreen bool
	Manual     bool
}

// Watcher polls a Signal into a Visibility.
type Watcher struct {
	sig  Signal
	vis  *Visibility
	poll time.Duration
	bus  eventbus.Bus
	log  logx.Logger
}

func NewWatcher(sig Signal, vis *Visibility, poll time.Duration, bus eventbus.Bus, log logx.Logger) *Watcher {
	if sig == nil {
		sig = Never
	}
	if vis == nil {
		vis = NewVisibility()
	}
	if poll <= 0 {
		poll = 1500 * time.Millisecond
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{sig: sig, vis: vis, poll: poll, bus: bus, log: log}
}

func (w *Watcher) Visibility() *Visibility { return w.vis }

// Poll takes one reading. Signal errors count as "not active".
func (w *Watcher) Poll(ctx context.Context) (Change, bool) {
	active, err := w.sig.FullscreenActive(ctx)
	if err != nil {
		w.log.Debug("presence signal failed", logx.Err(err))
		active = false
	}
	visible, changed := w.vis.Observe(active)
	c := Change{Visible: visible, Fullscreen: active}
	if changed {
		w.publish(c)
	}
	return c, changed
}

// Toggle applies the manual show/hide choice.
func (w *Watcher) Toggle() (Change, bool) {
	visible, changed := w.vis.Toggle()
	c := Change{Visible: visible, Manual: true}
	if changed {
		w.publish(c)
	}
	return c, changed
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.poll)
	defer t.Stop()
	w.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.Poll(ctx)
		}
	}
}

func (w *Watcher) publish(c Change) {
	w.log.Info("visibility changed", logx.Bool("visible", c.Visible), logx.Bool("fullscreen", c.Fullscreen), logx.Bool("manual", c.Manual))
	if w.bus != nil {
		w.bus.Publish(eventbus.Event{Type: EventChanged, Data: c})
	}
}
