package dutybot

import (
	"context"
	"errors"
	"sync"

	"dutyroster/internal/eventbus"
	"dutyroster/internal/notifier"
	"dutyroster/internal/roster"
	kit "dutyroster/internal/transport"
	logx "dutyroster/pkg/logx"
)

// Notifier queues outbound notifications. *notifier.Service satisfies it.
type Notifier interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// Announcer posts automatic rotations to a chat.
type Announcer struct {
	bus    eventbus.Bus
	notify Notifier
	log    logx.Logger

	mu     sync.RWMutex
	target kit.ChatTarget
}

func NewAnnouncer(bus eventbus.Bus, n Notifier, target kit.ChatTarget, log logx.Logger) *Announcer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Announcer{bus: bus, notify: n, target: target, log: log}
}

// SetTarget changes the destination chat. A zero ChatID mutes announcements.
func (a *Announcer) SetTarget(t kit.ChatTarget) {
	a.mu.Lock()
	a.target = t
	a.mu.Unlock()
}

func (a *Announcer) Target() kit.ChatTarget {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.target
}

// Run forwards rotation events until ctx is done.
func (a *Announcer) Run(ctx context.Context) error {
	if a.bus == nil || a.notify == nil {
		<-ctx.Done()
		return nil
	}
	sub, unsub := a.bus.Subscribe(16)
	defer unsub()
	events := eventbus.Filter(sub, roster.EventRotated)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c, ok := ev.Data.(roster.Change)
			target := a.Target()
			if !ok || target.ChatID == 0 {
				continue
			}
			err := a.notify.Notify(ctx, kit.Notification{
				Channel:  "telegram",
				Priority: 5,
				Target:   target,
				Text:     FormatAnnouncement(c),
			})
			switch {
			case err == nil:
			case errors.Is(err, notifier.ErrDisabled):
				a.log.Debug("announcement skipped; notifier disabled")
			default:
				a.log.Warn("announcement not queued", logx.String("date", c.Date), logx.Err(err))
			}
		}
	}
}
