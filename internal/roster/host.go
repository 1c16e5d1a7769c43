package roster

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"dutyroster/internal/eventbus"
	logx "dutyroster/pkg/logx"
)

// Event types published by Host.
const (
	EventRotated  = "duty.rotated"  // automatic daily rotation
	EventAdjusted = "duty.adjusted" // manual next/prev/restore
)

// Actions recorded in Change.Action.
const (
	ActionCheck   = "check"
	ActionNext    = "next"
	ActionPrev    = "prev"
	ActionRestore = "restore"
)

var ErrHostStopped = errors.New("roster host stopped")

// DateSource supplies "today". clock.Provider satisfies it.
type DateSource interface {
	Today(ctx context.Context) time.Time
}

// Change describes one applied mutation.
type Change struct {
	Action string    `json:"action"`
	Actor  string    `json:"actor,omitempty"`
	Before State     `json:"before"`
	After  State     `json:"after"`
	Date   string    `json:"date,omitempty"`
	At     time.Time `json:"at"`
}

// Result is returned by every Host operation.
type Result struct {
	State     State
	Changed   bool
	Collision bool
	Date      string
}

type actorKey struct{}

// WithActor tags ctx with who triggered an operation (audit only).
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor set by WithActor, or "system".
func ActorFrom(ctx context.Context) string {
	s, _ := ctx.Value(actorKey{}).(string)
	if s == "" {
		return "system"
	}
	return s
}

type request struct {
	ctx   context.Context
	fn    func(ctx context.Context, e *Engine) (Result, error)
	reply chan response
}

type response struct {
	res Result
	err error
}

// Host owns an Engine on a single goroutine. Callers on any goroutine submit
// operations which run one at a time, in arrival order.
type Host struct {
	eng   *Engine
	dates DateSource
	bus   eventbus.Bus
	log   logx.Logger

	hookMu sync.Mutex
	hooks  []func(ctx context.Context, c Change)

	reqs chan request
	done chan struct{}
	once sync.Once
}

func NewHost(eng *Engine, dates DateSource, bus eventbus.Bus, log logx.Logger) *Host {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Host{
		eng:   eng,
		dates: dates,
		bus:   bus,
		log:   log,
		reqs:  make(chan request),
		done:  make(chan struct{}),
	}
}

// OnChange registers a hook invoked on the host goroutine after every
// successful mutation. Hooks must not call back into the Host.
func (h *Host) OnChange(fn func(ctx context.Context, c Change)) {
	if fn == nil {
		return
	}
	h.hookMu.Lock()
	h.hooks = append(h.hooks, fn)
	h.hookMu.Unlock()
}

// Run processes requests until ctx is canceled, then flushes the state.
func (h *Host) Run(ctx context.Context) error {
	defer h.once.Do(func() { close(h.done) })
	h.log.Info("roster host started", logx.String("state", h.eng.State().String()))
	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := h.eng.Flush(fctx)
			cancel()
			if err != nil {
				h.log.Warn("final state flush failed", logx.Err(err))
			} else {
				h.log.Info("roster host stopped", logx.String("state", h.eng.State().String()))
			}
			return nil
		case r := <-h.reqs:
			h.log.Trace("roster request", logx.String("actor", ActorFrom(r.ctx)))
			res, err := r.fn(r.ctx, h.eng)
			r.reply <- response{res: res, err: err}
		}
	}
}

func (h *Host) submit(ctx context.Context, fn func(ctx context.Context, e *Engine) (Result, error)) (Result, error) {
	r := request{ctx: ctx, fn: fn, reply: make(chan response, 1)}
	select {
	case h.reqs <- r:
	case <-h.done:
		return Result{}, ErrHostStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	resp := <-r.reply
	return resp.res, resp.err
}

// Check runs the daily rotation rule against today's date.
func (h *Host) Check(ctx context.Context) (Result, error) {
	today := time.Now()
	if h.dates != nil {
		today = h.dates.Today(ctx)
	}
	key := DateKey(today)
	return h.submit(ctx, func(ctx context.Context, e *Engine) (Result, error) {
		before := e.State()
		changed, err := e.AdvanceIfDue(ctx, today)
		if err != nil {
			return Result{State: before, Date: key}, err
		}
		after := e.State()
		if changed {
			h.emit(ctx, EventRotated, Change{Action: ActionCheck, Actor: ActorFrom(ctx), Before: before, After: after, Date: key})
		} else {
			h.log.Debug("rotation not due", logx.String("date", key), logx.Bool("workday", e.IsWorkday(today)), logx.String("last_update", after.LastUpdate))
		}
		return Result{State: after, Changed: changed, Date: key}, nil
	})
}

// Next applies a manual forward step.
func (h *Host) Next(ctx context.Context) (Result, error) {
	return h.manual(ctx, ActionNext, (*Engine).AdvanceManually)
}

// Prev applies a manual rewind.
func (h *Host) Prev(ctx context.Context) (Result, error) {
	return h.manual(ctx, ActionPrev, (*Engine).RewindManually)
}

// Restore resets the pair to the last automatic rotation.
func (h *Host) Restore(ctx context.Context) (Result, error) {
	return h.manual(ctx, ActionRestore, (*Engine).RestoreToOrigin)
}

// Current returns the state without mutating it.
func (h *Host) Current(ctx context.Context) (State, error) {
	res, err := h.submit(ctx, func(ctx context.Context, e *Engine) (Result, error) {
		return Result{State: e.State()}, nil
	})
	return res.State, err
}

func (h *Host) manual(ctx context.Context, action string, op func(*Engine, context.Context) error) (Result, error) {
	return h.submit(ctx, func(ctx context.Context, e *Engine) (Result, error) {
		before := e.State()
		if err := op(e, ctx); err != nil {
			return Result{State: before}, err
		}
		after := e.State()
		res := Result{State: after, Changed: after != before, Collision: after.Collides()}
		if res.Collision {
			h.log.Warn("manual adjustment left both indices on the same slot",
				logx.String("action", action), logx.Int("slot", after.Index1+1))
		}
		if !res.Changed {
			h.log.Debug("manual adjustment changed nothing", logx.String("action", action))
			return res, nil
		}
		h.emit(ctx, EventAdjusted, Change{Action: action, Actor: ActorFrom(ctx), Before: before, After: after, Date: after.LastUpdate})
		return res, nil
	})
}

func (h *Host) emit(ctx context.Context, typ string, c Change) {
	c.At = time.Now()
	a1, a2 := c.After.Pair()
	h.log.Info("duty changed", logx.String("action", c.Action), logx.String("actor", c.Actor), logx.Int("duty1", a1), logx.Int("duty2", a2))

	h.hookMu.Lock()
	hooks := slices.Clone(h.hooks)
	h.hookMu.Unlock()
	for _, fn := range hooks {
		fn(ctx, c)
	}
	if h.bus != nil {
		h.bus.Publish(eventbus.Event{Type: typ, Time: c.At, Data: c})
	}
}
