package roster

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Saver persists state after every mutation.
type Saver interface {
	Save(ctx context.Context, st State) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, st State) error

func (f SaverFunc) Save(ctx context.Context, st State) error { return f(ctx, st) }

// Options tunes the roster geometry. Zero values fall back to the defaults.
type Options struct {
	Slots    int
	Step     int
	Workdays []time.Weekday
}

// Engine applies the rotation rules to a State.
//
// It is synchronous and not safe for concurrent use: callers serialise access
// (see Host, or a UI event loop).
type Engine struct {
	st       State
	slots    int
	step     int
	workdays map[time.Weekday]bool
	saver    Saver
}

// DefaultWorkdays is Monday through Friday.
var DefaultWorkdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// NewEngine wraps an initial state. The state is normalised into range but an
// equal pair is left as loaded.
func NewEngine(st State, opt Options, saver Saver) *Engine {
	if opt.Slots <= 1 {
		opt.Slots = DefaultSlots
	}
	if opt.Step <= 0 {
		opt.Step = DefaultStep
	}
	days := opt.Workdays
	if len(days) == 0 {
		days = DefaultWorkdays
	}
	wd := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		wd[d] = true
	}
	return &Engine{
		st:       st.Normalize(opt.Slots),
		slots:    opt.Slots,
		step:     opt.Step,
		workdays: wd,
		saver:    saver,
	}
}

// State returns a copy of the current state.
func (e *Engine) State() State { return e.st }

// Slots returns the roster size.
func (e *Engine) Slots() int { return e.slots }

// CurrentPair returns the 1-based slot numbers on duty.
func (e *Engine) CurrentPair() (int, int) { return e.st.Pair() }

// IsWorkday reports whether today triggers an automatic rotation.
func (e *Engine) IsWorkday(today time.Time) bool { return e.workdays[today.Weekday()] }

// AdvanceIfDue rotates once per workday. It returns false without touching
// the state on non-workdays or when today was already handled.
func (e *Engine) AdvanceIfDue(ctx context.Context, today time.Time) (bool, error) {
	if !e.IsWorkday(today) {
		return false, nil
	}
	key := DateKey(today)
	if e.st.LastUpdate == key {
		return false, nil
	}
	next := e.stepForward(e.st)
	next.LastUpdate = key
	next.Origin1, next.Origin2 = next.Index1, next.Index2
	if err := e.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// AdvanceManually applies the forward step without touching LastUpdate or the origin.
func (e *Engine) AdvanceManually(ctx context.Context) error {
	return e.commit(ctx, e.stepForward(e.st))
}

// RewindManually moves both indices back one step. Unlike the forward step it
// applies no collision correction; Collides() on the result tells the caller.
func (e *Engine) RewindManually(ctx context.Context) error {
	next := e.st
	next.Index1 = wrap(next.Index1-e.step, e.slots)
	next.Index2 = wrap(next.Index2-e.step, e.slots)
	return e.commit(ctx, next)
}

// RestoreToOrigin resets the indices to the last automatic rotation.
func (e *Engine) RestoreToOrigin(ctx context.Context) error {
	next := e.st
	next.Index1, next.Index2 = next.Origin1, next.Origin2
	return e.commit(ctx, next)
}

// Flush persists the current state unchanged (used at shutdown).
func (e *Engine) Flush(ctx context.Context) error { return e.commit(ctx, e.st) }

func (e *Engine) stepForward(st State) State {
	st.Index1 = wrap(st.Index1+e.step, e.slots)
	st.Index2 = wrap(st.Index2+e.step, e.slots)
	for st.Index1 == st.Index2 {
		st.Index2 = wrap(st.Index2+1, e.slots)
	}
	return st
}

// commit swaps in the new state only after it was saved, so a failed write
// leaves memory and disk agreeing.
func (e *Engine) commit(ctx context.Context, next State) error {
	if e.saver != nil {
		if err := e.saver.Save(ctx, next); err != nil {
			return fmt.Errorf("save roster state: %w", err)
		}
	}
	e.st = next
	return nil
}

// ParseWeekdays maps names like "mon", "Tuesday" or ISO numbers "1".."7" onto weekdays.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, raw := range names {
		n := strings.ToLower(strings.TrimSpace(raw))
		if n == "" {
			continue
		}
		d, ok := weekdayNames[n]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", raw)
		}
		out = append(out, d)
	}
	return out, nil
}

// ISO 8601 numbering: 1 = Monday ... 7 = Sunday.
var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday, "1": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "2": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "3": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "4": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "5": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "6": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday, "7": time.Sunday,
}
