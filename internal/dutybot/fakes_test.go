package dutybot

import (
	"context"
	"sync"

	"dutyroster/internal/roster"
	kit "dutyroster/internal/transport"
)

type sent struct {
	To   kit.ChatTarget
	Text string
	Opt  *kit.SendOptions
}

type fakeAdapter struct {
	mu       sync.Mutex
	sent     []sent
	edits    []string
	answers  []string
	menu     []kit.BotCommand
	notified chan struct{}
}

func newFakeAdapter() *fakeAdapter { return &fakeAdapter{notified: make(chan struct{}, 64)} }

func (f *fakeAdapter) signal() {
	select {
	case f.notified <- struct{}{}:
	default:
	}
}

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	f.sent = append(f.sent, sent{To: to, Text: text, Opt: opt})
	n := len(f.sent)
	f.mu.Unlock()
	f.signal()
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: n}, nil
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) EditText(_ context.Context, _ kit.MessageRef, text string, _ *kit.SendOptions) error {
	f.mu.Lock()
	f.edits = append(f.edits, text)
	f.mu.Unlock()
	f.signal()
	return nil
}

func (f *fakeAdapter) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	f.answers = append(f.answers, text)
	f.mu.Unlock()
	f.signal()
	return nil
}

func (f *fakeAdapter) UpdateMenuCommands(_ context.Context, cmds []kit.BotCommand) error {
	f.mu.Lock()
	f.menu = cmds
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) snapshot() (sends []sent, edits, answers []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...), append([]string(nil), f.edits...), append([]string(nil), f.answers...)
}

// fakeRoster drives a real Engine without a Host goroutine.
type fakeRoster struct {
	mu     sync.Mutex
	eng    *roster.Engine
	actors []string
}

func newFakeRoster(st roster.State) *fakeRoster {
	return &fakeRoster{eng: roster.NewEngine(st, roster.Options{}, nil)}
}

func (f *fakeRoster) record(ctx context.Context) {
	f.actors = append(f.actors, roster.ActorFrom(ctx))
}

func (f *fakeRoster) Current(context.Context) (roster.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eng.State(), nil
}

func (f *fakeRoster) Check(ctx context.Context) (roster.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx)
	return roster.Result{State: f.eng.State(), Date: "20240106"}, nil
}

func (f *fakeRoster) op(ctx context.Context, fn func(*roster.Engine, context.Context) error) (roster.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx)
	before := f.eng.State()
	if err := fn(f.eng, ctx); err != nil {
		return roster.Result{State: before}, err
	}
	after := f.eng.State()
	return roster.Result{State: after, Changed: after != before, Collision: after.Collides()}, nil
}

func (f *fakeRoster) Next(ctx context.Context) (roster.Result, error) {
	return f.op(ctx, (*roster.Engine).AdvanceManually)
}

func (f *fakeRoster) Prev(ctx context.Context) (roster.Result, error) {
	return f.op(ctx, (*roster.Engine).RewindManually)
}

func (f *fakeRoster) Restore(ctx context.Context) (roster.Result, error) {
	return f.op(ctx, (*roster.Engine).RestoreToOrigin)
}
