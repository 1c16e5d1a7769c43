package roster

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"dutyroster/internal/eventbus"
	logx "dutyroster/pkg/logx"
)

type fixedDates struct{ t time.Time }

func (f fixedDates) Today(context.Context) time.Time { return f.t }

func startHost(t *testing.T, st State, today time.Time) (*Host, eventbus.Bus, func()) {
	t.Helper()
	bus := eventbus.New()
	h := NewHost(NewEngine(st, Options{}, nil), fixedDates{t: today}, bus, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
	return h, bus, func() {
		cancel()
		<-done
	}
}

func TestHostCheckPublishesRotation(t *testing.T) {
	h, bus, stop := startHost(t, DefaultState(), day(t, "20240103"))
	defer stop()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	var hooked []Change
	h.OnChange(func(_ context.Context, c Change) { hooked = append(hooked, c) })

	ctx := WithActor(context.Background(), "test")
	res, err := h.Check(ctx)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Changed || res.Date != "20240103" || res.State.Index1 != 2 {
		t.Fatalf("result = %+v", res)
	}
	again, err := h.Check(ctx)
	if err != nil || again.Changed {
		t.Fatalf("second check = %+v, %v", again, err)
	}

	select {
	case e := <-events:
		if e.Type != EventRotated {
			t.Fatalf("event type = %s", e.Type)
		}
		c, ok := e.Data.(Change)
		if !ok || c.Actor != "test" || c.After.Index2 != 3 || c.Before.Index2 != 1 {
			t.Fatalf("event data = %+v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no rotation event")
	}
	if len(hooked) != 1 || hooked[0].Action != ActionCheck {
		t.Fatalf("hooks = %+v", hooked)
	}
}

func TestHostManualOpsSerialised(t *testing.T) {
	h, _, stop := startHost(t, DefaultState(), day(t, "20240106"))
	defer stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.Next(ctx); err != nil {
				t.Errorf("Next: %v", err)
			}
		}()
	}
	wg.Wait()

	st, err := h.Current(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// 20 steps of +2 from (0,1) is +40.
	if st.Index1 != 40 || st.Index2 != 41 {
		t.Fatalf("state = %+v", st)
	}
	res, err := h.Restore(ctx)
	if err != nil || res.State.Index1 != 0 || res.State.Index2 != 1 {
		t.Fatalf("restore = %+v, %v", res, err)
	}
}

func TestHostPrevReportsCollision(t *testing.T) {
	h, _, stop := startHost(t, State{Index1: 4, Index2: 4}, day(t, "20240106"))
	defer stop()
	res, err := h.Prev(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Collision || res.State.Index1 != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestHostStopped(t *testing.T) {
	h, _, stop := startHost(t, DefaultState(), day(t, "20240103"))
	stop()
	if _, err := h.Next(context.Background()); !errors.Is(err, ErrHostStopped) {
		t.Fatalf("err = %v, want ErrHostStopped", err)
	}
}

func TestHostFlushesOnStop(t *testing.T) {
	var mu sync.Mutex
	var saved []State
	saver := SaverFunc(func(_ context.Context, st State) error {
		mu.Lock()
		saved = append(saved, st)
		mu.Unlock()
		return nil
	})
	h := NewHost(NewEngine(DefaultState(), Options{}, saver), nil, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = h.Run(ctx); close(done) }()
	cancel()
	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(saved) != 1 || saved[0] != DefaultState() {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestHostNoopRestoreNotRecorded(t *testing.T) {
	h, bus, stop := startHost(t, DefaultState(), day(t, "20240106"))
	defer stop()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	var hooked []Change
	h.OnChange(func(_ context.Context, c Change) { hooked = append(hooked, c) })

	res, err := h.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Fatalf("restore at origin reported a change: %+v", res)
	}
	if len(hooked) != 0 {
		t.Fatalf("hooks = %+v, want none", hooked)
	}
	select {
	case e := <-events:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := h.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(hooked) != 1 || hooked[0].Action != ActionNext {
		t.Fatalf("hooks after next = %+v", hooked)
	}
}

func TestHostTracesRequests(t *testing.T) {
	var buf bytes.Buffer
	h := NewHost(NewEngine(DefaultState(), Options{}, nil), fixedDates{t: day(t, "20240106")}, nil, logx.New(&buf, "trace"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = h.Run(ctx); close(done) }()

	if _, err := h.Next(WithActor(context.Background(), "cli:bob")); err != nil {
		t.Fatal(err)
	}
	cancel()
	<-done
	out := buf.String()
	if !strings.Contains(out, "roster request") || !strings.Contains(out, "cli:bob") {
		t.Fatalf("trace output missing request line:\n%s", out)
	}
}
