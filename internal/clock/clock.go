// Package clock supplies "today" to the roster engine.
//
// The engine only needs a weekday and a stable daily key, so providers
// return a time.Time already converted into the configured location.
package clock

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider returns the current date/time in the roster's location.
type Provider interface {
	Today(ctx context.Context) time.Time
}

// System reads the local system clock.
type System struct {
	Loc *time.Location
	Now func() time.Time // overridable in tests
}

func (s System) Today(context.Context) time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now()
	if s.Loc != nil {
		t = t.In(s.Loc)
	}
	return t
}

// Fixed always returns the same instant. Handy for tests and `--date`.
type Fixed time.Time

func (f Fixed) Today(context.Context) time.Time { return time.Time(f) }

// LoadLocation resolves an IANA zone name; "" and "local" mean time.Local.
func LoadLocation(name string) (*time.Location, error) {
	n := strings.TrimSpace(name)
	if n == "" || strings.EqualFold(n, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(n)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}
