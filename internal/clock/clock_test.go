package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSystemUsesLocation(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+8", 8*3600)
	// 20:00 UTC on a Friday is already Saturday at UTC+8.
	at := time.Date(2024, 1, 5, 20, 0, 0, 0, time.UTC)
	got := System{Loc: loc, Now: func() time.Time { return at }}.Today(context.Background())
	if got.Weekday() != time.Saturday || got.Format("20060102") != "20240106" {
		t.Fatalf("got %v", got)
	}
}

func TestNTPFirstSuccessWins(t *testing.T) {
	t.Parallel()
	want := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	var asked []string
	p := NTP{
		Servers: []string{"a", "b", "c"},
		Query: func(_ context.Context, server string, _ time.Duration) (time.Time, error) {
			asked = append(asked, server)
			if server == "a" {
				return time.Time{}, errors.New("timeout")
			}
			return want, nil
		},
	}
	got := p.Today(context.Background())
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(asked) != 2 {
		t.Fatalf("asked %v, want a then b", asked)
	}
}

func TestNTPFallsBack(t *testing.T) {
	t.Parallel()
	fallback := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	p := NTP{
		Servers:  []string{"x"},
		Fallback: Fixed(fallback),
		Query: func(context.Context, string, time.Duration) (time.Time, error) {
			return time.Time{}, errors.New("unreachable")
		},
	}
	if got := p.Today(context.Background()); !got.Equal(fallback) {
		t.Fatalf("got %v, want fallback %v", got, fallback)
	}
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()
	if loc, err := LoadLocation(""); err != nil || loc != time.Local {
		t.Fatalf("empty -> %v, %v", loc, err)
	}
	if loc, err := LoadLocation("UTC"); err != nil || loc.String() != "UTC" {
		t.Fatalf("UTC -> %v, %v", loc, err)
	}
	if _, err := LoadLocation("Mars/Olympus"); err == nil {
		t.Fatal("expected error")
	}
}
