package roster

import (
	"fmt"
	"time"
)

const (
	// DefaultSlots is the number of duty slots in the roster.
	DefaultSlots = 47
	// DefaultStep is how many slots both indices move per rotation.
	DefaultStep = 2

	// DateLayout is the daily identity string stored as LastUpdate.
	DateLayout = "20060102"
)

// State is the persisted rotation state. Indices are zero-based.
//
// Origin1/Origin2 hold the pair produced by the most recent automatic
// rotation and act as the restore point after manual adjustments.
type State struct {
	Index1     int    `json:"index1"`
	Index2     int    `json:"index2"`
	LastUpdate string `json:"last_update"`
	Origin1    int    `json:"origin1"`
	Origin2    int    `json:"origin2"`
}

// DefaultState is used when nothing has been persisted yet.
func DefaultState() State {
	return State{Index1: 0, Index2: 1, Origin1: 0, Origin2: 1}
}

// Collides reports whether both indices point at the same slot.
func (s State) Collides() bool { return s.Index1 == s.Index2 }

// Pair returns the 1-based display values.
func (s State) Pair() (int, int) { return s.Index1 + 1, s.Index2 + 1 }

// Normalize folds every index into [0, slots). Negative values wrap.
func (s State) Normalize(slots int) State {
	if slots <= 0 {
		slots = DefaultSlots
	}
	s.Index1 = wrap(s.Index1, slots)
	s.Index2 = wrap(s.Index2, slots)
	s.Origin1 = wrap(s.Origin1, slots)
	s.Origin2 = wrap(s.Origin2, slots)
	return s
}

// Validate checks the state against a roster of the given size.
// It does not modify anything; callers decide whether to warn or refuse.
func (s State) Validate(slots int) error {
	if slots <= 0 {
		slots = DefaultSlots
	}
	fields := []struct {
		name string
		v    int
	}{
		{"index1", s.Index1},
		{"index2", s.Index2},
		{"origin1", s.Origin1},
		{"origin2", s.Origin2},
	}
	for _, f := range fields {
		if f.v < 0 || f.v >= slots {
			return fmt.Errorf("%s=%d out of range [0,%d)", f.name, f.v, slots)
		}
	}
	if s.Collides() {
		return fmt.Errorf("index1 and index2 both point at slot %d", s.Index1+1)
	}
	if s.LastUpdate != "" {
		if _, err := time.Parse(DateLayout, s.LastUpdate); err != nil {
			return fmt.Errorf("last update %q is not yyyyMMdd", s.LastUpdate)
		}
	}
	return nil
}

func (s State) String() string {
	a, b := s.Pair()
	last := s.LastUpdate
	if last == "" {
		last = "never"
	}
	return fmt.Sprintf("#%d & #%d (last rotation %s)", a, b, last)
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// DateKey formats t as the daily identity string (yyyyMMdd) in t's location.
func DateKey(t time.Time) string { return t.Format(DateLayout) }
