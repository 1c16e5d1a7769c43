package presence

import "context"

// Signal reports whether full-screen content currently owns the display.
type Signal interface {
	FullscreenActive(ctx context.Context) (bool, error)
}

type SignalFunc func(ctx context.Context) (bool, error)

func (f SignalFunc) FullscreenActive(ctx context.Context) (bool, error) { return f(ctx) }

// Never is a Signal that is never active.
var Never Signal = SignalFunc(func(context.Context) (bool, error) { return false, nil })

// NewProcessSignal returns the platform signal matching running processes
// against patterns. Patterns are lower-cased substrings of the command line.
func NewProcessSignal(patterns []string) Signal {
	return newProcessSignal(patterns)
}
