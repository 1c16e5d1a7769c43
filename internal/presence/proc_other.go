//go:build !linux

package presence

func newProcessSignal([]string) Signal { return Never }
