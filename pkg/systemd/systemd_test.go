package systemd

import (
	"context"
	"testing"

	logx "dutyroster/pkg/logx"
)

// Outside systemd NOTIFY_SOCKET is unset and every call is a no-op.
func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")
	if sent, err := Ready(); sent || err != nil {
		t.Fatalf("Ready = %v, %v", sent, err)
	}
	if sent, err := Stopping(); sent || err != nil {
		t.Fatalf("Stopping = %v, %v", sent, err)
	}
	if err := Watchdog(context.Background(), nil, logx.Nop()); err != nil {
		t.Fatalf("Watchdog = %v", err)
	}
}
