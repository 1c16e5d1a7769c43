package clock

import (
	"context"
	"time"

	"github.com/beevik/ntp"

	logx "dutyroster/pkg/logx"
)

// DefaultNTPServers is tried in order.
var DefaultNTPServers = []string{
	"cn.pool.ntp.org",
	"ntp.aliyun.com",
	"ntp1.aliyun.com",
	"time.google.com",
	"time.windows.com",
	"pool.ntp.org",
	"time.apple.com",
}

// QueryFunc asks one server for the current time.
type QueryFunc func(ctx context.Context, server string, timeout time.Duration) (time.Time, error)

// NTP asks network time servers for the date so a wrong local clock cannot
// trigger (or skip) a rotation. When every server fails it falls back to
// the system clock.
type NTP struct {
	Servers  []string
	Timeout  time.Duration
	Loc      *time.Location
	Fallback Provider
	Query    QueryFunc
	Log      logx.Logger
}

func (n NTP) Today(ctx context.Context) time.Time {
	log := n.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	servers := n.Servers
	if len(servers) == 0 {
		servers = DefaultNTPServers
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	query := n.Query
	if query == nil {
		query = queryNTP
	}

	for _, server := range servers {
		if ctx.Err() != nil {
			break
		}
		t, err := query(ctx, server, timeout)
		if err != nil {
			log.Warn("ntp query failed", logx.String("server", server), logx.Err(err))
			continue
		}
		if n.Loc != nil {
			t = t.In(n.Loc)
		}
		log.Debug("date from ntp", logx.String("server", server), logx.String("date", t.Format("2006-01-02")))
		return t
	}

	log.Warn("all ntp servers failed; using system date")
	fb := n.Fallback
	if fb == nil {
		fb = System{Loc: n.Loc}
	}
	return fb.Today(ctx)
}

func queryNTP(ctx context.Context, server string, timeout time.Duration) (time.Time, error) {
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < timeout {
			timeout = rem
		}
	}
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, err
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(resp.ClockOffset), nil
}
