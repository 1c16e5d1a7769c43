package dutybot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"dutyroster/internal/roster"
	"dutyroster/internal/scheduler"
	"dutyroster/internal/storage"
	kit "dutyroster/internal/transport"
	logx "dutyroster/pkg/logx"
)

// Roster is the slice of roster.Host the bot drives.
type Roster interface {
	Current(ctx context.Context) (roster.State, error)
	Check(ctx context.Context) (roster.Result, error)
	Next(ctx context.Context) (roster.Result, error)
	Prev(ctx context.Context) (roster.Result, error)
	Restore(ctx context.Context) (roster.Result, error)
}

// AuditReader lists recent roster changes.
type AuditReader interface {
	RecentAudit(ctx context.Context, n int) ([]storage.AuditEntry, error)
}

// Schedules reports scheduler state for /status.
type Schedules interface {
	Snapshot() scheduler.Snapshot
}

type Deps struct {
	Roster    Roster
	Audit     AuditReader // optional
	Schedules Schedules   // optional
	Adapter   kit.Adapter
	Owners    []int64
	Log       logx.Logger
}

// Bot wires roster operations to chat commands.
type Bot struct {
	*Router
	deps    Deps
	started time.Time
}

const htmlMode = "HTML"

func New(d Deps) *Bot {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	b := &Bot{Router: NewRouter(d.Adapter, d.Owners, d.Log), deps: d, started: time.Now()}
	b.Register(b.commands(), b.callbackRoutes())
	return b
}

func (b *Bot) commands() []Command {
	return []Command{
		{Name: "duty", Aliases: []string{"start", "today"}, Description: "show who is on duty", Handle: b.handleDuty},
		{Name: "next", Description: "move to the next pair", Access: AccessOwnerOnly, Handle: b.mutation(roster.ActionNext)},
		{Name: "prev", Description: "move back one pair", Access: AccessOwnerOnly, Handle: b.mutation(roster.ActionPrev)},
		{Name: "restore", Description: "return to the pair of the last rotation", Access: AccessOwnerOnly, Handle: b.mutation(roster.ActionRestore)},
		{Name: "check", Description: "run the daily rotation check now", Access: AccessOwnerOnly, Handle: b.mutation(roster.ActionCheck)},
		{Name: "history", Description: "recent changes", Usage: "/history [n]", Handle: b.handleHistory},
		{Name: "status", Description: "bot and scheduler status", Handle: b.handleStatus},
		{Name: "help", Aliases: []string{"h"}, Description: "list commands", Handle: b.handleHelp},
	}
}

func (b *Bot) callbackRoutes() []CallbackRoute {
	var out []CallbackRoute
	for _, a := range []string{roster.ActionNext, roster.ActionPrev, roster.ActionRestore, roster.ActionCheck} {
		out = append(out, CallbackRoute{Action: a, Access: AccessOwnerOnly, Handle: b.buttonMutation(a)})
	}
	out = append(out, CallbackRoute{Action: "refresh", Access: AccessEveryone, Handle: b.handleRefresh})
	return out
}

func (b *Bot) reply(ctx context.Context, req *Request, text string, opt *kit.SendOptions) error {
	if opt == nil {
		opt = &kit.SendOptions{ParseMode: htmlMode, DisablePreview: true}
	}
	_, err := b.deps.Adapter.SendText(ctx, req.Chat, text, opt)
	return err
}

func (b *Bot) keyboard() [][]kit.Button {
	return [][]kit.Button{
		{
			{Text: "◀ Prev", Data: b.CallbackData(roster.ActionPrev)},
			{Text: "Next ▶", Data: b.CallbackData(roster.ActionNext)},
		},
		{
			{Text: "↺ Restore", Data: b.CallbackData(roster.ActionRestore)},
			{Text: "⟳ Refresh", Data: b.CallbackData("refresh")},
		},
	}
}

func (b *Bot) dutyOptions() *kit.SendOptions {
	return &kit.SendOptions{ParseMode: htmlMode, DisablePreview: true, Buttons: b.keyboard()}
}

func (b *Bot) handleDuty(ctx context.Context, req *Request) error {
	st, err := b.deps.Roster.Current(ctx)
	if err != nil {
		return b.fail(ctx, req, err)
	}
	return b.reply(ctx, req, FormatDuty(st), b.dutyOptions())
}

func (b *Bot) run(ctx context.Context, action string) (roster.Result, error) {
	switch action {
	case roster.ActionNext:
		return b.deps.Roster.Next(ctx)
	case roster.ActionPrev:
		return b.deps.Roster.Prev(ctx)
	case roster.ActionRestore:
		return b.deps.Roster.Restore(ctx)
	case roster.ActionCheck:
		return b.deps.Roster.Check(ctx)
	}
	return roster.Result{}, fmt.Errorf("unknown action %q", action)
}

func (b *Bot) mutation(action string) HandlerFunc {
	return func(ctx context.Context, req *Request) error {
		res, err := b.run(roster.WithActor(ctx, req.Actor()), action)
		if err != nil {
			return b.fail(ctx, req, err)
		}
		return b.reply(ctx, req, FormatResult(action, res), b.dutyOptions())
	}
}

// buttonMutation edits the message that carried the button.
func (b *Bot) buttonMutation(action string) HandlerFunc {
	return func(ctx context.Context, req *Request) error {
		res, err := b.run(roster.WithActor(ctx, req.Actor()), action)
		if err != nil {
			return b.fail(ctx, req, err)
		}
		return b.edit(ctx, req, FormatResult(action, res))
	}
}

func (b *Bot) handleRefresh(ctx context.Context, req *Request) error {
	st, err := b.deps.Roster.Current(ctx)
	if err != nil {
		return err
	}
	return b.edit(ctx, req, FormatDuty(st))
}

func (b *Bot) edit(ctx context.Context, req *Request, text string) error {
	ref := kit.MessageRef{ChatID: req.Chat.ChatID, ThreadID: req.Chat.ThreadID, MessageID: req.MessageID}
	return b.deps.Adapter.EditText(ctx, ref, text, b.dutyOptions())
}

func (b *Bot) handleHistory(ctx context.Context, req *Request) error {
	if b.deps.Audit == nil {
		return b.reply(ctx, req, "history is not available", nil)
	}
	n := 10
	if len(req.Args) > 0 {
		if v, err := strconv.Atoi(req.Args[0]); err == nil && v > 0 {
			n = min(v, 50)
		}
	}
	entries, err := b.deps.Audit.RecentAudit(ctx, n)
	if err != nil {
		return b.fail(ctx, req, err)
	}
	return b.reply(ctx, req, FormatHistory(entries), nil)
}

func (b *Bot) handleStatus(ctx context.Context, req *Request) error {
	st, err := b.deps.Roster.Current(ctx)
	if err != nil {
		return b.fail(ctx, req, err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Status</b>\nuptime: %s\n", time.Since(b.started).Truncate(time.Second))
	fmt.Fprintf(&sb, "state: <code>%s</code>\n", html.EscapeString(st.String()))
	if b.deps.Schedules != nil {
		snap := b.deps.Schedules.Snapshot()
		fmt.Fprintf(&sb, "scheduler: enabled=%t running=%t tz=%s\n", snap.Enabled, snap.Running, html.EscapeString(snap.Timezone))
		for _, s := range snap.Schedules {
			fmt.Fprintf(&sb, "• <code>%s</code> %s", html.EscapeString(s.Name), html.EscapeString(s.Spec))
			if !s.Next.IsZero() {
				fmt.Fprintf(&sb, " next %s", s.Next.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(&sb, " runs=%d fails=%d\n", s.Runs, s.Failures)
		}
	}
	return b.reply(ctx, req, strings.TrimRight(sb.String(), "\n"), nil)
}

func (b *Bot) handleHelp(ctx context.Context, req *Request) error {
	lines := []string{"<b>Commands</b>"}
	for _, c := range b.Commands() {
		line := "/" + c.Name + " - " + html.EscapeString(c.Description)
		if c.Access == AccessOwnerOnly {
			line += " 🔒"
		}
		lines = append(lines, line)
	}
	return b.reply(ctx, req, strings.Join(lines, "\n"), nil)
}

func (b *Bot) fail(ctx context.Context, req *Request, err error) error {
	_ = b.reply(ctx, req, "⚠️ "+html.EscapeString(err.Error()), nil)
	return err
}
