// Package widget is the terminal duty widget: the current pair in large
// type, driven by keys and a periodic rotation check.
package widget

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"dutyroster/internal/presence"
	"dutyroster/internal/roster"
)

// Roster is the set of operations the widget drives. *roster.Host satisfies it.
type Roster interface {
	Current(ctx context.Context) (roster.State, error)
	Check(ctx context.Context) (roster.Result, error)
	Next(ctx context.Context) (roster.Result, error)
	Prev(ctx context.Context) (roster.Result, error)
	Restore(ctx context.Context) (roster.Result, error)
}

type Options struct {
	CheckEvery   time.Duration // 0 disables the periodic check
	StartupCheck bool
	Presence     *presence.Watcher // nil disables presence polling
	PresencePoll time.Duration
	Actor        string
	OpTimeout    time.Duration
}

type (
	resultMsg struct {
		action string
		res    roster.Result
		err    error
	}
	stateMsg struct {
		st  roster.State
		err error
	}
	checkTickMsg    struct{}
	presenceTickMsg struct{}
	presenceMsg     presence.Change
)

type Model struct {
	r    Roster
	opts Options
	keys keyMap
	help help.Model

	st      roster.State
	status  string
	err     error
	visible bool
	width   int
}

func New(r Roster, opts Options) Model {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 5 * time.Second
	}
	if opts.PresencePoll <= 0 {
		opts.PresencePoll = 1500 * time.Millisecond
	}
	if opts.Actor == "" {
		opts.Actor = "widget"
	}
	return Model{r: r, opts: opts, keys: defaultKeys(), help: help.New(), visible: true}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCmd()}
	if m.opts.StartupCheck {
		cmds = append(cmds, m.actionCmd(roster.ActionCheck))
	}
	if m.opts.CheckEvery > 0 {
		cmds = append(cmds, checkTick(m.opts.CheckEvery))
	}
	if m.opts.Presence != nil {
		cmds = append(cmds, presenceTick(m.opts.PresencePoll))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			return m, m.actionCmd(roster.ActionNext)
		case key.Matches(msg, m.keys.Prev):
			return m, m.actionCmd(roster.ActionPrev)
		case key.Matches(msg, m.keys.Restore):
			return m, m.actionCmd(roster.ActionRestore)
		case key.Matches(msg, m.keys.Check):
			return m, m.actionCmd(roster.ActionCheck)
		case key.Matches(msg, m.keys.Toggle):
			if m.opts.Presence != nil {
				c, _ := m.opts.Presence.Toggle()
				m.visible = c.Visible
			} else {
				m.visible = !m.visible
			}
			return m, nil
		}
		return m, nil

	case stateMsg:
		m.err = msg.err
		if msg.err == nil {
			m.st = msg.st
		}
		return m, nil

	case resultMsg:
		m.err = msg.err
		if msg.err != nil {
			m.status = msg.action + " failed"
			return m, nil
		}
		m.st = msg.res.State
		m.status = statusLine(msg.action, msg.res)
		return m, nil

	case checkTickMsg:
		return m, tea.Batch(m.actionCmd(roster.ActionCheck), checkTick(m.opts.CheckEvery))

	case presenceTickMsg:
		return m, tea.Batch(m.presenceCmd(), presenceTick(m.opts.PresencePoll))

	case presenceMsg:
		m.visible = msg.Visible
		return m, nil
	}
	return m, nil
}

func statusLine(action string, res roster.Result) string {
	switch {
	case action == roster.ActionCheck && res.Changed:
		return "updated"
	case action == roster.ActionCheck:
		return "already updated today or not a workday"
	case res.Collision:
		return action + ": both slots on the same person"
	}
	return action
}

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(roster.WithActor(context.Background(), m.opts.Actor), m.opts.OpTimeout)
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		st, err := m.r.Current(ctx)
		return stateMsg{st: st, err: err}
	}
}

func (m Model) actionCmd(action string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		var (
			res roster.Result
			err error
		)
		switch action {
		case roster.ActionNext:
			res, err = m.r.Next(ctx)
		case roster.ActionPrev:
			res, err = m.r.Prev(ctx)
		case roster.ActionRestore:
			res, err = m.r.Restore(ctx)
		default:
			res, err = m.r.Check(ctx)
		}
		return resultMsg{action: action, res: res, err: err}
	}
}

func (m Model) presenceCmd() tea.Cmd {
	w := m.opts.Presence
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.PresencePoll)
		defer cancel()
		c, _ := w.Poll(ctx)
		return presenceMsg(c)
	}
}

func checkTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return checkTickMsg{} })
}

func presenceTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return presenceTickMsg{} })
}

// Run shows the widget until the user quits or ctx is canceled.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
