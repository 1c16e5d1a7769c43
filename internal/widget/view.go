package widget

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dutyroster/internal/roster"
)

var slotStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#5B8DEF")).
	Padding(1, 4).
	Margin(0, 1)

var (
	collideStyle = slotStyle.Background(lipgloss.Color("#FF6B6B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// digits is a 3x5 block font for slot numbers.
var digits = [10][5]string{
	{"███", "█ █", "█ █", "█ █", "███"},
	{" █ ", "██ ", " █ ", " █ ", "███"},
	{"███", "  █", "███", "█  ", "███"},
	{"███", "  █", "███", "  █", "███"},
	{"█ █", "█ █", "███", "  █", "  █"},
	{"███", "█  ", "███", "  █", "███"},
	{"███", "█  ", "███", "█ █", "███"},
	{"███", "  █", "  █", "  █", "  █"},
	{"███", "█ █", "███", "█ █", "███"},
	{"███", "█ █", "███", "  █", "███"},
}

// bigNumber renders n in the block font.
func bigNumber(n int) string {
	s := fmt.Sprint(n)
	rows := make([]string, 5)
	for i, r := range s {
		d := int(r - '0')
		if d < 0 || d > 9 {
			continue
		}
		for row := range rows {
			if i > 0 {
				rows[row] += " "
			}
			rows[row] += digits[d][row]
		}
	}
	return strings.Join(rows, "\n")
}

func (m Model) View() string {
	if !m.visible {
		return dimStyle.Render("duty widget hidden (h to show, q to quit)")
	}
	a, b := m.st.Pair()
	style := slotStyle
	if m.st.Collides() {
		style = collideStyle
	}
	pair := lipgloss.JoinHorizontal(lipgloss.Center, style.Render(bigNumber(a)), style.Render(bigNumber(b)))

	lines := []string{pair}
	info := "last rotation: " + lastRotation(m.st)
	if m.st.Index1 != m.st.Origin1 || m.st.Index2 != m.st.Origin2 {
		info += fmt.Sprintf(" · adjusted from #%d/#%d", m.st.Origin1+1, m.st.Origin2+1)
	}
	lines = append(lines, dimStyle.Render(info))
	if m.err != nil {
		prefix := m.status
		if prefix == "" {
			prefix = "error"
		}
		lines = append(lines, errStyle.Render(prefix+": "+m.err.Error()))
	} else if m.status != "" {
		lines = append(lines, m.status)
	}
	lines = append(lines, m.help.View(m.keys))
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func lastRotation(st roster.State) string {
	if st.LastUpdate == "" {
		return "never"
	}
	if len(st.LastUpdate) == 8 {
		return st.LastUpdate[:4] + "-" + st.LastUpdate[4:6] + "-" + st.LastUpdate[6:]
	}
	return st.LastUpdate
}
