package dutybot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"dutyroster/internal/roster"
	"dutyroster/internal/storage"
)

// FormatDate renders a yyyyMMdd key as yyyy-mm-dd; other input passes through.
func FormatDate(key string) string {
	t, err := time.Parse(roster.DateLayout, key)
	if err != nil {
		return key
	}
	return t.Format("2006-01-02")
}

func FormatDuty(st roster.State) string {
	a, b := st.Pair()
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 <b>On duty: #%d and #%d</b>", a, b)
	if st.LastUpdate != "" {
		fmt.Fprintf(&sb, "\nlast rotation: %s", FormatDate(st.LastUpdate))
	}
	if st.Index1 != st.Origin1 || st.Index2 != st.Origin2 {
		fmt.Fprintf(&sb, "\nadjusted manually (rotation pair #%d and #%d)", st.Origin1+1, st.Origin2+1)
	}
	if st.Collides() {
		sb.WriteString("\n⚠️ both slots point at the same person")
	}
	return sb.String()
}

func FormatResult(action string, res roster.Result) string {
	var head string
	switch {
	case action == roster.ActionCheck && res.Changed:
		head = "✅ updated for " + FormatDate(res.Date)
	case action == roster.ActionCheck:
		head = "already updated today or not a workday (" + FormatDate(res.Date) + ")"
	case !res.Changed:
		head = "nothing changed"
	default:
		head = "✅ " + action
	}
	return head + "\n" + FormatDuty(res.State)
}

// FormatAnnouncement is the text sent to the notify chat after a rotation.
func FormatAnnouncement(c roster.Change) string {
	a, b := c.After.Pair()
	return fmt.Sprintf("duty updated for %s: #%d and #%d", FormatDate(c.Date), a, b)
}

func FormatHistory(entries []storage.AuditEntry) string {
	if len(entries) == 0 {
		return "no changes recorded yet"
	}
	lines := []string{"<b>Recent changes</b>"}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		lines = append(lines, fmt.Sprintf("%s <code>%-7s</code> #%d/#%d → #%d/#%d %s",
			e.At.Format("01-02 15:04"), e.Action, e.Before1, e.Before2, e.After1, e.After2, html.EscapeString(e.Actor)))
	}
	return strings.Join(lines, "\n")
}
