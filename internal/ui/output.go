package ui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderOutcome styles a per-issue output line according to its outcome
// label ("merged", "already up to date", "conflict" or "error").
func RenderOutcome(label, line string) string {
	switch label {
	case "merged":
		return withIcon(IconPass, PassStyle, line)
	case "already up to date":
		return withIcon(IconPass, MutedStyle, line)
	case "conflict":
		return withIcon(IconWarn, WarnStyle, line)
	case "error":
		return withIcon(IconFail, FailStyle, line)
	default:
		return line
	}
}

func withIcon(icon string, style lipgloss.Style, line string) string {
	if ShouldUseEmoji() {
		return style.Render(icon) + " " + style.Render(line)
	}
	return style.Render(line)
}

// StatusRow is one line of the branch status report.
type StatusRow struct {
	Key        string    `json:"key"`
	Status     string    `json:"status"`
	LastCommit time.Time `json:"last_commit"`
	URL        string    `json:"url,omitempty"`
}

// StatusTable renders rows as a bordered key/status/commit table.
func StatusTable(rows []StatusRow) string {
	headerStyle := CategoryStyle.Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle).
		Headers("key", "status", "commit").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		date := ""
		if !r.LastCommit.IsZero() {
			date = r.LastCommit.Format("2006-01-02")
		}
		t.Row(r.Key, r.Status, date)
	}
	return t.Render()
}
