// Package report builds the documents delivered and displayed for a meeting.
package report

import (
	"fmt"
	"strings"

	"github.com/hylla/syncnotes/internal/domain"
)

const (
	notAvailable      = "N/A"
	defaultConclusion = "Strategic alignment confirmed."
	defaultTaskStatus = domain.TaskPending
)

// Subject returns the delivery subject line.
func Subject(m domain.Meeting) string {
	return "Published Meeting: " + m.Title
}

// Body returns the delivery message body.
func Body(link string) string {
	return "Your meeting has been published. View it here: " + link
}

// TaskLine renders one numbered task entry; n is 1-based.
func TaskLine(n int, task domain.Task) string {
	status := task.Status
	if status == "" {
		status = defaultTaskStatus
	}
	return fmt.Sprintf("%d. %s — %s [%s]", n, task.Title, task.Assignee, status)
}

// Document renders the plain-text report attached to deliveries.
func Document(m domain.Meeting) string {
	var b strings.Builder
	b.WriteString(m.Title + "\n\n")
	fmt.Fprintf(&b, "Date: %s %s\n", m.Date, m.Time)
	fmt.Fprintf(&b, "Agenda: %s\n\n", m.Agenda)
	b.WriteString("Summary\n")
	b.WriteString(orDefault(m.Summary, notAvailable) + "\n\n")
	b.WriteString("Conclusion\n")
	b.WriteString(orDefault(m.Conclusion, notAvailable) + "\n\n")
	b.WriteString("Tasks\n")
	for idx, task := range m.Tasks {
		b.WriteString(TaskLine(idx+1, task) + "\n")
	}
	return b.String()
}

// Markdown renders the intelligence report view.
func Markdown(m domain.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "_SyncNotes Intelligence Report · #%s · %s %s_\n\n", m.ID, m.Date, m.Time)

	b.WriteString("## I. Summary\n\n")
	b.WriteString(orDefault(m.Summary, notAvailable) + "\n\n")

	b.WriteString("## II. Strategy Shifts\n\n")
	if len(m.StrategyShifts) == 0 {
		b.WriteString(notAvailable + "\n\n")
	}
	for idx, shift := range m.StrategyShifts {
		fmt.Fprintf(&b, "- **%02d** %s\n", idx+1, shift)
	}
	if len(m.StrategyShifts) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## III. Conclusion\n\n")
	fmt.Fprintf(&b, "> %s\n\n", orDefault(m.Conclusion, defaultConclusion))

	b.WriteString("## Assignees\n\n")
	if len(m.Tasks) == 0 {
		b.WriteString("No tasks extracted.\n")
	}
	for _, task := range m.Tasks {
		mark := " "
		if task.Status == domain.TaskCompleted {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s (@%s)\n", mark, task.Title, task.Assignee)
	}

	if m.MindMap != nil {
		b.WriteString("\n## Topic Map\n\n")
		m.MindMap.Walk(func(node domain.MindMapNode, level int) {
			fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", level), node.Name)
		})
	}
	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
