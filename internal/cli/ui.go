package cli

import (
	"fmt"
	"strings"

	"brandwatch/pkg/client"

	"github.com/charmbracelet/lipgloss"
)

const progressWidth = 30

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	barDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	barRestStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#374151"))
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return successStyle
	case "failed":
		return failureStyle
	case "running":
		return runningStyle
	default:
		return pendingStyle
	}
}

// renderRun draws a run snapshot as a bordered panel.
func renderRun(run *client.RunStatus) string {
	var content strings.Builder

	content.WriteString(labelStyle.Render("Run      ") + valueStyle.Render(run.RunID) + "\n")
	content.WriteString(labelStyle.Render("Status   ") + statusStyle(run.Status).Render(run.Status) + "\n")
	content.WriteString(labelStyle.Render("Progress ") + fmt.Sprintf("%d completed, %d failed of %d", run.CompletedTests, run.FailedTests, run.TotalTests))

	if run.EstimatedCompletion != nil && !run.Terminal() {
		content.WriteString("\n" + labelStyle.Render("ETA      ") + run.EstimatedCompletion.Local().Format("15:04:05"))
	}

	return panelStyle.Render(content.String())
}

// renderProgress draws a one-line progress bar for polling output.
func renderProgress(run *client.RunStatus) string {
	done := run.CompletedTests + run.FailedTests

	filled := 0
	if run.TotalTests > 0 {
		filled = done * progressWidth / run.TotalTests
	}
	if filled > progressWidth {
		filled = progressWidth
	}

	bar := barDoneStyle.Render(strings.Repeat("█", filled)) +
		barRestStyle.Render(strings.Repeat("░", progressWidth-filled))

	return fmt.Sprintf("%s %s %d/%d", statusStyle(run.Status).Render(fmt.Sprintf("%-9s", run.Status)), bar, done, run.TotalTests)
}

// renderDashboard draws the analytics summary as a bordered panel.
func renderDashboard(dashboard *client.Dashboard) string {
	var content strings.Builder

	content.WriteString(valueStyle.Render("Brand visibility") + "\n\n")
	content.WriteString(labelStyle.Render("Prompts            ") + fmt.Sprintf("%d", dashboard.TotalPrompts) + "\n")
	content.WriteString(labelStyle.Render("Competitors        ") + fmt.Sprintf("%d", dashboard.TotalCompetitors) + "\n")
	content.WriteString(labelStyle.Render("Responses          ") + fmt.Sprintf("%d", dashboard.TotalResponses) + "\n")
	content.WriteString(labelStyle.Render("Brand mention rate ") + fmt.Sprintf("%.1f%%", dashboard.UserBrandMentionRate*100) + "\n")
	content.WriteString(labelStyle.Render("Top competitor     ") + fmt.Sprintf("%.1f%%", dashboard.TopCompetitorMentionRate*100))

	if dashboard.LastAnalysisDate != nil {
		content.WriteString("\n" + labelStyle.Render("Last analysis      ") + dashboard.LastAnalysisDate.Local().Format("2006-01-02 15:04"))
	}

	return panelStyle.Render(content.String())
}
