package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/wsctl/internal/provisioning/workspace"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	presentStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	missingStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	partialStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)

const (
	checkMark = "[OK]"
	crossMark = "[--]"
)

// stateStyle picks the color of a workspace state.
func stateStyle(state workspace.State) lipgloss.Style {
	switch state {
	case workspace.StateComplete:
		return presentStyle
	case workspace.StateNotExist:
		return missingStyle
	default:
		return partialStyle
	}
}

// renderStatus writes the existence report as one line per checked resource.
func renderStatus(w io.Writer, backend string, report *workspace.ExistenceReport) {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Workspace %s", report.Workspace)))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", backend)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  State: %s  %d/%d resources\n",
		stateStyle(report.State).Render(string(report.State)), report.Present, report.Target))
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 50)))
	b.WriteString("\n")

	for _, c := range report.Checks {
		mark := missingStyle.Render(crossMark)
		if c.Present {
			mark = presentStyle.Render(checkMark)
		}
		line := fmt.Sprintf("  %s %-17s %s", mark, c.Kind, c.Resource)
		if c.Count > 1 {
			line += dimStyle.Render(fmt.Sprintf(" (%d)", c.Count))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	fmt.Fprint(w, b.String())
}
