package tui

import "github.com/charmbracelet/lipgloss"

// Color palette. Single source of truth for all TUI colors.
var (
	accentBlue = lipgloss.Color("#7AA2F7")
	successGrn = lipgloss.Color("#9ECE6A")
	warnAmber  = lipgloss.Color("#E0AF68")
	failRed    = lipgloss.Color("#F7768E")
	dimGray    = lipgloss.Color("#565F89")
	fgWhite    = lipgloss.Color("#C0CAF5")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(accentBlue).
			Bold(true)

	taskStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	assistantStyle = lipgloss.NewStyle().
			Foreground(fgWhite)

	thinkingTUIStyle = lipgloss.NewStyle().
				Foreground(dimGray).
				Italic(true)

	narrationTUIStyle = lipgloss.NewStyle().
				Foreground(warnAmber).
				Italic(true)

	toolLineStyle = lipgloss.NewStyle().
			Foreground(successGrn)

	toolErrLineStyle = lipgloss.NewStyle().
				Foreground(failRed)

	errorLineStyle = lipgloss.NewStyle().
			Foreground(failRed).
			Bold(true)

	todoLineStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(dimGray).
			Padding(0, 1)

	humanInputBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(warnAmber).
				Padding(0, 1)
)
