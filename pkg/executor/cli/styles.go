package cli

import "github.com/charmbracelet/lipgloss"

// Color palette for all CLI output.
var (
	skyBlue     = lipgloss.Color("#7AA2F7") // headers and accents
	seafoam     = lipgloss.Color("#9ECE6A") // tool success
	amber       = lipgloss.Color("#E0AF68") // narration and prompts
	crimson     = lipgloss.Color("#F7768E") // errors
	slateGray   = lipgloss.Color("#565F89") // secondary text
	paleWhite   = lipgloss.Color("#C0CAF5") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(slateGray).
			Italic(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(paleWhite)

	narrationStyle = lipgloss.NewStyle().
			Foreground(amber).
			Italic(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(seafoam)

	toolErrorStyle = lipgloss.NewStyle().
			Foreground(crimson)

	errorStyle = lipgloss.NewStyle().
			Foreground(crimson).
			Bold(true)

	todoStyle = lipgloss.NewStyle().
			Foreground(slateGray)

	promptStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(slateGray)
)
