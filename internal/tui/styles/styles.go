// Package styles holds the lipgloss styles shared by the console renderer and
// the status command.
package styles

import "github.com/charmbracelet/lipgloss"

// Basic ANSI indices only; control-room terminals are often 16-colour.
const (
	red    = lipgloss.Color("1")
	green  = lipgloss.Color("2")
	yellow = lipgloss.Color("3")
	blue   = lipgloss.Color("4")
	white  = lipgloss.Color("7")
	cyan   = lipgloss.Color("12")
	grey   = lipgloss.Color("245")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Text styles.
var (
	Title       = fg(blue).Bold(true)
	Label       = fg(white)
	ErrorText   = fg(red).Bold(true)
	WarningText = fg(yellow).Bold(true)
	SuccessText = fg(green)
	MutedText   = fg(grey)
	HelpText    = fg(grey).Italic(true)
	Countdown   = fg(cyan).Bold(true)
)

// Banner frames the leak alert announcement.
var Banner = fg(red).
	Bold(true).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(red).
	Padding(0, 2)

// Step indicators.
const (
	StepOK      = "✓"
	StepFailed  = "✗"
	StepSkipped = "○"
	StepRunning = "▸"
)
