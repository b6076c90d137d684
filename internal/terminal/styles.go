// Package terminal renders the desk in a terminal: the paper form, the
// report panel, the HUD and the day rules. FormView implements the
// controller's view and effects contracts plus the anomaly drivers' cue
// and pulse targets.
package terminal

import "github.com/charmbracelet/lipgloss"

// Paper palette.
var (
	ColorInk       = lipgloss.Color("#E8E2D0")
	ColorFaded     = lipgloss.Color("#8A8472")
	ColorStampOK   = lipgloss.Color("#3FA66B")
	ColorStampNo   = lipgloss.Color("#C0392B")
	ColorOverwrite = lipgloss.Color("#F4D03F")
	ColorGlitch    = lipgloss.Color("#9B59B6")
	ColorBorder    = lipgloss.Color("#5D5747")
)

// Styles are the pre-configured lipgloss styles.
var Styles = struct {
	Title      lipgloss.Style
	Label      lipgloss.Style
	Text       lipgloss.Style
	Muted      lipgloss.Style
	Overwrite  lipgloss.Style
	Flash      lipgloss.Style
	Glitch     lipgloss.Style
	Accept     lipgloss.Style
	Reject     lipgloss.Style
	Status     lipgloss.Style
	HUD        lipgloss.Style
	Paper      lipgloss.Style
	LockedPage lipgloss.Style
	Panel      lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorInk),
	Label:     lipgloss.NewStyle().Bold(true).Foreground(ColorFaded),
	Text:      lipgloss.NewStyle().Foreground(ColorInk),
	Muted:     lipgloss.NewStyle().Foreground(ColorFaded),
	Overwrite: lipgloss.NewStyle().Foreground(ColorOverwrite),
	Flash:     lipgloss.NewStyle().Foreground(ColorOverwrite).Bold(true).Reverse(true),
	Glitch:    lipgloss.NewStyle().Foreground(ColorGlitch).Bold(true),
	Accept:    lipgloss.NewStyle().Bold(true).Foreground(ColorStampOK).Border(lipgloss.DoubleBorder()).BorderForeground(ColorStampOK).Padding(0, 2),
	Reject:    lipgloss.NewStyle().Bold(true).Foreground(ColorStampNo).Border(lipgloss.DoubleBorder()).BorderForeground(ColorStampNo).Padding(0, 2),
	Status:    lipgloss.NewStyle().Foreground(ColorOverwrite),
	HUD:       lipgloss.NewStyle().Bold(true).Foreground(ColorFaded),
	Paper: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Width(72),
	LockedPage: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorFaded).
		Foreground(ColorFaded).
		Padding(0, 1).
		Width(72),
	Panel: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1),
}

// Checkbox glyphs.
const (
	boxOn  = "[x]"
	boxOff = "[ ]"
)

func box(on bool) string {
	if on {
		return boxOn
	}
	return boxOff
}
