package tui

import "github.com/charmbracelet/lipgloss"

// One Dark Pro color palette
var (
	ColorFgPrimary = lipgloss.Color("#ABB2BF")
	ColorFgMuted   = lipgloss.Color("#636B78")

	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")

	ColorBorder = lipgloss.Color("#3F4451")
)

// Component styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true).
			PaddingLeft(1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	ProgressStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	PathStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary).
			PaddingRight(2)

	SelectedLabelStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true).
				PaddingRight(2)

	UndoBarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorYellow).
			Foreground(ColorYellow).
			PaddingLeft(1)

	ErrorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorRed).
			Foreground(ColorRed).
			Padding(0, 1)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)
)
