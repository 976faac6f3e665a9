package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("12")
	colorMuted  = lipgloss.Color("244")
	colorLink   = lipgloss.Color("6")
	colorWarn   = lipgloss.Color("214")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	focusedCardStyle = cardStyle.BorderForeground(colorAccent)

	editCardStyle = cardStyle.BorderForeground(colorWarn)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)

	linkStyle = lipgloss.NewStyle().Foreground(colorLink)

	selectedLinkStyle = linkStyle.Reverse(true)

	statusStyle = lipgloss.NewStyle().Foreground(colorWarn)

	helpStyle = lipgloss.NewStyle().Foreground(colorMuted)
)
