package reader

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	primaryColor   = lipgloss.Color("#7D56F4") // Purple
	secondaryColor = lipgloss.Color("#5A9CF7") // Blue
	successColor   = lipgloss.Color("#73F59F") // Green
	errorColor     = lipgloss.Color("#FF6B6B") // Red
	warningColor   = lipgloss.Color("#FFE066") // Yellow
	mutedColor     = lipgloss.Color("#626262") // Gray
)

// Styles
var (
	// Title bar style
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	// Story text
	pageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	pickedStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true)

	endingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	// Choice list
	choiceStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	selectedChoiceStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#2d2d3d")).
				Padding(0, 1)

	// Rating stars
	starOnStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	starOffStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	shareStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// Key bindings style
	keyStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1e1e2e")).
			Padding(0, 1)
)
