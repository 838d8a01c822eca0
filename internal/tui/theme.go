package tui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by the practice screen, the configure menu and plain output
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // purple accent
	ColorSecondary = lipgloss.Color("#06B6D4") // cyan, used for the question

	ColorSuccess = lipgloss.Color("#22C55E")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")

	ColorText   = lipgloss.Color("#F8FAFC")
	ColorMuted  = lipgloss.Color("#94A3B8")
	ColorSubtle = lipgloss.Color("#64748B")

	ColorRecording = lipgloss.Color("#F43F5E") // rose, the REC badge
)
