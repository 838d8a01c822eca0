package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// hints and key help
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	StyleQuestion = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	StyleRecording = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorRecording).
			Bold(true).
			Padding(0, 1)

	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(1, 2)

	StyleFocusedBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)
)

const logoASCII = `
 _                     _       _                  _
| |__  _   _ _ __  _ _(_)_ __ | |_ ___ _ ____   _(_) _____      __
| '_ \| | | | '_ \| '__| | '_ \| __/ _ \ '__\ \ / / |/ _ \ \ /\ / /
| | | | |_| | |_) | |  | | | | | ||  __/ |   \ V /| |  __/\ V  V /
|_| |_|\__, | .__/|_|  |_|_| |_|\__\___|_|    \_/ |_|\___| \_/\_/
       |___/|_|`

func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}

// scoreStyle colors a 1-10 score: red below 5, amber below 8, green otherwise.
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score < 5:
		return StyleError
	case score < 8:
		return StyleWarning.Bold(true)
	default:
		return StyleSuccess.Bold(true)
	}
}
