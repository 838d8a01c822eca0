package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprinterview/internal/bus"
	"github.com/leonardotrapani/hyprinterview/internal/llm"
	"github.com/muesli/termenv"
)

const defaultWidth = 80

// SetupColor picks the color profile for w, honoring NO_COLOR and CLICOLOR_FORCE.
// Output that is not a terminal gets plain text.
func SetupColor(w io.Writer) {
	out := termenv.NewOutput(w)
	lipgloss.SetColorProfile(out.EnvColorProfile())
}

func RenderQuestion(question string, width int) string {
	if question == "" {
		return StyleMuted.Render("No question yet. Press n for one.")
	}
	return StyleQuestion.Width(contentWidth(width)).Render(question)
}

func RenderTranscript(text string, width int) string {
	if strings.TrimSpace(text) == "" {
		return StyleSubtle.Render("(no answer yet)")
	}
	return lipgloss.NewStyle().Width(contentWidth(width)).Render(text)
}

func RenderStatus(st bus.Status) string {
	var parts []string
	if st.State == "recording" {
		parts = append(parts, StyleRecording.Render("REC"))
	} else {
		parts = append(parts, StyleMuted.Render(st.State))
	}

	switch st.Drain {
	case "draining":
		parts = append(parts, StyleMuted.Render("transcribing…"))
	case "awaiting_retry":
		parts = append(parts, StyleWarning.Render("retrying…"))
	}
	if st.Queued > 0 {
		parts = append(parts, StyleMuted.Render(fmt.Sprintf("%.1f KB queued", float64(st.Queued)/1000)))
	}
	return strings.Join(parts, "  ")
}

func RenderFeedback(fb llm.Feedback, width int) string {
	w := contentWidth(width)
	var b strings.Builder

	b.WriteString(StyleLabel.Render("Score "))
	b.WriteString(scoreStyle(fb.Score).Render(fmt.Sprintf("%d/10", fb.Score)))
	b.WriteString("\n\n")

	writeList(&b, "Strengths", fb.Strengths, StyleSuccess, w)
	writeList(&b, "To improve", fb.Improvements, StyleWarning, w)

	b.WriteString(StyleLabel.Render("Model answer"))
	b.WriteString("\n")
	b.WriteString(StyleBox.Width(w).Render(fb.ModelAnswer))
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string, bullet lipgloss.Style, width int) {
	b.WriteString(StyleLabel.Render(title))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(StyleSubtle.Render("  none"))
		b.WriteString("\n\n")
		return
	}
	item := lipgloss.NewStyle().Width(width - 4)
	for _, it := range items {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, bullet.Render("  • "), item.Render(it)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderHeader(title string, desc []string, errText string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(StyleHeader.Render(title))
		b.WriteString("\n")
	}
	for _, line := range desc {
		if line == "" {
			continue
		}
		b.WriteString(StyleMuted.Render(line))
		b.WriteString("\n")
	}
	if errText != "" {
		b.WriteString("\n")
		b.WriteString(StyleError.Render(errText))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func renderFooter(keys string) string {
	return StyleSubtle.Render(keys)
}

func contentWidth(width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	if width > 100 {
		width = 100
	}
	return width - 4
}
