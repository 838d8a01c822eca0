package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprinterview/internal/bus"
	"github.com/leonardotrapani/hyprinterview/internal/llm"
)

const pollInterval = 400 * time.Millisecond

// Controller drives the daemon. bus.Client satisfies it.
type Controller interface {
	Toggle() (bool, error)
	Next() (string, error)
	Status() (bus.Status, error)
	Transcript() (string, error)
	Answer(text string) error
	Evaluate() (llm.Feedback, error)
}

type practiceMode int

const (
	modeListening practiceMode = iota
	modeTyping
	modeEvaluating
	modeFeedback
)

type (
	tickMsg   struct{}
	polledMsg struct {
		status     bus.Status
		transcript string
		err        error
	}
	questionMsg struct {
		text string
		err  error
	}
	toggledMsg struct {
		recording bool
		err       error
	}
	answeredMsg struct{ err error }
	feedbackMsg struct {
		feedback llm.Feedback
		err      error
	}
)

type practiceModel struct {
	ctl        Controller
	mode       practiceMode
	question   string
	transcript string
	status     bus.Status
	feedback   *llm.Feedback
	errText    string
	spinner    spinner.Model
	input      textarea.Model
	width      int
}

func newPracticeModel(ctl Controller, question string) practiceModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	input := textarea.New()
	input.Placeholder = "Type your answer…"
	input.SetHeight(6)

	return practiceModel{
		ctl:      ctl,
		question: question,
		status:   bus.Status{State: "idle", Drain: "idle"},
		spinner:  sp,
		input:    input,
	}
}

func (m practiceModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.poll(), m.spinner.Tick}
	if m.question == "" {
		cmds = append(cmds, m.next())
	}
	return tea.Batch(cmds...)
}

func (m practiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(contentWidth(msg.Width))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode == modeTyping {
			return m.updateTyping(msg)
		}
		return m.handleKey(msg)

	case tickMsg:
		return m, m.poll()

	case polledMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			m.status = msg.status
			m.transcript = msg.transcript
		}
		return m, tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })

	case questionMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.question = msg.text
		m.transcript = ""
		m.feedback = nil
		m.mode = modeListening
		m.errText = ""
		return m, nil

	case toggledMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		if msg.recording {
			m.status.State = "recording"
		} else {
			m.status.State = "idle"
		}
		return m, nil

	case answeredMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m, m.poll()

	case feedbackMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			m.mode = modeListening
			return m, nil
		}
		fb := msg.feedback
		m.feedback = &fb
		m.mode = modeFeedback
		m.errText = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m practiceModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeEvaluating {
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case " ", "t":
		return m, m.toggle()
	case "n":
		return m, m.next()
	case "a":
		if m.status.State == "recording" {
			m.errText = "Stop recording before typing an answer."
			return m, nil
		}
		m.mode = modeTyping
		m.input.Reset()
		return m, m.input.Focus()
	case "e":
		m.mode = modeEvaluating
		m.errText = ""
		return m, m.evaluate()
	}
	return m, nil
}

func (m practiceModel) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.mode = modeListening
		return m, nil
	case "ctrl+s":
		text := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.mode = modeListening
		if text == "" {
			return m, nil
		}
		return m, m.answer(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m practiceModel) View() string {
	var b strings.Builder
	b.WriteString(renderHeader("Interview practice", nil, m.errText))

	b.WriteString(RenderQuestion(m.question, m.width))
	b.WriteString("\n\n")
	b.WriteString(RenderStatus(m.status))
	b.WriteString("\n\n")

	switch m.mode {
	case modeTyping:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(renderFooter("ctrl+s submit • esc cancel"))
	case modeEvaluating:
		b.WriteString(RenderTranscript(m.transcript, m.width))
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View())
		b.WriteString(StyleMuted.Render(" Scoring your answer…"))
	case modeFeedback:
		b.WriteString(RenderTranscript(m.transcript, m.width))
		b.WriteString("\n\n")
		b.WriteString(RenderFeedback(*m.feedback, m.width))
		b.WriteString("\n\n")
		b.WriteString(renderFooter("n next question • space record again • q quit"))
	default:
		b.WriteString(RenderTranscript(m.transcript, m.width))
		b.WriteString("\n\n")
		b.WriteString(renderFooter("space record/stop • a type answer • e evaluate • n next • q quit"))
	}
	return b.String()
}

func (m practiceModel) poll() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		st, err := ctl.Status()
		if err != nil {
			return polledMsg{err: err}
		}
		text, err := ctl.Transcript()
		return polledMsg{status: st, transcript: text, err: err}
	}
}

func (m practiceModel) next() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		text, err := ctl.Next()
		return questionMsg{text: text, err: err}
	}
}

func (m practiceModel) toggle() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		on, err := ctl.Toggle()
		return toggledMsg{recording: on, err: err}
	}
}

func (m practiceModel) answer(text string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return answeredMsg{err: ctl.Answer(text)}
	}
}

func (m practiceModel) evaluate() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		fb, err := ctl.Evaluate()
		return feedbackMsg{feedback: fb, err: err}
	}
}

// Practice runs the interactive practice screen against a running daemon.
func Practice(ctl Controller, question string) error {
	if ctl == nil {
		return errors.New("controller is required")
	}
	_, err := tea.NewProgram(newPracticeModel(ctl, question), tea.WithAltScreen()).Run()
	return err
}
