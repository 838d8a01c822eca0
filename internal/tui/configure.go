package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/leonardotrapani/hyprinterview/internal/models/whisper"
	"github.com/leonardotrapani/hyprinterview/internal/questions"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// TranscriptionProviders lists every provider the transcription client supports
var TranscriptionProviders = []string{"openai", "groq", "deepgram", "elevenlabs", "whisper-cpp", "http"}

// EvaluationProviders lists the chat providers that can score answers
var EvaluationProviders = []string{"openai", "groq"}

var providerDisplayNames = map[string]string{
	"openai":      "OpenAI",
	"groq":        "Groq",
	"deepgram":    "Deepgram",
	"elevenlabs":  "ElevenLabs",
	"whisper-cpp": "Whisper.cpp (local)",
	"http":        "Custom HTTP endpoint",
}

var defaultTranscriptionModels = map[string]string{
	"openai":      "whisper-1",
	"whisper-cpp": "base.en",
	"groq":        "whisper-large-v3-turbo",
	"deepgram":    "nova-3",
	"elevenlabs":  "scribe_v1",
}

type ConfigSection string

const (
	SectionProfile       ConfigSection = "profile"
	SectionTranscription ConfigSection = "transcription"
	SectionEvaluation    ConfigSection = "evaluation"
	SectionNotifications ConfigSection = "notifications"
	SectionServer        ConfigSection = "server"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the configuration menu on a copy of cfg.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	work := *cfg
	work.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
	for k, v := range cfg.Providers {
		work.Providers[k] = v
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(&work)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := work.Validate(); err != nil {
				note := huh.NewNote().Title("Configuration is invalid").Description(err.Error())
				if err := huh.NewForm(huh.NewGroup(note)).WithTheme(getTheme()).Run(); err != nil {
					return &ConfigureResult{Cancelled: true}, nil
				}
				continue
			}
			fmt.Print(summary(&work))
			ok, err := confirm("Save this configuration?", "Save", "Cancel")
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if ok {
				return &ConfigureResult{Config: &work}, nil
			}
		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil
		case SectionProfile:
			p := work.ToProfile()
			if err := SelectProfile(&p); err == nil {
				work.Interview.Domain, work.Interview.Seniority, work.Interview.SessionType = p.Domain, p.Seniority, p.SessionType
			}
		case SectionTranscription:
			_ = editTranscription(&work)
		case SectionEvaluation:
			_ = editEvaluation(&work)
		case SectionNotifications:
			_ = editNotifications(&work)
		case SectionServer:
			_ = editServer(&work)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(fmt.Sprintf("Interview profile (%s)", profileLabel(cfg.ToProfile())), SectionProfile),
		huh.NewOption(fmt.Sprintf("Transcription (%s)", providerLabel(cfg.Transcription.Provider)), SectionTranscription),
		huh.NewOption(fmt.Sprintf("Answer evaluation (%s)", evaluationLabel(cfg)), SectionEvaluation),
		huh.NewOption(fmt.Sprintf("Notifications (%s)", notificationsLabel(cfg)), SectionNotifications),
		huh.NewOption(fmt.Sprintf("Live feed (%s)", serverLabel(cfg)), SectionServer),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// SelectProfile asks for domain, seniority and session type.
func SelectProfile(p *questions.Profile) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Domain").
				Options(stringOptions(questions.Domains)...).
				Value(&p.Domain),
			huh.NewSelect[string]().
				Title("Seniority").
				Options(stringOptions(questions.Seniorities)...).
				Value(&p.Seniority),
			huh.NewSelect[string]().
				Title("Session type").
				Options(stringOptions(questions.SessionTypes)...).
				Value(&p.SessionType),
		),
	).WithTheme(getTheme())
	return form.Run()
}

func editTranscription(cfg *config.Config) error {
	t := &cfg.Transcription
	providerName := t.Provider

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription provider").
				Description("Audio is sent in batches while you speak").
				Options(providerOptions(TranscriptionProviders)...).
				Value(&providerName),
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions(t.Language)...).
				Filtering(true).
				Value(&t.Language),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	if providerName != t.Provider {
		t.Model = defaultTranscriptionModels[providerName]
	}
	t.Provider = providerName

	var fields []huh.Field
	switch providerName {
	case "whisper-cpp":
		fields = append(fields,
			huh.NewSelect[string]().
				Title("Model").
				Description("Download with: hyprinterview model download <model>").
				Options(whisperOptions()...).
				Value(&t.Model),
			huh.NewInput().
				Title("Model file").
				Description("Optional path to a ggml model; overrides the model above").
				Value(&t.ModelPath))
	case "http":
		fields = append(fields, huh.NewInput().
			Title("Endpoint").
			Description("POST target accepting {\"audio\",\"mimeType\"} JSON").
			Value(&t.Endpoint))
	default:
		fields = append(fields, huh.NewInput().
			Title("Model").
			Value(&t.Model))
	}

	apiKey := cfg.Providers[providerName].APIKey
	if env := config.EnvVarForProvider(providerName); env != "" {
		fields = append(fields, huh.NewInput().
			Title(fmt.Sprintf("%s API key", providerLabel(providerName))).
			Description(keyDescription(apiKey, env)).
			EchoMode(huh.EchoModePassword).
			Value(&apiKey))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(getTheme()).Run(); err != nil {
		return err
	}
	setAPIKey(cfg, providerName, apiKey)
	return nil
}

func editEvaluation(cfg *config.Config) error {
	l := &cfg.LLM
	enabled := l.Enabled

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Score answers with an LLM?").
				Description("Gives strengths, improvements and a model answer").
				Value(&enabled),
		),
	).WithTheme(getTheme()).Run(); err != nil {
		return err
	}
	l.Enabled = enabled
	if !enabled {
		return nil
	}

	apiKey := cfg.Providers[l.Provider].APIKey
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(providerOptions(EvaluationProviders)...).
				Value(&l.Provider),
			huh.NewInput().
				Title("Model").
				Description("Leave empty for the provider default").
				Value(&l.Model),
			huh.NewInput().
				Title("API key").
				Description("Shared with transcription when the provider is the same").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	setAPIKey(cfg, l.Provider, apiKey)
	return nil
}

func editNotifications(cfg *config.Config) error {
	n := &cfg.Notifications
	notifType := n.Type
	if notifType == "" {
		notifType = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Recording changes, new questions and dropped audio").
				Value(&n.Enabled),
			huh.NewSelect[string]().
				Title("Notification type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	n.Type = notifType
	return nil
}

func editServer(cfg *config.Config) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Description("Serves /ws, /metrics and /healthz, e.g. 127.0.0.1:7391. Empty disables it.").
				Value(&cfg.Server.Listen),
		),
	).WithTheme(getTheme()).Run()
}

func confirm(title, yes, no string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative(yes).
				Negative(no).
				Value(&ok),
		),
	).WithTheme(getTheme()).Run()
	return ok, err
}

func summary(cfg *config.Config) string {
	var b strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", StyleLabel.Render(label), value)
	}

	b.WriteString("\n")
	b.WriteString(StyleHeader.Render("Configuration Summary"))
	b.WriteString("\n")

	line("Profile:", profileLabel(cfg.ToProfile()))
	transcription := providerLabel(cfg.Transcription.Provider)
	if cfg.Transcription.Model != "" {
		transcription += " (" + cfg.Transcription.Model + ")"
	}
	line("Transcription:", transcription)
	line("Language:", language.FromCode(cfg.Transcription.Language).Label())
	line("Evaluation:", evaluationLabel(cfg))
	if keys := configuredProviders(cfg); len(keys) > 0 {
		line("API keys:", strings.Join(keys, ", "))
	}
	line("Notifications:", notificationsLabel(cfg))
	line("Live feed:", serverLabel(cfg))
	b.WriteString("\n")
	return b.String()
}

func profileLabel(p questions.Profile) string {
	return fmt.Sprintf("%s, %s, %s", p.Domain, p.Seniority, p.SessionType)
}

func providerLabel(name string) string {
	if label, ok := providerDisplayNames[name]; ok {
		return label
	}
	return name
}

func evaluationLabel(cfg *config.Config) string {
	if !cfg.LLM.Enabled {
		return "disabled"
	}
	if cfg.LLM.Model == "" {
		return providerLabel(cfg.LLM.Provider)
	}
	return providerLabel(cfg.LLM.Provider) + " (" + cfg.LLM.Model + ")"
}

func notificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "disabled"
	}
	return cfg.Notifications.Type
}

func serverLabel(cfg *config.Config) string {
	if cfg.Server.Listen == "" {
		return "disabled"
	}
	return cfg.Server.Listen
}

func configuredProviders(cfg *config.Config) []string {
	var names []string
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			names = append(names, fmt.Sprintf("%s (%s)", name, maskAPIKey(pc.APIKey)))
		}
	}
	sort.Strings(names)
	return names
}

func setAPIKey(cfg *config.Config, providerName, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		delete(cfg.Providers, providerName)
		return
	}
	cfg.Providers[providerName] = config.ProviderConfig{APIKey: key}
}

func keyDescription(key, env string) string {
	if key != "" {
		return "Current: " + maskAPIKey(key)
	}
	return "Leave empty to read " + env
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func stringOptions(values []string) []huh.Option[string] {
	return huh.NewOptions(values...)
}

func providerOptions(names []string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(names))
	for _, name := range names {
		options = append(options, huh.NewOption(providerLabel(name), name))
	}
	return options
}

// languageOptions lists auto-detect first, then every language, marking the current one.
func whisperOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, m := range whisper.List() {
		label := fmt.Sprintf("%s (%s)", m.ID, m.Size)
		if !m.Multilingual {
			label += " English only"
		}
		opts = append(opts, huh.NewOption(label, m.ID))
	}
	return opts
}

func languageOptions(current string) []huh.Option[string] {
	autoLabel := "Auto-detect (recommended)"
	if current == "" {
		autoLabel += " (current)"
	}
	options := []huh.Option[string]{huh.NewOption(autoLabel, "")}
	for _, lang := range language.List() {
		label := lang.Label()
		if lang.Code == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}
	return options
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
