package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrConfigNotFound = errors.New("config not found")

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	appDir := filepath.Join(configDir, "hyprinterview")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(appDir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom decodes the file over the defaults, so omitted keys keep their default values.
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s (run hyprinterview configure)", ErrConfigNotFound, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Printf("Config: loading configuration from %s", configPath)
	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}
	config.applyThreadsDefault()

	log.Printf("Config: configuration loaded successfully")
	return config, nil
}

// applyThreadsDefault sets default threads for local transcription if not explicitly set
func (c *Config) applyThreadsDefault() {
	if c.Transcription.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Transcription.Threads = threads
	}
}

// Save writes the configuration as a commented TOML file.
func Save(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(render(config)), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	log.Printf("Config: saved configuration to %s", configPath)
	return nil
}

func render(c *Config) string {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format, args...) }

	w("# Hyprinterview Configuration\n")
	w("# Changes are picked up by the running daemon and apply to the next recording.\n\n")

	w("# Microphone capture (PipeWire)\n")
	w("[recording]\n")
	w("  sample_rate = %d          # Hz, 16000 recommended for speech\n", c.Recording.SampleRate)
	w("  channels = %d                 # 1 = mono\n", c.Recording.Channels)
	w("  format = %q               # only s16 is supported\n", c.Recording.Format)
	w("  buffer_size = %d           # bytes read from pw-record at a time\n", c.Recording.BufferSize)
	w("  device = %q                  # PipeWire target (empty = default microphone)\n", c.Recording.Device)
	w("  channel_buffer_size = %d     # chunks buffered between capture and the session\n", c.Recording.ChannelBufferSize)
	w("  chunk_interval = %q      # one audio chunk per interval\n", c.Recording.ChunkInterval.String())
	w("  timeout = %q               # longest answer before recording stops on its own\n\n", c.Recording.Timeout.String())

	w("# Batching and retries\n")
	w("[pipeline]\n")
	w("  min_batch_bytes = %d      # audio gathered before a transcription call\n", c.Pipeline.MinBatchBytes)
	w("  max_retries = %d              # failed batches are dropped after this many retries\n", c.Pipeline.MaxRetries)
	w("  retry_delay = %q        # wait between retries\n", c.Pipeline.RetryDelay.String())
	w("  request_timeout = %q      # per transcription call\n\n", c.Pipeline.RequestTimeout.String())

	w("# Speech to text\n")
	w("[transcription]\n")
	w("  provider = %q          # openai, groq, deepgram, elevenlabs, whisper-cpp, http\n", c.Transcription.Provider)
	w("  language = %q                # empty for auto-detect, or ISO-639-1 code\n", c.Transcription.Language)
	w("  model = %q\n", c.Transcription.Model)
	w("  endpoint = %q                # base URL override (required for http)\n", c.Transcription.Endpoint)
	w("  model_path = %q              # whisper-cpp model file\n", c.Transcription.ModelPath)
	w("  threads = %d                  # whisper-cpp threads (0 = auto)\n\n", c.Transcription.Threads)

	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	w("# API keys (environment variables are used when these are empty)\n")
	for _, name := range names {
		w("[providers.%s]\n", name)
		w("  api_key = %q\n\n", c.Providers[name].APIKey)
	}
	if len(names) == 0 {
		w("# [providers.openai]\n#   api_key = \"sk-...\"\n\n")
	}

	w("# Answer evaluation\n")
	w("[llm]\n")
	w("  enabled = %t\n", c.LLM.Enabled)
	w("  provider = %q                # openai or groq\n", c.LLM.Provider)
	w("  model = %q\n\n", c.LLM.Model)

	w("# Practice profile\n")
	w("[interview]\n")
	w("  domain = %q                  # backend, frontend, data\n", c.Interview.Domain)
	w("  seniority = %q               # junior, mid, senior\n", c.Interview.Seniority)
	w("  session_type = %q            # technical, behavioral, system-design\n", c.Interview.SessionType)
	w("  question_bank = %q           # YAML file, empty for the built-in questions\n\n", c.Interview.QuestionBank)

	w("[notifications]\n")
	w("  enabled = %t\n", c.Notifications.Enabled)
	w("  type = %q                    # desktop, log, none\n\n", c.Notifications.Type)

	w("# Live transcript feed and metrics\n")
	w("[server]\n")
	w("  listen = %q                  # e.g. 127.0.0.1:7391, empty disables\n", c.Server.Listen)

	return b.String()
}
