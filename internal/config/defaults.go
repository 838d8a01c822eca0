package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
			ChunkInterval:     1500 * time.Millisecond,
			Timeout:           5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			MinBatchBytes:  16000,
			MaxRetries:     3,
			RetryDelay:     800 * time.Millisecond,
			RequestTimeout: 30 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Provider: "openai",
			Model:    "whisper-1",
		},
		Providers: make(map[string]ProviderConfig),
		LLM: LLMConfig{
			Enabled:  true,
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Interview: InterviewConfig{
			Domain:      "backend",
			Seniority:   "mid",
			SessionType: "technical",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
