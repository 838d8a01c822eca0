package config

import "time"

type Config struct {
	Recording     RecordingConfig           `toml:"recording"`
	Pipeline      PipelineConfig            `toml:"pipeline"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	LLM           LLMConfig                 `toml:"llm"`
	Interview     InterviewConfig           `toml:"interview"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Server        ServerConfig              `toml:"server"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Channels          int           `toml:"channels"`
	Format            string        `toml:"format"`
	BufferSize        int           `toml:"buffer_size"`
	Device            string        `toml:"device"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	ChunkInterval     time.Duration `toml:"chunk_interval"`
	Timeout           time.Duration `toml:"timeout"` // longest single answer before recording stops on its own
}

// PipelineConfig tunes batching and retries of the transcription pipeline
type PipelineConfig struct {
	MinBatchBytes  int           `toml:"min_batch_bytes"`
	MaxRetries     int           `toml:"max_retries"`
	RetryDelay     time.Duration `toml:"retry_delay"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type TranscriptionConfig struct {
	Provider  string `toml:"provider"`
	Language  string `toml:"language"`
	Model     string `toml:"model"`
	Endpoint  string `toml:"endpoint"`   // base URL override, required for "http"
	ModelPath string `toml:"model_path"` // whisper-cpp model file
	Threads   int    `toml:"threads"`    // CPU threads for local transcription (0 = auto: NumCPU-1)
}

// LLMConfig configures answer evaluation
type LLMConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

// InterviewConfig is the practice profile
type InterviewConfig struct {
	Domain       string `toml:"domain"`
	Seniority    string `toml:"seniority"`
	SessionType  string `toml:"session_type"`
	QuestionBank string `toml:"question_bank"` // YAML file; empty uses the built-in bank
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

// ServerConfig enables the live feed HTTP server
type ServerConfig struct {
	Listen string `toml:"listen"` // e.g. "127.0.0.1:7391"; empty disables the server
}
