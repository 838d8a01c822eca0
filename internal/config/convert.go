package config

import (
	"os"

	"github.com/leonardotrapani/hyprinterview/internal/llm"
	"github.com/leonardotrapani/hyprinterview/internal/pipeline"
	"github.com/leonardotrapani/hyprinterview/internal/questions"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
)

var providerEnvVars = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"groq":       "GROQ_API_KEY",
	"deepgram":   "DEEPGRAM_API_KEY",
	"elevenlabs": "ELEVENLABS_API_KEY",
	"http":       "HYPRINTERVIEW_API_KEY",
}

// EnvVarForProvider names the environment variable consulted for a provider's API key
func EnvVarForProvider(name string) string {
	return providerEnvVars[name]
}

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
		ChunkInterval:     c.Recording.ChunkInterval,
	}
}

func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		MinBatchBytes: c.Pipeline.MinBatchBytes,
		MaxRetries:    c.Pipeline.MaxRetries,
		RetryDelay:    c.Pipeline.RetryDelay,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider:  c.Transcription.Provider,
		APIKey:    c.resolveAPIKey(c.Transcription.Provider),
		Language:  c.Transcription.Language,
		Model:     c.Transcription.Model,
		Endpoint:  c.Transcription.Endpoint,
		ModelPath: c.Transcription.ModelPath,
		Threads:   c.Transcription.Threads,
		Timeout:   c.Pipeline.RequestTimeout,
	}
}

// ToLLMConfig returns the evaluator configuration, carrying the practice profile
func (c *Config) ToLLMConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		APIKey:      c.resolveAPIKey(c.LLM.Provider),
		Model:       c.LLM.Model,
		Domain:      c.Interview.Domain,
		Seniority:   c.Interview.Seniority,
		SessionType: c.Interview.SessionType,
	}
}

func (c *Config) ToProfile() questions.Profile {
	return questions.Profile{
		Domain:      c.Interview.Domain,
		Seniority:   c.Interview.Seniority,
		SessionType: c.Interview.SessionType,
	}
}

// IsLLMEnabled returns true if answer evaluation is enabled and configured
func (c *Config) IsLLMEnabled() bool {
	return c.LLM.Enabled && c.LLM.Provider != ""
}

// resolveAPIKey prefers providers.<name>.api_key and falls back to the environment
func (c *Config) resolveAPIKey(name string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[name]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	if envVar := EnvVarForProvider(name); envVar != "" {
		return os.Getenv(envVar)
	}
	return ""
}
