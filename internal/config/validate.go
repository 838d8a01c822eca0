package config

import (
	"fmt"
	"slices"

	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/leonardotrapani/hyprinterview/internal/models/whisper"
	"github.com/leonardotrapani/hyprinterview/internal/questions"
)

func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if frame := 2 * c.Recording.Channels; c.Recording.BufferSize%frame != 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d (must be a multiple of %d, the s16 frame size for %d channels)",
			c.Recording.BufferSize, frame, c.Recording.Channels)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format != "s16" {
		return fmt.Errorf("invalid recording.format: %q (only s16 is supported)", c.Recording.Format)
	}
	if c.Recording.ChunkInterval <= 0 {
		return fmt.Errorf("invalid recording.chunk_interval: %v", c.Recording.ChunkInterval)
	}
	if c.Recording.Timeout <= 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	if c.Pipeline.MinBatchBytes <= 0 {
		return fmt.Errorf("invalid pipeline.min_batch_bytes: %d", c.Pipeline.MinBatchBytes)
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("invalid pipeline.max_retries: %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.RetryDelay < 0 {
		return fmt.Errorf("invalid pipeline.retry_delay: %v", c.Pipeline.RetryDelay)
	}
	if c.Pipeline.RequestTimeout <= 0 {
		return fmt.Errorf("invalid pipeline.request_timeout: %v", c.Pipeline.RequestTimeout)
	}

	if err := c.validateTranscription(); err != nil {
		return err
	}

	if c.LLM.Enabled {
		if c.LLM.Provider == "" {
			return fmt.Errorf("llm.provider required when llm.enabled = true")
		}
		if c.LLM.Provider != "openai" && c.LLM.Provider != "groq" {
			return fmt.Errorf("invalid llm.provider: %s (must be openai or groq)", c.LLM.Provider)
		}
		if c.resolveAPIKey(c.LLM.Provider) == "" {
			return fmt.Errorf("%s API key required for answer evaluation: not found in config (providers.%s.api_key) or environment variable (%s)",
				c.LLM.Provider, c.LLM.Provider, EnvVarForProvider(c.LLM.Provider))
		}
	}

	if err := validateTag("interview.domain", c.Interview.Domain, questions.Domains); err != nil {
		return err
	}
	if err := validateTag("interview.seniority", c.Interview.Seniority, questions.Seniorities); err != nil {
		return err
	}
	if err := validateTag("interview.session_type", c.Interview.SessionType, questions.SessionTypes); err != nil {
		return err
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if c.Notifications.Enabled && !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription

	if t.Language != "" && !language.IsValidCode(t.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", t.Language)
	}

	switch t.Provider {
	case "openai", "groq", "deepgram", "elevenlabs":
		if c.resolveAPIKey(t.Provider) == "" {
			return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key) or environment variable (%s)",
				t.Provider, t.Provider, EnvVarForProvider(t.Provider))
		}
	case "whisper-cpp":
		if _, known := whisper.Lookup(t.Model); t.ModelPath == "" && !known {
			return fmt.Errorf("transcription.model_path or a downloadable transcription.model (e.g. base.en) required for whisper-cpp")
		}
	case "http":
		if t.Endpoint == "" {
			return fmt.Errorf("transcription.endpoint required for the http provider")
		}
	case "":
		return fmt.Errorf("invalid transcription.provider: empty")
	default:
		return fmt.Errorf("unsupported transcription.provider: %s (must be openai, groq, deepgram, elevenlabs, whisper-cpp, or http)", t.Provider)
	}

	if t.Provider == "elevenlabs" && t.Model != "" && t.Model != "scribe_v1" && t.Model != "scribe_v2" {
		return fmt.Errorf("invalid model for elevenlabs: %s (must be scribe_v1 or scribe_v2)", t.Model)
	}
	if t.Provider == "groq" && t.Model != "" && t.Model != "whisper-large-v3" && t.Model != "whisper-large-v3-turbo" {
		return fmt.Errorf("invalid model for groq: %s (must be whisper-large-v3 or whisper-large-v3-turbo)", t.Model)
	}
	return nil
}

// validateTag accepts an empty value (any) or one of the known tags.
func validateTag(key, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s: %s (must be one of %v)", key, value, allowed)
}
