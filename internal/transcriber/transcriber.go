package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/queue"
)

// Adapter sends one audio payload to a transcription backend.
type Adapter interface {
	Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error)
}

// Configuration for the transcriber
type Config struct {
	Provider  string
	APIKey    string
	Language  string
	Model     string
	Endpoint  string // base URL override; required for the http provider
	ModelPath string // whisper-cpp model file
	Threads   int
	Timeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Model:    "whisper-1",
		Timeout:  30 * time.Second,
	}
}

// Client turns a batch into one backend call. Failures come back as *TranscriptionError.
type Client struct {
	adapter  Adapter
	provider string
	timeout  time.Duration
}

func NewClient(provider string, adapter Adapter, timeout time.Duration) *Client {
	return &Client{adapter: adapter, provider: provider, timeout: timeout}
}

// New creates a client for the configured provider.
func New(config Config) (*Client, error) {
	var adapter Adapter

	switch config.Provider {
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		adapter = NewOpenAIAdapter(config)

	case "groq":
		if config.APIKey == "" {
			return nil, fmt.Errorf("Groq API key required")
		}
		adapter = NewGroqAdapter(config)

	case "deepgram":
		if config.APIKey == "" {
			return nil, fmt.Errorf("Deepgram API key required")
		}
		adapter = NewDeepgramAdapter(config)

	case "elevenlabs":
		if config.APIKey == "" {
			return nil, fmt.Errorf("ElevenLabs API key required")
		}
		adapter = NewElevenLabsAdapter(config)

	case "whisper-cpp":
		if config.ModelPath == "" {
			return nil, fmt.Errorf("whisper-cpp model path required")
		}
		adapter = NewWhisperCppAdapter(config.ModelPath, config.Language, config.Threads)

	case "http":
		if config.Endpoint == "" {
			return nil, fmt.Errorf("http transcription endpoint required")
		}
		adapter = NewHTTPAdapter(config)

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}

	return NewClient(config.Provider, adapter, config.Timeout), nil
}

func (c *Client) Provider() string {
	return c.provider
}

// Transcribe sends the concatenated batch payload with the batch mime type.
func (c *Client) Transcribe(ctx context.Context, batch queue.Batch) (string, error) {
	if len(batch.Chunks) == 0 || !batch.Homogeneous() {
		return "", ErrMalformedBatch
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload := batch.Payload()
	start := time.Now()
	text, err := c.adapter.Transcribe(ctx, payload, batch.MimeType)
	if err != nil {
		log.Printf("transcriber: %s failed after %v (%d bytes, attempt %d): %v",
			c.provider, time.Since(start), len(payload), batch.Attempts()+1, err)
		return "", c.wrap(err)
	}

	log.Printf("transcriber: %s transcribed %d bytes in %v", c.provider, len(payload), time.Since(start))
	return text, nil
}

func (c *Client) wrap(err error) error {
	if errors.Is(err, ErrMalformedBatch) {
		return err
	}
	if te, ok := AsTranscriptionError(err); ok {
		if te.Provider == "" {
			te.Provider = c.provider
		}
		return te
	}
	return &TranscriptionError{Provider: c.provider, Err: err}
}
