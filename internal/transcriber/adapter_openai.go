package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIAdapter implements Adapter for the OpenAI Whisper API and OpenAI-compatible backends.
type OpenAIAdapter struct {
	client *openai.Client
	config Config
	name   string
}

func NewOpenAIAdapter(config Config) *OpenAIAdapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Endpoint != "" {
		clientConfig.BaseURL = config.Endpoint
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "openai",
	}
}

// NewGroqAdapter uses Groq's OpenAI-compatible Whisper endpoint.
func NewGroqAdapter(config Config) *OpenAIAdapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = groqBaseURL
	if config.Endpoint != "" {
		clientConfig.BaseURL = config.Endpoint
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "groq",
	}
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	upload, err := prepareUpload(audioData, mimeType)
	if err != nil {
		return "", err
	}

	req := openai.AudioRequest{
		Model:    a.config.Model,
		Reader:   bytes.NewReader(upload.Data),
		FilePath: upload.Filename,
		Language: a.config.Language,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("%s-adapter: API call failed after %v: %v", a.name, duration, err)
		return "", openAIError(a.name, err)
	}

	log.Printf("%s-adapter: transcribed %d bytes in %v: %q", a.name, len(audioData), duration, resp.Text)
	return resp.Text, nil
}

// openAIError maps go-openai failures onto TranscriptionError with the upstream status.
func openAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TranscriptionError{
			Provider: provider,
			Status:   apiErr.HTTPStatusCode,
			Message:  apiErr.Message,
			Err:      err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &TranscriptionError{
			Provider: provider,
			Status:   reqErr.HTTPStatusCode,
			Message:  fmt.Sprintf("request failed: %v", reqErr.Err),
			Err:      err,
		}
	}
	return &TranscriptionError{Provider: provider, Err: err}
}
