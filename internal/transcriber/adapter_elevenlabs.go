package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/speech-to-text"

// ElevenLabsAdapter implements Adapter for the ElevenLabs Scribe API
type ElevenLabsAdapter struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
	language string
}

type elevenLabsResponse struct {
	Text string `json:"text"`
}

func NewElevenLabsAdapter(config Config) *ElevenLabsAdapter {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = elevenLabsBaseURL
	}
	model := config.Model
	if model == "" {
		model = "scribe_v1"
	}
	return &ElevenLabsAdapter{
		client:   &http.Client{},
		endpoint: endpoint,
		apiKey:   config.APIKey,
		model:    model,
		language: config.Language,
	}
}

func (a *ElevenLabsAdapter) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	upload, err := prepareUpload(audioData, mimeType)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", upload.Filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.WriteField("model_id", a.model); err != nil {
		return "", fmt.Errorf("write model_id: %w", err)
	}
	if a.language != "" {
		if err := writer.WriteField("language_code", a.language); err != nil {
			return "", fmt.Errorf("write language_code: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", a.apiKey)

	start := time.Now()
	resp, err := a.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.Printf("elevenlabs-adapter: API call failed after %v: %v", duration, err)
		return "", fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Printf("elevenlabs-adapter: API returned status %d: %s", resp.StatusCode, string(bodyBytes))
		return "", newStatusError("elevenlabs", resp.StatusCode, bodyBytes)
	}

	var result elevenLabsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	log.Printf("elevenlabs-adapter: transcribed %d bytes in %v: %q", len(audioData), duration, result.Text)
	return result.Text, nil
}
