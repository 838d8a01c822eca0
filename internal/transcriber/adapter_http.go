package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPAdapter talks to a generic transcription endpoint (for example a local proxy).
// The audio travels base64 encoded in a JSON body together with its mime type.
type HTTPAdapter struct {
	client   *http.Client
	endpoint string
	apiKey   string
	language string
	model    string
}

type httpTranscribeRequest struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mimeType"`
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

type httpTranscribeResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHTTPAdapter(config Config) *HTTPAdapter {
	return &HTTPAdapter{
		client:   &http.Client{},
		endpoint: config.Endpoint,
		apiKey:   config.APIKey,
		language: config.Language,
		model:    config.Model,
	}
}

func (a *HTTPAdapter) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	payload, err := json.Marshal(httpTranscribeRequest{
		Audio:    base64.StdEncoding.EncodeToString(audioData),
		MimeType: mimeType,
		Language: a.language,
		Model:    a.model,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		log.Printf("http-adapter: request failed after %v: %v", time.Since(start), err)
		return "", fmt.Errorf("http transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result httpTranscribeResponse
	decodeErr := json.Unmarshal(body, &result)

	if result.Error != nil {
		status := result.Error.Status
		if status == 0 {
			status = resp.StatusCode
		}
		return "", &TranscriptionError{Provider: "http", Status: status, Message: result.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newStatusError("http", resp.StatusCode, body)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}

	log.Printf("http-adapter: transcribed %d bytes in %v", len(audioData), time.Since(start))
	return result.Text, nil
}
