package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/language"
)

const deepgramBaseURL = "https://api.deepgram.com/v1/listen"

// DeepgramAdapter implements Adapter for Deepgram pre-recorded transcription
type DeepgramAdapter struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
	language string
}

type deepgramResponse struct {
	Results *struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results,omitempty"`
	ErrCode string `json:"err_code,omitempty"`
	ErrMsg  string `json:"err_msg,omitempty"`
}

func NewDeepgramAdapter(config Config) *DeepgramAdapter {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = deepgramBaseURL
	}
	model := config.Model
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramAdapter{
		client:   &http.Client{},
		endpoint: endpoint,
		apiKey:   config.APIKey,
		model:    model,
		language: config.Language,
	}
}

func (a *DeepgramAdapter) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	upload, err := prepareUpload(audioData, mimeType)
	if err != nil {
		return "", err
	}

	apiURL, err := a.buildURL()
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(upload.Data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+a.apiKey)
	req.Header.Set("Content-Type", upload.ContentType)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		log.Printf("deepgram-adapter: request failed after %v: %v", time.Since(start), err)
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("deepgram-adapter: API returned status %d: %s", resp.StatusCode, string(body))
		return "", newStatusError("deepgram", resp.StatusCode, body)
	}

	var result deepgramResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.ErrMsg != "" {
		return "", &TranscriptionError{Provider: "deepgram", Status: resp.StatusCode, Message: result.ErrMsg}
	}

	if result.Results == nil || len(result.Results.Channels) == 0 ||
		len(result.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}

	text := result.Results.Channels[0].Alternatives[0].Transcript
	log.Printf("deepgram-adapter: transcribed %d bytes in %v: %q", len(audioData), time.Since(start), text)
	return text, nil
}

func (a *DeepgramAdapter) buildURL() (string, error) {
	u, err := url.Parse(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("model", a.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	if lang := language.ToProviderFormat(a.language, "deepgram"); lang != "" {
		q.Set("language", lang)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
