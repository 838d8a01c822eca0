package transcriber

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/queue"
)

type recordingAdapter struct {
	gotAudio []byte
	gotMime  string
	text     string
	err      error
	deadline bool
}

func (a *recordingAdapter) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	a.gotAudio = audioData
	a.gotMime = mimeType
	_, a.deadline = ctx.Deadline()
	return a.text, a.err
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "openai", config: Config{Provider: "openai", APIKey: "k", Model: "whisper-1"}},
		{name: "openai without key", config: Config{Provider: "openai"}, expectError: true},
		{name: "groq", config: Config{Provider: "groq", APIKey: "k", Model: "whisper-large-v3"}},
		{name: "deepgram", config: Config{Provider: "deepgram", APIKey: "k"}},
		{name: "elevenlabs", config: Config{Provider: "elevenlabs", APIKey: "k"}},
		{name: "elevenlabs without key", config: Config{Provider: "elevenlabs"}, expectError: true},
		{name: "whisper-cpp", config: Config{Provider: "whisper-cpp", ModelPath: "/tmp/model.bin"}},
		{name: "whisper-cpp without model", config: Config{Provider: "whisper-cpp"}, expectError: true},
		{name: "http", config: Config{Provider: "http", Endpoint: "http://localhost:9000/transcribe"}},
		{name: "http without endpoint", config: Config{Provider: "http"}, expectError: true},
		{name: "unknown provider", config: Config{Provider: "carrier-pigeon"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.Provider() != tt.config.Provider {
				t.Errorf("Provider() = %q, want %q", client.Provider(), tt.config.Provider)
			}
		})
	}
}

func TestClientTranscribe(t *testing.T) {
	adapter := &recordingAdapter{text: "hello world"}
	client := NewClient("fake", adapter, time.Second)

	batch := queue.NewBatch([]queue.Chunk{
		{Payload: []byte("ab"), MimeType: "audio/webm"},
		{Payload: []byte("cd"), MimeType: "audio/webm"},
	})

	text, err := client.Transcribe(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if string(adapter.gotAudio) != "abcd" {
		t.Errorf("adapter got %q, want concatenated payload", adapter.gotAudio)
	}
	if adapter.gotMime != "audio/webm" {
		t.Errorf("adapter mime = %q", adapter.gotMime)
	}
	if !adapter.deadline {
		t.Error("timeout should set a context deadline")
	}
}

func TestClientTranscribeWrapsErrors(t *testing.T) {
	t.Run("plain error becomes TranscriptionError", func(t *testing.T) {
		cause := errors.New("connection reset")
		client := NewClient("fake", &recordingAdapter{err: cause}, 0)

		_, err := client.Transcribe(context.Background(), queue.NewBatch([]queue.Chunk{{Payload: []byte{1}, MimeType: "audio/ogg"}}))
		te, ok := AsTranscriptionError(err)
		if !ok {
			t.Fatalf("expected TranscriptionError, got %T", err)
		}
		if te.Provider != "fake" {
			t.Errorf("provider = %q", te.Provider)
		}
		if !errors.Is(err, cause) {
			t.Error("cause should be preserved")
		}
	})

	t.Run("status errors keep their status", func(t *testing.T) {
		client := NewClient("fake", &recordingAdapter{err: &TranscriptionError{Status: 503, Message: "busy"}}, 0)

		_, err := client.Transcribe(context.Background(), queue.NewBatch([]queue.Chunk{{Payload: []byte{1}, MimeType: "audio/ogg"}}))
		te, ok := AsTranscriptionError(err)
		if !ok || te.Status != 503 || te.Provider != "fake" {
			t.Errorf("unexpected error: %#v", err)
		}
	})
}

func TestClientRejectsMalformedBatch(t *testing.T) {
	adapter := &recordingAdapter{}
	client := NewClient("fake", adapter, 0)

	tests := []struct {
		name  string
		batch queue.Batch
	}{
		{name: "no chunks", batch: queue.Batch{}},
		{name: "mixed mime types", batch: queue.NewBatch([]queue.Chunk{
			{Payload: []byte{1}, MimeType: "audio/webm"},
			{Payload: []byte{2}, MimeType: "audio/ogg"},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Transcribe(context.Background(), tt.batch)
			if !errors.Is(err, ErrMalformedBatch) {
				t.Errorf("err = %v, want ErrMalformedBatch", err)
			}
			if adapter.gotAudio != nil {
				t.Error("adapter should not be called")
			}
		})
	}
}

func TestTranscriptionErrorMessage(t *testing.T) {
	err := &TranscriptionError{Provider: "openai", Status: 429, Message: "rate limited"}
	want := "openai transcription failed (status 429): rate limited"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
