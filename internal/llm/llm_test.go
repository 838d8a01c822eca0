package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		contains []string
		excludes []string
	}{
		{
			name:     "full profile",
			cfg:      Config{Domain: "backend", Seniority: "senior", SessionType: "system-design"},
			contains: []string{"seniority: senior", "domain: backend", "interview type: system-design", `"modelAnswer"`},
		},
		{
			name:     "no profile",
			cfg:      Config{},
			contains: []string{`"score"`, "single JSON object"},
			excludes: []string{"Candidate profile"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BuildSystemPrompt(tt.cfg)
			for _, s := range tt.contains {
				if !strings.Contains(prompt, s) {
					t.Errorf("prompt missing %q", s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(prompt, s) {
					t.Errorf("prompt should not contain %q", s)
				}
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := BuildUserPrompt("  What is a mutex? ", "a lock\n")
	want := "Question:\nWhat is a mutex?\n\nCandidate answer:\na lock"
	if got != want {
		t.Errorf("BuildUserPrompt() = %q, want %q", got, want)
	}
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Feedback
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"score": 7, "strengths": ["clear", " "], "improvements": ["mention tradeoffs"], "modelAnswer": " A mutex... "}`,
			want: Feedback{Score: 7, Strengths: []string{"clear"}, Improvements: []string{"mention tradeoffs"}, ModelAnswer: "A mutex..."},
		},
		{
			name: "fenced",
			raw:  "```json\n{\"score\": 3, \"strengths\": [], \"improvements\": [], \"modelAnswer\": \"x\"}\n```",
			want: Feedback{Score: 3, Strengths: []string{}, Improvements: []string{}, ModelAnswer: "x"},
		},
		{name: "not json", raw: "great answer!", wantErr: true},
		{name: "score missing", raw: `{"strengths": [], "improvements": [], "modelAnswer": "x"}`, wantErr: true},
		{name: "score too high", raw: `{"score": 11, "strengths": [], "improvements": [], "modelAnswer": "x"}`, wantErr: true},
		{name: "score zero", raw: `{"score": 0, "strengths": [], "improvements": [], "modelAnswer": "x"}`, wantErr: true},
		{name: "strengths missing", raw: `{"score": 5, "improvements": [], "modelAnswer": "x"}`, wantErr: true},
		{name: "improvements missing", raw: `{"score": 5, "strengths": [], "modelAnswer": "x"}`, wantErr: true},
		{name: "model answer blank", raw: `{"score": 5, "strengths": [], "improvements": [], "modelAnswer": "  "}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeedback(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFeedback) {
					t.Fatalf("ParseFeedback() error = %v, want ErrMalformedFeedback", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFeedback() unexpected error: %v", err)
			}
			if got.Score != tt.want.Score || got.ModelAnswer != tt.want.ModelAnswer ||
				strings.Join(got.Strengths, "|") != strings.Join(tt.want.Strengths, "|") ||
				strings.Join(got.Improvements, "|") != strings.Join(tt.want.Improvements, "|") {
				t.Errorf("ParseFeedback() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewEvaluator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai", Config{Provider: "openai", APIKey: "k"}, false},
		{"groq", Config{Provider: "groq", APIKey: "k"}, false},
		{"openai without key", Config{Provider: "openai"}, true},
		{"groq without key", Config{Provider: "groq"}, true},
		{"unknown", Config{Provider: "mistral", APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEvaluator(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEvaluator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && e == nil {
				t.Error("NewEvaluator() returned nil evaluator")
			}
		})
	}
}

// chatServer answers chat completion requests with content and records the last request body.
func chatServer(t *testing.T, content string, lastBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if lastBody != nil {
			_ = json.Unmarshal(body, lastBody)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestChatEvaluatorEvaluate(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, `{"score": 8, "strengths": ["structured"], "improvements": ["numbers"], "modelAnswer": "Use a queue."}`, &body)
	defer srv.Close()

	e := NewOpenAIEvaluator(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Seniority: "mid"})
	fb, err := e.Evaluate(context.Background(), "How would you buffer audio?", "with a queue")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if fb.Score != 8 || fb.ModelAnswer != "Use a queue." {
		t.Errorf("Evaluate() = %+v", fb)
	}

	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want default gpt-4o-mini", body["model"])
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", body["response_format"])
	}
}

func TestChatEvaluatorRejectsMalformedReply(t *testing.T) {
	srv := chatServer(t, `{"score": 42}`, nil)
	defer srv.Close()

	e := NewGroqEvaluator(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	_, err := e.Evaluate(context.Background(), "q", "a")
	if !errors.Is(err, ErrMalformedFeedback) {
		t.Fatalf("Evaluate() error = %v, want ErrMalformedFeedback", err)
	}
}

func TestChatEvaluatorSkipsEmptyAnswer(t *testing.T) {
	e := NewOpenAIEvaluator(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	if _, err := e.Evaluate(context.Background(), "q", "   "); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("Evaluate() error = %v, want ErrEmptyAnswer", err)
	}
}
