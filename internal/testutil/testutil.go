package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/llm"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "test-api-key"},
	}
	cfg.Pipeline.MinBatchBytes = 1000
	cfg.Pipeline.RetryDelay = 10 * time.Millisecond
	cfg.Notifications.Type = "log"
	cfg.Transcription.Threads = 1
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// MockEvaluator implements llm.Evaluator for testing
type MockEvaluator struct {
	Feedback llm.Feedback
	Err      error

	mu      sync.Mutex
	answers []string
}

func NewMockEvaluator(score int) *MockEvaluator {
	return &MockEvaluator{Feedback: llm.Feedback{
		Score:        score,
		Strengths:    []string{"clear structure"},
		Improvements: []string{"mention trade-offs"},
		ModelAnswer:  "A model answer.",
	}}
}

func (m *MockEvaluator) Evaluate(ctx context.Context, question, answer string) (llm.Feedback, error) {
	m.mu.Lock()
	m.answers = append(m.answers, answer)
	m.mu.Unlock()

	if answer == "" {
		return llm.Feedback{}, llm.ErrEmptyAnswer
	}
	if m.Err != nil {
		return llm.Feedback{}, m.Err
	}
	return m.Feedback, nil
}

// Answers returns every answer passed to Evaluate in call order
func (m *MockEvaluator) Answers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.answers))
	copy(out, m.answers)
	return out
}

// MockNotifier implements notify.Notifier and records every message
type MockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *MockNotifier) record(msg string) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
}

func (m *MockNotifier) RecordingChanged(on bool) {
	if on {
		m.record("recording:on")
		return
	}
	m.record("recording:off")
}

func (m *MockNotifier) QuestionReady(question string) { m.record("question:" + question) }
func (m *MockNotifier) Warning(msg string)            { m.record("warning:" + msg) }
func (m *MockNotifier) Error(msg string)              { m.record("error:" + msg) }
func (m *MockNotifier) Notify(title, message string)  { m.record(title + ":" + message) }

// Messages returns every recorded notification
func (m *MockNotifier) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}

// ErrMock is a generic failure for fakes
var ErrMock = errors.New("mock failure")
