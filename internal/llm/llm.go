package llm

import (
	"context"
	"fmt"
)

// Evaluator scores an interview answer
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer string) (Feedback, error)
}

// Config holds evaluator configuration
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // overrides the provider endpoint, mainly for tests

	// interview profile the answer is judged against
	Domain      string
	Seniority   string
	SessionType string
}

// NewEvaluator creates an evaluator based on the provider
func NewEvaluator(cfg Config) (Evaluator, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIEvaluator(cfg), nil
	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Groq API key required")
		}
		return NewGroqEvaluator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
