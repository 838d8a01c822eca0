package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// ChatEvaluator implements Evaluator over an OpenAI-compatible chat completions API
type ChatEvaluator struct {
	client       *openai.Client
	config       Config
	name         string
	defaultModel string
}

// NewOpenAIEvaluator creates an evaluator backed by OpenAI
func NewOpenAIEvaluator(cfg Config) *ChatEvaluator {
	return newChatEvaluator(cfg, "openai", "", "gpt-4o-mini")
}

// NewGroqEvaluator creates an evaluator backed by Groq's OpenAI-compatible API
func NewGroqEvaluator(cfg Config) *ChatEvaluator {
	return newChatEvaluator(cfg, "groq", groqBaseURL, "llama-3.3-70b-versatile")
}

func newChatEvaluator(cfg Config, name, baseURL, defaultModel string) *ChatEvaluator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &ChatEvaluator{
		client:       openai.NewClientWithConfig(clientConfig),
		config:       cfg,
		name:         name,
		defaultModel: defaultModel,
	}
}

func (e *ChatEvaluator) Evaluate(ctx context.Context, question, answer string) (Feedback, error) {
	if strings.TrimSpace(answer) == "" {
		return Feedback{}, ErrEmptyAnswer
	}

	model := e.config.Model
	if model == "" {
		model = e.defaultModel
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(e.config)},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(question, answer)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("%s-evaluator: API call failed after %v: %v", e.name, duration, err)
		return Feedback{}, fmt.Errorf("%s chat completion: %w", e.name, err)
	}

	if len(resp.Choices) == 0 {
		return Feedback{}, fmt.Errorf("%s chat completion: no response choices", e.name)
	}

	feedback, err := ParseFeedback(resp.Choices[0].Message.Content)
	if err != nil {
		log.Printf("%s-evaluator: rejected reply after %v: %v", e.name, duration, err)
		return Feedback{}, err
	}

	log.Printf("%s-evaluator: scored answer %d/10 in %v", e.name, feedback.Score, duration)
	return feedback, nil
}
