package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedFeedback means the model replied with something that is not a usable evaluation.
var ErrMalformedFeedback = errors.New("malformed feedback")

// ErrEmptyAnswer is returned instead of spending a request on an empty answer.
var ErrEmptyAnswer = errors.New("answer is empty")

type Feedback struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	ModelAnswer  string   `json:"modelAnswer"`
}

// ParseFeedback decodes and validates a model reply. Markdown code fences around the JSON
// are tolerated since some models add them even in JSON mode.
func ParseFeedback(raw string) (Feedback, error) {
	raw = stripFences(strings.TrimSpace(raw))

	var shape struct {
		Score        *int      `json:"score"`
		Strengths    *[]string `json:"strengths"`
		Improvements *[]string `json:"improvements"`
		ModelAnswer  string    `json:"modelAnswer"`
	}
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		return Feedback{}, fmt.Errorf("%w: %v", ErrMalformedFeedback, err)
	}

	switch {
	case shape.Score == nil:
		return Feedback{}, fmt.Errorf("%w: missing score", ErrMalformedFeedback)
	case *shape.Score < 1 || *shape.Score > 10:
		return Feedback{}, fmt.Errorf("%w: score %d outside 1-10", ErrMalformedFeedback, *shape.Score)
	case shape.Strengths == nil:
		return Feedback{}, fmt.Errorf("%w: missing strengths", ErrMalformedFeedback)
	case shape.Improvements == nil:
		return Feedback{}, fmt.Errorf("%w: missing improvements", ErrMalformedFeedback)
	case strings.TrimSpace(shape.ModelAnswer) == "":
		return Feedback{}, fmt.Errorf("%w: missing modelAnswer", ErrMalformedFeedback)
	}

	return Feedback{
		Score:        *shape.Score,
		Strengths:    cleanList(*shape.Strengths),
		Improvements: cleanList(*shape.Improvements),
		ModelAnswer:  strings.TrimSpace(shape.ModelAnswer),
	}, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
