package questions

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed bank.yaml
var defaultBank []byte

// ErrNoQuestions is returned when nothing in the bank can be asked.
var ErrNoQuestions = errors.New("no matching questions")

var (
	Domains      = []string{"backend", "frontend", "data"}
	Seniorities  = []string{"junior", "mid", "senior"}
	SessionTypes = []string{"technical", "behavioral", "system-design"}
)

// Question is one prompt. Empty tags match any profile value.
type Question struct {
	ID        string `yaml:"id"`
	Text      string `yaml:"text"`
	Domain    string `yaml:"domain"`
	Seniority string `yaml:"seniority"`
	Type      string `yaml:"type"`
}

// Profile selects which questions are asked.
type Profile struct {
	Domain      string
	Seniority   string
	SessionType string
}

type Bank struct {
	questions []Question
	rand      func(n int) int
}

type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// Default returns the bank shipped with the binary.
func Default() (*Bank, error) {
	return Parse(defaultBank)
}

// Load reads a user bank file. An empty path gives the default bank.
func Load(path string) (*Bank, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank %s: %w", path, err)
	}
	bank, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("question bank %s: %w", path, err)
	}
	return bank, nil
}

func Parse(data []byte) (*Bank, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	seen := make(map[string]bool, len(file.Questions))
	for i, q := range file.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: missing id", i)
		}
		if q.Text == "" {
			return nil, fmt.Errorf("question %s: missing text", q.ID)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("question %s: duplicate id", q.ID)
		}
		seen[q.ID] = true
	}
	if len(file.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	return &Bank{questions: file.Questions, rand: rand.IntN}, nil
}

func (b *Bank) Len() int {
	return len(b.questions)
}

// Pick returns a random question matching the profile that is not in exclude. When nothing
// matches exactly, the session type and then the seniority are relaxed.
func (b *Bank) Pick(p Profile, exclude map[string]bool) (Question, error) {
	attempts := []Profile{
		p,
		{Domain: p.Domain, Seniority: p.Seniority},
		{Domain: p.Domain},
	}
	for _, profile := range attempts {
		if candidates := b.match(profile, exclude); len(candidates) > 0 {
			return candidates[b.rand(len(candidates))], nil
		}
	}
	return Question{}, ErrNoQuestions
}

func (b *Bank) match(p Profile, exclude map[string]bool) []Question {
	var out []Question
	for _, q := range b.questions {
		if exclude[q.ID] {
			continue
		}
		if tagMatches(q.Domain, p.Domain) && tagMatches(q.Seniority, p.Seniority) && tagMatches(q.Type, p.SessionType) {
			out = append(out, q)
		}
	}
	return out
}

func tagMatches(tag, want string) bool {
	return tag == "" || want == "" || tag == want
}
