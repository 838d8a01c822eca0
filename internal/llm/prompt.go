package llm

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt describes the interviewer role and the exact JSON shape expected back
func BuildSystemPrompt(cfg Config) string {
	var b strings.Builder

	b.WriteString("You are an experienced technical interviewer grading a candidate's spoken answer.\n")
	b.WriteString("The answer was transcribed from speech, so ignore filler words and transcription noise.\n\n")

	var profile []string
	if cfg.Seniority != "" {
		profile = append(profile, fmt.Sprintf("seniority: %s", cfg.Seniority))
	}
	if cfg.Domain != "" {
		profile = append(profile, fmt.Sprintf("domain: %s", cfg.Domain))
	}
	if cfg.SessionType != "" {
		profile = append(profile, fmt.Sprintf("interview type: %s", cfg.SessionType))
	}
	if len(profile) > 0 {
		fmt.Fprintf(&b, "Candidate profile (%s). Grade against that bar.\n\n", strings.Join(profile, ", "))
	}

	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString(`{"score": <integer 1-10>, "strengths": [<string>...], "improvements": [<string>...], "modelAnswer": <string>}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Keep each strength and improvement to one sentence\n")
	b.WriteString("- Use empty lists rather than omitting a field\n")
	b.WriteString("- The model answer should be what a strong candidate would say in about two minutes\n")

	return b.String()
}

// BuildUserPrompt pairs the question with the candidate's answer
func BuildUserPrompt(question, answer string) string {
	return fmt.Sprintf("Question:\n%s\n\nCandidate answer:\n%s", strings.TrimSpace(question), strings.TrimSpace(answer))
}
