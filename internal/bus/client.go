package bus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leonardotrapani/hyprinterview/internal/llm"
)

// Client issues control commands and decodes the replies.
type Client struct{}

func (Client) call(cmd byte, arg, wantKind string) (string, error) {
	resp, err := SendCommandArg(cmd, arg)
	if err != nil {
		return "", err
	}
	kind, payload, err := ParseReply(resp)
	if err != nil {
		return "", err
	}
	if kind != wantKind {
		return "", fmt.Errorf("unexpected reply %q", strings.TrimSpace(resp))
	}
	return payload, nil
}

// Toggle starts or stops recording and reports whether the daemon is now recording.
func (c Client) Toggle() (bool, error) {
	payload, err := c.call(CmdToggle, "", "STATUS")
	if err != nil {
		return false, err
	}
	return payload == "recording=true", nil
}

// Next asks for a new question and returns its text.
func (c Client) Next() (string, error) {
	return c.call(CmdNext, "", "QUESTION")
}

func (c Client) Status() (Status, error) {
	payload, err := c.call(CmdStatus, "", "STATUS")
	if err != nil {
		return Status{}, err
	}
	return ParseStatus(payload)
}

func (c Client) Transcript() (string, error) {
	return c.call(CmdTranscript, "", "TRANSCRIPT")
}

// Answer submits a typed answer.
func (c Client) Answer(text string) error {
	_, err := c.call(CmdAnswer, text, "OK")
	return err
}

// Evaluate stops recording, waits for pending transcription and scores the answer.
func (c Client) Evaluate() (llm.Feedback, error) {
	payload, err := c.call(CmdEvaluate, "", "FEEDBACK")
	if err != nil {
		return llm.Feedback{}, err
	}
	var fb llm.Feedback
	if err := json.Unmarshal([]byte(payload), &fb); err != nil {
		return llm.Feedback{}, fmt.Errorf("decode feedback: %w", err)
	}
	return fb, nil
}

func (c Client) Quit() error {
	_, err := c.call(CmdQuit, "", "OK")
	return err
}
