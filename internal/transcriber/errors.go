package transcriber

import (
	"errors"
	"fmt"
)

// ErrMalformedBatch means the pipeline handed over a batch that breaks queue invariants
// (no chunks, or chunks with different mime types). It indicates a bug, not a transient failure.
var ErrMalformedBatch = errors.New("malformed transcription batch")

// TranscriptionError is returned when the transcription backend fails a request.
// Status is the upstream HTTP status when one is known, zero otherwise.
type TranscriptionError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *TranscriptionError) Error() string {
	if e == nil {
		return "transcription error"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s transcription failed (status %d): %s", e.Provider, e.Status, msg)
	}
	return fmt.Sprintf("%s transcription failed: %s", e.Provider, msg)
}

func (e *TranscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsTranscriptionError extracts a *TranscriptionError from err's chain.
func AsTranscriptionError(err error) (*TranscriptionError, bool) {
	var te *TranscriptionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func newStatusError(provider string, status int, body []byte) error {
	return &TranscriptionError{Provider: provider, Status: status, Message: string(body)}
}
