package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/language"
)

// WhisperCppAdapter implements Adapter for local whisper-cpp transcription
type WhisperCppAdapter struct {
	modelPath string
	language  string
	threads   int
	binary    string
}

// NewWhisperCppAdapter creates a new whisper-cpp adapter
// modelPath: full path to the ggml model file
// lang: whisper-cpp language code ("" for auto)
// threads: number of CPU threads (0 lets whisper-cli decide)
func NewWhisperCppAdapter(modelPath, lang string, threads int) *WhisperCppAdapter {
	return &WhisperCppAdapter{
		modelPath: modelPath,
		language:  lang,
		threads:   threads,
		binary:    "whisper-cli",
	}
}

func (a *WhisperCppAdapter) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	if _, err := os.Stat(a.modelPath); os.IsNotExist(err) {
		return "", fmt.Errorf("model file not found: %s", a.modelPath)
	}

	whisperPath, err := exec.LookPath(a.binary)
	if err != nil {
		return "", fmt.Errorf("%s not found: install whisper.cpp first", a.binary)
	}

	upload, err := prepareUpload(audioData, mimeType)
	if err != nil {
		return "", err
	}
	if upload.ContentType != "audio/wav" {
		return "", fmt.Errorf("whisper-cpp only accepts WAV or raw PCM input, got %s", upload.ContentType)
	}

	tmp, err := os.CreateTemp("", "hyprinterview-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpFile := tmp.Name()
	defer os.Remove(tmpFile)

	if _, err := tmp.Write(upload.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, whisperPath, a.buildArgs(tmpFile)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("whisper-cpp: command failed after %v: %v\nstderr: %s", duration, err, stderr.String())
		return "", &TranscriptionError{Provider: "whisper-cpp", Message: strings.TrimSpace(stderr.String()), Err: err}
	}

	text := strings.TrimSpace(stdout.String())
	log.Printf("whisper-cpp: transcribed %d bytes in %v: %q", len(audioData), duration, text)
	return text, nil
}

func (a *WhisperCppAdapter) buildArgs(file string) []string {
	lang := language.ToProviderFormat(a.language, "whisper-cpp")

	args := []string{
		"-m", a.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", file,
	}
	if a.threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.threads))
	}
	return args
}
