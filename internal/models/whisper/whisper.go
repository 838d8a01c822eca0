package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DirEnv overrides where local models are stored.
const DirEnv = "HYPRINTERVIEW_MODELS_DIR"

const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Model describes a ggml whisper model usable by whisper-cli.
type Model struct {
	ID           string
	Filename     string
	Size         string
	SizeBytes    int64
	Multilingual bool
}

var catalog = []Model{
	{ID: "tiny.en", Filename: "ggml-tiny.en.bin", Size: "75MB", SizeBytes: 75_000_000},
	{ID: "base.en", Filename: "ggml-base.en.bin", Size: "142MB", SizeBytes: 142_000_000},
	{ID: "small.en", Filename: "ggml-small.en.bin", Size: "466MB", SizeBytes: 466_000_000},
	{ID: "medium.en", Filename: "ggml-medium.en.bin", Size: "1.5GB", SizeBytes: 1_500_000_000},
	{ID: "tiny", Filename: "ggml-tiny.bin", Size: "75MB", SizeBytes: 75_000_000, Multilingual: true},
	{ID: "base", Filename: "ggml-base.bin", Size: "142MB", SizeBytes: 142_000_000, Multilingual: true},
	{ID: "small", Filename: "ggml-small.bin", Size: "466MB", SizeBytes: 466_000_000, Multilingual: true},
	{ID: "medium", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_500_000_000, Multilingual: true},
	{ID: "large-v3", Filename: "ggml-large-v3.bin", Size: "3GB", SizeBytes: 3_000_000_000, Multilingual: true},
}

// Lookup finds a catalog entry by ID.
func Lookup(id string) (Model, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// List returns a copy of the catalog.
func List() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// Store manages model files in one directory.
type Store struct {
	Dir     string
	BaseURL string
	Client  *http.Client
}

// DefaultDir is $HYPRINTERVIEW_MODELS_DIR or ~/.local/share/hyprinterview/models/whisper.
func DefaultDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "hyprinterview", "models", "whisper"), nil
}

func DefaultStore() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get models directory: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// Path returns where the model file lives, installed or not.
func (s *Store) Path(id string) (string, error) {
	m, ok := Lookup(id)
	if !ok {
		return "", fmt.Errorf("unknown model: %s", id)
	}
	return filepath.Join(s.Dir, m.Filename), nil
}

func (s *Store) Installed(id string) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// ProgressFunc reports bytes written so far against the expected total.
type ProgressFunc func(downloaded, total int64)

type progressWriter struct {
	w          io.Writer
	written    int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.onProgress != nil {
		p.onProgress(p.written, p.total)
	}
	return n, err
}

// Download fetches a model into the store. The file only appears under its
// final name once the transfer completed.
func (s *Store) Download(ctx context.Context, id string, onProgress ProgressFunc) error {
	m, ok := Lookup(id)
	if !ok {
		return fmt.Errorf("unknown model: %s", id)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+m.Filename, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = m.SizeBytes
	}

	dest := filepath.Join(s.Dir, m.Filename)
	tmp := dest + ".downloading"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp)

	_, err = io.Copy(&progressWriter{w: out, total: total, onProgress: onProgress}, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	return nil
}

func (s *Store) Remove(id string) error {
	if !s.Installed(id) {
		return fmt.Errorf("model not installed: %s", id)
	}
	path, _ := s.Path(id)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	return nil
}

// Resolve turns a catalog model ID into the path of its installed file.
// An explicit path always wins.
func Resolve(modelPath, modelID string) (string, error) {
	if modelPath != "" {
		return modelPath, nil
	}
	if modelID == "" {
		return "", fmt.Errorf("no whisper model configured")
	}
	s, err := DefaultStore()
	if err != nil {
		return "", err
	}
	if !s.Installed(modelID) {
		return "", fmt.Errorf("model not installed: %s (run hyprinterview model download %s)", modelID, modelID)
	}
	return s.Path(modelID)
}
