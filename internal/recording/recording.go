package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/queue"
)

// ErrDeviceUnavailable means the microphone could not be acquired (no PipeWire, no permission,
// recorder failed to start). It is fatal to the current recording attempt.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// Source produces audio chunks from a capture device. Start acquires the device exclusively;
// Stop releases it. After Stop the chunk channel delivers any trailing audio and is closed.
type Source interface {
	Start(ctx context.Context) (<-chan queue.Chunk, <-chan error, error)
	Stop() error
}

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	BufferSize        int
	Device            string
	ChannelBufferSize int
	ChunkInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16",
		BufferSize:        8192,
		Device:            "",
		ChannelBufferSize: 30,
		ChunkInterval:     1500 * time.Millisecond,
	}
}

// MimeType is the type attached to every chunk this recorder emits.
func (c Config) MimeType() string {
	return queue.PCMMimeType(c.SampleRate, c.Channels)
}

// frameBytes is the size of one s16 sample across all channels.
func (c Config) frameBytes() int {
	return 2 * c.Channels
}

// Recorder captures raw PCM from PipeWire via pw-record and emits one chunk per ChunkInterval.
type Recorder struct {
	config    Config
	recording atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewRecorder(config Config) *Recorder {
	return &Recorder{config: config}
}

func NewDefaultRecorder() *Recorder { return NewRecorder(DefaultConfig()) }

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *Recorder) Start(ctx context.Context) (<-chan queue.Chunk, <-chan error, error) {
	if !r.recording.CompareAndSwap(false, true) {
		return nil, nil, fmt.Errorf("already recording")
	}

	chunkCh, errCh, err := r.start(ctx)
	if err != nil {
		r.recording.Store(false)
		return nil, nil, err
	}
	return chunkCh, errCh, nil
}

func (r *Recorder) start(ctx context.Context) (<-chan queue.Chunk, <-chan error, error) {
	if err := r.validateConfig(); err != nil {
		return nil, nil, err
	}

	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	// Create a cancellable context specific to this recording session.
	recordingCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(recordingCtx, "pw-record", r.buildPwRecordArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%w: start pw-record: %v", ErrDeviceUnavailable, err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.cancel = cancel
	r.mu.Unlock()

	// Log stderr lines to aid diagnostics.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("Recording stderr: %s", scanner.Text())
		}
	}()

	chunkCh := make(chan queue.Chunk, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)
	frameCh := make(chan []byte, r.config.ChannelBufferSize)

	r.wg.Add(2)
	go r.readLoop(stdout, frameCh, errCh)
	go r.captureLoop(recordingCtx, frameCh, chunkCh, errCh)

	log.Printf("Recording: started (rate=%d channels=%d interval=%v)",
		r.config.SampleRate, r.config.Channels, r.config.ChunkInterval)
	return chunkCh, errCh, nil
}

// Stop releases the device. It is safe to call at any time and more than once.
func (r *Recorder) Stop() error {
	if !r.recording.Load() {
		return nil
	}

	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	return nil
}

func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) readLoop(stdout io.Reader, frameCh chan<- []byte, errCh chan<- error) {
	defer func() {
		close(frameCh)
		r.wg.Done()
	}()

	buffer := make([]byte, r.config.BufferSize)
	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buffer[:n])
			frameCh <- frame
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrClosedPipe) {
				r.emitErr(errCh, fmt.Errorf("read audio: %w", readErr))
			}
			return
		}
	}
}

func (r *Recorder) captureLoop(ctx context.Context, frameCh <-chan []byte, chunkCh chan<- queue.Chunk, errCh chan<- error) {
	defer func() {
		// the process is reaped and the recorder free again before consumers see the close
		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.cancel = nil
		r.mu.Unlock()
		r.recording.Store(false)

		close(chunkCh)
		close(errCh)
		r.wg.Done()
	}()

	if ended := chunkFrames(ctx, frameCh, chunkCh, r.config.ChunkInterval, r.config.frameBytes(), r.config.MimeType()); ended && ctx.Err() == nil {
		r.emitErr(errCh, fmt.Errorf("%w: pw-record exited unexpectedly", ErrDeviceUnavailable))
	}
	log.Printf("Recording: stopped")
}

// chunkFrames groups incoming frames into one chunk per interval. Chunks always hold whole
// sample frames of frameBytes; a split frame is carried into the next interval. When ctx ends
// or the frame source closes, the partially filled interval is emitted as a final chunk. It
// reports whether the frame source ended on its own.
func chunkFrames(ctx context.Context, frameCh <-chan []byte, chunkCh chan<- queue.Chunk, interval time.Duration, frameBytes int, mimeType string) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if frameBytes < 1 {
		frameBytes = 1
	}

	var pending []byte
	started := time.Now()

	take := func() (queue.Chunk, bool) {
		n := len(pending) - len(pending)%frameBytes
		if n == 0 {
			return queue.Chunk{}, false
		}
		c := queue.Chunk{Payload: pending[:n:n], MimeType: mimeType, Timestamp: started}
		pending = append([]byte(nil), pending[n:]...)
		started = time.Now()
		return c, true
	}

	// final flushes block: the consumer drains chunkCh until it is closed
	flush := func() {
		c, ok := take()
		if len(pending) > 0 {
			log.Printf("Recording: discarding %d trailing bytes of a partial frame", len(pending))
			pending = nil
		}
		if ok {
			chunkCh <- c
		}
	}

	for {
		select {
		case frame, ok := <-frameCh:
			if !ok {
				flush()
				return true
			}
			if len(pending) == 0 {
				started = time.Now()
			}
			pending = append(pending, frame...)

		case <-ticker.C:
			c, ok := take()
			if !ok {
				continue
			}
			select {
			case chunkCh <- c:
			case <-ctx.Done():
				// keep it for the final flush
				pending = append(c.Payload, pending...)
			}

		case <-ctx.Done():
			// the killed process closes stdout, so this ends once the reader has flushed
			for frame := range frameCh {
				pending = append(pending, frame...)
			}
			flush()
			return false
		}
	}
}

func (r *Recorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
		// Best-effort; avoid blocking
	}
	log.Printf("Recording error: %v", err)
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	// Use a short timeout to avoid hangs on misconfigured systems.
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.ChunkInterval <= 0 {
		return fmt.Errorf("invalid ChunkInterval: %v", r.config.ChunkInterval)
	}
	// chunks are labelled as 16-bit PCM
	if r.config.Format != "s16" {
		return fmt.Errorf("invalid Format: %q (only s16 is supported)", r.config.Format)
	}
	if r.config.BufferSize%r.config.frameBytes() != 0 {
		return fmt.Errorf("invalid BufferSize: %d (must be a multiple of the %d byte frame size)",
			r.config.BufferSize, r.config.frameBytes())
	}
	return nil
}
