package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprinterview/internal/metrics"
	"github.com/leonardotrapani/hyprinterview/internal/queue"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
	"github.com/leonardotrapani/hyprinterview/internal/transcript"
)

type Status string

const (
	Idle      Status = "idle"
	Recording Status = "recording"
	Error     Status = "error"
)

// DrainState tracks the transcription side of the session. At most one call is in flight
// while Draining; AwaitingRetry holds the queue until the backoff timer fires.
type DrainState string

const (
	DrainIdle          DrainState = "idle"
	Draining           DrainState = "draining"
	DrainAwaitingRetry DrainState = "awaiting_retry"
)

type QuestionID string

// ErrRecording is returned by TypeAnswer while the microphone is live.
var ErrRecording = errors.New("recording in progress")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

type WarningKind string

const (
	WarningDeviceUnavailable    WarningKind = "device_unavailable"
	WarningTranscriptionDropped WarningKind = "transcription_dropped"
	WarningMalformedBatch       WarningKind = "malformed_batch"
)

// Warning is a user-visible failure. Transient errors never become warnings.
type Warning struct {
	Kind    WarningKind
	Message string
	Err     error
}

func (w Warning) Error() string {
	if w.Err != nil {
		return w.Message + ": " + w.Err.Error()
	}
	return w.Message
}

// Transcriber turns one batch into text. *transcriber.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, batch queue.Batch) (string, error)
}

type Config struct {
	MinBatchBytes int
	MaxRetries    int
	RetryDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinBatchBytes: queue.DefaultMinBatchBytes,
		MaxRetries:    3,
		RetryDelay:    800 * time.Millisecond,
	}
}

func (c Config) normalize() Config {
	if c.MinBatchBytes <= 0 {
		c.MinBatchBytes = queue.DefaultMinBatchBytes
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// Snapshot is a consistent view of the session taken inside the event loop.
type Snapshot struct {
	Status       Status
	Drain        DrainState
	QuestionID   QuestionID
	Question     string
	RecordingID  string
	Transcript   string
	QueuedBytes  int
	QueuedChunks int
	Capturing    bool
}

// Session owns one interview answer pipeline: the capture device, the chunk queue, the
// running transcript and the single in-flight transcription call. All state lives in one
// goroutine; the exported methods talk to it through events.
type Session struct {
	config      Config
	source      recording.Source
	transcriber Transcriber
	metrics     *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	events   chan event
	updates  chan Snapshot
	warnings chan Warning
	done     chan struct{}

	closeOnce sync.Once

	// loop-owned state
	status          Status
	drain           DrainState
	queue           *queue.Queue
	transcript      transcript.Accumulator
	questionID      QuestionID
	question        string
	recordingID     string
	capturing       bool
	pendingStart    *startReq
	nextTranscriber Transcriber
	retryTimer      *time.Timer
	retryGen        uint64
	waiters         []chan struct{}
}

// New starts a session loop. The loop ends when ctx is cancelled or Close is called.
// A nil m gets an unregistered metric set.
func New(ctx context.Context, config Config, source recording.Source, t Transcriber, m *metrics.Metrics) *Session {
	if m == nil {
		m = metrics.New(nil)
	}
	sessionCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		config:      config.normalize(),
		source:      source,
		transcriber: t,
		metrics:     m,
		ctx:         sessionCtx,
		cancel:      cancel,
		events:      make(chan event, 64),
		updates:     make(chan Snapshot, 16),
		warnings:    make(chan Warning, 16),
		done:        make(chan struct{}),
		status:      Idle,
		drain:       DrainIdle,
		queue:       queue.New(),
		questionID:  QuestionID(uuid.NewString()),
	}

	go s.run()
	return s
}

// StartRecording acquires the capture device. Calling it while already recording is a no-op.
// A device failure is returned and also surfaced on Warnings.
func (s *Session) StartRecording(ctx context.Context) error {
	reply := make(chan error, 1)
	if !s.post(startReq{reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// StopRecording releases the device and flushes whatever audio is queued.
func (s *Session) StopRecording() {
	s.post(stopReq{})
}

// NextQuestion stops any recording, clears the queue and transcript, and starts a new answer.
// Results still in flight for the previous question are discarded.
func (s *Session) NextQuestion(question string) QuestionID {
	reply := make(chan QuestionID, 1)
	if !s.post(nextReq{question: question, reply: reply}) {
		return ""
	}
	select {
	case id := <-reply:
		return id
	case <-s.done:
		return ""
	}
}

// TypeAnswer appends typed text to the running transcript. It is refused while recording.
func (s *Session) TypeAnswer(text string) error {
	reply := make(chan error, 1)
	if !s.post(typeReq{text: text, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// SetTranscriber swaps the transcription client. It takes effect on the next recording.
func (s *Session) SetTranscriber(t Transcriber) {
	s.post(setTranscriberReq{t: t})
}

func (s *Session) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !s.post(snapshotReq{reply: reply}) {
		return Snapshot{Status: Idle, Drain: DrainIdle}
	}
	select {
	case snap := <-reply:
		return snap
	case <-s.done:
		return Snapshot{Status: Idle, Drain: DrainIdle}
	}
}

func (s *Session) Transcript() string {
	return s.Snapshot().Transcript
}

func (s *Session) Status() Status {
	return s.Snapshot().Status
}

// Updates delivers a snapshot whenever the transcript or state changes. Slow readers only
// see the latest values. The channel is closed when the session ends.
func (s *Session) Updates() <-chan Snapshot {
	return s.updates
}

// Warnings delivers permanent failures. The channel is closed when the session ends.
func (s *Session) Warnings() <-chan Warning {
	return s.warnings
}

// Wait blocks until the session is not recording and nothing is queued, in flight or
// waiting for a retry.
func (s *Session) Wait(ctx context.Context) error {
	reply := make(chan struct{})
	if !s.post(waitReq{reply: reply}) {
		return ErrClosed
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// Close releases the device, cancels timers and in-flight calls, and stops the loop.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.post(closeReq{})
	})
	<-s.done
}

func (s *Session) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
