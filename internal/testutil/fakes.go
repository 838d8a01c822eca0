package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/leonardotrapani/hyprinterview/internal/queue"
)

// MockSource is a recording.Source driven by the test: chunks are pushed with Emit and the
// device is released on Stop unless HoldOnStop is set, in which case Finish closes it.
type MockSource struct {
	StartError error
	HoldOnStop bool

	mu     sync.Mutex
	chunks chan queue.Chunk
	errs   chan error
	open   bool
	starts int
	stops  int
}

func NewMockSource() *MockSource {
	return &MockSource{}
}

func (m *MockSource) Start(ctx context.Context) (<-chan queue.Chunk, <-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StartError != nil {
		return nil, nil, m.StartError
	}
	if m.open {
		return nil, nil, errors.New("already recording")
	}

	chunks := make(chan queue.Chunk, 64)
	errs := make(chan error, 4)
	m.chunks, m.errs, m.open = chunks, errs, true
	m.starts++

	go func() {
		<-ctx.Done()
		m.finish(chunks)
	}()

	return chunks, errs, nil
}

func (m *MockSource) Stop() error {
	m.mu.Lock()
	m.stops++
	hold := m.HoldOnStop
	chunks := m.chunks
	m.mu.Unlock()

	if !hold {
		m.finish(chunks)
	}
	return nil
}

// Emit pushes a chunk as if the device produced it. It is a no-op once the source is closed.
func (m *MockSource) Emit(c queue.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		m.chunks <- c
	}
}

// EmitSize pushes a fresh chunk of n bytes filled with fill.
func (m *MockSource) EmitSize(n int, fill byte) queue.Chunk {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = fill
	}
	c := queue.Chunk{Payload: payload, MimeType: "audio/pcm;rate=16000;channels=1"}
	m.Emit(c)
	return c
}

// Fail reports a device error on the open recording.
func (m *MockSource) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		m.errs <- err
	}
}

// Finish closes the open recording's channels.
func (m *MockSource) Finish() {
	m.mu.Lock()
	chunks := m.chunks
	m.mu.Unlock()
	m.finish(chunks)
}

func (m *MockSource) finish(chunks chan queue.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open || m.chunks != chunks {
		return
	}
	close(m.chunks)
	close(m.errs)
	m.open = false
}

func (m *MockSource) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func (m *MockSource) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *MockSource) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Result is one scripted transcription outcome.
type Result struct {
	Text string
	Err  error
}

// MockTranscriber returns scripted results in call order and falls back to Default once
// the script runs out. After Hold, every call blocks until Release.
type MockTranscriber struct {
	Default Result

	mu          sync.Mutex
	script      []Result
	calls       []queue.Batch
	inFlight    int
	maxInFlight int
	gate        chan struct{}
	started     chan queue.Batch
}

func NewMockTranscriber(script ...Result) *MockTranscriber {
	return &MockTranscriber{
		script:  script,
		started: make(chan queue.Batch, 128),
	}
}

func (m *MockTranscriber) Transcribe(ctx context.Context, batch queue.Batch) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, batch)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	result := m.Default
	if len(m.script) > 0 {
		result = m.script[0]
		m.script = m.script[1:]
	}
	gate := m.gate
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	select {
	case m.started <- batch:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return result.Text, result.Err
}

// Hold makes subsequent calls block until Release.
func (m *MockTranscriber) Hold() {
	m.mu.Lock()
	m.gate = make(chan struct{})
	m.mu.Unlock()
}

// Release lets one held call return.
func (m *MockTranscriber) Release() {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		gate <- struct{}{}
	}
}

// Unhold lets every held and future call through.
func (m *MockTranscriber) Unhold() {
	m.mu.Lock()
	gate := m.gate
	m.gate = nil
	m.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// Started delivers each batch as its call begins.
func (m *MockTranscriber) Started() <-chan queue.Batch {
	return m.started
}

func (m *MockTranscriber) Calls() []queue.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.Batch, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockTranscriber) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}
