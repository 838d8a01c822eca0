package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/metrics"
	"github.com/leonardotrapani/hyprinterview/internal/pipeline"
	"github.com/leonardotrapani/hyprinterview/internal/queue"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
	"github.com/leonardotrapani/hyprinterview/internal/testutil"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

var errUpstream = &transcriber.TranscriptionError{Provider: "test", Status: 503, Message: "unavailable"}

func testConfig() pipeline.Config {
	return pipeline.Config{
		MinBatchBytes: 16000,
		MaxRetries:    3,
		RetryDelay:    5 * time.Millisecond,
	}
}

type harness struct {
	s   *pipeline.Session
	src *testutil.MockSource
	tr  *testutil.MockTranscriber
	m   *metrics.Metrics
}

func newHarness(t *testing.T, cfg pipeline.Config, tr *testutil.MockTranscriber) *harness {
	t.Helper()
	h := &harness{
		src: testutil.NewMockSource(),
		tr:  tr,
		m:   metrics.New(nil),
	}
	h.s = pipeline.New(context.Background(), cfg, h.src, tr, h.m)
	t.Cleanup(func() {
		tr.Unhold()
		h.s.Close()
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := h.s.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording() error: %v", err)
	}
}

func (h *harness) stopAndWait(t *testing.T) {
	t.Helper()
	h.s.StopRecording()
	h.wait(t)
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := h.s.Wait(ctx); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
}

func (h *harness) queued(t *testing.T, bytes int) {
	t.Helper()
	testutil.WaitForCondition(t, func() bool { return h.s.Snapshot().QueuedBytes == bytes }, 2*time.Second)
}

func (h *harness) transcript(t *testing.T, want string) {
	t.Helper()
	testutil.WaitForCondition(t, func() bool { return h.s.Transcript() == want }, 2*time.Second)
}

func (h *harness) started(t *testing.T) queue.Batch {
	t.Helper()
	select {
	case b := <-h.tr.Started():
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a transcription call")
		return queue.Batch{}
	}
}

func (h *harness) warning(t *testing.T) pipeline.Warning {
	t.Helper()
	select {
	case w := <-h.s.Warnings():
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a warning")
		return pipeline.Warning{}
	}
}

func (h *harness) noWarning(t *testing.T) {
	t.Helper()
	select {
	case w := <-h.s.Warnings():
		t.Fatalf("unexpected warning: %+v", w)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestThresholdBatchAndTranscript(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber(testutil.Result{Text: " hello world "}))
	h.start(t)

	h.src.EmitSize(5000, 1)
	h.src.EmitSize(6000, 2)
	h.src.EmitSize(6000, 3)
	h.transcript(t, "hello world")

	calls := h.tr.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d transcription calls, want 1", len(calls))
	}
	if len(calls[0].Chunks) != 3 || calls[0].Size() != 17000 {
		t.Errorf("batch = %d chunks / %d bytes, want 3 / 17000", len(calls[0].Chunks), calls[0].Size())
	}

	// an empty queue drains to nothing
	h.stopAndWait(t)
	if n := len(h.tr.Calls()); n != 1 {
		t.Errorf("got %d calls after stop, want 1", n)
	}
	if got := promtest.ToFloat64(h.m.BatchesSent); got != 1 {
		t.Errorf("batches sent metric = %v, want 1", got)
	}
}

func TestSubThresholdWaitsUntilForcedFlush(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber(testutil.Result{Text: "short"}))
	h.start(t)

	h.src.EmitSize(4000, 1)
	h.src.EmitSize(4000, 2)
	h.queued(t, 8000)

	time.Sleep(20 * time.Millisecond)
	if n := len(h.tr.Calls()); n != 0 {
		t.Fatalf("got %d calls below threshold, want 0", n)
	}

	h.stopAndWait(t)

	calls := h.tr.Calls()
	if len(calls) != 1 || len(calls[0].Chunks) != 2 || calls[0].Size() != 8000 {
		t.Fatalf("forced flush = %d calls, want one batch with both chunks", len(calls))
	}
	if h.s.Transcript() != "short" {
		t.Errorf("transcript = %q, want %q", h.s.Transcript(), "short")
	}
}

func TestRetriedChunksGoBeforeFresherAudio(t *testing.T) {
	tr := testutil.NewMockTranscriber(
		testutil.Result{Err: errUpstream},
		testutil.Result{Text: "first"},
		testutil.Result{Text: "second"},
	)
	tr.Hold()
	h := newHarness(t, testConfig(), tr)
	h.start(t)

	h.src.EmitSize(16000, 'a')
	h.started(t)
	h.src.EmitSize(16000, 'b')
	h.queued(t, 16000)

	tr.Unhold()
	h.transcript(t, "first second")

	calls := tr.Calls()
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}
	want := []struct {
		fill     byte
		attempts int
	}{{'a', 0}, {'a', 1}, {'b', 0}}
	for i, w := range want {
		if calls[i].Chunks[0].Payload[0] != w.fill || calls[i].Attempts() != w.attempts {
			t.Errorf("call %d = %q attempt %d, want %q attempt %d",
				i, calls[i].Chunks[0].Payload[0], calls[i].Attempts(), w.fill, w.attempts)
		}
	}
}

func TestBatchDroppedAfterMaxRetries(t *testing.T) {
	tr := testutil.NewMockTranscriber()
	tr.Default = testutil.Result{Err: errUpstream}
	h := newHarness(t, testConfig(), tr)
	h.start(t)

	h.src.EmitSize(16000, 1)

	w := h.warning(t)
	if w.Kind != pipeline.WarningTranscriptionDropped {
		t.Errorf("warning kind = %s, want %s", w.Kind, pipeline.WarningTranscriptionDropped)
	}
	if !errors.Is(w.Err, errUpstream) {
		t.Errorf("warning error = %v, want upstream error", w.Err)
	}

	h.stopAndWait(t)
	h.noWarning(t)

	calls := tr.Calls()
	if len(calls) != 4 {
		t.Fatalf("got %d sends, want 4 (first try plus 3 retries)", len(calls))
	}
	for i, c := range calls {
		if c.Attempts() != i {
			t.Errorf("send %d carried attempts %d, want %d", i, c.Attempts(), i)
		}
	}
	if got := promtest.ToFloat64(h.m.BatchesDropped); got != 1 {
		t.Errorf("dropped metric = %v, want 1", got)
	}
	if got := promtest.ToFloat64(h.m.TranscriptionRetries); got != 3 {
		t.Errorf("retries metric = %v, want 3", got)
	}
}

func TestDroppedBatchKeepsEarlierText(t *testing.T) {
	tr := testutil.NewMockTranscriber(testutil.Result{Text: "kept"})
	tr.Default = testutil.Result{Err: errUpstream}
	h := newHarness(t, testConfig(), tr)
	h.start(t)

	h.src.EmitSize(16000, 1)
	h.transcript(t, "kept")
	h.src.EmitSize(16000, 2)
	h.warning(t)

	h.stopAndWait(t)
	if h.s.Transcript() != "kept" {
		t.Errorf("transcript = %q, want partial answer preserved", h.s.Transcript())
	}
}

func TestSingleFlight(t *testing.T) {
	tr := testutil.NewMockTranscriber()
	tr.Default = testutil.Result{Text: "x"}
	tr.Hold()
	h := newHarness(t, testConfig(), tr)
	h.start(t)

	for i := 0; i < 5; i++ {
		h.src.EmitSize(16000, byte(i))
	}
	h.started(t)
	h.queued(t, 4*16000)
	if n := len(tr.Calls()); n != 1 {
		t.Fatalf("got %d concurrent calls, want 1", n)
	}

	tr.Unhold()
	h.stopAndWait(t)

	if got := tr.MaxConcurrent(); got != 1 {
		t.Errorf("max concurrent calls = %d, want 1", got)
	}
	// identical batches are not deduplicated
	if got := h.s.Transcript(); got != "x x x x x" {
		t.Errorf("transcript = %q, want %q", got, "x x x x x")
	}
}

func TestTranscriptJoinsInOrder(t *testing.T) {
	texts := []string{"  Tell me ", "about\n", "", "yourself."}
	script := make([]testutil.Result, len(texts))
	for i, text := range texts {
		script[i] = testutil.Result{Text: text}
	}
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber(script...))
	h.start(t)

	for i := range texts {
		h.src.EmitSize(16000, byte(i))
	}
	h.stopAndWait(t)

	if got := h.s.Transcript(); got != "Tell me about yourself." {
		t.Errorf("transcript = %q", got)
	}
}

func TestStopMidBatchReleasesDeviceAndKeepsResult(t *testing.T) {
	tr := testutil.NewMockTranscriber(testutil.Result{Text: "late but kept"})
	tr.Hold()
	h := newHarness(t, testConfig(), tr)
	h.start(t)

	h.src.EmitSize(16000, 1)
	h.started(t)

	h.s.StopRecording()
	testutil.WaitForCondition(t, func() bool { return !h.src.IsOpen() }, 2*time.Second)

	snap := h.s.Snapshot()
	if snap.Status != pipeline.Idle || snap.Drain != pipeline.Draining {
		t.Errorf("snapshot = %s/%s, want idle/draining", snap.Status, snap.Drain)
	}

	tr.Release()
	h.wait(t)
	if got := h.s.Transcript(); got != "late but kept" {
		t.Errorf("transcript = %q, want in-flight result applied", got)
	}
}

func TestNextQuestionDiscardsLateResults(t *testing.T) {
	tests := []struct {
		name   string
		result testutil.Result
	}{
		{"success", testutil.Result{Text: "old answer"}},
		{"failure", testutil.Result{Err: errUpstream}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testutil.NewMockTranscriber(tt.result)
			tr.Hold()
			h := newHarness(t, testConfig(), tr)
			h.start(t)

			h.src.EmitSize(16000, 1)
			h.started(t)

			id := h.s.NextQuestion("Why this company?")
			tr.Release()
			h.wait(t)

			snap := h.s.Snapshot()
			if snap.Transcript != "" {
				t.Errorf("transcript = %q, want late result discarded", snap.Transcript)
			}
			if snap.QuestionID != id || snap.Question != "Why this company?" {
				t.Errorf("snapshot question = %s %q", snap.QuestionID, snap.Question)
			}
			if n := len(tr.Calls()); n != 1 {
				t.Errorf("got %d calls, want the stale batch never retried", n)
			}
			if got := promtest.ToFloat64(h.m.LateResultsDiscarded); got != 1 {
				t.Errorf("late results metric = %v, want 1", got)
			}
		})
	}
}

func TestStopSendsPendingRetryImmediately(t *testing.T) {
	cfg := testConfig()
	cfg.RetryDelay = time.Hour
	tr := testutil.NewMockTranscriber(testutil.Result{Err: errUpstream}, testutil.Result{Text: "recovered"})
	h := newHarness(t, cfg, tr)
	h.start(t)

	h.src.EmitSize(16000, 1)
	testutil.WaitForCondition(t, func() bool {
		return h.s.Snapshot().Drain == pipeline.DrainAwaitingRetry
	}, 2*time.Second)

	h.stopAndWait(t)
	if got := h.s.Transcript(); got != "recovered" {
		t.Errorf("transcript = %q, want retried batch flushed on stop", got)
	}
}

func TestTrailingAudioAfterStopIsSent(t *testing.T) {
	tr := testutil.NewMockTranscriber()
	tr.Default = testutil.Result{Text: "t"}
	h := newHarness(t, testConfig(), tr)
	h.src.HoldOnStop = true
	h.start(t)

	h.src.EmitSize(1000, 1)
	h.queued(t, 1000)
	h.s.StopRecording()
	h.transcript(t, "t")

	h.src.EmitSize(500, 2)
	h.transcript(t, "t t")

	h.src.Finish()
	h.wait(t)
	if n := len(tr.Calls()); n != 2 {
		t.Errorf("got %d calls, want 2", n)
	}
}

func TestDeviceUnavailableOnStart(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber())
	h.src.StartError = fmt.Errorf("%w: no microphone permission", recording.ErrDeviceUnavailable)

	err := h.s.StartRecording(context.Background())
	if !errors.Is(err, recording.ErrDeviceUnavailable) {
		t.Fatalf("StartRecording() error = %v, want ErrDeviceUnavailable", err)
	}

	w := h.warning(t)
	if w.Kind != pipeline.WarningDeviceUnavailable {
		t.Errorf("warning kind = %s", w.Kind)
	}
	if st := h.s.Status(); st != pipeline.Idle {
		t.Errorf("status = %s, want idle", st)
	}
}

func TestDeviceFailureWhileRecording(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber(testutil.Result{Text: "partial"}))
	h.start(t)

	h.src.EmitSize(2000, 1)
	h.queued(t, 2000)
	h.src.Fail(fmt.Errorf("%w: pw-record exited unexpectedly", recording.ErrDeviceUnavailable))

	if w := h.warning(t); w.Kind != pipeline.WarningDeviceUnavailable {
		t.Errorf("warning kind = %s", w.Kind)
	}
	h.wait(t)
	if st := h.s.Status(); st != pipeline.Idle {
		t.Errorf("status = %s, want idle", st)
	}
	if h.s.Transcript() != "partial" {
		t.Errorf("transcript = %q, want queued audio flushed", h.s.Transcript())
	}
}

func TestMalformedBatchIsNotRetried(t *testing.T) {
	tr := testutil.NewMockTranscriber(testutil.Result{Err: transcriber.ErrMalformedBatch})
	h := newHarness(t, testConfig(), tr)
	h.start(t)

	h.src.EmitSize(16000, 1)
	if w := h.warning(t); w.Kind != pipeline.WarningMalformedBatch {
		t.Errorf("warning kind = %s", w.Kind)
	}
	h.stopAndWait(t)
	if n := len(tr.Calls()); n != 1 {
		t.Errorf("got %d calls, want 1", n)
	}
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber())
	h.start(t)
	h.start(t)

	if n := h.src.Starts(); n != 1 {
		t.Errorf("device acquired %d times, want 1", n)
	}
	if st := h.s.Status(); st != pipeline.Recording {
		t.Errorf("status = %s, want recording", st)
	}
}

func TestRestartKeepsTranscript(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber(
		testutil.Result{Text: "one"},
		testutil.Result{Text: "two"},
	))

	h.start(t)
	h.src.EmitSize(16000, 1)
	h.stopAndWait(t)

	h.start(t)
	h.src.EmitSize(16000, 2)
	h.stopAndWait(t)

	if got := h.s.Transcript(); got != "one two" {
		t.Errorf("transcript = %q, want %q", got, "one two")
	}
}

func TestRestartWaitsForPreviousCapture(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber())
	h.src.HoldOnStop = true
	h.start(t)
	h.s.StopRecording()

	done := make(chan error, 1)
	go func() { done <- h.s.StartRecording(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("StartRecording() returned %v before the previous capture ended", err)
	case <-time.After(30 * time.Millisecond):
	}

	h.src.Finish()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("StartRecording() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("StartRecording() never completed")
	}
	if n := h.src.Starts(); n != 2 {
		t.Errorf("device acquired %d times, want 2", n)
	}
}

func TestTypeAnswer(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber())

	if err := h.s.TypeAnswer("  typed  "); err != nil {
		t.Fatalf("TypeAnswer() error: %v", err)
	}
	h.start(t)
	if err := h.s.TypeAnswer("more"); !errors.Is(err, pipeline.ErrRecording) {
		t.Errorf("TypeAnswer() while recording = %v, want ErrRecording", err)
	}
	h.stopAndWait(t)
	if err := h.s.TypeAnswer("answer"); err != nil {
		t.Fatalf("TypeAnswer() error: %v", err)
	}
	if got := h.s.Transcript(); got != "typed answer" {
		t.Errorf("transcript = %q", got)
	}
}

func TestUpdatesCarryTranscript(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber(testutil.Result{Text: "streamed"}))
	h.start(t)
	h.src.EmitSize(16000, 1)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-h.s.Updates():
			if snap.Transcript == "streamed" {
				return
			}
		case <-deadline:
			t.Fatal("no update carried the transcript")
		}
	}
}

func TestCloseReleasesDevice(t *testing.T) {
	h := newHarness(t, testConfig(), testutil.NewMockTranscriber())
	h.start(t)

	h.s.Close()
	if h.src.IsOpen() {
		t.Error("device still held after Close")
	}
	if err := h.s.StartRecording(context.Background()); !errors.Is(err, pipeline.ErrClosed) {
		t.Errorf("StartRecording() after Close = %v, want ErrClosed", err)
	}
	if _, ok := <-h.s.Warnings(); ok {
		t.Error("warnings channel should be closed")
	}
	if !strings.Contains(string(h.s.Status()), "idle") {
		t.Errorf("status after Close = %s", h.s.Status())
	}
}

func TestUpdatesFollowDrainState(t *testing.T) {
	cfg := testConfig()
	cfg.RetryDelay = time.Hour
	tr := testutil.NewMockTranscriber(testutil.Result{Err: errUpstream})
	tr.Hold()
	h := newHarness(t, cfg, tr)
	h.start(t)

	waitDrain := func(want pipeline.DrainState) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case snap := <-h.s.Updates():
				if snap.Drain == want {
					return
				}
			case <-deadline:
				t.Fatalf("no update reported drain state %s", want)
			}
		}
	}

	h.src.EmitSize(16000, 1)
	h.started(t)
	waitDrain(pipeline.Draining)

	tr.Release()
	waitDrain(pipeline.DrainAwaitingRetry)

	// stopping sends the pending retry at once
	h.s.StopRecording()
	h.started(t)
	waitDrain(pipeline.Draining)
	tr.Unhold()
	waitDrain(pipeline.DrainIdle)
}
