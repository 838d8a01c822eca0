package pipeline

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprinterview/internal/queue"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
)

type event any

type startReq struct{ reply chan error }
type stopReq struct{}
type closeReq struct{}
type nextReq struct {
	question string
	reply    chan QuestionID
}
type typeReq struct {
	text  string
	reply chan error
}
type setTranscriberReq struct{ t Transcriber }
type snapshotReq struct{ reply chan Snapshot }
type waitReq struct{ reply chan struct{} }

// capture events, tagged with the recording that produced them
type chunkEvent struct {
	recordingID string
	chunk       queue.Chunk
}
type sourceErrEvent struct {
	recordingID string
	err         error
}
type sourceClosedEvent struct{ recordingID string }

// result of the single in-flight transcription call
type resultEvent struct {
	questionID  QuestionID
	recordingID string
	batch       queue.Batch
	text        string
	err         error
	took        time.Duration
}

type retryEvent struct{ gen uint64 }

func (s *Session) run() {
	defer func() {
		s.teardown()
		close(s.done)
		close(s.updates)
		close(s.warnings)
	}()

	for {
		select {
		case ev := <-s.events:
			if _, ok := ev.(closeReq); ok {
				log.Printf("Pipeline: closing session")
				return
			}
			s.handle(ev)
			s.checkWaiters()

		case <-s.ctx.Done():
			log.Printf("Pipeline: context cancelled, closing session")
			return
		}
	}
}

func (s *Session) handle(ev event) {
	switch e := ev.(type) {
	case startReq:
		if s.status == Recording {
			e.reply <- nil
			return
		}
		if s.capturing {
			// previous recording is still handing back its trailing audio
			if s.pendingStart != nil {
				s.pendingStart.reply <- nil
			}
			s.pendingStart = &e
			return
		}
		e.reply <- s.startRecording()

	case stopReq:
		s.stopRecording()

	case nextReq:
		e.reply <- s.nextQuestion(e.question)

	case typeReq:
		if s.status == Recording {
			e.reply <- ErrRecording
			return
		}
		s.transcript.Append(e.text)
		s.publish()
		e.reply <- nil

	case setTranscriberReq:
		s.nextTranscriber = e.t

	case snapshotReq:
		e.reply <- s.snapshot()

	case waitReq:
		s.waiters = append(s.waiters, e.reply)

	case chunkEvent:
		s.onChunk(e)

	case sourceErrEvent:
		s.onSourceError(e)

	case sourceClosedEvent:
		s.onSourceClosed(e)

	case resultEvent:
		s.onResult(e)

	case retryEvent:
		if e.gen != s.retryGen || s.drain != DrainAwaitingRetry {
			return
		}
		s.setDrain(DrainIdle)
		s.tryDrain()
	}
}

func (s *Session) startRecording() error {
	if s.nextTranscriber != nil {
		s.transcriber = s.nextTranscriber
		s.nextTranscriber = nil
	}

	chunks, errs, err := s.source.Start(s.ctx)
	if err != nil {
		s.metrics.DeviceErrors.Inc()
		log.Printf("Pipeline: failed to start recording: %v", err)
		s.setStatus(Error)
		s.warn(Warning{Kind: WarningDeviceUnavailable, Message: "microphone unavailable", Err: err})
		s.setStatus(Idle)
		return fmt.Errorf("start recording: %w", err)
	}

	if dropped := s.queue.Size(); dropped > 0 {
		log.Printf("Pipeline: discarding %d queued bytes from the previous recording", dropped)
	}
	s.cancelRetry()
	s.queue.Reset()
	s.metrics.QueueBytes.Set(0)

	s.recordingID = uuid.NewString()
	s.capturing = true
	s.metrics.RecordingsStarted.Inc()
	go s.forward(s.recordingID, chunks, errs)

	log.Printf("Pipeline: recording %s started for question %s", s.recordingID, s.questionID)
	s.setStatus(Recording)
	return nil
}

// releaseDevice stops capture without touching the queue.
func (s *Session) releaseDevice() bool {
	if s.status != Recording {
		return false
	}
	if err := s.source.Stop(); err != nil {
		log.Printf("Pipeline: error stopping capture: %v", err)
	}
	s.status = Idle
	return true
}

// stopRecording releases the device and force-flushes the queue. A pending retry is sent
// right away instead of waiting for its timer.
func (s *Session) stopRecording() {
	if !s.releaseDevice() {
		return
	}
	log.Printf("Pipeline: recording %s stopped, flushing %d queued bytes", s.recordingID, s.queue.Size())
	s.cancelRetry()
	s.tryDrain()
	s.publish()
}

func (s *Session) nextQuestion(question string) QuestionID {
	s.releaseDevice()
	s.cancelRetry()
	s.queue.Reset()
	s.metrics.QueueBytes.Set(0)
	s.transcript.Reset()

	// trailing chunks and failures from the old recording no longer belong anywhere
	s.recordingID = ""
	s.questionID = QuestionID(uuid.NewString())
	s.question = question

	log.Printf("Pipeline: moved to question %s", s.questionID)
	s.publish()
	return s.questionID
}

func (s *Session) onChunk(e chunkEvent) {
	if e.recordingID != s.recordingID {
		log.Printf("Pipeline: dropping %d byte chunk from stale recording", e.chunk.Size())
		return
	}
	s.metrics.ChunksCaptured.Inc()
	s.queue.Enqueue(e.chunk)
	s.metrics.QueueBytes.Set(float64(s.queue.Size()))
	s.tryDrain()
}

func (s *Session) onSourceError(e sourceErrEvent) {
	if e.recordingID != s.recordingID || s.status != Recording {
		log.Printf("Pipeline: ignoring capture error after stop: %v", e.err)
		return
	}
	s.metrics.DeviceErrors.Inc()
	log.Printf("Pipeline: capture failed: %v", e.err)
	s.warn(Warning{Kind: WarningDeviceUnavailable, Message: "microphone stopped unexpectedly", Err: e.err})
	s.stopRecording()
	s.setStatus(Error)
	s.setStatus(Idle)
}

func (s *Session) onSourceClosed(e sourceClosedEvent) {
	s.capturing = false
	if s.status == Recording && e.recordingID == s.recordingID {
		// device went away without an error
		s.stopRecording()
	}
	s.tryDrain()

	if s.pendingStart != nil {
		req := s.pendingStart
		s.pendingStart = nil
		req.reply <- s.startRecording()
	}
}

// tryDrain sends the next batch if nothing is in flight or waiting on a retry. Outside of a
// recording every queued byte is trailing audio, so the size threshold is bypassed.
func (s *Session) tryDrain() {
	if s.drain != DrainIdle {
		return
	}
	batch, ok := s.queue.Take(s.config.MinBatchBytes, s.status != Recording)
	if !ok {
		return
	}
	s.metrics.QueueBytes.Set(float64(s.queue.Size()))
	s.send(batch)
}

func (s *Session) send(batch queue.Batch) {
	s.setDrain(Draining)
	s.metrics.BatchesSent.Inc()
	s.metrics.BatchBytes.Observe(float64(batch.Size()))

	log.Printf("Pipeline: sending batch (%d chunks, %d bytes, attempt %d)",
		len(batch.Chunks), batch.Size(), batch.Attempts()+1)

	t := s.transcriber
	questionID, recordingID := s.questionID, s.recordingID
	go func() {
		start := time.Now()
		text, err := t.Transcribe(s.ctx, batch)
		s.post(resultEvent{
			questionID:  questionID,
			recordingID: recordingID,
			batch:       batch,
			text:        text,
			err:         err,
			took:        time.Since(start),
		})
	}()
}

func (s *Session) onResult(r resultEvent) {
	s.setDrain(DrainIdle)
	s.metrics.TranscriptionDuration.Observe(r.took.Seconds())

	switch {
	case r.err == nil:
		if r.questionID != s.questionID {
			s.metrics.LateResultsDiscarded.Inc()
			log.Printf("Pipeline: discarding transcript for previous question %s", r.questionID)
			break
		}
		s.transcript.Append(r.text)
		s.publish()

	case errors.Is(r.err, transcriber.ErrMalformedBatch):
		s.metrics.BatchesDropped.Inc()
		log.Printf("Pipeline: dropping malformed batch of %d chunks", len(r.batch.Chunks))
		s.warn(Warning{Kind: WarningMalformedBatch, Message: "audio batch could not be sent", Err: r.err})

	default:
		s.metrics.TranscriptionFailures.Inc()
		if r.questionID != s.questionID || r.recordingID != s.recordingID {
			s.metrics.LateResultsDiscarded.Inc()
			log.Printf("Pipeline: discarding failed batch from previous recording: %v", r.err)
			break
		}
		s.retry(r)
	}

	s.tryDrain()
}

// retry requeues a failed batch at the head, or drops it once the attempt ceiling is passed.
func (s *Session) retry(r resultEvent) {
	attempts := r.batch.Attempts() + 1
	if attempts > s.config.MaxRetries {
		s.metrics.BatchesDropped.Inc()
		log.Printf("Pipeline: dropping %d byte batch after %d attempts: %v", r.batch.Size(), attempts, r.err)
		s.warn(Warning{
			Kind:    WarningTranscriptionDropped,
			Message: fmt.Sprintf("part of your answer could not be transcribed after %d attempts", attempts),
			Err:     r.err,
		})
		return
	}

	s.metrics.TranscriptionRetries.Inc()
	s.queue.Requeue(r.batch, attempts)
	s.metrics.QueueBytes.Set(float64(s.queue.Size()))
	log.Printf("Pipeline: transcription failed, retry %d/%d in %v: %v",
		attempts, s.config.MaxRetries, s.config.RetryDelay, r.err)

	s.setDrain(DrainAwaitingRetry)
	s.retryGen++
	gen := s.retryGen
	s.retryTimer = time.AfterFunc(s.config.RetryDelay, func() {
		s.post(retryEvent{gen: gen})
	})
}

// cancelRetry invalidates any scheduled retry. The requeued chunks stay at the head.
func (s *Session) cancelRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.retryGen++
	if s.drain == DrainAwaitingRetry {
		s.setDrain(DrainIdle)
	}
}

func (s *Session) teardown() {
	s.releaseDevice()
	s.cancelRetry()
	s.queue.Reset()
	s.metrics.QueueBytes.Set(0)
	s.cancel()
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
	if s.pendingStart != nil {
		s.pendingStart.reply <- ErrClosed
		s.pendingStart = nil
	}
}

func (s *Session) settled() bool {
	return s.status != Recording && !s.capturing && s.drain == DrainIdle && s.queue.Len() == 0
}

func (s *Session) checkWaiters() {
	if len(s.waiters) == 0 || !s.settled() {
		return
	}
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Status:       s.status,
		Drain:        s.drain,
		QuestionID:   s.questionID,
		Question:     s.question,
		RecordingID:  s.recordingID,
		Transcript:   s.transcript.String(),
		QueuedBytes:  s.queue.Size(),
		QueuedChunks: s.queue.Len(),
		Capturing:    s.capturing,
	}
}

func (s *Session) setStatus(status Status) {
	s.status = status
	s.publish()
}

// publish never blocks the loop; a full channel loses its oldest snapshot.
func (s *Session) publish() {
	snap := s.snapshot()
	select {
	case s.updates <- snap:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

// setDrain records a drain state change and publishes it.
func (s *Session) setDrain(d DrainState) {
	if s.drain == d {
		return
	}
	s.drain = d
	s.publish()
}

func (s *Session) warn(w Warning) {
	select {
	case s.warnings <- w:
	default:
		log.Printf("Pipeline: warning channel full, dropped: %v", w)
	}
}

// forward relays capture output into the loop until the source closes its chunk channel.
func (s *Session) forward(recordingID string, chunks <-chan queue.Chunk, errs <-chan error) {
	defer s.post(sourceClosedEvent{recordingID: recordingID})

	for chunks != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			if !s.post(chunkEvent{recordingID: recordingID, chunk: c}) {
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil && !s.post(sourceErrEvent{recordingID: recordingID, err: err}) {
				return
			}
		}
	}
}
