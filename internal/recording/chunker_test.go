package recording

import (
	"context"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/queue"
)

func collect(ch <-chan queue.Chunk) []queue.Chunk {
	var out []queue.Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestChunkFramesEmitsPerInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frameCh := make(chan []byte)
	chunkCh := make(chan queue.Chunk, 10)
	done := make(chan bool, 1)

	go func() {
		done <- chunkFrames(ctx, frameCh, chunkCh, 20*time.Millisecond, 2, "audio/pcm")
		close(chunkCh)
	}()

	frameCh <- []byte{1, 2}
	frameCh <- []byte{3, 4}

	var first queue.Chunk
	select {
	case first = <-chunkCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interval chunk")
	}
	if len(first.Payload) != 4 {
		t.Errorf("first chunk = %v, want both frames merged", first.Payload)
	}
	if first.MimeType != "audio/pcm" || first.Attempts != 0 {
		t.Errorf("unexpected chunk metadata: %+v", first)
	}

	frameCh <- []byte{5, 6}
	close(frameCh)

	if ended := <-done; !ended {
		t.Error("closing the frame source should report ended=true")
	}
	rest := collect(chunkCh)
	if len(rest) != 1 || len(rest[0].Payload) != 2 {
		t.Errorf("trailing chunk = %+v, want one 2-byte chunk", rest)
	}
}

func TestChunkFramesFlushesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	frameCh := make(chan []byte, 4)
	chunkCh := make(chan queue.Chunk, 4)
	done := make(chan bool, 1)

	go func() {
		done <- chunkFrames(ctx, frameCh, chunkCh, time.Hour, 2, "audio/pcm")
		close(chunkCh)
	}()

	frameCh <- []byte{1, 2}
	// give the loop a moment to pick the frame up before cancelling
	time.Sleep(10 * time.Millisecond)
	cancel()
	frameCh <- []byte{3, 4}
	close(frameCh)

	select {
	case ended := <-done:
		if ended {
			t.Error("cancellation should report ended=false")
		}
	case <-time.After(time.Second):
		t.Fatal("chunkFrames did not return after cancel")
	}

	chunks := collect(chunkCh)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 final chunk", len(chunks))
	}
	if string(chunks[0].Payload) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("final chunk = %v, want trailing audio kept", chunks[0].Payload)
	}
}

func TestChunkFramesNoAudioNoChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	frameCh := make(chan []byte)
	chunkCh := make(chan queue.Chunk, 1)

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
		close(frameCh)
	}()

	chunkFrames(ctx, frameCh, chunkCh, 5*time.Millisecond, 2, "audio/pcm")
	close(chunkCh)

	if chunks := collect(chunkCh); len(chunks) != 0 {
		t.Errorf("got %d chunks from silence-free run, want 0", len(chunks))
	}
}

func TestChunkFramesCutsOnFrameBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		frameBytes int
		reads      []int
	}{
		{"mono odd read", 2, []int{4095}},
		{"mono uneven reads", 2, []int{3, 5, 7, 1001}},
		{"stereo", 4, []int{4094, 6, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			frameCh := make(chan []byte)
			chunkCh := make(chan queue.Chunk, 16)
			done := make(chan bool, 1)
			go func() {
				done <- chunkFrames(ctx, frameCh, chunkCh, 5*time.Millisecond, tt.frameBytes, "audio/pcm")
				close(chunkCh)
			}()

			var sent []byte
			for i, n := range tt.reads {
				read := make([]byte, n)
				for j := range read {
					read[j] = byte(len(sent) + j)
				}
				sent = append(sent, read...)
				frameCh <- read
				if i == 0 {
					// let at least one interval tick with a split frame pending
					time.Sleep(20 * time.Millisecond)
				}
			}
			close(frameCh)
			<-done

			var got []byte
			for _, c := range collect(chunkCh) {
				if c.Size()%tt.frameBytes != 0 {
					t.Errorf("chunk of %d bytes is not a whole number of %d byte frames", c.Size(), tt.frameBytes)
				}
				got = append(got, c.Payload...)
			}

			whole := len(sent) - len(sent)%tt.frameBytes
			if string(got) != string(sent[:whole]) {
				t.Errorf("chunks carry %d bytes, want the first %d sent bytes in order", len(got), whole)
			}
		})
	}
}

func TestChunkFramesFinalFlushWaitsForConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	frameCh := make(chan []byte, 1)
	chunkCh := make(chan queue.Chunk) // unbuffered: a non-blocking send would drop
	done := make(chan bool, 1)
	go func() {
		done <- chunkFrames(ctx, frameCh, chunkCh, time.Hour, 2, "audio/pcm")
		close(chunkCh)
	}()

	frameCh <- []byte{1, 2, 3, 4}
	time.Sleep(10 * time.Millisecond)
	cancel()
	close(frameCh)

	// consumer shows up late
	time.Sleep(20 * time.Millisecond)
	chunks := collect(chunkCh)
	if len(chunks) != 1 || chunks[0].Size() != 4 {
		t.Fatalf("final chunk = %+v, want the 4 trailing bytes", chunks)
	}
	if ended := <-done; ended {
		t.Error("cancellation should report ended=false")
	}
}

func TestCaptureLoopFreesRecorderBeforeClosing(t *testing.T) {
	r := NewRecorder(DefaultConfig())
	r.recording.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	frameCh := make(chan []byte, 1)
	chunkCh := make(chan queue.Chunk, 1)
	errCh := make(chan error, 1)

	r.wg.Add(1)
	go r.captureLoop(ctx, frameCh, chunkCh, errCh)

	frameCh <- []byte{1, 2}
	cancel()
	close(frameCh)

	for range chunkCh {
	}
	if r.IsRecording() {
		t.Error("recorder still busy after its chunk channel closed; a restart would fail")
	}
	r.Wait()
}
