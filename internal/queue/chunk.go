package queue

import (
	"fmt"
	"time"
)

// Chunk is one segment of recorded audio waiting for transcription.
// Chunks are values: a retry produces a new Chunk with Attempts+1 and the same payload.
type Chunk struct {
	Payload   []byte
	MimeType  string
	Attempts  int
	Timestamp time.Time
}

func (c Chunk) Size() int {
	return len(c.Payload)
}

// Retry returns a copy of the chunk carrying the given attempt count.
func (c Chunk) Retry(attempts int) Chunk {
	return Chunk{
		Payload:   c.Payload,
		MimeType:  c.MimeType,
		Attempts:  attempts,
		Timestamp: c.Timestamp,
	}
}

// Batch is the unit sent in a single transcription call.
type Batch struct {
	Chunks   []Chunk
	MimeType string
}

// NewBatch builds a batch from a non-empty run of chunks. The mime type is taken from the
// first chunk; chunks within one recording are homogeneous.
func NewBatch(chunks []Chunk) Batch {
	if len(chunks) == 0 {
		panic("queue: batch requires at least one chunk")
	}
	return Batch{Chunks: chunks, MimeType: chunks[0].MimeType}
}

func (b Batch) Size() int {
	total := 0
	for _, c := range b.Chunks {
		total += c.Size()
	}
	return total
}

// Payload concatenates the chunk payloads in order.
func (b Batch) Payload() []byte {
	out := make([]byte, 0, b.Size())
	for _, c := range b.Chunks {
		out = append(out, c.Payload...)
	}
	return out
}

// Attempts is the highest attempt count across the batch.
func (b Batch) Attempts() int {
	max := 0
	for _, c := range b.Chunks {
		if c.Attempts > max {
			max = c.Attempts
		}
	}
	return max
}

// Homogeneous reports whether every chunk shares the batch mime type.
func (b Batch) Homogeneous() bool {
	for _, c := range b.Chunks {
		if c.MimeType != b.MimeType {
			return false
		}
	}
	return true
}

// PCMMimeType labels raw 16-bit little-endian PCM audio.
func PCMMimeType(sampleRate, channels int) string {
	return fmt.Sprintf("audio/pcm;rate=%d;channels=%d", sampleRate, channels)
}
