package queue

// DefaultMinBatchBytes is the accumulated size that justifies one transcription call.
const DefaultMinBatchBytes = 16000

// Queue holds chunks that have not been transcribed yet, oldest first.
// Retried chunks go to the head so they are always sent before fresher audio.
//
// Queue is not safe for concurrent use; it is owned by a single session loop.
type Queue struct {
	chunks []Chunk
	size   int
}

func New() *Queue {
	return &Queue{}
}

// Enqueue appends a fresh chunk to the tail, or puts a retried chunk (Attempts > 0) at the head.
func (q *Queue) Enqueue(c Chunk) {
	if c.Attempts > 0 {
		q.pushFront([]Chunk{c})
		return
	}
	q.chunks = append(q.chunks, c)
	q.size += c.Size()
}

// Requeue puts the chunks of a failed batch back at the head, in their original order,
// each carrying the given attempt count.
func (q *Queue) Requeue(b Batch, attempts int) {
	retried := make([]Chunk, len(b.Chunks))
	for i, c := range b.Chunks {
		retried[i] = c.Retry(attempts)
	}
	q.pushFront(retried)
}

func (q *Queue) pushFront(cs []Chunk) {
	merged := make([]Chunk, 0, len(cs)+len(q.chunks))
	merged = append(merged, cs...)
	merged = append(merged, q.chunks...)
	q.chunks = merged
	for _, c := range cs {
		q.size += c.Size()
	}
}

// Ready reports whether a drain would produce a batch.
func (q *Queue) Ready(threshold int, force bool) bool {
	if len(q.chunks) == 0 {
		return false
	}
	return force || q.size >= threshold
}

// Take removes chunks from the head until their cumulative size reaches threshold or the
// queue runs out. Without force it does nothing while the queued total is below threshold.
func (q *Queue) Take(threshold int, force bool) (Batch, bool) {
	if !q.Ready(threshold, force) {
		return Batch{}, false
	}

	n, acc := 0, 0
	for n < len(q.chunks) && acc < threshold {
		acc += q.chunks[n].Size()
		n++
	}

	taken := make([]Chunk, n)
	copy(taken, q.chunks[:n])
	q.chunks = q.chunks[n:]
	q.size -= acc

	return NewBatch(taken), true
}

// Reset drops everything queued.
func (q *Queue) Reset() {
	q.chunks = nil
	q.size = 0
}

func (q *Queue) Len() int {
	return len(q.chunks)
}

// Size is the total payload size of the queued chunks in bytes.
func (q *Queue) Size() int {
	return q.size
}
