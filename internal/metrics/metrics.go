package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the capture -> batch -> transcribe pipeline.
type Metrics struct {
	ChunksCaptured        prometheus.Counter
	BatchesSent           prometheus.Counter
	BatchBytes            prometheus.Histogram
	TranscriptionFailures prometheus.Counter
	TranscriptionRetries  prometheus.Counter
	BatchesDropped        prometheus.Counter
	LateResultsDiscarded  prometheus.Counter
	TranscriptionDuration prometheus.Histogram
	QueueBytes            prometheus.Gauge
	RecordingsStarted     prometheus.Counter
	DeviceErrors          prometheus.Counter
}

// New registers the pipeline metrics on reg. A nil reg gives unregistered collectors,
// which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChunksCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_chunks_captured_total",
			Help: "Total number of audio chunks received from the capture device",
		}),
		BatchesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_batches_sent_total",
			Help: "Total number of transcription calls issued",
		}),
		BatchBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyprinterview_batch_bytes",
			Help:    "Payload size of transcription batches in bytes",
			Buckets: prometheus.ExponentialBuckets(4000, 2, 8),
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_transcription_failures_total",
			Help: "Total number of failed transcription calls",
		}),
		TranscriptionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_transcription_retries_total",
			Help: "Total number of batches scheduled for retry",
		}),
		BatchesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_batches_dropped_total",
			Help: "Total number of batches dropped after exhausting retries",
		}),
		LateResultsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_late_results_discarded_total",
			Help: "Transcription results discarded because the question or recording changed",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyprinterview_transcription_duration_seconds",
			Help:    "Time spent in transcription calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		QueueBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hyprinterview_queue_bytes",
			Help: "Bytes of audio waiting to be transcribed",
		}),
		RecordingsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_recordings_started_total",
			Help: "Total number of recordings started",
		}),
		DeviceErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyprinterview_device_errors_total",
			Help: "Total number of capture device failures",
		}),
	}
}
