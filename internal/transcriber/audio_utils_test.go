package transcriber

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/leonardotrapani/hyprinterview/internal/queue"
)

func TestConvertToWAV(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms of 16kHz mono
	for i := 0; i < len(pcm)/2; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i*7)))
	}

	wavData, err := convertToWAV(pcm, 16000, 1)
	if err != nil {
		t.Fatalf("convertToWAV failed: %v", err)
	}

	if !bytes.Equal(wavData[0:4], []byte("RIFF")) || !bytes.Equal(wavData[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header: %q", wavData[:12])
	}
	if len(wavData) != 44+len(pcm) {
		t.Errorf("wav size = %d, want %d", len(wavData), 44+len(pcm))
	}
	if rate := binary.LittleEndian.Uint32(wavData[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if !bytes.Equal(wavData[44:], pcm) {
		t.Error("sample data should round-trip unchanged")
	}
}

func TestPrepareUpload(t *testing.T) {
	tests := []struct {
		name        string
		mimeType    string
		wantType    string
		wantFile    string
		wrapped     bool
		expectError bool
	}{
		{name: "raw pcm", mimeType: queue.PCMMimeType(16000, 1), wantType: "audio/wav", wantFile: "audio.wav", wrapped: true},
		{name: "raw pcm stereo", mimeType: "audio/pcm; rate=48000; channels=2", wantType: "audio/wav", wantFile: "audio.wav", wrapped: true},
		{name: "webm with codec", mimeType: "audio/webm;codecs=opus", wantType: "audio/webm", wantFile: "audio.webm"},
		{name: "ogg", mimeType: "audio/ogg", wantType: "audio/ogg", wantFile: "audio.ogg"},
		{name: "wav passthrough", mimeType: "audio/wav", wantType: "audio/wav", wantFile: "audio.wav"},
		{name: "unsupported", mimeType: "video/mp4", expectError: true},
		{name: "garbage", mimeType: ";;", expectError: true},
	}

	data := make([]byte, 64)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, err := prepareUpload(data, tt.mimeType)
			if tt.expectError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if up.ContentType != tt.wantType || up.Filename != tt.wantFile {
				t.Errorf("got %s/%s, want %s/%s", up.ContentType, up.Filename, tt.wantType, tt.wantFile)
			}
			if tt.wrapped && len(up.Data) != len(data)+44 {
				t.Errorf("wrapped size = %d", len(up.Data))
			}
			if !tt.wrapped && !bytes.Equal(up.Data, data) {
				t.Error("container formats should pass through unchanged")
			}
		})
	}
}
