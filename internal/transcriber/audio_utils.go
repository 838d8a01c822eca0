package transcriber

import (
	"encoding/binary"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const (
	defaultSampleRate = 16000
	defaultChannels   = 1
	bitsPerSample     = 16
)

// uploadAudio is an audio payload ready to be sent to a backend.
type uploadAudio struct {
	Data        []byte
	ContentType string
	Filename    string
}

// prepareUpload wraps raw PCM into a WAV container and passes container formats through.
func prepareUpload(data []byte, mimeType string) (uploadAudio, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return uploadAudio{}, fmt.Errorf("parse mime type %q: %w", mimeType, err)
	}

	switch mediaType {
	case "audio/pcm", "audio/l16", "audio/x-raw":
		sampleRate := intParam(params, "rate", defaultSampleRate)
		channels := intParam(params, "channels", defaultChannels)
		wavData, err := convertToWAV(data, sampleRate, channels)
		if err != nil {
			return uploadAudio{}, fmt.Errorf("convert to WAV: %w", err)
		}
		return uploadAudio{Data: wavData, ContentType: "audio/wav", Filename: "audio.wav"}, nil
	case "audio/wav", "audio/x-wav", "audio/wave":
		return uploadAudio{Data: data, ContentType: "audio/wav", Filename: "audio.wav"}, nil
	case "audio/webm":
		return uploadAudio{Data: data, ContentType: mediaType, Filename: "audio.webm"}, nil
	case "audio/ogg":
		return uploadAudio{Data: data, ContentType: mediaType, Filename: "audio.ogg"}, nil
	case "audio/mpeg", "audio/mp3":
		return uploadAudio{Data: data, ContentType: "audio/mpeg", Filename: "audio.mp3"}, nil
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return uploadAudio{Data: data, ContentType: "audio/mp4", Filename: "audio.m4a"}, nil
	default:
		return uploadAudio{}, fmt.Errorf("unsupported audio type: %s", mediaType)
	}
}

func intParam(params map[string]string, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// convertToWAV converts raw 16-bit little-endian PCM to a RIFF WAV file.
func convertToWAV(rawAudio []byte, sampleRate, channels int) ([]byte, error) {
	if len(rawAudio)%2 != 0 {
		rawAudio = rawAudio[:len(rawAudio)-1]
	}

	samples := make([]int, len(rawAudio)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(rawAudio[i*2:])))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitsPerSample,
	}

	out := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(out, sampleRate, bitsPerSample, channels, 1)
	if err := encoder.Write(buf); err != nil {
		return nil, fmt.Errorf("encoder write buffer: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoder close: %w", err)
	}

	wavData, err := io.ReadAll(out.Reader())
	if err != nil {
		return nil, fmt.Errorf("read wav into memory: %w", err)
	}
	return wavData, nil
}
