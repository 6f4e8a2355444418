package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// resampleQuality is passed to beep.Resample when a buffer's rate differs
// from the device rate.
const resampleQuality = 4

// ErrUnsupportedBuffer is returned for dependency files beep cannot decode.
var ErrUnsupportedBuffer = errors.New("unsupported buffer file type")

// DataBuffer is a decoded dependency ready to be sent to the device.
type DataBuffer struct {
	ID         string
	Channels   int
	SampleRate int
	Frames     int
	// Samples holds interleaved little-endian float32 values.
	Samples []byte
}

// header returns the JSON command announcing the buffer.
func (b *DataBuffer) header() loadDataBuffer {
	return loadDataBuffer{ID: b.ID, Channels: b.Channels, SampleRate: b.SampleRate, Frames: b.Frames}
}

// resolveFile returns the location of a dependency file relative to the
// manifest it was listed in.
func resolveFile(depsURL, file string) (string, error) {
	base, err := url.Parse(depsURL)
	if err != nil {
		return "", fmt.Errorf("invalid dependencies url: %w", err)
	}
	ref, err := url.Parse(file)
	if err != nil {
		return "", fmt.Errorf("invalid dependency file %q: %w", file, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// decodeAudio picks the decoder from the file extension.
func decodeAudio(name string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		return wav.Decode(rc)
	case ".mp3":
		return mp3.Decode(rc)
	case ".flac":
		return flac.Decode(rc)
	default:
		_ = rc.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedBuffer, name)
	}
}

// LoadBuffer fetches and decodes one dependency, converting it to rate.
func LoadBuffer(ctx context.Context, c *http.Client, depsURL string, dep Dependency, rate beep.SampleRate) (*DataBuffer, error) {
	if dep.File == "" {
		return nil, fmt.Errorf("buffer %q has no file", dep.ID)
	}
	u, err := resolveFile(depsURL, dep.File)
	if err != nil {
		return nil, err
	}
	body, err := open(ctx, c, u)
	if err != nil {
		return nil, fmt.Errorf("fetch buffer %q: %w", dep.ID, err)
	}
	streamer, format, err := decodeAudio(dep.File, body)
	if err != nil {
		return nil, fmt.Errorf("decode buffer %q: %w", dep.ID, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if rate > 0 && format.SampleRate != rate {
		s = beep.Resample(resampleQuality, format.SampleRate, rate, s)
	} else {
		rate = format.SampleRate
	}
	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		channels = 2
	}
	buf := encodeFloat32(s, channels)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode buffer %q: %w", dep.ID, err)
	}
	return &DataBuffer{
		ID:         dep.ID,
		Channels:   channels,
		SampleRate: int(rate),
		Frames:     len(buf) / (4 * channels),
		Samples:    buf,
	}, nil
}

// encodeFloat32 drains s into interleaved float32 samples.
func encodeFloat32(s beep.Streamer, channels int) []byte {
	var out []byte
	var tmp [4]byte
	chunk := make([][2]float64, 1024)
	for {
		n, ok := s.Stream(chunk)
		for _, f := range chunk[:n] {
			for ch := 0; ch < channels; ch++ {
				binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(float32(f[ch])))
				out = append(out, tmp[:]...)
			}
		}
		if !ok {
			return out
		}
	}
}
