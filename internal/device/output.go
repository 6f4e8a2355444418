package device

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

// levelRingSize is the number of recent frames kept for the level meter.
const levelRingSize = 4096

// pcmQueue streams frames pushed by the device connection and plays
// silence when it runs dry. It never ends.
type pcmQueue struct {
	mu     sync.Mutex
	frames [][2]float64
	// limit bounds the backlog; the oldest frames are dropped past it.
	limit int
}

func (q *pcmQueue) push(frames [][2]float64) {
	q.mu.Lock()
	q.frames = append(q.frames, frames...)
	if q.limit > 0 && len(q.frames) > q.limit {
		q.frames = q.frames[len(q.frames)-q.limit:]
	}
	q.mu.Unlock()
}

func (q *pcmQueue) Stream(samples [][2]float64) (int, bool) {
	q.mu.Lock()
	n := copy(samples, q.frames)
	q.frames = q.frames[n:]
	q.mu.Unlock()
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (q *pcmQueue) Err() error { return nil }

func (q *pcmQueue) buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// levelTap records the most recent frames that reached the output so the
// renderer can show how loud the device is.
type levelTap struct {
	Source beep.Streamer
	buffer [][2]float64
	next   int
	mu     sync.RWMutex
}

func newLevelTap(src beep.Streamer, ringSize int) *levelTap {
	return &levelTap{Source: src, buffer: make([][2]float64, ringSize)}
}

func (t *levelTap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Source.Stream(samples)
	if n > 0 {
		t.mu.Lock()
		for i := 0; i < n; i++ {
			t.buffer[t.next] = samples[i]
			t.next = (t.next + 1) % len(t.buffer)
		}
		t.mu.Unlock()
	}
	return n, ok
}

func (t *levelTap) Err() error { return t.Source.Err() }

// snapshot returns up to the last n frames, oldest first.
func (t *levelTap) snapshot(n int) [][2]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > len(t.buffer) {
		n = len(t.buffer)
	}
	out := make([][2]float64, n)
	start := t.next - n
	if start < 0 {
		start += len(t.buffer)
	}
	for i := range out {
		out[i] = t.buffer[(start+i)%len(t.buffer)]
	}
	return out
}

// level is the RMS of the mono mix of the last n frames.
func (t *levelTap) level(n int) float64 {
	frames := t.snapshot(n)
	if len(frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frames {
		m := (f[0] + f[1]) * 0.5
		sum += m * m
	}
	return math.Sqrt(sum / float64(len(frames)))
}

// decodePCM converts interleaved little-endian float32 stereo frames.
func decodePCM(b []byte) ([][2]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("pcm frame of %d bytes is not a whole number of stereo float32 frames", len(b))
	}
	frames := make([][2]float64, len(b)/8)
	for i := range frames {
		l := math.Float32frombits(binary.LittleEndian.Uint32(b[i*8:]))
		r := math.Float32frombits(binary.LittleEndian.Uint32(b[i*8+4:]))
		frames[i] = [2]float64{float64(l), float64(r)}
	}
	return frames, nil
}

// OutputOptions configure the local audio output.
type OutputOptions struct {
	SampleRate int
	BufferMS   int
	// Gain is added to unity: 0 plays unchanged, -1 silences.
	Gain float64
	// Speaker opens the system audio device; without it frames are only
	// metered.
	Speaker bool
}

// Output routes the device's audio into the speaker. It starts paused and
// stays silent until Resume is called from a user gesture.
type Output struct {
	format  beep.Format
	queue   *pcmQueue
	tap     *levelTap
	gain    *effects.Gain
	ctrl    *beep.Ctrl
	speaker bool
	logger  *slog.Logger

	// mu guards ctrl when no speaker owns it.
	mu sync.Mutex
}

// NewOutput builds the output chain and, when requested, starts the speaker.
func NewOutput(opts OutputOptions, logger *slog.Logger) (*Output, error) {
	o := &Output{
		format: beep.Format{SampleRate: beep.SampleRate(opts.SampleRate), NumChannels: 2, Precision: 4},
		logger: logger,
	}
	o.queue = &pcmQueue{limit: o.format.SampleRate.N(time.Second)}
	o.tap = newLevelTap(o.queue, levelRingSize)
	o.gain = &effects.Gain{Streamer: o.tap, Gain: opts.Gain}
	o.ctrl = &beep.Ctrl{Streamer: o.gain, Paused: true}

	if !opts.Speaker {
		logger.Info("audio output disabled; metering only")
		return o, nil
	}
	bufferSize := o.format.SampleRate.N(time.Duration(opts.BufferMS) * time.Millisecond)
	if err := speaker.Init(o.format.SampleRate, bufferSize); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(o.ctrl)
	o.speaker = true
	logger.Info("audio output ready", "sample_rate", opts.SampleRate, "buffer", bufferSize)
	return o, nil
}

// Format is the sample format the device is expected to produce.
func (o *Output) Format() beep.Format { return o.format }

// Write queues one binary frame of device audio.
func (o *Output) Write(p []byte) (int, error) {
	frames, err := decodePCM(p)
	if err != nil {
		return 0, err
	}
	o.queue.push(frames)
	if !o.speaker {
		// nothing drains the queue; meter it directly
		o.mu.Lock()
		if !o.ctrl.Paused {
			o.ctrl.Stream(make([][2]float64, len(frames)))
		}
		o.mu.Unlock()
	}
	return len(p), nil
}

// Resume unpauses playback. Repeated calls are harmless.
func (o *Output) Resume() {
	o.lock()
	defer o.unlock()
	if o.ctrl.Paused {
		o.ctrl.Paused = false
		o.logger.Info("audio output resumed")
	}
}

// Paused reports whether playback is still waiting for a user gesture.
func (o *Output) Paused() bool {
	o.lock()
	defer o.unlock()
	return o.ctrl.Paused
}

// Level returns the current output RMS level.
func (o *Output) Level() float64 {
	return o.tap.level(o.format.SampleRate.N(time.Second / 20))
}

// Close stops the speaker.
func (o *Output) Close() {
	if o.speaker {
		speaker.Clear()
		speaker.Close()
		o.speaker = false
	}
}

func (o *Output) lock() {
	if o.speaker {
		speaker.Lock()
		return
	}
	o.mu.Lock()
}

func (o *Output) unlock() {
	if o.speaker {
		speaker.Unlock()
		return
	}
	o.mu.Unlock()
}
