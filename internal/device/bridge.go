package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
)

var (
	// ErrNotConnected is returned by writes before setup has finished or
	// after it failed.
	ErrNotConnected = errors.New("device not connected")
	// ErrUnknownParameter is returned for names the device does not expose.
	ErrUnknownParameter = errors.New("unknown device parameter")
)

// eventBuffer is the capacity of the event channel.
const eventBuffer = 64

// Options locate the patch and runtime.
type Options struct {
	PatchURL         string
	DependenciesURL  string
	RuntimeURL       string
	HandshakeTimeout time.Duration
	// HTTPClient fetches the patch, the manifest and buffer files.
	HTTPClient *http.Client
}

// Bridge is the connection to one audio device. It is created
// disconnected; Connect performs setup in the background, and a failed
// setup leaves it disconnected for good.
type Bridge struct {
	opts   Options
	out    *Output
	logger *slog.Logger

	connected atomic.Bool
	events    chan Event

	mu       sync.Mutex
	conn     *client
	params   map[string]ParameterInfo
	outports []PortInfo
	cancel   context.CancelFunc
}

// NewBridge returns a disconnected bridge. out may be nil, in which case
// device audio is discarded.
func NewBridge(opts Options, out *Output, logger *slog.Logger) *Bridge {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Bridge{
		opts:   opts,
		out:    out,
		logger: logger,
		events: make(chan Event, eventBuffer),
		params: map[string]ParameterInfo{},
	}
}

// Connect starts setup without waiting for it. Failures are logged.
func (b *Bridge) Connect(ctx context.Context) {
	go func() {
		if err := b.Setup(ctx); err != nil {
			b.logger.Error("device setup failed; continuing without audio", "error", err)
		}
	}()
}

// Setup fetches the patch, creates the device, loads its data buffers and
// starts dispatching device events. It returns once the device is ready.
func (b *Bridge) Setup(ctx context.Context) error {
	patch, err := FetchPatch(ctx, b.opts.HTTPClient, b.opts.PatchURL)
	if err != nil {
		return err
	}
	wsURL, err := RuntimeURL(b.opts.RuntimeURL, patch.Version())
	if err != nil {
		return err
	}
	b.logger.Debug("patch fetched", "version", patch.Version(), "parameters", len(patch.Desc.Parameters))

	conn, err := dial(ctx, wsURL, b.opts.HandshakeTimeout, b.logger)
	if err != nil {
		return err
	}
	info, err := b.create(conn, patch)
	if err != nil {
		conn.Close()
		return err
	}
	b.loadBuffers(ctx, conn)

	loopCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.conn = conn
	b.cancel = cancel
	for _, p := range info.Parameters {
		b.params[p.Name] = p
	}
	b.outports = info.Outports
	b.mu.Unlock()
	b.connected.Store(true)

	if len(info.Outports) == 0 {
		b.logger.Warn("patch has no outports; device messages are ignored")
	}
	b.logger.Info("device connected", "url", wsURL, "parameters", len(info.Parameters), "outports", len(info.Outports))

	go func() {
		err := conn.readLoop(loopCtx, func(ev Event) { b.dispatch(loopCtx, ev) }, b.sink())
		b.connected.Store(false)
		if err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("device connection lost", "error", err)
		}
	}()
	return nil
}

func (b *Bridge) create(conn *client, patch *Patch) (created, error) {
	r, err := conn.sendAndRead(cmdCreateDevice, createDevice{Patcher: patch.Raw}, b.opts.HandshakeTimeout)
	if err != nil {
		return created{}, fmt.Errorf("create device: %w", err)
	}
	var info created
	if len(r.Value) > 0 {
		if err := json.Unmarshal(r.Value, &info); err != nil {
			return created{}, fmt.Errorf("create device: %w", err)
		}
	}
	if info.Parameters == nil {
		info.Parameters = patch.Desc.Parameters
	}
	if info.Outports == nil {
		info.Outports = patch.Desc.Outports
	}
	return info, nil
}

// loadBuffers sends every dependency the manifest lists. A missing manifest
// means no buffers; a bad entry is skipped.
func (b *Bridge) loadBuffers(ctx context.Context, conn *client) {
	if b.opts.DependenciesURL == "" {
		return
	}
	deps, err := FetchDependencies(ctx, b.opts.HTTPClient, b.opts.DependenciesURL)
	if err != nil {
		b.logger.Warn("no dependencies loaded", "error", err)
		return
	}
	var rate beep.SampleRate
	if b.out != nil {
		rate = b.out.Format().SampleRate
	}
	for _, dep := range deps {
		buf, err := LoadBuffer(ctx, b.opts.HTTPClient, b.opts.DependenciesURL, dep, rate)
		if err != nil {
			b.logger.Warn("skipping data buffer", "id", dep.ID, "error", err)
			continue
		}
		if err := conn.loadBuffer(buf, b.opts.HandshakeTimeout); err != nil {
			b.logger.Warn("device rejected data buffer", "id", dep.ID, "error", err)
			continue
		}
		b.logger.Debug("data buffer loaded", "id", dep.ID, "frames", buf.Frames)
	}
}

func (b *Bridge) sink() io.Writer {
	if b.out == nil {
		return nil
	}
	return b.out
}

func (b *Bridge) dispatch(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case ParameterChange:
		b.mu.Lock()
		if p, ok := b.params[e.Name]; ok {
			p.Value = e.Value
			b.params[e.Name] = p
		}
		b.mu.Unlock()
		b.logger.Debug("device parameter changed", "param", e.Name, "value", e.Value)
	case Message:
		if !b.HasOutports() {
			return
		}
		b.logger.Debug("device message", "tag", e.Tag, "payload", e.Payload)
	}
	select {
	case b.events <- ev:
	case <-ctx.Done():
	}
}

// Connected reports whether setup has completed and the connection is up.
func (b *Bridge) Connected() bool { return b.connected.Load() }

// Events delivers device events in arrival order.
func (b *Bridge) Events() <-chan Event { return b.events }

// HasOutports reports whether the device publishes messages.
func (b *Bridge) HasOutports() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.outports) > 0
}

// SetParameter writes value to the named device parameter.
func (b *Bridge) SetParameter(name string, value float64) error {
	if !b.Connected() {
		return ErrNotConnected
	}
	b.mu.Lock()
	p, ok := b.params[name]
	if ok {
		p.Value = value
		b.params[name] = p
	}
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if err := conn.send(cmdSetParameter, setParameter{Name: name, Value: value}); err != nil {
		return err
	}
	b.logger.Debug("parameter written", "param", name, "value", value)
	return nil
}

// Parameter returns the last known value of name.
func (b *Bridge) Parameter(name string) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.params[name]
	return p.Value, ok
}

// Parameters returns the device's parameter descriptions.
func (b *Bridge) Parameters() []ParameterInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ParameterInfo, 0, len(b.params))
	for _, p := range b.params {
		out = append(out, p)
	}
	return out
}

// Resume starts audio output; call it from the first user gesture.
func (b *Bridge) Resume() {
	if b.out != nil {
		b.out.Resume()
	}
}

// Level returns the output RMS level, or 0 without an output.
func (b *Bridge) Level() float64 {
	if b.out == nil {
		return 0
	}
	return b.out.Level()
}

// Close shuts the connection and the output down.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn, cancel := b.conn, b.cancel
	b.conn, b.cancel = nil, nil
	b.mu.Unlock()

	b.connected.Store(false)
	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	if b.out != nil {
		b.out.Close()
	}
	return err
}
