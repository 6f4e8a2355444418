package device

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice serves a patch, a dependency manifest and a device runtime.
type fakeDevice struct {
	srv     *httptest.Server
	patch   string
	deps    string
	dials   atomic.Int32
	params  chan setParameter
	buffers chan loadDataBuffer
	samples chan []byte

	mu   sync.Mutex
	conn *websocket.Conn
}

func newFakeDevice(t *testing.T, patch string) *fakeDevice {
	t.Helper()
	d := &fakeDevice{
		patch:   patch,
		deps:    `[{"id":"tone","file":"media/tone.wav"},{"id":"broken","file":"media/missing.wav"},{"id":"text","file":"notes.txt"}]`,
		params:  make(chan setParameter, 16),
		buffers: make(chan loadDataBuffer, 16),
		samples: make(chan []byte, 16),
	}
	tone := writeTone(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/export/patch.export.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(d.patch))
	})
	mux.HandleFunc("/export/dependencies.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(d.deps))
	})
	mux.HandleFunc("/export/media/tone.wav", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, tone)
	})
	mux.HandleFunc("/rnbo/1.3.0/device", d.serveDevice)
	d.srv = httptest.NewServer(mux)
	t.Cleanup(d.srv.Close)
	return d
}

func writeTone(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	format := beep.Format{SampleRate: 44100, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(441), format))
	return path
}

func (d *fakeDevice) options() Options {
	return Options{
		PatchURL:         d.srv.URL + "/export/patch.export.json",
		DependenciesURL:  d.srv.URL + "/export/dependencies.json",
		RuntimeURL:       "ws" + strings.TrimPrefix(d.srv.URL, "http") + "/rnbo",
		HandshakeTimeout: 2 * time.Second,
		HTTPClient:       d.srv.Client(),
	}
}

func (d *fakeDevice) serveDevice(w http.ResponseWriter, r *http.Request) {
	d.dials.Add(1)
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	defer conn.Close()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.BinaryMessage {
			d.samples <- msg
			d.reply(`{"LoadDataBuffer":{"result":"Ok"}}`)
			continue
		}
		var env map[string]json.RawMessage
		if json.Unmarshal(msg, &env) != nil {
			continue
		}
		switch {
		case env[cmdCreateDevice] != nil:
			d.reply(`{"CreateDevice":{"result":"Ok","value":{
				"parameters":[{"name":"b3","initialValue":0},{"name":"s2","initialValue":0.25}],
				"outports":[{"tag":"box"}]}}}`)
		case env[cmdLoadDataBuffer] != nil:
			var h loadDataBuffer
			_ = json.Unmarshal(env[cmdLoadDataBuffer], &h)
			d.buffers <- h
		case env[cmdSetParameter] != nil:
			var p setParameter
			_ = json.Unmarshal(env[cmdSetParameter], &p)
			d.params <- p
		}
	}
}

func (d *fakeDevice) reply(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

func (d *fakeDevice) push(kind int, b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.conn.WriteMessage(kind, b)
}

func TestBridgeSetupAndRoundTrip(t *testing.T) {
	d := newFakeDevice(t, testPatch)
	out, err := NewOutput(OutputOptions{SampleRate: 44100, BufferMS: 50}, discard())
	require.NoError(t, err)
	b := NewBridge(d.options(), out, discard())
	defer b.Close()

	assert.ErrorIs(t, b.SetParameter("b3", 1), ErrNotConnected)

	require.NoError(t, b.Setup(context.Background()))
	assert.True(t, b.Connected())
	assert.True(t, b.HasOutports())
	assert.Len(t, b.Parameters(), 2)

	v, ok := b.Parameter("s2")
	require.True(t, ok)
	assert.Equal(t, 0.25, v)

	select {
	case h := <-d.buffers:
		assert.Equal(t, loadDataBuffer{ID: "tone", Channels: 1, SampleRate: 44100, Frames: 441}, h)
	case <-time.After(2 * time.Second):
		t.Fatal("no data buffer loaded")
	}
	assert.Len(t, <-d.samples, 441*4)

	require.NoError(t, b.SetParameter("b3", 1))
	select {
	case p := <-d.params:
		assert.Equal(t, setParameter{Name: "b3", Value: 1}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("parameter not written")
	}
	v, _ = b.Parameter("b3")
	assert.Equal(t, 1.0, v)
	assert.ErrorIs(t, b.SetParameter("nope", 1), ErrUnknownParameter)

	d.push(websocket.TextMessage, []byte(`{"ParameterChanged":{"name":"s2","value":0.75}}`))
	d.push(websocket.TextMessage, []byte(`{"Message":{"tag":"box","payload":5}}`))
	assert.Equal(t, ParameterChange{Name: "s2", Value: 0.75}, nextEvent(t, b))
	assert.Equal(t, Message{Tag: "box", Payload: []float64{5}}, nextEvent(t, b))
	v, _ = b.Parameter("s2")
	assert.Equal(t, 0.75, v)

	b.Resume()
	d.push(websocket.BinaryMessage, pcm([2]float32{0.5, 0.5}, [2]float32{0.5, 0.5}))
	assert.Eventually(t, func() bool { return b.Level() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func nextEvent(t *testing.T, b *Bridge) Event {
	t.Helper()
	select {
	case ev := <-b.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no device event")
		return nil
	}
}

func TestBridgeRejectsDebugVersionBeforeDialing(t *testing.T) {
	d := newFakeDevice(t, strings.Replace(testPatch, `"1.3.0"`, `"1.3.0-dev"`, 1))
	b := NewBridge(d.options(), nil, discard())

	err := b.Setup(context.Background())
	assert.ErrorIs(t, err, ErrDebugVersion)
	assert.Zero(t, d.dials.Load())
	assert.False(t, b.Connected())
	assert.ErrorIs(t, b.SetParameter("b3", 1), ErrNotConnected)
	assert.Zero(t, b.Level())
}

func TestBridgeConnectsWithoutDependencies(t *testing.T) {
	d := newFakeDevice(t, testPatch)
	d.deps = "not json"
	b := NewBridge(d.options(), nil, discard())
	defer b.Close()

	b.Connect(context.Background())
	assert.Eventually(t, b.Connected, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, d.buffers)
}

func TestBridgeConnectFailureStaysDisconnected(t *testing.T) {
	opts := Options{
		PatchURL:   "http://127.0.0.1:1/patch.export.json",
		RuntimeURL: "ws://127.0.0.1:1/rnbo",
	}
	b := NewBridge(opts, nil, discard())
	assert.Error(t, b.Setup(context.Background()))
	assert.False(t, b.Connected())
	assert.NoError(t, b.Close())
}
