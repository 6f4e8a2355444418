package device

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func pcm(frames ...[2]float32) []byte {
	b := make([]byte, 0, len(frames)*8)
	for _, f := range frames {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f[0]))
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f[1]))
	}
	return b
}

func TestDecodePCM(t *testing.T) {
	frames, err := decodePCM(pcm([2]float32{0.5, -0.5}, [2]float32{1, 0}))
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{0.5, -0.5}, {1, 0}}, frames)

	_, err = decodePCM([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestPCMQueuePlaysSilenceWhenEmpty(t *testing.T) {
	q := &pcmQueue{limit: 4}
	q.push([][2]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}})
	assert.Equal(t, 4, q.buffered())

	buf := make([][2]float64, 6)
	n, ok := q.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 6, n)
	assert.Equal(t, [][2]float64{{3, 3}, {4, 4}, {5, 5}, {6, 6}, {}, {}}, buf)
	assert.Equal(t, 0, q.buffered())
}

func TestLevelTapSnapshotIsChronological(t *testing.T) {
	q := &pcmQueue{}
	tap := newLevelTap(q, 4)
	q.push([][2]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}})
	tap.Stream(make([][2]float64, 5))

	assert.Equal(t, [][2]float64{{3, 3}, {4, 4}, {5, 5}}, tap.snapshot(3))
	assert.Len(t, tap.snapshot(10), 4)
	assert.InDelta(t, math.Sqrt((4+9+16+25)/4.0), tap.level(4), 1e-9)
}

func TestOutputStartsPausedUntilResume(t *testing.T) {
	o, err := NewOutput(OutputOptions{SampleRate: 8000, BufferMS: 50}, discard())
	require.NoError(t, err)
	defer o.Close()
	assert.True(t, o.Paused())

	loud := make([][2]float32, 200)
	for i := range loud {
		loud[i] = [2]float32{0.5, 0.5}
	}
	_, err = o.Write(pcm(loud...))
	require.NoError(t, err)
	assert.Zero(t, o.Level())

	o.Resume()
	o.Resume()
	assert.False(t, o.Paused())
	_, err = o.Write(pcm(loud...))
	require.NoError(t, err)
	assert.Greater(t, o.Level(), 0.0)

	_, err = o.Write([]byte{0})
	assert.Error(t, err)
}

func TestMessagePayloadShapes(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"tag":"box","payload":5}`), &m))
	assert.Equal(t, Message{Tag: "box", Payload: []float64{5}}, m)

	require.NoError(t, json.Unmarshal([]byte(`{"tag":"box","payload":[1,2]}`), &m))
	assert.Equal(t, []float64{1, 2}, m.Payload)

	require.NoError(t, json.Unmarshal([]byte(`{"tag":"bang"}`), &m))
	assert.Empty(t, m.Payload)

	assert.Error(t, json.Unmarshal([]byte(`{"tag":"box","payload":"x"}`), &m))

	b, err := json.Marshal(Message{Tag: "box", Payload: []float64{3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"box","payload":3}`, string(b))
}

func TestParseEvent(t *testing.T) {
	ev, err := parseEvent([]byte(`{"ParameterChanged":{"name":"b3","value":1}}`))
	require.NoError(t, err)
	assert.Equal(t, ParameterChange{Name: "b3", Value: 1}, ev)

	ev, err = parseEvent([]byte(`{"Message":{"tag":"box","payload":[5]}}`))
	require.NoError(t, err)
	assert.Equal(t, Message{Tag: "box", Payload: []float64{5}}, ev)

	_, err = parseEvent([]byte(`{"Other":{}}`))
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestParseReply(t *testing.T) {
	r, err := parseReply(cmdCreateDevice, []byte(`{"CreateDevice":{"result":"Ok","value":{"parameters":[]}}}`))
	require.NoError(t, err)
	assert.Equal(t, "Ok", r.Result)

	_, err = parseReply(cmdCreateDevice, []byte(`{"CreateDevice":{"result":"Error","error":"bad patcher"}}`))
	assert.ErrorContains(t, err, "bad patcher")

	_, err = parseReply(cmdCreateDevice, []byte(`{"SetParameter":{"result":"Ok"}}`))
	assert.Error(t, err)
}
