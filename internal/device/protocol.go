package device

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event is a notification originated by the device.
type Event interface {
	deviceEvent()
}

// ParameterChange reports a parameter's new value.
type ParameterChange struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (ParameterChange) deviceEvent() {}

// Message is a tagged outport event. The payload is a number or a list of
// numbers on the wire; both decode to a slice.
type Message struct {
	Tag     string    `json:"tag"`
	Payload []float64 `json:"-"`
}

func (Message) deviceEvent() {}

// UnmarshalJSON accepts a scalar or array payload.
func (m *Message) UnmarshalJSON(b []byte) error {
	var raw struct {
		Tag     string          `json:"tag"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Tag = raw.Tag
	m.Payload = nil
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}
	var one float64
	if err := json.Unmarshal(raw.Payload, &one); err == nil {
		m.Payload = []float64{one}
		return nil
	}
	if err := json.Unmarshal(raw.Payload, &m.Payload); err != nil {
		return fmt.Errorf("message %q payload: %w", raw.Tag, err)
	}
	return nil
}

// MarshalJSON writes single-value payloads as a scalar.
func (m Message) MarshalJSON() ([]byte, error) {
	var payload any = m.Payload
	if len(m.Payload) == 1 {
		payload = m.Payload[0]
	}
	return json.Marshal(struct {
		Tag     string `json:"tag"`
		Payload any    `json:"payload"`
	}{m.Tag, payload})
}

// Commands and replies are single-key JSON objects naming the command, for
// example {"SetParameter": {"name": "b3", "value": 1}}.
const (
	cmdCreateDevice     = "CreateDevice"
	cmdLoadDataBuffer   = "LoadDataBuffer"
	cmdSetParameter     = "SetParameter"
	evtParameterChanged = "ParameterChanged"
	evtMessage          = "Message"
)

type createDevice struct {
	Patcher json.RawMessage `json:"patcher"`
}

type loadDataBuffer struct {
	ID         string `json:"id"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	Frames     int    `json:"frames"`
}

type setParameter struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// reply is the body of a command response.
type reply struct {
	Result string          `json:"result"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// created is the value of a successful CreateDevice reply.
type created struct {
	Parameters []ParameterInfo `json:"parameters"`
	Outports   []PortInfo      `json:"outports"`
}

func envelope(cmd string, body any) map[string]any {
	return map[string]any{cmd: body}
}

// parseReply extracts the reply to cmd.
func parseReply(cmd string, msg []byte) (reply, error) {
	var env map[string]reply
	if err := json.Unmarshal(msg, &env); err != nil {
		return reply{}, fmt.Errorf("decode %s reply: %w", cmd, err)
	}
	r, ok := env[cmd]
	if !ok {
		return reply{}, fmt.Errorf("unexpected reply to %s: %s", cmd, msg)
	}
	if r.Result != "Ok" {
		if r.Error == "" {
			r.Error = r.Result
		}
		return r, fmt.Errorf("%s: %s", cmd, r.Error)
	}
	return r, nil
}

var errUnknownEvent = errors.New("unknown device event")

// parseEvent decodes an unsolicited text frame.
func parseEvent(msg []byte) (Event, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if body, ok := env[evtParameterChanged]; ok {
		var ev ParameterChange
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", evtParameterChanged, err)
		}
		return ev, nil
	}
	if body, ok := env[evtMessage]; ok {
		var ev Message
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", evtMessage, err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnknownEvent, msg)
}
