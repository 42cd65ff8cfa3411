package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"snakebattle/internal/game"
)

var (
	ErrUnknownType  = errors.New("unknown message type")
	ErrEmptyPayload = errors.New("missing payload")
	ErrNoDirection  = errors.New("missing direction")
)

// Codec turns envelopes into frames and back. Binary reports whether frames
// must be sent as binary websocket messages.
type Codec struct {
	Name   string
	Binary bool

	marshal   func(v any) ([]byte, error)
	unmarshal func(data []byte, v any) error
	split     func(data []byte) (string, []byte, error)
}

// JSON encodes envelopes as UTF-8 JSON text frames.
var JSON = &Codec{
	Name:      "json",
	marshal:   json.Marshal,
	unmarshal: json.Unmarshal,
	split: func(data []byte) (string, []byte, error) {
		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return "", nil, err
		}
		if bytes.Equal(env.Payload, []byte("null")) {
			env.Payload = nil
		}
		return env.Type, env.Payload, nil
	},
}

// MsgPack encodes envelopes as MessagePack binary frames with the same field
// names as JSON.
var MsgPack = &Codec{
	Name:      "msgpack",
	Binary:    true,
	marshal:   msgpackMarshal,
	unmarshal: msgpackUnmarshal,
	split: func(data []byte) (string, []byte, error) {
		var env struct {
			Type    string             `json:"type"`
			Payload msgpack.RawMessage `json:"payload"`
		}
		if err := msgpackUnmarshal(data, &env); err != nil {
			return "", nil, err
		}
		if len(env.Payload) == 1 && env.Payload[0] == 0xc0 {
			env.Payload = nil
		}
		return env.Type, env.Payload, nil
	},
}

func msgpackMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func msgpackUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// ForEncoding picks a codec by query-string name. Anything but "msgpack"
// selects JSON.
func ForEncoding(name string) *Codec {
	if name == MsgPack.Name {
		return MsgPack
	}
	return JSON
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope is a decoded frame whose payload has not been interpreted yet.
type Envelope struct {
	Type    string
	payload []byte
	codec   *Codec
}

// Payload decodes the envelope's payload into v.
func (e Envelope) Payload(v any) error {
	if len(e.payload) == 0 {
		return fmt.Errorf("%s: %w", e.Type, ErrEmptyPayload)
	}
	return e.codec.unmarshal(e.payload, v)
}

// Decode reads the envelope of one frame.
func (c *Codec) Decode(data []byte) (Envelope, error) {
	typ, payload, err := c.split(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("decode %s frame: %w", c.Name, err)
	}
	if typ == "" {
		return Envelope{}, fmt.Errorf("decode %s frame: %w", c.Name, ErrUnknownType)
	}
	return Envelope{Type: typ, payload: payload, codec: c}, nil
}

// DecodeClient reads one client intent.
func (c *Codec) DecodeClient(data []byte) (ClientMessage, error) {
	env, err := c.Decode(data)
	if err != nil {
		return ClientMessage{}, err
	}
	msg := ClientMessage{Type: env.Type}
	switch env.Type {
	case TypeJoin:
		err = env.Payload(&msg.Join)
	case TypeDirection:
		msg.Direction, err = decodeSteer(env)
	case TypeReady, TypeStartGame, TypeRestart, TypePlayAgain:
	default:
		err = fmt.Errorf("%w %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}

// decodeSteer requires the direction field; its zero value is Up, so a
// missing field must not pass as a turn.
func decodeSteer(env Envelope) (game.Direction, error) {
	var s struct {
		Direction *game.Direction `json:"direction"`
	}
	if err := env.Payload(&s); err != nil {
		return 0, err
	}
	if s.Direction == nil {
		return 0, fmt.Errorf("%s: %w", env.Type, ErrNoDirection)
	}
	return *s.Direction, nil
}

// EncodeClient writes one client intent.
func (c *Codec) EncodeClient(m ClientMessage) ([]byte, error) {
	return c.marshal(envelope{Type: m.Type, Payload: m.payload()})
}

// EncodeServer writes one room event.
func (c *Codec) EncodeServer(m ServerMessage) ([]byte, error) {
	return c.marshal(envelope{Type: m.Type, Payload: m.Payload})
}
