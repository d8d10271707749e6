package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingType = errors.New("envelope missing type")
	ErrBadType     = errors.New("envelope type is not an integer")
)

type wireEnvelope struct {
	Type json.RawMessage `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses one text frame. Type codes that this client does not know
// still decode; callers check MessageType.Known.
func Decode(b []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(b, &wire); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if len(wire.Type) == 0 || bytes.Equal(wire.Type, []byte("null")) {
		return Envelope{}, ErrMissingType
	}
	msgType, err := decodeType(wire.Type)
	if err != nil {
		return Envelope{}, err
	}

	env := NewEnvelope(msgType)
	if len(wire.Data) == 0 || bytes.Equal(wire.Data, []byte("null")) {
		return env, nil
	}
	raw, err := decodeNative(wire.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("decode data: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Envelope{}, fmt.Errorf("decode data: want object, got %T", raw)
	}
	data, err := dataFromNative(obj)
	if err != nil {
		return Envelope{}, fmt.Errorf("decode data: %w", err)
	}
	env.Data = data
	return env, nil
}

// Encode renders e as the JSON text form {"type":<code>,"data":{...}}.
func Encode(e Envelope) ([]byte, error) {
	data := e.Data
	if data == nil {
		data = Data{}
	}
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		Data Data        `json:"data"`
	}{Type: e.Type, Data: data})
}

func decodeType(raw json.RawMessage) (MessageType, error) {
	v, err := decodeNative(raw)
	if err != nil {
		return 0, fmt.Errorf("decode type: %w", err)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, ErrBadType
	}
	if i, err := n.Int64(); err == nil {
		return MessageType(i), nil
	}
	f, err := n.Float64()
	if err != nil || !floatFitsInt64(f) {
		return 0, ErrBadType
	}
	return MessageType(f), nil
}

func decodeNative(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
