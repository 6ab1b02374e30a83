package protocol

import (
	"encoding/json"
	"fmt"
)

// Parse reconstructs an Envelope from an inbound value. raw may be an
// Envelope, a decoded object (map[string]any), or JSON text as string or
// []byte. The sender tag is checked before anything else is read.
func Parse(raw any) (Envelope, error) {
	var m map[string]any
	switch v := raw.(type) {
	case Envelope:
		return check(v)
	case *Envelope:
		if v == nil {
			return Envelope{}, ErrMalformed
		}
		return check(*v)
	case map[string]any:
		m = v
	case []byte:
		if err := json.Unmarshal(v, &m); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case string:
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrMalformed, raw)
	}
	return FromMap(m)
}

// FromMap reconstructs an Envelope from a decoded object.
func FromMap(m map[string]any) (Envelope, error) {
	if m == nil {
		return Envelope{}, ErrMalformed
	}
	from, _ := m["from"].(string)
	if from != Sender {
		return Envelope{}, ErrForeignSender
	}

	env := Envelope{From: from}
	if t, ok := m["type"].(string); ok {
		env.Type = Type(t)
	}
	switch d := m["data"].(type) {
	case nil:
	case map[string]any:
		env.Data = d
	default:
		return Envelope{}, fmt.Errorf("%w: data is %T", ErrMalformed, d)
	}
	return check(env)
}

func check(e Envelope) (Envelope, error) {
	if e.From != Sender {
		return Envelope{}, ErrForeignSender
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return e, nil
}
