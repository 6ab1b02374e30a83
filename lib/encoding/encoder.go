// Package encoding frames envelopes for transports that carry bytes.
//
// Two codecs are provided:
//   - JSON (default): the same text a window posts, readable by any peer
//   - Signed: msgpack + base64 + HMAC signature, visible but tamper-proof,
//     for relays that forward envelopes between processes
package encoding

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pthm/livepreview/lib/protocol"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns envelopes into frames and frames back into untyped objects.
// Decoded objects are not validated; pass them to protocol.Parse.
type Codec interface {
	Marshal(env protocol.Envelope) ([]byte, error)
	Unmarshal(frame []byte) (map[string]any, error)
	// Binary reports whether frames should be sent as binary messages.
	Binary() bool
}

// JSON is the plain text codec.
type JSON struct{}

// Marshal encodes env as JSON.
func (JSON) Marshal(env protocol.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal decodes a JSON object.
func (JSON) Unmarshal(frame []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return m, nil
}

// Binary returns false.
func (JSON) Binary() bool { return false }

// Encoder is the signed codec.
type Encoder struct {
	key []byte
}

// NewEncoder creates a signed codec with the given key.
// Keys shorter than 32 bytes are stretched with SHA-256.
func NewEncoder(key []byte) (*Encoder, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	return &Encoder{key: key}, nil
}

// Marshal packs env and signs it: base64.signature
func (e *Encoder) Marshal(env protocol.Envelope) ([]byte, error) {
	packed, err := msgpack.Marshal(env)
	if err != nil {
		return nil, err
	}
	return []byte(e.sign(packed)), nil
}

// Unmarshal verifies and unpacks a signed frame.
func (e *Encoder) Unmarshal(frame []byte) (map[string]any, error) {
	packed, err := e.verify(string(frame))
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := msgpack.Unmarshal(packed, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return m, nil
}

// Binary returns false; signed frames are base64 text.
func (e *Encoder) Binary() bool { return false }

func (e *Encoder) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16]) // 16 bytes = 128 bits
	return b64 + "." + sig
}

func (e *Encoder) verify(encoded string) ([]byte, error) {
	payload, signature, ok := strings.Cut(encoded, ".")
	if !ok {
		return nil, ErrInvalidFormat
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return nil, ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	if !hmac.Equal(sig, mac.Sum(nil)[:16]) {
		return nil, ErrSignatureInvalid
	}
	return data, nil
}
