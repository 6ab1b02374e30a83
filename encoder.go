package livepreview

import (
	"github.com/pthm/livepreview/lib/encoding"
	"github.com/pthm/livepreview/lib/protocol"
)

// Codec is an alias for encoding.Codec for convenience.
type Codec = encoding.Codec

// Envelope is an alias for protocol.Envelope for convenience.
type Envelope = protocol.Envelope

// NewSignedCodec creates a codec that signs frames with key.
// An empty key selects plain JSON.
func NewSignedCodec(key []byte) (Codec, error) {
	if len(key) == 0 {
		return encoding.JSON{}, nil
	}
	return encoding.NewEncoder(key)
}

// DecodeFrame decodes and validates one frame.
func DecodeFrame(c Codec, frame []byte) (Envelope, error) {
	raw, err := c.Unmarshal(frame)
	if err != nil {
		return Envelope{}, err
	}
	return protocol.Parse(raw)
}
