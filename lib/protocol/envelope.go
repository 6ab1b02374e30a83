// Package protocol defines the cross-window message envelope exchanged
// between a preview page and the authoring application that frames it.
//
// Every envelope carries the fixed sender tag "live-preview". Inbound values
// are untrusted: anything can post into a window, so Parse rejects foreign
// or malformed values with an error the engine logs at V(1) and otherwise
// ignores.
package protocol

// Sender is the fixed from-tag carried by every envelope.
const Sender = "live-preview"

// Type tags an envelope.
type Type string

// Inbound types, sent by the authoring application.
const (
	TypeClientDataSend Type = "client-data-send"
	TypeInitAck        Type = "init-ack"
	TypeHistory        Type = "history"
)

// Outbound types, sent by the preview page.
const (
	TypeInit           Type = "init"
	TypeCheckEntryPage Type = "check-entry-page"
	TypeScroll         Type = "scroll"
)

// Inbound reports whether t is handled by the preview page.
func (t Type) Inbound() bool {
	switch t {
	case TypeClientDataSend, TypeInitAck, TypeHistory:
		return true
	}
	return false
}

// Envelope is the wire shape {from, type, data}.
type Envelope struct {
	From string         `json:"from" msgpack:"from"`
	Type Type           `json:"type" msgpack:"type"`
	Data map[string]any `json:"data,omitempty" msgpack:"data,omitempty"`
}

// New returns an envelope from Sender.
func New(t Type, data map[string]any) Envelope {
	return Envelope{From: Sender, Type: t, Data: data}
}

// IsZero returns true if the envelope is empty/unset.
func (e Envelope) IsZero() bool {
	return e.From == "" && e.Type == ""
}

// Get returns a string field of the payload, or "".
func (e Envelope) Get(key string) string {
	s, _ := e.Data[key].(string)
	return s
}
