package transport

import (
	"sync"

	"github.com/pthm/livepreview/lib/protocol"
)

// Endpoint is one side of a Pipe. Delivery is synchronous: Post returns
// after the peer's listeners ran.
type Endpoint struct {
	mu     sync.Mutex
	peer   *Endpoint
	sent   []protocol.Envelope
	closed bool
	in     fanout
}

// NewPipe returns two connected endpoints, typically the preview page and
// the authoring application.
func NewPipe() (page, parent *Endpoint) {
	page, parent = &Endpoint{}, &Endpoint{}
	page.peer, parent.peer = parent, page
	return page, parent
}

// Post delivers env to the peer's listeners.
func (e *Endpoint) Post(env protocol.Envelope) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.sent = append(e.sent, env)
	peer := e.peer
	e.mu.Unlock()

	peer.in.emit(env)
	return nil
}

// Inject delivers an arbitrary value to this endpoint's listeners, as if
// something other than the peer posted into the window.
func (e *Endpoint) Inject(raw any) {
	e.in.emit(raw)
}

func (e *Endpoint) Listen(fn func(raw any)) func() {
	return e.in.add(fn)
}

// Sent returns every envelope posted from this endpoint.
func (e *Endpoint) Sent() []protocol.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]protocol.Envelope(nil), e.sent...)
}

// Close makes further posts fail.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
