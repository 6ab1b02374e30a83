// Package transport carries envelopes between a preview page and the
// authoring application.
//
// A Transport posts envelopes and delivers every inbound value, untouched,
// to its listeners. Inbound values are not validated here: listeners pass
// them to protocol.Parse and drop whatever fails.
//
// Implementations:
//   - Pipe: two connected in-memory endpoints
//   - Conn: one websocket connection
//   - Hub: a websocket relay that rebroadcasts envelopes between peers
package transport

import (
	"errors"
	"sync"

	"github.com/pthm/livepreview/lib/protocol"
)

// ErrClosed is returned when posting on a closed transport.
var ErrClosed = errors.New("transport: closed")

// Transport is the cross-window messaging primitive.
type Transport interface {
	// Post sends env with an open target.
	Post(env protocol.Envelope) error
	// Listen registers fn for every inbound value.
	Listen(fn func(raw any)) (cancel func())
}

// fanout is a cancelable listener list.
type fanout struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(raw any)
	ids  []int
}

func (f *fanout) add(fn func(raw any)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = make(map[int]func(raw any))
	}
	f.next++
	id := f.next
	f.fns[id] = fn
	f.ids = append(f.ids, id)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.fns, id)
		for i, v := range f.ids {
			if v == id {
				f.ids = append(f.ids[:i:i], f.ids[i+1:]...)
				break
			}
		}
	}
}

// emit calls listeners in registration order, outside the lock.
func (f *fanout) emit(raw any) {
	f.mu.Lock()
	fns := make([]func(raw any), 0, len(f.ids))
	for _, id := range f.ids {
		fns = append(fns, f.fns[id])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(raw)
	}
}
