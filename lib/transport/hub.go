package transport

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pthm/livepreview/lib/protocol"
)

// Hub relays envelopes between websocket peers. Every valid envelope a peer
// sends is posted to every other peer; foreign or malformed values are
// dropped. There is no addressing: like window.postMessage with an open
// target, every connected peer sees every envelope.
type Hub struct {
	opts options

	mu    sync.RWMutex
	peers map[string]*Conn
}

// NewHub creates an empty relay.
func NewHub(opts ...Option) *Hub {
	return &Hub{
		opts:  newOptions(opts),
		peers: make(map[string]*Conn),
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.opts.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.log.V(1).Info("relay upgrade failed", "error", err.Error())
		return
	}

	conn := &Conn{ws: ws, opts: h.opts, done: make(chan struct{})}
	id := uuid.NewString()
	log := h.opts.log.WithValues("peer", id)

	conn.Listen(func(raw any) {
		env, err := protocol.Parse(raw)
		if err != nil {
			log.V(1).Info("relay dropping value", "error", err.Error())
			return
		}
		log.V(1).Info("relay", "type", string(env.Type))
		h.Broadcast(env, id)
	})

	h.mu.Lock()
	h.peers[id] = conn
	h.mu.Unlock()
	log.Info("peer connected")

	go conn.read()
	if h.opts.pingInterval > 0 {
		go conn.ping()
	}
	<-conn.Done()

	h.mu.Lock()
	delete(h.peers, id)
	h.mu.Unlock()
	log.Info("peer disconnected")
}

// Broadcast posts env to every peer except the one with id except.
func (h *Hub) Broadcast(env protocol.Envelope, except string) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.peers))
	for id, c := range h.peers {
		if id != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Post(env); err != nil {
			h.opts.log.V(1).Info("relay post failed", "error", err.Error())
		}
	}
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.peers))
	for _, c := range h.peers {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}
