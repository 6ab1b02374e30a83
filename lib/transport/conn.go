package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/pthm/livepreview/lib/encoding"
	"github.com/pthm/livepreview/lib/protocol"
)

const (
	DefaultWriteTimeout = 5 * time.Second
	DefaultPingInterval = 30 * time.Second
)

type options struct {
	codec        encoding.Codec
	log          logr.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	upgrader     *websocket.Upgrader
}

// Option configures a Conn or Hub.
type Option func(*options)

// WithCodec sets the frame codec. The default is encoding.JSON.
func WithCodec(c encoding.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// WithPingInterval sets how often an idle connection is pinged. Zero
// disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		o.pingInterval = d
	}
}

// WithUpgrader sets the Hub's websocket upgrader. The default accepts any
// origin.
func WithUpgrader(u *websocket.Upgrader) Option {
	return func(o *options) {
		o.upgrader = u
	}
}

func newOptions(opts []Option) options {
	o := options{
		codec:        encoding.JSON{},
		log:          logr.Discard(),
		writeTimeout: DefaultWriteTimeout,
		pingInterval: DefaultPingInterval,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Conn is a Transport over one websocket connection. Inbound frames are
// decoded with the codec and delivered as map[string]any; frames that fail
// to decode are logged and dropped.
type Conn struct {
	ws   *websocket.Conn
	opts options

	writeMu sync.Mutex
	in      fanout

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a websocket URL.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(ws, opts...), nil
}

// NewConn wraps an established connection and starts reading from it.
func NewConn(ws *websocket.Conn, opts ...Option) *Conn {
	c := &Conn{
		ws:   ws,
		opts: newOptions(opts),
		done: make(chan struct{}),
	}
	go c.read()
	if c.opts.pingInterval > 0 {
		go c.ping()
	}
	return c
}

// Post writes env as one frame.
func (c *Conn) Post(env protocol.Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	frame, err := c.opts.codec.Marshal(env)
	if err != nil {
		return err
	}
	return c.write(frame)
}

func (c *Conn) write(frame []byte) error {
	kind := websocket.TextMessage
	if c.opts.codec.Binary() {
		kind = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))
	return c.ws.WriteMessage(kind, frame)
}

func (c *Conn) Listen(fn func(raw any)) func() {
	return c.in.add(fn)
}

// Done is closed once the connection stops reading.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))
		c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) read() {
	defer func() {
		c.Close()
		close(c.done)
	}()

	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.opts.log.V(1).Info("transport read ended", "error", err.Error())
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		raw, err := c.opts.codec.Unmarshal(frame)
		if err != nil {
			c.opts.log.V(1).Info("dropping undecodable frame", "error", err.Error())
			continue
		}
		c.in.emit(raw)
	}
}

func (c *Conn) ping() {
	ticker := time.NewTicker(c.opts.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
