package livepreview

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pthm/livepreview/lib/browser"
	"github.com/pthm/livepreview/lib/config"
	"github.com/pthm/livepreview/lib/cslp"
	"github.com/pthm/livepreview/lib/protocol"
	"github.com/pthm/livepreview/lib/transport"
)

// DefaultHeartbeat is how often a client-rendered page reports its location.
const DefaultHeartbeat = 1500 * time.Millisecond

// State is the engine's lifecycle state.
type State uint8

const (
	StateUninitialized State = iota
	// StateListening: preview is enabled and handlers are attached.
	StateListening
	// StatePassive: preview is disabled (or the engine was closed) and
	// nothing is attached.
	StatePassive
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StatePassive:
		return "passive"
	default:
		return "uninitialized"
	}
}

type options struct {
	store      *config.Store
	log        logr.Logger
	patcher    browser.Patcher
	lookup     FieldLookup
	schedule   Scheduler
	heartbeat  time.Duration
	editButton config.EditButtonPolicy
	dispatch   func(func())
}

// Option configures an Engine.
type Option func(*options)

// WithStore makes the engine resolve into and read from store. Engines
// given the same store share configuration; by default each engine owns a
// fresh one.
func WithStore(s *config.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the diagnostic channel.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithPatcher sets how server-rendered bodies are applied in SSR mode.
func WithPatcher(p browser.Patcher) Option {
	return func(o *options) { o.patcher = p }
}

// WithFieldLookup enables field labels in the tooltip.
func WithFieldLookup(l FieldLookup) Option {
	return func(o *options) { o.lookup = l }
}

// WithScheduler replaces the heartbeat timer.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.schedule = s }
}

// WithHeartbeat sets the heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(o *options) { o.heartbeat = d }
}

// WithDispatcher sets how results of asynchronous work, such as field
// lookups, rejoin the host's event loop. By default they run on the
// goroutine that produced them.
func WithDispatcher(d func(fn func())) Option {
	return func(o *options) { o.dispatch = d }
}

// WithEditButtonPolicy replaces the rule deciding whether the edit button
// is enabled.
func WithEditButtonPolicy(p config.EditButtonPolicy) Option {
	return func(o *options) { o.editButton = p }
}

// Engine keeps a previewed page in sync with the authoring application.
//
// All handlers run on the caller's goroutine (the host's event dispatch).
// The mutex guards session state only; it is never held while posting,
// patching or calling back into application code.
type Engine struct {
	opts     options
	store    *config.Store
	log      logr.Logger
	win      browser.Window
	doc      browser.Document
	tr       transport.Transport
	registry *Registry
	ownsSlot bool

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	closed        bool
	hash          string
	hovered       browser.Element
	hoveredRef    *cslp.Reference
	href          string
	field         Field
	tooltip       browser.Element
	tooltipCancel func()
	detach        []func()
	stopHeartbeat func()
}

// New resolves in and starts the engine.
//
// An incomplete configuration (missing API key) is reported to the logger
// and does not stop the engine; only operations that need the key fail.
// When preview is disabled the engine stays passive, first stripping every
// field address from the document if cleanOnDisabled is set.
func New(win browser.Window, tr transport.Transport, in config.Input, opts ...Option) *Engine {
	o := options{
		log:        logr.Discard(),
		patcher:    nopPatcher{},
		schedule:   TickerScheduler,
		heartbeat:  DefaultHeartbeat,
		editButton: config.DefaultEditButtonPolicy,
		dispatch:   func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = config.NewStore()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		opts:     o,
		store:    o.store,
		log:      o.log,
		win:      win,
		doc:      win.Document(),
		tr:       tr,
		registry: NewRegistry(o.log),
		ctx:      ctx,
		cancel:   cancel,
	}

	resolver := &config.Resolver{EditButton: o.editButton, Log: o.log}
	if err := resolver.Resolve(in, e.store); err != nil {
		e.log.Error(err, "live preview configuration is incomplete")
	}

	e.store.Update(func(c *config.Config) {
		if c.OnChange == nil {
			c.OnChange = e.registry.Publish
			e.ownsSlot = true
		}
	})

	cfg := e.store.Get()
	e.hash = cfg.Hash

	if !cfg.Enable {
		e.state = StatePassive
		if cfg.CleanOnDisabled {
			n := browser.StripAttribute(e.doc, cslp.Attribute)
			e.log.V(1).Info("preview disabled, removed field addresses", "count", n)
		}
		return e
	}

	e.state = StateListening
	e.detach = append(e.detach,
		tr.Listen(e.receive),
		e.doc.OnScroll(e.positionTooltip),
		e.doc.OnPointerOver(e.pointerOver),
	)
	if e.doc.Complete() {
		e.ready()
	} else {
		e.detach = append(e.detach, e.doc.OnLoad(e.ready))
	}
	return e
}

// ready runs once the document has loaded.
func (e *Engine) ready() {
	e.mergeLivePreview(map[string]any{"live_preview": "init"})
	e.buildTooltip()

	cfg := e.store.Get()
	e.post(protocol.Init(cfg.SSR, e.win.Href()))

	if !cfg.SSR {
		stop := e.opts.schedule(e.opts.heartbeat, func() {
			e.post(protocol.CheckEntryPage(e.win.Href()))
		})
		e.mu.Lock()
		e.stopHeartbeat = stop
		e.mu.Unlock()
	}
}

// receive handles one inbound value. Anything that is not an envelope from
// the authoring application is dropped.
func (e *Engine) receive(raw any) {
	env, err := protocol.Parse(raw)
	if err != nil {
		e.log.V(1).Info("ignoring message", "reason", err.Error())
		return
	}
	if e.isClosed() {
		return
	}
	e.log.V(1).Info("message", "type", string(env.Type))

	switch env.Type {
	case protocol.TypeClientDataSend:
		e.clientData(protocol.ClientDataFrom(env.Data))
	case protocol.TypeInitAck:
		ack := protocol.InitAckFrom(env.Data)
		e.store.Update(func(c *config.Config) {
			c.StackDetails.ContentTypeUID = ack.ContentTypeUID
			c.StackDetails.EntryUID = ack.EntryUID
		})
	case protocol.TypeHistory:
		switch protocol.HistoryFrom(env.Data) {
		case protocol.HistoryForward:
			e.win.Forward()
		case protocol.HistoryBackward:
			e.win.Back()
		case protocol.HistoryReload:
			e.win.Reload()
		}
	}
}

func (e *Engine) clientData(d protocol.ClientData) {
	if d.Hash != "" {
		e.setHash(d.Hash)
	}

	if e.store.Get().SSR {
		if !d.HasBody {
			return
		}
		if err := e.opts.patcher.Patch(e.doc, d.Body); err != nil {
			e.log.Error(err, "cannot apply server-rendered body")
		}
		e.mu.Lock()
		e.hovered, e.hoveredRef, e.href = nil, nil, ""
		e.mu.Unlock()
		e.buildTooltip()
		return
	}

	data := make(map[string]any, len(d.Raw)+1)
	for k, v := range d.Raw {
		data[k] = v
	}
	data["live_preview"] = d.Hash
	e.mergeLivePreview(data)
}

// mergeLivePreview writes data into the content client's live_preview
// object and calls the change callback.
func (e *Engine) mergeLivePreview(data map[string]any) {
	var onChange func()
	e.store.Update(func(c *config.Config) {
		if c.ContentClient != nil {
			if c.ContentClient.LivePreview == nil {
				c.ContentClient.LivePreview = make(map[string]any)
			}
			for k, v := range data {
				c.ContentClient.LivePreview[k] = v
			}
		}
		onChange = c.OnChange
	})
	if onChange != nil {
		onChange()
	}
}

func (e *Engine) setHash(h string) {
	e.mu.Lock()
	e.hash = h
	e.mu.Unlock()
	e.store.Update(func(c *config.Config) { c.Hash = h })
}

func (e *Engine) post(env protocol.Envelope) error {
	if err := e.tr.Post(env); err != nil {
		e.log.Error(err, "cannot post message", "type", string(env.Type))
		return err
	}
	return nil
}

// OpenInEditor focuses ref in the authoring application. A framed page
// asks its parent to scroll to the field; a standalone page opens the
// entry in a new window.
func (e *Engine) OpenInEditor(ref cslp.Reference) error {
	if e.win.Embedded() {
		return e.post(protocol.Scroll(protocol.ScrollTarget{
			Field:          ref.FieldPathWithIndex,
			ContentTypeUID: ref.ContentTypeUID,
			EntryUID:       ref.EntryUID,
			Locale:         ref.Locale,
			Variant:        ref.VariantUID,
		}))
	}

	u, err := RedirectURL(e.store.Get(), ref)
	if err != nil {
		return err
	}
	return e.win.Open(u)
}

// OpenHovered opens the hovered field in the editor.
func (e *Engine) OpenHovered() error {
	ref, ok := e.Hovered()
	if !ok {
		return ErrNotHovering
	}
	return e.OpenInEditor(ref)
}

// SetConfigFromParams seeds the hash and entry identity from query
// parameters. See config.SetConfigFromParams for accepted shapes.
func (e *Engine) SetConfigFromParams(params any) error {
	if err := config.SetConfigFromParams(e.store, params); err != nil {
		return err
	}
	if h := e.store.Get().Hash; h != "" {
		e.mu.Lock()
		e.hash = h
		e.mu.Unlock()
	}
	return nil
}

// OnEntryChange subscribes cb to content changes and, unless
// skipInitialRender is set, calls it once immediately.
func (e *Engine) OnEntryChange(cb func(), skipInitialRender bool) string {
	if !e.ownsSlot {
		e.log.Info("onChange was supplied; subscribers are only called through it")
	}
	id := e.registry.Subscribe(cb)
	if !skipInitialRender {
		cb()
	}
	return id
}

// OnLiveEdit subscribes cb to content changes of client-rendered pages.
func (e *Engine) OnLiveEdit(cb func()) string {
	return e.registry.Subscribe(func() {
		if !e.store.Get().SSR {
			cb()
		}
	})
}

// Unsubscribe removes a subscription made with OnEntryChange or
// OnLiveEdit.
func (e *Engine) Unsubscribe(id string) error {
	return e.registry.Unsubscribe(id)
}

// Registry returns the engine's subscriber registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Store returns the configuration store.
func (e *Engine) Store() *config.Store { return e.store }

// Config returns a snapshot of the configuration.
func (e *Engine) Config() config.Config { return e.store.Get() }

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Hash returns the current preview snapshot token.
func (e *Engine) Hash() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hash
}

// Field returns the schema details shown for the hovered element.
func (e *Engine) Field() Field {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.field
}

// Hovered returns the decoded address of the hovered element.
func (e *Engine) Hovered() (cslp.Reference, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hoveredRef == nil {
		return cslp.Reference{}, false
	}
	return *e.hoveredRef, true
}

// Close detaches every handler, stops the heartbeat and removes the
// tooltip. Closing twice returns ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.state = StatePassive
	detach, stop := e.detach, e.stopHeartbeat
	tip, tipCancel, hovered := e.tooltip, e.tooltipCancel, e.hovered
	e.detach, e.stopHeartbeat, e.tooltip, e.tooltipCancel, e.hovered, e.hoveredRef = nil, nil, nil, nil, nil, nil
	e.mu.Unlock()

	e.cancel()
	for _, fn := range detach {
		fn()
	}
	if stop != nil {
		stop()
	}
	if tipCancel != nil {
		tipCancel()
	}
	if tip != nil {
		tip.Remove()
	}
	if hovered != nil {
		hovered.RemoveClass(EditModeClass)
	}
	return nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// editVisible decides whether the tooltip offers the edit button.
func (e *Engine) editVisible() bool {
	var query url.Values
	if u, err := url.Parse(e.win.Href()); err == nil {
		query = u.Query()
	}
	return e.store.Get().EditButton.Visible(e.win.Embedded(), query)
}

func (e *Engine) renderTooltip() {
	hideEdit := !e.editVisible()

	e.mu.Lock()
	tip := e.tooltip
	props := TooltipProps{FieldName: e.field.DisplayName, Href: e.href, HideEdit: hideEdit}
	e.mu.Unlock()
	if tip == nil {
		return
	}

	var buf bytes.Buffer
	if err := Tooltip(props).Render(e.ctx, &buf); err != nil {
		e.log.Error(err, "cannot render tooltip")
		return
	}
	if err := tip.SetInnerHTML(buf.String()); err != nil {
		e.log.Error(err, "cannot render tooltip")
	}
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

type nopPatcher struct{}

func (nopPatcher) Patch(browser.Document, string) error { return nil }
