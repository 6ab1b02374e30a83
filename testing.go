package livepreview

import (
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/pthm/livepreview/lib/browser"
	"github.com/pthm/livepreview/lib/browser/htmldoc"
	"github.com/pthm/livepreview/lib/config"
	"github.com/pthm/livepreview/lib/protocol"
	"github.com/pthm/livepreview/lib/transport"
)

// TestPage is a headless page wired to an Engine for testing.
//
// The page is an htmldoc document in an htmldoc window; the authoring
// application is the parent end of a transport.Pipe. Events are dispatched
// synchronously, so assertions can follow each step directly:
//
//	page := livepreview.NewTestPage(html, "https://site.example/")
//	engine := page.Start(config.FromInit(config.InitData{...}))
//	page.Send(protocol.History(protocol.HistoryReload))
//	if !page.HasSent(protocol.TypeInit) { ... }
type TestPage struct {
	Doc    *htmldoc.Document
	Window *htmldoc.Window
	// Page is the engine's end of the pipe, Parent the authoring
	// application's.
	Page   *transport.Endpoint
	Parent *transport.Endpoint

	mu       sync.Mutex
	received []protocol.Envelope
	logs     []string
	ticks    []func()
	queued   []func()
}

// NewTestPage parses markup into a loaded document at href. It panics on
// unparseable markup.
func NewTestPage(markup, href string) *TestPage {
	doc, err := htmldoc.ParseString(markup)
	if err != nil {
		panic("livepreview: invalid test markup: " + err.Error())
	}
	return newTestPage(doc, href)
}

// NewLoadingTestPage is NewTestPage for a document that has not finished
// loading; call Doc.Load to complete it.
func NewLoadingTestPage(markup, href string) *TestPage {
	doc, err := htmldoc.ParseLoading(strings.NewReader(markup))
	if err != nil {
		panic("livepreview: invalid test markup: " + err.Error())
	}
	return newTestPage(doc, href)
}

func newTestPage(doc *htmldoc.Document, href string) *TestPage {
	p := &TestPage{
		Doc:    doc,
		Window: htmldoc.NewWindow(doc, href),
	}
	p.Page, p.Parent = transport.NewPipe()
	p.Parent.Listen(func(raw any) {
		env, err := protocol.Parse(raw)
		if err != nil {
			return
		}
		p.mu.Lock()
		p.received = append(p.received, env)
		p.mu.Unlock()
	})
	return p
}

// Start constructs an engine on the page. The page's logger, patcher,
// manual heartbeat and queued dispatcher are installed before opts.
func (p *TestPage) Start(in config.Input, opts ...Option) *Engine {
	base := []Option{
		WithLogger(p.Logger()),
		WithPatcher(htmldoc.Patcher{}),
		WithScheduler(p.schedule),
		WithDispatcher(p.dispatch),
	}
	return New(p.Window, p.Page, in, append(base, opts...)...)
}

// Logger returns a logger that records every line for Logs.
func (p *TestPage) Logger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.logs = append(p.logs, args)
	}, funcr.Options{Verbosity: 1})
}

// Logs returns every recorded log line.
func (p *TestPage) Logs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.logs...)
}

// LogsContaining returns the log lines containing substr.
func (p *TestPage) LogsContaining(substr string) []string {
	var out []string
	for _, l := range p.Logs() {
		if strings.Contains(l, substr) {
			out = append(out, l)
		}
	}
	return out
}

func (p *TestPage) schedule(_ time.Duration, fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.ticks)
	p.ticks = append(p.ticks, fn)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.ticks[i] = nil
	}
}

// Tick fires every running heartbeat once.
func (p *TestPage) Tick() {
	p.mu.Lock()
	ticks := append([]func(){}, p.ticks...)
	p.mu.Unlock()
	for _, fn := range ticks {
		if fn != nil {
			fn()
		}
	}
}

func (p *TestPage) dispatch(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued = append(p.queued, fn)
}

// Flush runs the results of asynchronous work that arrived since the last
// Flush, on the calling goroutine. It returns how many ran.
func (p *TestPage) Flush() int {
	p.mu.Lock()
	queued := p.queued
	p.queued = nil
	p.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
	return len(queued)
}

// Send posts env from the authoring application to the page.
func (p *TestPage) Send(env protocol.Envelope) {
	p.Parent.Post(env)
}

// Sent returns every envelope the page posted, optionally filtered by type.
func (p *TestPage) Sent(types ...protocol.Type) []protocol.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range p.received {
		if len(types) == 0 || containsType(types, env.Type) {
			out = append(out, env)
		}
	}
	return out
}

// HasSent reports whether the page posted an envelope of type t.
func (p *TestPage) HasSent(t protocol.Type) bool {
	return len(p.Sent(t)) > 0
}

// ByID returns the element with the given id. It panics if there is none.
func (p *TestPage) ByID(id string) browser.Element {
	el := p.Doc.ElementByID(id)
	if el == nil {
		panic("livepreview: no element with id " + id)
	}
	return el
}

// Hover dispatches a pointer-over event at the element with the given id.
func (p *TestPage) Hover(id string) {
	p.Doc.PointerOver(p.ByID(id))
}

// Tooltip returns the tooltip element, or nil.
func (p *TestPage) Tooltip() *htmldoc.Element {
	el, _ := p.Doc.ElementByID(TooltipID).(*htmldoc.Element)
	return el
}

// ClickTooltip clicks the tooltip button for action, or the tooltip
// itself when action is "".
func (p *TestPage) ClickTooltip(action string) {
	tip := p.Tooltip()
	if tip == nil {
		return
	}
	target := browser.Element(tip)
	for _, el := range p.Doc.QueryAttribute(AttrAction) {
		if v, _ := el.GetAttribute(AttrAction); v == action {
			target = el
			break
		}
	}
	p.Doc.Click(target)
}

func containsType(types []protocol.Type, t protocol.Type) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
