// Package htmldoc implements the browser collaborators over a parsed HTML
// tree (golang.org/x/net/html).
//
// There is no layout engine and no event loop: rects are assigned with
// SetRect, and events are dispatched explicitly with Load, Scroll,
// PointerOver and Click. This makes the package suitable for server-side
// processing (stripping tags from rendered pages, scanning addresses) and
// for driving the engine headlessly in tests.
package htmldoc

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/pthm/livepreview/lib/browser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	complete bool
	rects    map[*html.Node]browser.Rect

	load   listeners[func()]
	scroll listeners[func()]
	over   listeners[func(browser.Event)]
	clicks map[*html.Node]*listeners[func(browser.Event)]
}

// Parse reads a complete page. The returned document is loaded.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		root:     root,
		complete: true,
		rects:    make(map[*html.Node]browser.Rect),
		clicks:   make(map[*html.Node]*listeners[func(browser.Event)]),
	}, nil
}

// ParseString reads a complete page from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseLoading reads a page that has not finished loading yet. Load
// completes it.
func ParseLoading(r io.Reader) (*Document, error) {
	d, err := Parse(r)
	if err != nil {
		return nil, err
	}
	d.complete = false
	return d, nil
}

// Render writes the page.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the page, or "" on error.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Body returns the body element.
func (d *Document) Body() browser.Element {
	if n := find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body }); n != nil {
		return d.wrap(n)
	}
	return nil
}

// ElementByID returns the element with the given id, or nil.
func (d *Document) ElementByID(id string) browser.Element {
	n := find(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	})
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// QueryAttribute returns every element carrying name, in document order.
func (d *Document) QueryAttribute(name string) []browser.Element {
	var out []browser.Element
	walk(d.root, func(n *html.Node) {
		if _, ok := attr(n, name); ok {
			out = append(out, d.wrap(n))
		}
	})
	return out
}

// QueryTag returns every element with the given tag name.
func (d *Document) QueryTag(tag string) []browser.Element {
	var out []browser.Element
	walk(d.root, func(n *html.Node) {
		if n.Data == tag {
			out = append(out, d.wrap(n))
		}
	})
	return out
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) browser.Element {
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

// Complete reports whether Load has run.
func (d *Document) Complete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.complete
}

// OnLoad registers fn for Load.
func (d *Document) OnLoad(fn func()) func() {
	return d.load.add(fn)
}

// OnScroll registers fn for Scroll.
func (d *Document) OnScroll(fn func()) func() {
	return d.scroll.add(fn)
}

// OnPointerOver registers fn for PointerOver.
func (d *Document) OnPointerOver(fn func(browser.Event)) func() {
	return d.over.add(fn)
}

// Load completes the document and runs load handlers once.
func (d *Document) Load() {
	d.mu.Lock()
	if d.complete {
		d.mu.Unlock()
		return
	}
	d.complete = true
	d.mu.Unlock()

	for _, fn := range d.load.snapshot() {
		fn()
	}
}

// Scroll runs scroll handlers.
func (d *Document) Scroll() {
	for _, fn := range d.scroll.snapshot() {
		fn()
	}
}

// PointerOver dispatches a pointer-over event targeted at el.
func (d *Document) PointerOver(el browser.Element) {
	ev := d.event(el)
	for _, fn := range d.over.snapshot() {
		fn(ev)
	}
}

// Click dispatches a click targeted at el. It bubbles through every
// ancestor's click handlers.
func (d *Document) Click(el browser.Element) {
	ev := d.event(el)
	for _, target := range ev.Path() {
		n := target.(*Element).n
		d.mu.Lock()
		l := d.clicks[n]
		d.mu.Unlock()
		if l == nil {
			continue
		}
		for _, fn := range l.snapshot() {
			fn(ev)
		}
	}
}

// SetRect assigns el's bounding box.
func (d *Document) SetRect(el browser.Element, r browser.Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rects[el.(*Element).n] = r
}

func (d *Document) rect(n *html.Node) browser.Rect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rects[n]
}

func (d *Document) onClick(n *html.Node, fn func(browser.Event)) func() {
	d.mu.Lock()
	l, ok := d.clicks[n]
	if !ok {
		l = &listeners[func(browser.Event)]{}
		d.clicks[n] = l
	}
	d.mu.Unlock()
	return l.add(fn)
}

func (d *Document) event(el browser.Element) event {
	var path []browser.Element
	for n := el.(*Element).n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			path = append(path, d.wrap(n))
		}
	}
	return event{path: path}
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, n: n}
}

type event struct {
	path []browser.Element
}

func (e event) Path() []browser.Element { return e.path }

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// listeners is a cancelable handler list. Handlers run from a snapshot so
// they may cancel themselves.
type listeners[F any] struct {
	mu   sync.Mutex
	next int
	fns  []entry[F]
}

type entry[F any] struct {
	id int
	fn F
}

func (l *listeners[F]) add(fn F) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.fns = append(l.fns, entry[F]{id: id, fn: fn})
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.fns {
			if e.id == id {
				l.fns = append(l.fns[:i:i], l.fns[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners[F]) snapshot() []F {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]F, len(l.fns))
	for i, e := range l.fns {
		out[i] = e.fn
	}
	return out
}

// Len reports the number of registered handlers of each kind, for tests
// asserting that exactly one handler was attached.
func (d *Document) Len() (load, scroll, over int) {
	return len(d.load.snapshot()), len(d.scroll.snapshot()), len(d.over.snapshot())
}
