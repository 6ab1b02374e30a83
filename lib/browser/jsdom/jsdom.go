//go:build js && wasm

// Package jsdom implements the browser collaborators over a live DOM via
// syscall/js, so the engine can be compiled to WebAssembly and loaded in the
// preview page itself.
package jsdom

import (
	"errors"

	"github.com/pthm/livepreview/lib/browser"
	"github.com/pthm/livepreview/lib/protocol"

	"syscall/js"
)

// ErrPopupBlocked is returned by Open when the browser refused a new window.
var ErrPopupBlocked = errors.New("jsdom: window.open was blocked")

// Window is the global window.
type Window struct {
	v js.Value
}

// Global returns the page's window.
func Global() *Window {
	return &Window{v: js.Global()}
}

func (w *Window) Document() browser.Document {
	return &Document{v: w.v.Get("document"), win: w.v}
}

func (w *Window) Href() string {
	return w.v.Get("location").Get("href").String()
}

// Embedded compares the window's location with its parent's. Reading a
// cross-origin parent's location throws, which also means embedded.
func (w *Window) Embedded() (embedded bool) {
	defer func() {
		if recover() != nil {
			embedded = true
		}
	}()
	parent := w.v.Get("parent")
	if parent.Equal(w.v) {
		return false
	}
	return parent.Get("location").Get("href").String() != w.Href()
}

func (w *Window) Open(url string) error {
	if w.v.Call("open", url, "_blank").IsNull() {
		return ErrPopupBlocked
	}
	return nil
}

func (w *Window) Navigate(url string) {
	w.v.Get("location").Set("href", url)
}

func (w *Window) Forward() { w.v.Get("history").Call("forward") }
func (w *Window) Back()    { w.v.Get("history").Call("back") }
func (w *Window) Reload()  { w.v.Get("history").Call("go") }

// Document is window.document.
type Document struct {
	v   js.Value
	win js.Value
}

func (d *Document) Body() browser.Element {
	return wrap(d.v.Get("body"))
}

func (d *Document) ElementByID(id string) browser.Element {
	return wrap(d.v.Call("getElementById", id))
}

func (d *Document) QueryAttribute(name string) []browser.Element {
	list := d.v.Call("querySelectorAll", "["+name+"]")
	out := make([]browser.Element, 0, list.Length())
	for i := 0; i < list.Length(); i++ {
		out = append(out, &Element{v: list.Index(i)})
	}
	return out
}

func (d *Document) CreateElement(tag string) browser.Element {
	return &Element{v: d.v.Call("createElement", tag)}
}

func (d *Document) Complete() bool {
	return d.v.Get("readyState").String() == "complete"
}

func (d *Document) OnLoad(fn func()) func() {
	return listen(d.win, "load", func(js.Value) { fn() })
}

func (d *Document) OnScroll(fn func()) func() {
	return listen(d.win, "scroll", func(js.Value) { fn() })
}

func (d *Document) OnPointerOver(fn func(browser.Event)) func() {
	return listen(d.v, "mouseover", func(ev js.Value) { fn(event{ev}) })
}

// Element is a DOM element.
type Element struct {
	v js.Value
}

func wrap(v js.Value) browser.Element {
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	return &Element{v: v}
}

func (e *Element) TagName() string { return e.v.Get("tagName").String() }

func (e *Element) GetAttribute(name string) (string, bool) {
	if !e.v.Call("hasAttribute", name).Bool() {
		return "", false
	}
	return e.v.Call("getAttribute", name).String(), true
}

func (e *Element) SetAttribute(name, value string) { e.v.Call("setAttribute", name, value) }
func (e *Element) RemoveAttribute(name string)     { e.v.Call("removeAttribute", name) }

func (e *Element) AddClass(name string)    { e.v.Get("classList").Call("add", name) }
func (e *Element) RemoveClass(name string) { e.v.Get("classList").Call("remove", name) }
func (e *Element) HasClass(name string) bool {
	return e.v.Get("classList").Call("contains", name).Bool()
}

func (e *Element) SetStyle(property, value string) {
	e.v.Get("style").Call("setProperty", property, value)
}

func (e *Element) SetInnerHTML(markup string) error {
	e.v.Set("innerHTML", markup)
	return nil
}

func (e *Element) BoundingRect() browser.Rect {
	r := e.v.Call("getBoundingClientRect")
	return browser.Rect{
		Top:    r.Get("top").Float(),
		Left:   r.Get("left").Float(),
		Width:  r.Get("width").Float(),
		Height: r.Get("height").Float(),
	}
}

func (e *Element) Parent() browser.Element {
	return wrap(e.v.Get("parentElement"))
}

func (e *Element) AppendChild(child browser.Element) {
	if c, ok := child.(*Element); ok {
		e.v.Call("appendChild", c.v)
	}
}

func (e *Element) Remove() { e.v.Call("remove") }

func (e *Element) OnClick(fn func(browser.Event)) func() {
	return listen(e.v, "click", func(ev js.Value) { fn(event{ev}) })
}

func (e *Element) Same(other browser.Element) bool {
	o, ok := other.(*Element)
	return ok && o.v.Equal(e.v)
}

type event struct {
	v js.Value
}

// Path returns composedPath() filtered to elements.
func (ev event) Path() []browser.Element {
	path := ev.v.Call("composedPath")
	elementType := js.Global().Get("Element")
	out := make([]browser.Element, 0, path.Length())
	for i := 0; i < path.Length(); i++ {
		if n := path.Index(i); n.InstanceOf(elementType) {
			out = append(out, &Element{v: n})
		}
	}
	return out
}

// Transport posts envelopes to window.parent and listens for messages on
// the window. Posts use an open target origin.
type Transport struct {
	win js.Value
}

// NewTransport returns a transport bound to the global window.
func NewTransport() *Transport {
	return &Transport{win: js.Global()}
}

func (t *Transport) Post(env protocol.Envelope) error {
	data := map[string]any{
		"from": env.From,
		"type": string(env.Type),
	}
	if env.Data != nil {
		data["data"] = toJS(env.Data)
	}
	t.win.Get("parent").Call("postMessage", js.ValueOf(data), "*")
	return nil
}

func (t *Transport) Listen(fn func(raw any)) func() {
	return listen(t.win, "message", func(ev js.Value) {
		fn(fromJS(ev.Get("data")))
	})
}

func listen(target js.Value, name string, fn func(js.Value)) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			fn(args[0])
		}
		return nil
	})
	target.Call("addEventListener", name, cb)
	return func() {
		target.Call("removeEventListener", name, cb)
		cb.Release()
	}
}

// toJS converts payload values js.ValueOf cannot take directly.
func toJS(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = toJS(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toJS(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case int:
		return float64(t)
	}
	return v
}

// fromJS converts a structured-clone message into Go values.
func fromJS(v js.Value) any {
	switch v.Type() {
	case js.TypeString:
		return v.String()
	case js.TypeNumber:
		return v.Float()
	case js.TypeBoolean:
		return v.Bool()
	case js.TypeObject:
		if js.Global().Get("Array").Call("isArray", v).Bool() {
			out := make([]any, v.Length())
			for i := range out {
				out[i] = fromJS(v.Index(i))
			}
			return out
		}
		keys := js.Global().Get("Object").Call("keys", v)
		out := make(map[string]any, keys.Length())
		for i := 0; i < keys.Length(); i++ {
			k := keys.Index(i).String()
			out[k] = fromJS(v.Get(k))
		}
		return out
	}
	return nil
}

// Object returns the global named name converted to Go values, or nil when
// it is not an object.
func Object(name string) map[string]any {
	v := js.Global().Get(name)
	if v.Type() != js.TypeObject {
		return nil
	}
	m, _ := fromJS(v).(map[string]any)
	return m
}

// Patcher replaces the live body with the body of server-rendered markup,
// parsed with DOMParser.
type Patcher struct{}

func (Patcher) Patch(doc browser.Document, markup string) error {
	target, ok := doc.Body().(*Element)
	if !ok {
		return errors.New("jsdom: document has no body")
	}
	parsed := js.Global().Get("DOMParser").New().Call("parseFromString", markup, "text/html")
	body := parsed.Get("body")
	if body.IsNull() {
		return errors.New("jsdom: markup has no body")
	}
	target.v.Set("innerHTML", body.Get("innerHTML"))
	return nil
}
