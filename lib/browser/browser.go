// Package browser declares the document and window collaborators the
// preview engine drives. Implementations live in sub-packages: htmldoc
// (server-side, over golang.org/x/net/html) and jsdom (a real browser, when
// compiled for js/wasm).
//
// The engine only ever touches the page through these interfaces, so it runs
// the same against a parsed HTML file, a test fixture, or a live DOM.
package browser

// Rect is an element's bounding box relative to the viewport.
type Rect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Element is a node in the document.
type Element interface {
	TagName() string
	GetAttribute(name string) (string, bool)
	SetAttribute(name, value string)
	RemoveAttribute(name string)

	AddClass(name string)
	RemoveClass(name string)
	HasClass(name string) bool

	// SetStyle sets a single inline style property.
	SetStyle(property, value string)
	// SetInnerHTML replaces the element's children with parsed markup.
	SetInnerHTML(markup string) error

	BoundingRect() Rect
	Parent() Element
	AppendChild(child Element)
	// Remove detaches the element from its parent.
	Remove()

	// OnClick registers fn for clicks on the element or its descendants.
	OnClick(fn func(Event)) (cancel func())

	// Same reports whether other is the same node.
	Same(other Element) bool
}

// Event is a dispatched DOM event.
type Event interface {
	// Path is the composed event path, innermost target first. Non-element
	// entries (document, window) are omitted.
	Path() []Element
}

// Document is the page being previewed.
type Document interface {
	Body() Element
	ElementByID(id string) Element
	// QueryAttribute returns every element carrying the attribute, in
	// document order.
	QueryAttribute(name string) []Element
	CreateElement(tag string) Element

	// Complete reports whether the document finished loading.
	Complete() bool
	// OnLoad registers fn to run once loading completes.
	OnLoad(fn func()) (cancel func())
	OnScroll(fn func()) (cancel func())
	OnPointerOver(fn func(Event)) (cancel func())
}

// Window is the browsing context the document lives in.
type Window interface {
	Document() Document
	Href() string
	// Embedded reports whether the window is framed by a page at a
	// different location.
	Embedded() bool
	// Open loads url in a new browsing context.
	Open(url string) error
	// Navigate loads url in this browsing context.
	Navigate(url string)

	Forward()
	Back()
	Reload()
}

// Patcher applies server-rendered body markup onto a live document.
type Patcher interface {
	Patch(doc Document, body string) error
}

// StripAttribute removes attr from every element of doc and returns how
// many elements carried it.
func StripAttribute(doc Document, attr string) int {
	els := doc.QueryAttribute(attr)
	for _, el := range els {
		el.RemoveAttribute(attr)
	}
	return len(els)
}
