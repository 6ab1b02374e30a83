package htmldoc

import (
	"sync"

	"github.com/pthm/livepreview/lib/browser"
)

// Window is a headless browsing context. Navigation is recorded rather than
// performed.
type Window struct {
	mu       sync.Mutex
	doc      *Document
	href     string
	embedded bool
	opened   []string
	history  []string
}

// NewWindow returns a window showing doc at href.
func NewWindow(doc *Document, href string) *Window {
	return &Window{doc: doc, href: href}
}

// SetEmbedded marks the window as framed by a foreign page.
func (w *Window) SetEmbedded(embedded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.embedded = embedded
}

// SetHref changes the current location without recording history.
func (w *Window) SetHref(href string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.href = href
}

func (w *Window) Document() browser.Document { return w.doc }

func (w *Window) Href() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.href
}

func (w *Window) Embedded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.embedded
}

func (w *Window) Open(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = append(w.opened, url)
	return nil
}

func (w *Window) Navigate(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = append(w.history, "navigate "+url)
	w.href = url
}

func (w *Window) Forward() { w.record("forward") }
func (w *Window) Back()    { w.record("back") }
func (w *Window) Reload()  { w.record("reload") }

func (w *Window) record(action string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = append(w.history, action)
}

// Opened returns every URL passed to Open.
func (w *Window) Opened() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.opened...)
}

// History returns the navigation actions performed, in order: "forward",
// "back", "reload" or "navigate <url>".
func (w *Window) History() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.history...)
}
