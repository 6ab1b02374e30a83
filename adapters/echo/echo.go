// Package lpecho provides Echo framework integration for live preview.
//
// Mount the envelope relay and install the preview middleware:
//
//	e := echo.New()
//	store := config.NewStore()
//	hub := lpecho.Mount(e)
//	e.Use(lpecho.Middleware(store))
//
// Or mount on a group with middleware:
//
//	g := e.Group("/preview", authMiddleware)
//	hub := lpecho.MountGroup(g, lpecho.WithKey(key))
package lpecho

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-logr/logr"
	"github.com/labstack/echo/v4"
	"github.com/pthm/livepreview"
	"github.com/pthm/livepreview/lib/browser"
	"github.com/pthm/livepreview/lib/browser/htmldoc"
	"github.com/pthm/livepreview/lib/config"
	"github.com/pthm/livepreview/lib/cslp"
	"github.com/pthm/livepreview/lib/transport"
)

// DefaultPath is where Mount serves the relay.
const DefaultPath = "/_livepreview"

// Option configures Mount, MountGroup and Middleware.
type Option func(*options)

type options struct {
	key  []byte
	path string
	log  logr.Logger
}

// WithKey signs relay frames with key. Without it frames are plain JSON.
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the relay's URL path. Defaults to DefaultPath.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func newOptions(opts []Option) *options {
	o := &options{path: DefaultPath, log: logr.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mount creates a relay hub and serves it on an Echo instance.
//
//	e := echo.New()
//	hub := lpecho.Mount(e)
//	defer hub.Close()
func Mount(e *echo.Echo, opts ...Option) *transport.Hub {
	o := newOptions(opts)
	hub := newHub(o)
	e.GET(o.path, echo.WrapHandler(hub))
	return hub
}

// MountGroup serves a relay hub on an Echo group, sharing the group's
// middleware (auth, logging, etc.).
func MountGroup(g *echo.Group, opts ...Option) *transport.Hub {
	o := newOptions(opts)
	hub := newHub(o)
	g.GET(o.path, echo.WrapHandler(hub))
	return hub
}

func newHub(o *options) *transport.Hub {
	codec, err := livepreview.NewSignedCodec(o.key)
	if err != nil {
		// Only an empty key fails, and an empty key selects JSON.
		panic("lpecho: " + err.Error())
	}
	return transport.NewHub(transport.WithCodec(codec), transport.WithLogger(o.log))
}

// Middleware prepares each request for live preview.
//
// Preview requests (those carrying ?live_preview=<hash>) get a
// request-scoped copy of the store seeded from the query and are never
// cached. When preview is disabled and cleanOnDisabled is set, field
// addresses are stripped from HTML responses.
func Middleware(store *config.Store, opts ...Option) echo.MiddlewareFunc {
	o := newOptions(opts)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			cfg := store.Get()

			reqStore := config.NewStoreWith(requestConfig(cfg))
			if livepreview.IsPreviewRequest(r) {
				if err := livepreview.SeedFromRequest(reqStore, r); err != nil {
					o.log.Error(err, "cannot seed preview from request")
				}
				c.Response().Header().Set("Cache-Control", "no-store")
			}
			c.Set(contextKeyName, reqStore)

			if cfg.Enable || !cfg.CleanOnDisabled {
				return next(c)
			}
			return strip(c, next, o.log)
		}
	}
}

const contextKeyName = "livepreview.store"

// requestConfig copies cfg deeply enough that seeding one request never
// touches the shared content client.
func requestConfig(cfg config.Config) config.Config {
	cfg = cfg.Clone()
	if cc := cfg.ContentClient; cc != nil {
		cp := *cc
		cp.LivePreview = make(map[string]any, len(cc.LivePreview))
		for k, v := range cc.LivePreview {
			cp.LivePreview[k] = v
		}
		cfg.ContentClient = &cp
	}
	return cfg
}

// Store returns the request-scoped store installed by Middleware, or nil.
func Store(c echo.Context) *config.Store {
	s, _ := c.Get(contextKeyName).(*config.Store)
	return s
}

// EditButtonVisible decides whether the page rendered for c shows the edit
// button.
func EditButtonVisible(c echo.Context) bool {
	s := Store(c)
	if s == nil {
		return false
	}
	return livepreview.EditButtonVisible(s.Get(), c.Request())
}

// strip buffers the handler's response and removes field addresses from it
// if it is HTML.
func strip(c echo.Context, next echo.HandlerFunc, log logr.Logger) error {
	res := c.Response()
	orig := res.Writer
	buf := &bufferedWriter{header: orig.Header()}
	res.Writer = buf
	err := next(c)
	res.Writer = orig
	if err != nil {
		return err
	}

	body := buf.body.Bytes()
	if strings.HasPrefix(orig.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
		doc, perr := htmldoc.Parse(bytes.NewReader(body))
		if perr == nil {
			n := browser.StripAttribute(doc, cslp.Attribute)
			n += browser.StripAttribute(doc, cslp.ParentAttribute)
			if n > 0 {
				var out bytes.Buffer
				if rerr := doc.Render(&out); rerr == nil {
					body = out.Bytes()
				}
				log.V(1).Info("stripped field addresses", "path", c.Request().URL.Path, "count", n)
			}
		}
	}

	orig.Header().Del(echo.HeaderContentLength)
	status := buf.status
	if status == 0 {
		status = http.StatusOK
	}
	orig.WriteHeader(status)
	_, err = orig.Write(body)
	return err
}

type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return lpecho.Render(c, page(entry))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return component.Render(c.Request().Context(), c.Response())
}
