// Package config holds the live preview runtime configuration and the
// resolver that reconciles it from the shapes callers hand in.
//
// A Config is a plain value. A Store owns one Config and is the only thing
// that mutates it; engines receive a *Store at construction so independent
// engines never share configuration unless they are given the same Store.
//
// Two input shapes are accepted (see Input):
//   - init data: an options object, optionally carrying a content client
//     under StackSDK. Each field resolves independently with precedence
//     explicit value, then the client's live_preview object, then the
//     current configuration.
//   - content client (deprecated): a content-repository client passed
//     directly. Options are read from its live_preview object and SSR is
//     forced off.
package config

import (
	"fmt"
	"slices"
	"strings"
)

// Edit button exclusion targets.
const (
	ExcludeInsidePortal  = "insidePortal"
	ExcludeOutsidePortal = "outsidePortal"
)

// Config is the resolved runtime configuration.
type Config struct {
	// SSR selects server-rendered mode (body patches) over client-rendered
	// mode (content client merges).
	SSR             bool
	Enable          bool
	CleanOnDisabled bool

	// Hash is the preview snapshot token seeded from query parameters.
	Hash string

	StackDetails    StackDetails
	ClientURLParams ClientURLParams
	EditButton      EditButton

	// ContentClient is passed through untouched apart from its LivePreview
	// map, which receives preview updates.
	ContentClient *ContentClient

	// OnChange is the single change callback slot.
	OnChange func()
}

// StackDetails identifies the stack and the entry being previewed.
type StackDetails struct {
	APIKey         string
	Environment    string
	Branch         string
	ContentTypeUID string
	EntryUID       string
}

// ClientURLParams locates the authoring application. URL is derived from
// the other three fields and never set directly.
type ClientURLParams struct {
	Protocol string
	Host     string
	Port     int
	URL      string
}

// EditButton configures the floating edit button.
type EditButton struct {
	Enable                  bool
	Exclude                 []string
	IncludeByQueryParameter bool
	Position                string
}

// ContentClient is the content-repository client a page renders with.
type ContentClient struct {
	APIKey      string
	Environment string
	Branch      string
	// CachePolicy is what marks a raw object as a client; its value is
	// irrelevant here.
	CachePolicy int
	LivePreview map[string]any
}

// NewContentClient returns a client with an empty live_preview object.
func NewContentClient(apiKey, environment string) *ContentClient {
	return &ContentClient{
		APIKey:      apiKey,
		Environment: environment,
		LivePreview: make(map[string]any),
	}
}

// Default returns the default configuration table.
func Default() Config {
	return Config{
		SSR:             true,
		Enable:          true,
		CleanOnDisabled: true,
		ClientURLParams: deriveURL(ClientURLParams{
			Protocol: "https",
			Host:     "app.contentstack.com",
			Port:     443,
		}),
		EditButton: EditButton{
			Enable:                  true,
			Exclude:                 []string{},
			IncludeByQueryParameter: true,
			Position:                "top",
		},
	}
}

// Clone returns a copy that shares only the content client and callback.
func (c Config) Clone() Config {
	c.EditButton.Exclude = slices.Clone(c.EditButton.Exclude)
	return c
}

// Excludes reports whether target is in the exclusion list.
func (b EditButton) Excludes(target string) bool {
	return slices.Contains(b.Exclude, target)
}

func deriveURL(p ClientURLParams) ClientURLParams {
	p.Host = strings.TrimSuffix(p.Host, "/")
	p.URL = fmt.Sprintf("%s://%s:%d", p.Protocol, p.Host, p.Port)
	return p
}
