package livepreview

import (
	"net/http"

	"github.com/pthm/livepreview/lib/config"
)

// Helpers for server-rendered integrations, where the page is rendered per
// request and the preview state arrives as query parameters.

// IsPreviewRequest returns true if r carries a preview snapshot hash.
//
// The authoring application appends ?live_preview=<hash> to every preview
// URL. Use this to bypass caches for preview traffic:
//
//	if livepreview.IsPreviewRequest(r) {
//	    w.Header().Set("Cache-Control", "no-store")
//	}
func IsPreviewRequest(r *http.Request) bool {
	return PreviewHash(r) != ""
}

// PreviewHash returns the live_preview query parameter, or "".
func PreviewHash(r *http.Request) string {
	return r.URL.Query().Get(config.ParamHash)
}

// SeedFromRequest applies r's preview parameters to store. Pass the
// store's hash to the content client when fetching the entry so the
// rendered page reflects unsaved edits.
func SeedFromRequest(store *config.Store, r *http.Request) error {
	return config.SetConfigFromParams(store, r.URL.Query())
}

// IsFramedRequest returns true if the browser is loading r into a frame.
//
// Uses the Sec-Fetch-Dest fetch metadata header. Browsers that do not send
// it are treated as unframed.
func IsFramedRequest(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Dest") {
	case "iframe", "frame":
		return true
	}
	return false
}

// EditButtonVisible decides whether to render the edit button for r.
func EditButtonVisible(cfg config.Config, r *http.Request) bool {
	return cfg.EditButton.Visible(IsFramedRequest(r), r.URL.Query())
}
