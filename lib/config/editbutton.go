package config

import "net/url"

// ParamButtons lets a URL force the edit button on or off when
// IncludeByQueryParameter is set.
const ParamButtons = "cslp-buttons"

// DefaultEditButtonPolicy enables the button unless it was disabled or
// excluded from both sides of the portal with no query override allowed.
func DefaultEditButtonPolicy(b EditButton) bool {
	if !b.Enable {
		return false
	}
	if b.Excludes(ExcludeInsidePortal) && b.Excludes(ExcludeOutsidePortal) {
		return b.IncludeByQueryParameter
	}
	return true
}

// Visible decides at render time whether to draw the button. insidePortal
// is true when the page is embedded in the authoring application.
func (b EditButton) Visible(insidePortal bool, query url.Values) bool {
	if !b.Enable {
		return false
	}

	if b.IncludeByQueryParameter {
		switch query.Get(ParamButtons) {
		case "true":
			return true
		case "false":
			return false
		}
	}

	side := ExcludeOutsidePortal
	if insidePortal {
		side = ExcludeInsidePortal
	}
	return !b.Excludes(side)
}
