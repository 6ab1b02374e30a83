package livepreview

import (
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Tooltip element identity and the classes the engine toggles.
const (
	TooltipID     = "cslp-tooltip"
	EditModeClass = "cslp-edit-mode"

	// TooltipOffset is how far above the hovered element the tooltip sits.
	TooltipOffset = 42

	// Attributes on the tooltip element.
	AttrCurrentHref = "current-href"
	AttrPosition    = "data-position"

	// AttrAction marks the tooltip's buttons.
	AttrAction = "data-cslp-action"
	ActionEdit = "edit"
	ActionLink = "link"
)

// TooltipProps is what the tooltip shows.
type TooltipProps struct {
	// FieldName labels the button. Empty until a field lookup answers.
	FieldName string
	// Href is the hovered link, if any. A link button is shown when set.
	Href string
	// HideEdit hides the edit button.
	HideEdit bool
}

// Tooltip returns the tooltip's inner markup.
//
// The engine renders it into the #cslp-tooltip element on every hover
// change. Server-rendered pages can also place it directly:
//
//	<div id="cslp-tooltip">@livepreview.Tooltip(livepreview.TooltipProps{})</div>
func Tooltip(p TooltipProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		if p.FieldName != "" {
			sb.WriteString(`<span class="cslp-tooltip-field">`)
			sb.WriteString(html.EscapeString(p.FieldName))
			sb.WriteString(`</span>`)
		}
		if !p.HideEdit {
			sb.WriteString(`<button type="button" class="cslp-tooltip-edit" ` + AttrAction + `="` + ActionEdit + `">Edit</button>`)
		}
		if p.Href != "" {
			sb.WriteString(`<button type="button" class="cslp-tooltip-link" ` + AttrAction + `="` + ActionLink + `" title="`)
			sb.WriteString(html.EscapeString(p.Href))
			sb.WriteString(`">Go to link</button>`)
		}
		_, err := io.WriteString(w, sb.String())
		return err
	})
}
