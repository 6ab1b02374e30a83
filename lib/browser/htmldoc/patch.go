package htmldoc

import (
	"errors"
	"strings"

	"github.com/pthm/livepreview/lib/browser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoBody is returned when a document has no body to patch.
var ErrNoBody = errors.New("htmldoc: document has no body")

// Patcher replaces the live body with the body of server-rendered markup.
// markup may be a whole page or a bare body fragment.
type Patcher struct{}

func (Patcher) Patch(doc browser.Document, markup string) error {
	target := doc.Body()
	if target == nil {
		return ErrNoBody
	}

	page, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return err
	}
	body := find(page, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if body == nil {
		return ErrNoBody
	}

	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return err
		}
	}
	return target.SetInnerHTML(sb.String())
}
