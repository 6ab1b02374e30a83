package htmldoc

import (
	"slices"
	"strings"

	"github.com/pthm/livepreview/lib/browser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element wraps a node of a Document.
type Element struct {
	doc *Document
	n   *html.Node
}

// Node returns the underlying node.
func (e *Element) Node() *html.Node { return e.n }

func (e *Element) TagName() string { return e.n.Data }

func (e *Element) GetAttribute(name string) (string, bool) {
	return attr(e.n, name)
}

func (e *Element) SetAttribute(name, value string) {
	for i := range e.n.Attr {
		if e.n.Attr[i].Namespace == "" && e.n.Attr[i].Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) RemoveAttribute(name string) {
	e.n.Attr = slices.DeleteFunc(e.n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == name
	})
}

func (e *Element) classes() []string {
	v, _ := attr(e.n, "class")
	return strings.Fields(v)
}

func (e *Element) AddClass(name string) {
	cls := e.classes()
	if slices.Contains(cls, name) {
		return
	}
	e.SetAttribute("class", strings.Join(append(cls, name), " "))
}

func (e *Element) RemoveClass(name string) {
	cls := e.classes()
	if !slices.Contains(cls, name) {
		return
	}
	cls = slices.DeleteFunc(cls, func(c string) bool { return c == name })
	if len(cls) == 0 {
		e.RemoveAttribute("class")
		return
	}
	e.SetAttribute("class", strings.Join(cls, " "))
}

func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.classes(), name)
}

// SetStyle rewrites the style attribute with property set to value.
// Declaration order is preserved.
func (e *Element) SetStyle(property, value string) {
	v, _ := attr(e.n, "style")
	var decls []string
	found := false
	for _, d := range strings.Split(v, ";") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		prop, _, _ := strings.Cut(d, ":")
		if strings.TrimSpace(prop) == property {
			d = property + ": " + value
			found = true
		}
		decls = append(decls, d)
	}
	if !found {
		decls = append(decls, property+": "+value)
	}
	e.SetAttribute("style", strings.Join(decls, "; "))
}

// Style returns the value of one inline style property.
func (e *Element) Style(property string) string {
	v, _ := attr(e.n, "style")
	for _, d := range strings.Split(v, ";") {
		prop, val, ok := strings.Cut(d, ":")
		if ok && strings.TrimSpace(prop) == property {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.contextNode())
	if err != nil {
		return err
	}
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		e.n.AppendChild(c)
	}
	return nil
}

// contextNode returns a parse context for fragments. Detached elements
// created without an atom (custom tags) parse as if inside a div.
func (e *Element) contextNode() *html.Node {
	if e.n.DataAtom != 0 {
		return e.n
	}
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	var sb strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return ""
		}
	}
	return sb.String()
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	var sb strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(e.n)
	return sb.String()
}

func (e *Element) BoundingRect() browser.Rect {
	return e.doc.rect(e.n)
}

func (e *Element) Parent() browser.Element {
	if e.n.Parent == nil || e.n.Parent.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(e.n.Parent)
}

func (e *Element) AppendChild(child browser.Element) {
	c, ok := child.(*Element)
	if !ok {
		return
	}
	if c.n.Parent != nil {
		c.n.Parent.RemoveChild(c.n)
	}
	e.n.AppendChild(c.n)
}

func (e *Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

func (e *Element) OnClick(fn func(browser.Event)) func() {
	return e.doc.onClick(e.n, fn)
}

func (e *Element) Same(other browser.Element) bool {
	o, ok := other.(*Element)
	return ok && o.n == e.n
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
