package htmldoc

import (
	"strings"
	"testing"

	"github.com/pthm/livepreview/lib/browser"
)

const page = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body>
<main id="main" data-cslp="page.blt1.en-us">
  <h1 id="title" data-cslp="page.blt1.en-us.title" class="heading">Hello</h1>
  <ul>
    <li id="item0" data-cslp="page.blt1.en-us.items.0"><a id="link" href="/about">About</a></li>
  </ul>
</main>
</body></html>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseString(s)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	return doc
}

func TestQueryAttribute(t *testing.T) {
	doc := mustParse(t, page)

	els := doc.QueryAttribute("data-cslp")
	if len(els) != 3 {
		t.Fatalf("QueryAttribute() returned %d elements, want 3", len(els))
	}

	want := []string{"page.blt1.en-us", "page.blt1.en-us.title", "page.blt1.en-us.items.0"}
	for i, el := range els {
		if v, _ := el.GetAttribute("data-cslp"); v != want[i] {
			t.Errorf("element %d = %q, want %q", i, v, want[i])
		}
	}
}

func TestStripAttribute(t *testing.T) {
	doc := mustParse(t, page)

	if n := browser.StripAttribute(doc, "data-cslp"); n != 3 {
		t.Errorf("StripAttribute() = %d, want 3", n)
	}
	if strings.Contains(doc.String(), "data-cslp") {
		t.Error("rendered page still carries data-cslp")
	}
	if !strings.Contains(doc.String(), `id="title"`) {
		t.Error("other attributes must survive")
	}
}

func TestClasses(t *testing.T) {
	doc := mustParse(t, page)
	el := doc.ElementByID("title")

	el.AddClass("cslp-edit-mode")
	el.AddClass("cslp-edit-mode")
	if v, _ := el.GetAttribute("class"); v != "heading cslp-edit-mode" {
		t.Errorf("class = %q, want %q", v, "heading cslp-edit-mode")
	}
	if !el.HasClass("cslp-edit-mode") {
		t.Error("HasClass() = false, want true")
	}

	el.RemoveClass("cslp-edit-mode")
	el.RemoveClass("heading")
	if _, ok := el.GetAttribute("class"); ok {
		t.Error("empty class attribute should be removed")
	}
}

func TestSetStyle(t *testing.T) {
	doc := mustParse(t, page)
	el := doc.CreateElement("div").(*Element)

	el.SetStyle("top", "10px")
	el.SetStyle("left", "4px")
	el.SetStyle("top", "0px")

	if v, _ := el.GetAttribute("style"); v != "top: 0px; left: 4px" {
		t.Errorf("style = %q, want %q", v, "top: 0px; left: 4px")
	}
	if got := el.Style("left"); got != "4px" {
		t.Errorf("Style(left) = %q, want %q", got, "4px")
	}
}

func TestSetInnerHTML(t *testing.T) {
	doc := mustParse(t, page)
	el := doc.CreateElement("div").(*Element)

	if err := el.SetInnerHTML(`<button data-action="edit">Edit</button>`); err != nil {
		t.Fatalf("SetInnerHTML failed: %v", err)
	}
	doc.Body().AppendChild(el)

	if got := doc.QueryAttribute("data-action"); len(got) != 1 {
		t.Errorf("found %d buttons, want 1", len(got))
	}
	if el.Text() != "Edit" {
		t.Errorf("Text() = %q, want %q", el.Text(), "Edit")
	}

	el.Remove()
	if got := doc.QueryAttribute("data-action"); len(got) != 0 {
		t.Error("Remove() should detach the element")
	}
}

func TestPointerOverPath(t *testing.T) {
	doc := mustParse(t, page)

	var path []browser.Element
	cancel := doc.OnPointerOver(func(ev browser.Event) { path = ev.Path() })

	doc.PointerOver(doc.ElementByID("link"))

	var tags []string
	for _, el := range path {
		tags = append(tags, el.TagName())
	}
	if got := strings.Join(tags, ">"); got != "a>li>ul>main>body>html" {
		t.Errorf("path = %q, want %q", got, "a>li>ul>main>body>html")
	}

	cancel()
	path = nil
	doc.PointerOver(doc.ElementByID("title"))
	if path != nil {
		t.Error("canceled handler should not run")
	}
}

func TestClickBubbles(t *testing.T) {
	doc := mustParse(t, page)

	var clicks int
	doc.ElementByID("main").OnClick(func(browser.Event) { clicks++ })
	cancel := doc.ElementByID("item0").OnClick(func(browser.Event) { clicks++ })

	doc.Click(doc.ElementByID("link"))
	if clicks != 2 {
		t.Errorf("clicks = %d, want 2", clicks)
	}

	cancel()
	doc.Click(doc.ElementByID("link"))
	if clicks != 3 {
		t.Errorf("clicks = %d, want 3", clicks)
	}
}

func TestLoad(t *testing.T) {
	doc, err := ParseLoading(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ParseLoading failed: %v", err)
	}
	if doc.Complete() {
		t.Fatal("Complete() = true before Load")
	}

	var loads int
	doc.OnLoad(func() { loads++ })
	doc.Load()
	doc.Load()

	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
	if !doc.Complete() {
		t.Error("Complete() = false after Load")
	}
}

func TestRect(t *testing.T) {
	doc := mustParse(t, page)
	el := doc.ElementByID("title")

	if el.BoundingRect() != (browser.Rect{}) {
		t.Error("unset rect should be zero")
	}
	doc.SetRect(el, browser.Rect{Top: 10, Left: 20, Width: 100, Height: 30})
	if got := doc.ElementByID("title").BoundingRect(); got.Top != 10 || got.Left != 20 {
		t.Errorf("BoundingRect() = %+v", got)
	}
}

func TestParent(t *testing.T) {
	doc := mustParse(t, page)

	if p := doc.ElementByID("link").Parent(); p == nil || !p.Same(doc.ElementByID("item0")) {
		t.Error("Parent() of link should be item0")
	}
	html := doc.QueryTag("html")[0]
	if html.Parent() != nil {
		t.Error("Parent() of html should be nil")
	}
}

func TestPatcher(t *testing.T) {
	doc := mustParse(t, page)

	err := Patcher{}.Patch(doc, `<html><body><main id="fresh" data-cslp="page.blt1.en-us.title">New</main></body></html>`)
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	if doc.ElementByID("title") != nil {
		t.Error("old body content should be gone")
	}
	if el := doc.ElementByID("fresh"); el == nil {
		t.Error("new body content missing")
	}
	if len(doc.QueryTag("title")) != 1 {
		t.Error("head must be untouched")
	}

	// Bare fragments are accepted too
	if err := (Patcher{}).Patch(doc, `<p id="bare">x</p>`); err != nil {
		t.Fatalf("Patch fragment failed: %v", err)
	}
	if doc.ElementByID("bare") == nil {
		t.Error("fragment content missing")
	}
}

func TestWindow(t *testing.T) {
	doc := mustParse(t, page)
	w := NewWindow(doc, "https://site.example/page")

	w.Forward()
	w.Back()
	w.Reload()
	w.Navigate("https://site.example/about")
	_ = w.Open("https://app.example/edit")

	want := []string{"forward", "back", "reload", "navigate https://site.example/about"}
	got := w.History()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("History() = %v, want %v", got, want)
	}
	if w.Href() != "https://site.example/about" {
		t.Errorf("Href() = %q", w.Href())
	}
	if len(w.Opened()) != 1 {
		t.Errorf("Opened() = %v", w.Opened())
	}
	if w.Document() != browser.Document(doc) {
		t.Error("Document() should return the window's document")
	}
}
