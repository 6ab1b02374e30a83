package livepreview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pthm/livepreview/lib/browser"
	"github.com/pthm/livepreview/lib/config"
	"github.com/pthm/livepreview/lib/cslp"
	"github.com/pthm/livepreview/lib/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHref = "https://site.example/blog/post-1"

const testPage = `<html><head></head><body>
<div id="outer" data-cslp="blog.post-1.en-us.sections.0">
  <h1 id="title" data-cslp="blog.post-1.en-us.sections.0.title">Hello</h1>
  <a id="link" href="/about" data-cslp="blog.post-1.en-us.sections.0.cta">About</a>
</div>
<p id="plain">untagged</p>
<span id="field" data-cslp="content-type-1.entry-uid-1.en-us.field-title">Title</span>
</body></html>`

func ptr[T any](v T) *T { return &v }

func withKey(d config.InitData) config.InitData {
	d.StackDetails = config.StackDetailsInput{APIKey: ptr("k"), Environment: ptr("e")}
	return d
}

func TestNewDisabledStripsAddresses(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{Enable: ptr(false)})))

	assert.Equal(t, StatePassive, engine.State())
	assert.Empty(t, page.Doc.QueryAttribute(cslp.Attribute))
	assert.Empty(t, page.Sent())

	load, scroll, over := page.Doc.Len()
	assert.Zero(t, load+scroll+over)
	assert.Nil(t, page.Tooltip())
}

func TestNewDisabledKeepsAddresses(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{
		Enable:          ptr(false),
		CleanOnDisabled: ptr(false),
	})))

	assert.Equal(t, StatePassive, engine.State())
	assert.Len(t, page.Doc.QueryAttribute(cslp.Attribute), 4)
}

func TestNewAttachesHandlers(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	assert.Equal(t, StateListening, engine.State())
	load, scroll, over := page.Doc.Len()
	assert.Equal(t, 0, load)
	assert.Equal(t, 1, scroll)
	assert.Equal(t, 1, over)
	assert.NotNil(t, page.Tooltip())
}

func TestReadyWaitsForLoad(t *testing.T) {
	page := NewLoadingTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))

	load, _, _ := page.Doc.Len()
	assert.Equal(t, 1, load)
	assert.False(t, page.HasSent(protocol.TypeInit))
	assert.Nil(t, page.Tooltip())

	page.Doc.Load()
	assert.Len(t, page.Sent(protocol.TypeInit), 1)
	assert.NotNil(t, page.Tooltip())
}

func TestReadyPostsInit(t *testing.T) {
	tests := []struct {
		name string
		ssr  bool
	}{
		{"server rendered", true},
		{"client rendered", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewTestPage(testPage, testHref)
			page.Start(config.FromInit(withKey(config.InitData{SSR: ptr(tt.ssr)})))

			sent := page.Sent(protocol.TypeInit)
			require.Len(t, sent, 1)
			assert.Equal(t, protocol.Sender, sent[0].From)
			assert.Equal(t, tt.ssr, sent[0].Data["shouldReload"])
			assert.Equal(t, testHref, sent[0].Get("href"))
		})
	}
}

func TestHeartbeat(t *testing.T) {
	t.Run("client rendered reports location", func(t *testing.T) {
		page := NewTestPage(testPage, testHref)
		page.Start(config.FromInit(withKey(config.InitData{SSR: ptr(false)})))

		page.Tick()
		page.Window.SetHref("https://site.example/elsewhere")
		page.Tick()

		sent := page.Sent(protocol.TypeCheckEntryPage)
		require.Len(t, sent, 2)
		assert.Equal(t, testHref, sent[0].Get("href"))
		assert.Equal(t, "https://site.example/elsewhere", sent[1].Get("href"))
	})

	t.Run("server rendered has none", func(t *testing.T) {
		page := NewTestPage(testPage, testHref)
		page.Start(config.FromInit(withKey(config.InitData{})))

		page.Tick()
		assert.False(t, page.HasSent(protocol.TypeCheckEntryPage))
	})
}

func TestMissingAPIKeyIsNotFatal(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(config.InitData{}))

	assert.Equal(t, StateListening, engine.State())
	assert.Len(t, page.LogsContaining("live preview configuration is incomplete"), 1)
	assert.True(t, page.HasSent(protocol.TypeInit))
}

func TestClientDataClientRendered(t *testing.T) {
	client := config.NewContentClient("k", "e")
	client.CachePolicy = 1

	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{StackSDK: client})))
	require.False(t, engine.Config().SSR)

	calls := 0
	engine.OnEntryChange(func() { calls++ }, true)

	page.Send(protocol.ClientDataSend(protocol.ClientData{
		Hash:           "h1",
		ContentTypeUID: "blog",
		EntryUID:       "post-1",
	}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "h1", engine.Hash())
	assert.Equal(t, "h1", engine.Config().Hash)

	lp := engine.Config().ContentClient.LivePreview
	assert.Equal(t, "h1", lp["live_preview"])
	assert.Equal(t, "h1", lp["hash"])
	assert.Equal(t, "blog", lp["content_type_uid"])
	assert.Equal(t, "post-1", lp["entry_uid"])
}

func TestReadyMergesInit(t *testing.T) {
	client := config.NewContentClient("k", "e")
	calls := 0

	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{
		StackSDK: client,
		OnChange: func() { calls++ },
	})))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "init", client.LivePreview["live_preview"])
}

func TestClientDataServerRendered(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	calls := 0
	engine.OnEntryChange(func() { calls++ }, true)
	page.Hover("title")

	page.Send(protocol.ClientDataSend(protocol.ClientData{
		Hash:    "h2",
		Body:    `<html><body><h1 id="title" data-cslp="blog.post-1.en-us.sections.0.title">Updated</h1></body></html>`,
		HasBody: true,
	}))

	assert.Equal(t, "Updated", page.ByID("title").(interface{ Text() string }).Text())
	assert.Equal(t, "h2", engine.Hash())
	assert.Zero(t, calls)

	_, hovering := engine.Hovered()
	assert.False(t, hovering)
	require.NotNil(t, page.Tooltip())
	assert.Len(t, page.Doc.QueryTag("div"), 1, "exactly one tooltip after the patch")
}

func TestClientDataServerRenderedWithoutBody(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	page.Send(protocol.ClientDataSend(protocol.ClientData{Hash: "h3"}))

	assert.Equal(t, "h3", engine.Hash())
	assert.Equal(t, "Hello", page.ByID("title").(interface{ Text() string }).Text())
}

func TestInitAck(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	page.Send(protocol.InitAcknowledge(protocol.InitAck{ContentTypeUID: "blog", EntryUID: "post-1"}))

	sd := engine.Config().StackDetails
	assert.Equal(t, "blog", sd.ContentTypeUID)
	assert.Equal(t, "post-1", sd.EntryUID)
}

func TestHistory(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))

	page.Send(protocol.History(protocol.HistoryForward))
	page.Send(protocol.History(protocol.HistoryBackward))
	page.Send(protocol.History(protocol.HistoryReload))
	page.Send(protocol.History("sideways"))

	assert.Equal(t, []string{"forward", "back", "reload"}, page.Window.History())
}

func TestForeignMessagesIgnored(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	page.Page.Inject(map[string]any{
		"from": "some-extension",
		"type": "history",
		"data": map[string]any{"type": "reload"},
	})
	page.Page.Inject("not json")
	page.Page.Inject(42)
	page.Page.Inject(`{"from":"live-preview","type":"client-data-send","data":"nope"}`)

	assert.Empty(t, page.Window.History())
	assert.Empty(t, engine.Hash())
}

func TestMessagesAsJSON(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))

	page.Page.Inject(`{"from":"live-preview","type":"history","data":{"type":"reload"}}`)

	assert.Equal(t, []string{"reload"}, page.Window.History())
}

func TestHoverHighlightsInnermost(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	outer, title := page.ByID("outer"), page.ByID("title")

	page.Hover("outer")
	assert.True(t, outer.HasClass(EditModeClass))

	page.Hover("title")
	assert.True(t, title.HasClass(EditModeClass))
	assert.False(t, outer.HasClass(EditModeClass))

	ref, ok := engine.Hovered()
	require.True(t, ok)
	assert.Equal(t, "sections.title", ref.FieldPath)
	assert.Equal(t, "sections.0.title", ref.FieldPathWithIndex)

	// Untagged elements keep the current highlight.
	page.Hover("plain")
	assert.True(t, title.HasClass(EditModeClass))

	page.Hover("field")
	assert.False(t, title.HasClass(EditModeClass))
	assert.Len(t, highlighted(page), 1)
}

func TestHoverLinkRecordsHref(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))

	page.Hover("link")
	href, ok := page.Tooltip().GetAttribute(AttrCurrentHref)
	require.True(t, ok)
	assert.Equal(t, "/about", href)
	assert.Contains(t, page.Tooltip().InnerHTML(), ActionLink)

	page.Hover("title")
	_, ok = page.Tooltip().GetAttribute(AttrCurrentHref)
	assert.False(t, ok)
	assert.NotContains(t, page.Tooltip().InnerHTML(), `"`+ActionLink+`"`)
}

func TestTooltipPosition(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))

	title := page.ByID("title")
	page.Doc.SetRect(page.Doc.Body(), browser.Rect{Left: 8})
	page.Doc.SetRect(title, browser.Rect{Top: 100, Left: 40, Width: 200, Height: 30})

	page.Hover("title")
	assert.Equal(t, "58px", page.Tooltip().Style("top"))
	assert.Equal(t, "32px", page.Tooltip().Style("left"))

	page.Doc.SetRect(title, browser.Rect{Top: 10, Left: 40})
	page.Doc.Scroll()
	assert.Equal(t, "0px", page.Tooltip().Style("top"))

	page.Doc.SetRect(title, browser.Rect{Top: -20, Left: 40})
	page.Doc.Scroll()
	assert.Equal(t, "-20px", page.Tooltip().Style("top"))
}

func TestTooltipTop(t *testing.T) {
	tests := []struct {
		name string
		top  float64
		want float64
	}{
		{"room above", 100, 100 - TooltipOffset},
		{"exactly fits", TooltipOffset, 0},
		{"clamped to viewport", 10, 0},
		{"element above viewport", -20, -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tooltipTop(browser.Rect{Top: tt.top}))
		})
	}
}

func TestTooltipClickEmbeddedPostsScroll(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Window.SetEmbedded(true)
	page.Start(config.FromInit(withKey(config.InitData{})))

	page.Hover("title")
	page.ClickTooltip(ActionEdit)

	sent := page.Sent(protocol.TypeScroll)
	require.Len(t, sent, 1)
	target := protocol.ScrollTargetFrom(sent[0].Data)
	assert.Equal(t, protocol.ScrollTarget{
		Field:          "sections.0.title",
		ContentTypeUID: "blog",
		EntryUID:       "post-1",
		Locale:         "en-us",
	}, target)
	assert.Empty(t, page.Window.Opened())
}

func TestTooltipClickOpensEditor(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{Enable: ptr(true)})))

	page.Hover("field")
	page.ClickTooltip(ActionEdit)

	assert.Equal(t, []string{
		"https://app.contentstack.com:443/#!/stack/k/content-type/content-type-1/en-us/entry/entry-uid-1/edit?preview-field=field-title&preview-locale=en-us&preview-environment=e",
	}, page.Window.Opened())
	assert.False(t, page.HasSent(protocol.TypeScroll))
}

func TestTooltipClickMissingAPIKey(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(config.InitData{}))

	page.Hover("field")
	page.ClickTooltip(ActionEdit)

	assert.Empty(t, page.Window.Opened())
	logs := page.LogsContaining("cannot open field in the editor")
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "api key is required")
}

func TestTooltipClickWithoutHover(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))

	page.ClickTooltip("")

	assert.Empty(t, page.Window.Opened())
	assert.Empty(t, page.Window.History())
}

func TestTooltipLinkNavigates(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))

	page.Hover("link")
	page.ClickTooltip(ActionLink)

	assert.Equal(t, []string{"navigate /about"}, page.Window.History())
	assert.Empty(t, page.Window.Opened())
}

func TestEditButtonHidden(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{
		EditButton: &config.EditButtonInput{Exclude: []string{config.ExcludeOutsidePortal}},
	})))

	page.Hover("field")
	assert.NotContains(t, page.Tooltip().InnerHTML(), ActionEdit)

	page.ClickTooltip("")
	assert.Empty(t, page.Window.Opened())
}

func TestEditButtonForcedByQuery(t *testing.T) {
	page := NewTestPage(testPage, testHref+"?cslp-buttons=true")
	page.Start(config.FromInit(withKey(config.InitData{
		EditButton: &config.EditButtonInput{Exclude: []string{config.ExcludeOutsidePortal}},
	})))

	page.Hover("field")
	assert.Contains(t, page.Tooltip().InnerHTML(), ActionEdit)
}

func TestFieldLookup(t *testing.T) {
	lookup := FieldLookupFunc(func(_ context.Context, ref cslp.Reference) (Field, error) {
		return Field{DisplayName: "Field " + ref.FieldPath, DataType: "text"}, nil
	})

	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})), WithFieldLookup(lookup))

	page.Hover("field")
	require.Eventually(t, func() bool { return page.Flush() > 0 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Field field-title", engine.Field().DisplayName)
	assert.Contains(t, page.Tooltip().InnerHTML(), "Field field-title")
}

func TestFieldLookupStaleAnswerDiscarded(t *testing.T) {
	release := make(chan struct{})
	lookup := FieldLookupFunc(func(ctx context.Context, ref cslp.Reference) (Field, error) {
		if ref.FieldPath == "sections.title" {
			<-release
		}
		return Field{DisplayName: "Label " + ref.FieldPath}, nil
	})

	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})), WithFieldLookup(lookup))

	page.Hover("title")
	page.Hover("field")
	require.Eventually(t, func() bool { return page.Flush() > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Label field-title", engine.Field().DisplayName)

	close(release)
	require.Eventually(t, func() bool { return page.Flush() > 0 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Label field-title", engine.Field().DisplayName)
	assert.NotContains(t, page.Tooltip().InnerHTML(), "Label sections.title")
	assert.Len(t, page.LogsContaining("discarding stale field lookup"), 1)
}

func TestFieldLookupError(t *testing.T) {
	lookup := FieldLookupFunc(func(context.Context, cslp.Reference) (Field, error) {
		return Field{}, errors.New("schema unavailable")
	})

	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})), WithFieldLookup(lookup))

	page.Hover("field")
	require.Eventually(t, func() bool {
		return len(page.LogsContaining("field lookup failed")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, page.Flush())
	assert.Empty(t, engine.Field().DisplayName)
}

func TestOnEntryChange(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	calls := 0
	id := engine.OnEntryChange(func() { calls++ }, false)
	assert.Equal(t, 1, calls)

	engine.Registry().Publish()
	assert.Equal(t, 2, calls)

	require.NoError(t, engine.Unsubscribe(id))
	engine.Registry().Publish()
	assert.Equal(t, 2, calls)

	err := engine.Unsubscribe(id)
	assert.True(t, IsSubscriberNotFound(err))
	assert.Len(t, page.LogsContaining("no subscriber found with the given id"), 1)
}

func TestOnEntryChangeWithSuppliedCallback(t *testing.T) {
	supplied := 0
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{
		SSR:      ptr(false),
		OnChange: func() { supplied++ },
	})))
	require.Equal(t, 1, supplied)

	calls := 0
	engine.OnEntryChange(func() { calls++ }, true)
	assert.Len(t, page.LogsContaining("onChange was supplied"), 1)

	page.Send(protocol.ClientDataSend(protocol.ClientData{Hash: "h"}))
	assert.Equal(t, 2, supplied)
	assert.Zero(t, calls)
}

func TestOnLiveEdit(t *testing.T) {
	tests := []struct {
		name string
		ssr  bool
		want int
	}{
		{"client rendered", false, 1},
		{"server rendered", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewTestPage(testPage, testHref)
			engine := page.Start(config.FromInit(withKey(config.InitData{SSR: ptr(tt.ssr)})))

			calls := 0
			engine.OnLiveEdit(func() { calls++ })
			engine.Registry().Publish()
			assert.Equal(t, tt.want, calls)
		})
	}
}

func TestSetConfigFromParams(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	require.NoError(t, engine.SetConfigFromParams("?live_preview=abc&content_type_uid=blog&entry_uid=post-1"))
	assert.Equal(t, "abc", engine.Hash())
	assert.Equal(t, "blog", engine.Config().StackDetails.ContentTypeUID)

	err := engine.SetConfigFromParams(42)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "abc", engine.Hash())
}

func TestOpenHovered(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{})))

	assert.ErrorIs(t, engine.OpenHovered(), ErrNotHovering)

	page.Hover("field")
	require.NoError(t, engine.OpenHovered())
	assert.Len(t, page.Window.Opened(), 1)
}

func TestIndependentStores(t *testing.T) {
	a := NewTestPage(testPage, testHref)
	b := NewTestPage(testPage, testHref)
	ea := a.Start(config.FromInit(withKey(config.InitData{})))
	eb := b.Start(config.FromInit(config.InitData{SSR: ptr(false)}))

	assert.True(t, ea.Config().SSR)
	assert.False(t, eb.Config().SSR)
	assert.Equal(t, "k", ea.Config().StackDetails.APIKey)
	assert.Empty(t, eb.Config().StackDetails.APIKey)

	shared := config.NewStore()
	c := NewTestPage(testPage, testHref)
	ec := c.Start(config.FromInit(withKey(config.InitData{})), WithStore(shared))
	assert.Same(t, shared, ec.Store())
	assert.Equal(t, "k", shared.Get().StackDetails.APIKey)
}

func TestClose(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	engine := page.Start(config.FromInit(withKey(config.InitData{SSR: ptr(false)})))
	page.Hover("title")

	require.NoError(t, engine.Close())
	assert.ErrorIs(t, engine.Close(), ErrClosed)
	assert.Equal(t, StatePassive, engine.State())

	load, scroll, over := page.Doc.Len()
	assert.Zero(t, load+scroll+over)
	assert.Nil(t, page.Tooltip())
	assert.False(t, page.ByID("title").HasClass(EditModeClass))

	before := len(page.Sent())
	page.Tick()
	page.Send(protocol.History(protocol.HistoryReload))
	assert.Len(t, page.Sent(), before)
	assert.Empty(t, page.Window.History())
}

func highlighted(page *TestPage) []string {
	var ids []string
	for _, el := range page.Doc.QueryAttribute("class") {
		if el.HasClass(EditModeClass) {
			id, _ := el.GetAttribute("id")
			ids = append(ids, id)
		}
	}
	return ids
}

func TestTestPageLogs(t *testing.T) {
	page := NewTestPage(testPage, testHref)
	page.Start(config.FromInit(withKey(config.InitData{})))
	page.Send(protocol.History(protocol.HistoryReload))

	found := false
	for _, l := range page.Logs() {
		if strings.Contains(l, `"type"="history"`) {
			found = true
		}
	}
	assert.True(t, found)
}
