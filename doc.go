// Package livepreview keeps a previewed page in sync with a headless CMS
// authoring application while an editor changes an entry.
//
// The page runs inside (or beside) the authoring application. The two sides
// exchange Envelopes over a Transport: the page announces itself, the
// authoring application pushes unsaved content, and the page reports which
// entry it is showing.
//
// # Rendering Modes
//
// Two modes are supported, selected by the SSR setting:
//   - Server-rendered (SSR, the default): the authoring application sends
//     re-rendered page bodies, which the engine applies through a Patcher.
//   - Client-rendered: the authoring application sends a snapshot hash. The
//     engine stores it in the content client's live_preview object and
//     calls the change callback so the page refetches and re-renders. A
//     heartbeat reports the current location every DefaultHeartbeat.
//
// # Constructing an Engine
//
// An Engine is built from a Window, a Transport and a config.Input:
//
//	engine := livepreview.New(win, tr, config.FromInit(config.InitData{
//	    StackDetails: config.StackDetailsInput{APIKey: &key, Environment: &env},
//	}), livepreview.WithLogger(log))
//	defer engine.Close()
//
// Configuration errors (a missing API key) are logged and do not stop the
// engine. When preview is disabled the engine stays passive and, if
// cleanOnDisabled is set, strips every data-cslp attribute from the page.
//
// # Field Addresses
//
// Editable elements carry a data-cslp attribute holding a field address
// (see package cslp). Hovering one highlights it and shows a tooltip with
// an edit button. Clicking the button focuses the field in the authoring
// application: embedded pages post a scroll envelope to the parent, while
// standalone pages open RedirectURL in a new window.
//
// # Change Notifications
//
// Pages subscribe to content changes through OnEntryChange or OnLiveEdit.
// Subscribers are called through the configuration's OnChange slot; if the
// caller supplied its own OnChange, subscribers are only reached when that
// callback publishes to Registry.
//
// # Server Integration
//
// Server-rendered sites handle preview requests with the helpers in this
// package (IsPreviewRequest, SeedFromRequest, EditButtonVisible) and the
// echo adapter under adapters/echo. The livepreview command relays
// envelopes between browser tabs over WebSocket for pages that are not
// framed by the authoring application.
//
// # Testing
//
// TestPage runs an engine against a headless htmldoc page and a synchronous
// pipe, with a manual heartbeat:
//
//	page := livepreview.NewTestPage(`<body><h1 id="t" data-cslp="ct.e.en-us.title">Hi</h1></body>`, "https://site.example/")
//	engine := page.Start(config.FromInit(config.InitData{}))
//	page.Hover("t")
package livepreview
