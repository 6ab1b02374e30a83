//go:build js && wasm

// Command livepreview-wasm runs the preview engine inside the previewed
// page. Build with GOOS=js GOARCH=wasm and load it after defining the init
// options:
//
//	<script>
//	  window.livePreviewConfig = {stackDetails: {apiKey: "...", environment: "..."}};
//	</script>
//	<script src="wasm_exec.js"></script>
//
// The page reaches the engine through window.livePreview.
package main

import (
	"syscall/js"

	"github.com/go-logr/logr/funcr"
	"github.com/pthm/livepreview"
	"github.com/pthm/livepreview/lib/browser/jsdom"
	"github.com/pthm/livepreview/lib/config"
)

const configGlobal = "livePreviewConfig"

func main() {
	console := js.Global().Get("console")
	log := funcr.New(func(prefix, args string) {
		console.Call("log", "[live-preview] "+prefix+" "+args)
	}, funcr.Options{})

	in, err := config.ParseInput(jsdom.Object(configGlobal))
	if err != nil {
		log.Error(err, "invalid live preview options")
		in = config.FromInit(config.InitData{})
	}

	engine := livepreview.New(jsdom.Global(), jsdom.NewTransport(), in,
		livepreview.WithLogger(log),
		livepreview.WithPatcher(jsdom.Patcher{}),
	)
	if err := engine.SetConfigFromParams(js.Global().Get("location").Get("search").String()); err != nil {
		log.Error(err, "cannot read preview parameters")
	}

	js.Global().Set("livePreview", js.ValueOf(map[string]any{
		"onEntryChange": js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) == 0 || args[0].Type() != js.TypeFunction {
				return nil
			}
			cb := args[0]
			skip := len(args) > 1 && args[1].Truthy()
			return engine.OnEntryChange(func() { cb.Invoke() }, skip)
		}),
		"onLiveEdit": js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) == 0 || args[0].Type() != js.TypeFunction {
				return nil
			}
			cb := args[0]
			return engine.OnLiveEdit(func() { cb.Invoke() })
		}),
		"unsubscribe": js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) == 0 {
				return false
			}
			return engine.Unsubscribe(args[0].String()) == nil
		}),
		"hash": js.FuncOf(func(js.Value, []js.Value) any {
			return engine.Hash()
		}),
	}))

	select {}
}
