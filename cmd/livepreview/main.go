package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pthm/livepreview"
	"github.com/pthm/livepreview/lib/browser"
	"github.com/pthm/livepreview/lib/browser/htmldoc"
	"github.com/pthm/livepreview/lib/config"
	"github.com/pthm/livepreview/lib/cslp"
	"github.com/pthm/livepreview/lib/encoding"
	"github.com/pthm/livepreview/lib/transport"
)

const version = "0.1.0"

const usage = `livepreview - live preview tooling for CMS-tagged pages

Usage:
  livepreview decode <address>...
  livepreview scan <file>
  livepreview strip <file> [--out=<file>]
  livepreview tags <file> --content-type=<uid> [--locale=<locale>] [--object]
  livepreview redirect --config=<file> <address>
  livepreview relay [--addr=<addr>] [--key=<key>]
  livepreview -h | --help
  livepreview --version

Options:
  -h --help              Show this screen.
  --version              Show version.
  --out=<file>           Write the stripped page here instead of stdout.
  --content-type=<uid>   Content type of the entry.
  --locale=<locale>      Entry locale [default: en-us].
  --object               Emit tags as attribute objects instead of strings.
  --config=<file>        YAML file with the live preview init options.
  --addr=<addr>          Relay listen address [default: :8787].
  --key=<key>            Sign relay frames with this key.

Examples:
  livepreview decode v2:blog.post_var1.en-us.sections.0.title
  livepreview scan ./public/index.html
  livepreview strip ./public/index.html --out=./dist/index.html
  livepreview tags entry.json --content-type=blog
  livepreview redirect --config=preview.yaml blog.post.en-us.title
  livepreview relay --addr=:8787`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	zl, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync() //nolint:errcheck
	log := zapr.NewLogger(zl)

	if err := run(opts, os.Stdout, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts docopt.Opts, out io.Writer, log logr.Logger) error {
	switch {
	case flag(opts, "decode"):
		addresses, _ := opts["<address>"].([]string)
		return runDecode(out, addresses)
	case flag(opts, "scan"):
		file, _ := opts.String("<file>")
		return runScan(out, file)
	case flag(opts, "strip"):
		file, _ := opts.String("<file>")
		dest, _ := opts.String("--out")
		return runStrip(out, file, dest, log)
	case flag(opts, "tags"):
		file, _ := opts.String("<file>")
		ct, _ := opts.String("--content-type")
		locale, _ := opts.String("--locale")
		return runTags(out, file, ct, locale, flag(opts, "--object"))
	case flag(opts, "redirect"):
		file, _ := opts.String("--config")
		address := firstAddress(opts)
		return runRedirect(out, file, address, log)
	case flag(opts, "relay"):
		addr, _ := opts.String("--addr")
		key, _ := opts.String("--key")
		return runRelay(addr, key, log)
	}
	return errors.New("unknown command")
}

func flag(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func firstAddress(opts docopt.Opts) string {
	switch v := opts["<address>"].(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	}
	return ""
}

func runDecode(out io.Writer, addresses []string) error {
	refs := make([]cslp.Reference, 0, len(addresses))
	for _, a := range addresses {
		refs = append(refs, cslp.Decode(a))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(refs)
}

func readPage(file string) (*htmldoc.Document, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return htmldoc.Parse(f)
}

// runScan lists every tagged element of a page, one per line.
func runScan(out io.Writer, file string) error {
	doc, err := readPage(file)
	if err != nil {
		return err
	}
	for _, el := range doc.QueryAttribute(cslp.Attribute) {
		address, _ := el.GetAttribute(cslp.Attribute)
		ref := cslp.Decode(address)
		fmt.Fprintf(out, "%s\t%s\t%s/%s\t%s\n", el.TagName(), address, ref.ContentTypeUID, ref.EntryUID, ref.FieldPath)
	}
	return nil
}

// runStrip removes field addresses from a page the way a disabled engine
// does, for pages that are published without preview.
func runStrip(out io.Writer, file, dest string, log logr.Logger) error {
	doc, err := readPage(file)
	if err != nil {
		return err
	}

	n := browser.StripAttribute(doc, cslp.Attribute)
	n += browser.StripAttribute(doc, cslp.ParentAttribute)
	log.Info("stripped field addresses", "file", file, "count", n)

	if dest == "" {
		return doc.Render(out)
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if err := doc.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runTags(out io.Writer, file, contentTypeUID, locale string, asObject bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	cslp.AddEditableTags(entry, contentTypeUID, locale, asObject)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(entry)
}

// loadInput reads a YAML init options file.
func loadInput(file string) (config.Input, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return config.Input{}, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return config.Input{}, fmt.Errorf("%s: %w", file, err)
	}
	return config.ParseInput(raw)
}

func runRedirect(out io.Writer, file, address string, log logr.Logger) error {
	in, err := loadInput(file)
	if err != nil {
		return err
	}
	store := config.NewStore()
	if err := config.NewResolver(log).Resolve(in, store); err != nil {
		return err
	}

	u, err := livepreview.RedirectURL(store.Get(), cslp.Decode(address))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, u)
	return err
}

func runRelay(addr, key string, log logr.Logger) error {
	codec, err := livepreview.NewSignedCodec([]byte(key))
	if err != nil {
		return err
	}
	hub := transport.NewHub(
		transport.WithCodec(codec),
		transport.WithLogger(log.WithName("relay")),
	)
	defer hub.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           hub,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		_, signed := codec.(*encoding.Encoder)
		log.Info("relay listening", "addr", addr, "signed", signed)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}
