package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/go-logr/logr"
)

const page = `<html><head></head><body>
<ul data-cslp-parent-field="blog.post.en-us.items">
<li data-cslp="blog.post.en-us.items.0">one</li>
</ul>
<h1 data-cslp="v2:blog.post_var.en-us.title">Hi</h1>
</body></html>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunDecode(t *testing.T) {
	var out bytes.Buffer
	if err := runDecode(&out, []string{"v2:blog.post_var.en-us.items.0.title"}); err != nil {
		t.Fatalf("runDecode() error = %v", err)
	}

	var refs []map[string]any
	if err := json.Unmarshal(out.Bytes(), &refs); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d references, want 1", len(refs))
	}
	ref := refs[0]
	if ref["entry_uid"] != "post" || ref["variant"] != "var" || ref["fieldPath"] != "items.title" {
		t.Errorf("unexpected reference: %v", ref)
	}
}

func TestRunScan(t *testing.T) {
	var out bytes.Buffer
	if err := runScan(&out, writeFile(t, "index.html", page)); err != nil {
		t.Fatalf("runScan() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "li\tblog.post.en-us.items.0\tblog/post\titems") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "h1\tv2:blog.post_var.en-us.title\tblog/post\ttitle") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestRunStrip(t *testing.T) {
	src := writeFile(t, "index.html", page)

	t.Run("stdout", func(t *testing.T) {
		var out bytes.Buffer
		if err := runStrip(&out, src, "", logr.Discard()); err != nil {
			t.Fatalf("runStrip() error = %v", err)
		}
		if strings.Contains(out.String(), "data-cslp") {
			t.Errorf("addresses left in output: %s", out.String())
		}
		if !strings.Contains(out.String(), "<h1>Hi</h1>") {
			t.Errorf("content lost: %s", out.String())
		}
	})

	t.Run("file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "out.html")
		var out bytes.Buffer
		if err := runStrip(&out, src, dest, logr.Discard()); err != nil {
			t.Fatalf("runStrip() error = %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("unexpected stdout: %s", out.String())
		}
		data, err := os.ReadFile(dest)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "data-cslp") {
			t.Errorf("addresses left in file: %s", data)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if err := runStrip(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.html"), "", logr.Discard()); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestRunTags(t *testing.T) {
	src := writeFile(t, "entry.json", `{"uid":"post","title":"Hi"}`)

	var out bytes.Buffer
	if err := runTags(&out, src, "blog", "en-us", false); err != nil {
		t.Fatalf("runTags() error = %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(out.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	tags, _ := entry["$"].(map[string]any)
	if tags["title"] != "data-cslp=blog.post.en-us.title" {
		t.Errorf("title tag = %v", tags["title"])
	}
}

func TestRunRedirect(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    string
		wantErr bool
	}{
		{
			name: "complete stack",
			yaml: `
enable: true
stackDetails:
  apiKey: k
  environment: e
`,
			want: "https://app.contentstack.com:443/#!/stack/k/content-type/content-type-1/en-us/entry/entry-uid-1/edit?preview-field=field-title&preview-locale=en-us&preview-environment=e\n",
		},
		{
			name: "custom host",
			yaml: `
stackDetails:
  apiKey: k
  environment: e
clientUrlParams:
  protocol: http
  host: localhost
  port: 3000
`,
			want: "http://localhost:3000/#!/stack/k/content-type/content-type-1/en-us/entry/entry-uid-1/edit?preview-field=field-title&preview-locale=en-us&preview-environment=e\n",
		},
		{
			name:    "missing api key",
			yaml:    "enable: true\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			yaml:    "stackDetails: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runRedirect(&out, writeFile(t, "preview.yaml", tt.yaml), "content-type-1.entry-uid-1.en-us.field-title", logr.Discard())
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got output %q", out.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("runRedirect() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("runRedirect() = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestUsageParses(t *testing.T) {
	tests := []struct {
		argv []string
		cmd  string
	}{
		{[]string{"decode", "a.b.c", "d.e.f"}, "decode"},
		{[]string{"scan", "index.html"}, "scan"},
		{[]string{"strip", "index.html", "--out=x.html"}, "strip"},
		{[]string{"tags", "entry.json", "--content-type=blog"}, "tags"},
		{[]string{"redirect", "--config=p.yaml", "a.b.c.d"}, "redirect"},
		{[]string{"relay", "--addr=:9000"}, "relay"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}
			opts, err := parser.ParseArgs(usage, tt.argv, version)
			if err != nil {
				t.Fatalf("ParseArgs(%v) error = %v", tt.argv, err)
			}
			if !flag(opts, tt.cmd) {
				t.Errorf("command %q not selected: %v", tt.cmd, opts)
			}
		})
	}

	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}
	opts, err := parser.ParseArgs(usage, []string{"redirect", "--config=p.yaml", "a.b.c.d"}, version)
	if err != nil {
		t.Fatal(err)
	}
	if got := firstAddress(opts); got != "a.b.c.d" {
		t.Errorf("firstAddress() = %q", got)
	}
}
