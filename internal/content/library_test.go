package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

const sitemapJSON = `{"sitemap":{
  "pages":[
    {"id":"intro","title":"Intro","file":"pages/intro.html"},
    {"id":"summary","title":"Summary","file":"pages/summary.html"}
  ],
  "paths":{"default":["intro","summary"]}
}}`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "js/sitemap.json", sitemapJSON)
	writeFile(t, dir, "pages/intro.html", "<h1>Intro</h1>")

	lib, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib, dir
}

func TestNew_LoadsSitemap(t *testing.T) {
	lib, _ := newTestLibrary(t)

	doc, encoded, ok := lib.Document()
	if !ok {
		t.Fatal("sitemap not loaded")
	}
	if len(doc.Pages) != 2 {
		t.Errorf("pages = %d, want 2", len(doc.Pages))
	}
	if !strings.HasPrefix(string(encoded), `{"sitemap":`) {
		t.Errorf("encoded sitemap missing envelope: %s", encoded)
	}
	if lib.Reloads() != 1 {
		t.Errorf("Reloads = %d, want 1", lib.Reloads())
	}
}

func TestNew_YAMLSitemap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sitemap.yaml", `
sitemap:
  pages:
    - id: intro
      file: pages/intro.html
  paths:
    default: [intro]
`)
	lib, err := New(Config{Dir: dir, SitemapFile: "sitemap.yaml"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer lib.Close()

	doc, _, ok := lib.Document()
	if !ok || len(doc.Pages) != 1 || doc.Pages[0].ID != "intro" {
		t.Fatalf("YAML sitemap not decoded: ok=%v doc=%+v", ok, doc)
	}
}

func TestNew_MissingSitemapIsNotFatal(t *testing.T) {
	lib, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer lib.Close()

	if _, _, ok := lib.Document(); ok {
		t.Fatal("Document reported loaded without a sitemap file")
	}
	if _, lastErr := lib.Status(); lastErr == nil {
		t.Error("Status should report the load error")
	}
}

func TestNew_RequiresDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	lib, dir := newTestLibrary(t)

	writeFile(t, dir, "js/sitemap.json", `{"sitemap":{"pages":[{"id":"x","type":"bogus"}]}}`)
	if err := lib.Reload(); err == nil {
		t.Fatal("expected reload error for invalid kind")
	}

	doc, _, ok := lib.Document()
	if !ok || len(doc.Pages) != 2 {
		t.Fatal("previous sitemap should stay loaded after a failed reload")
	}
}

func TestPage(t *testing.T) {
	lib, _ := newTestLibrary(t)

	body, err := lib.Page("pages/intro.html")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if string(body) != "<h1>Intro</h1>" {
		t.Errorf("body = %q", body)
	}

	if _, err := lib.Page("/pages/intro.html"); err != nil {
		t.Errorf("leading slash should be accepted: %v", err)
	}

	_, err = lib.Page("pages/missing.html")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing page err = %v, want ErrNotFound", err)
	}
}

func TestPage_RejectsTraversal(t *testing.T) {
	lib, _ := newTestLibrary(t)

	for _, ref := range []string{"../secret", "pages/../../etc/passwd", "..", "", "  "} {
		if _, err := lib.Page(ref); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("Page(%q) err = %v, want ErrInvalidRef", ref, err)
		}
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	lib, dir := newTestLibrary(t)

	reloaded := make(chan *sitemap.Document, 4)
	lib.OnReload(func(doc *sitemap.Document, err error) {
		if err == nil {
			reloaded <- doc
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx, 20*time.Millisecond) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directories.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "js/sitemap.json", `{"sitemap":{"pages":[{"id":"only","file":"only.html"}]}}`)

	select {
	case doc := <-reloaded:
		if len(doc.Pages) != 1 || doc.Pages[0].ID != "only" {
			t.Fatalf("reloaded doc = %+v", doc.Pages)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("sitemap was not reloaded after a change")
	}
}
