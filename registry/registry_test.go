package registry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/registry"
)

const baseURL = "http://h"

func newIndex(t *testing.T, dir string) *registry.Index {
	t.Helper()
	return registry.New(registry.Config{
		Dir:     dir,
		BaseURL: baseURL,
		Logger:  zerolog.Nop(),
	})
}

func writeSchema(t *testing.T, dir, family, file, content string) {
	t.Helper()
	familyDir := filepath.Join(dir, family)
	if err := os.MkdirAll(familyDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(familyDir, file), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover_BuildsOrderedFamilies(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v2.0.0.json", `{"title": "Widget v2"}`)
	writeSchema(t, dir, "widget", "v1.0.0.json", `{"title": "Widget v1"}`)
	writeSchema(t, dir, "widget", "v1.10.0.json", `{"title": "Widget v1.10"}`)
	writeSchema(t, dir, "widget", "v1.9.0.json", `{"title": "Widget v1.9"}`)

	ix := newIndex(t, dir)
	families := ix.Discover()

	records, ok := families["widget"]
	if !ok {
		t.Fatal("widget family not discovered")
	}

	want := []string{"v1.0.0", "v1.9.0", "v1.10.0", "v2.0.0"}
	if len(records) != len(want) {
		t.Fatalf("len = %d, want %d", len(records), len(want))
	}
	for i, w := range want {
		if records[i].Version != w {
			t.Errorf("records[%d] = %s, want %s (numeric ordering)", i, records[i].Version, w)
		}
	}
}

func TestDiscover_SkipsInvalidFilesNotFamilies(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v1.0.0.json", `{}`)
	writeSchema(t, dir, "widget", "bad-name.json", `{}`)
	writeSchema(t, dir, "widget", "v9.0.0.json", `{not json`)
	writeSchema(t, dir, "widget", "v1.0.json", `{}`)

	ix := newIndex(t, dir)
	records := ix.Versions("widget")

	if len(records) != 1 || records[0].Version != "v1.0.0" {
		t.Errorf("records = %v, want only v1.0.0", records)
	}
}

func TestDiscover_FamilyWithNoValidVersionsOmitted(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "empty", "bad-name.json", `{}`)
	writeSchema(t, dir, "widget", "v1.0.0.json", `{}`)

	ix := newIndex(t, dir)
	families := ix.Discover()

	if _, exists := families["empty"]; exists {
		t.Error("family with zero valid versions should be omitted entirely")
	}
	if _, exists := families["widget"]; !exists {
		t.Error("valid sibling family should survive")
	}
}

func TestDiscover_MissingRootYieldsEmpty(t *testing.T) {
	ix := newIndex(t, filepath.Join(t.TempDir(), "does-not-exist"))

	families := ix.Discover()
	if len(families) != 0 {
		t.Errorf("families = %v, want empty", families)
	}
}

func TestDiscover_MissingRootNotCached(t *testing.T) {
	root := filepath.Join(t.TempDir(), "schemas")
	ix := newIndex(t, root)

	if got := ix.Discover(); len(got) != 0 {
		t.Fatalf("families = %v, want empty before dir exists", got)
	}

	writeSchema(t, root, "widget", "v1.0.0.json", `{}`)

	if got := ix.Discover(); len(got) != 1 {
		t.Errorf("families = %v, want widget discovered once the root appears", got)
	}
}

func TestGet_LatestPrefersNonDeprecated(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v1.0.0.json", `{}`)
	writeSchema(t, dir, "widget", "v2.0.0.json", `{"deprecated": true}`)
	writeSchema(t, dir, "widget", "v1.5.0.json", `{}`)

	ix := newIndex(t, dir)

	rec, ok := ix.Get("widget", registry.Latest)
	if !ok {
		t.Fatal("Get latest failed")
	}
	if rec.Version != "v1.5.0" {
		t.Errorf("latest = %s, want v1.5.0 (highest non-deprecated)", rec.Version)
	}
}

func TestGet_LatestFallsBackWhenAllDeprecated(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v1.0.0.json", `{"deprecated": true}`)
	writeSchema(t, dir, "widget", "v2.0.0.json", `{"deprecated": true}`)
	writeSchema(t, dir, "widget", "v1.5.0.json", `{"deprecated": true}`)

	ix := newIndex(t, dir)

	rec, ok := ix.Get("widget", registry.Latest)
	if !ok {
		t.Fatal("Get latest failed")
	}
	if rec.Version != "v2.0.0" {
		t.Errorf("latest = %s, want v2.0.0 (highest overall)", rec.Version)
	}
}

func TestGet_ExplicitVersionExactMatch(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v1.2.3.json", `{}`)

	ix := newIndex(t, dir)

	if _, ok := ix.Get("widget", "v1.2.3"); !ok {
		t.Error("exact version should match")
	}
	if _, ok := ix.Get("widget", "v1.2"); ok {
		t.Error("v1.2 must not match a stored v1.2.3 (string match, not numeric)")
	}
	if _, ok := ix.Get("widget", "v9.9.9"); ok {
		t.Error("unknown version should not match")
	}
	if _, ok := ix.Get("ghost", registry.Latest); ok {
		t.Error("unknown family should not match")
	}
}

func TestSetBaseURL_InvalidatesOnlyOnChange(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v1.0.0.json", `{"$id": "/widget"}`)

	ix := newIndex(t, dir)

	rec, _ := ix.Get("widget", registry.Latest)
	if rec.Identifier != "http://h/widget" {
		t.Fatalf("Identifier = %s, want http://h/widget", rec.Identifier)
	}

	invalidations := 0
	ix.OnInvalidate(func() { invalidations++ })

	ix.SetBaseURL(baseURL) // unchanged, must not invalidate
	if invalidations != 0 {
		t.Error("SetBaseURL with unchanged URL should not invalidate the cache")
	}

	ix.SetBaseURL("https://prod.example.com")
	if invalidations != 1 {
		t.Errorf("invalidations = %d, want 1", invalidations)
	}

	rec, _ = ix.Get("widget", registry.Latest)
	if rec.Identifier != "https://prod.example.com/widget" {
		t.Errorf("Identifier = %s, want rebuilt under new base URL", rec.Identifier)
	}
}

func TestAllAsMap_FlattensIdentifiers(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v1.0.0.json", `{"$id": "/widget/v1", "type": "object"}`)
	writeSchema(t, dir, "user", "v1.0.0.json", `{"type": "object"}`)

	ix := newIndex(t, dir)
	table := ix.AllAsMap()

	if _, ok := table["http://h/widget/v1"]; !ok {
		t.Errorf("table = %v, want explicit $id key", table)
	}
	// Documents without $id are keyed by the canonical registry URL.
	if _, ok := table["http://h/schemas/user/v1.0.0"]; !ok {
		t.Errorf("table = %v, want canonical identifier for $id-less document", table)
	}
}

func TestWatch_InvalidatesOnStorageChange(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "widget", "v1.0.0.json", `{}`)

	ix := newIndex(t, dir)
	if err := ix.Watch(); err != nil {
		t.Fatal(err)
	}
	defer ix.StopWatch()

	ix.Discover()

	invalidated := make(chan struct{}, 1)
	ix.OnInvalidate(func() {
		select {
		case invalidated <- struct{}{}:
		default:
		}
	})

	writeSchema(t, dir, "widget", "v2.0.0.json", `{}`)

	select {
	case <-invalidated:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not invalidate after storage change")
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if len(ix.Versions("widget")) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("versions = %v, want v2.0.0 discovered", ix.Versions("widget"))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "user", "v1.0.0.json", `{}`)

	ix := newIndex(t, dir)

	// Empty selector checks the family alone.
	if !ix.Exists("user", "") {
		t.Error("Exists(user) = false")
	}
	if !ix.Exists("user", "v1.0.0") {
		t.Error("Exists(user, v1.0.0) = false")
	}
	if !ix.Exists("user", registry.Latest) {
		t.Error("Exists(user, latest) = false")
	}
	if ix.Exists("user", "v9.9.9") {
		t.Error("Exists(user, v9.9.9) = true for unknown version")
	}
	if ix.Exists("ghost", "") {
		t.Error("Exists(ghost) = true for unknown family")
	}
}

func TestBaseURL_TrimsTrailingSlash(t *testing.T) {
	ix := newIndex(t, t.TempDir())

	if got := ix.BaseURL(); got != baseURL {
		t.Errorf("BaseURL = %q, want %q", got, baseURL)
	}

	ix.SetBaseURL("http://other/")
	if got := ix.BaseURL(); got != "http://other" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", got)
	}
}
