package app_test

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/app"
	"github.com/artpar/schemagate/registry"
)

func newValidator(t *testing.T, dir string) (*app.Validator, *registry.Index) {
	t.Helper()
	ix := registry.New(registry.Config{
		Dir:     dir,
		BaseURL: "http://testserver",
		Logger:  zerolog.Nop(),
	})
	return app.NewValidator(ix, zerolog.Nop(), nil), ix
}

func TestValidate_ValidPayload(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "user", "v1.0.0.json",
		`{"title": "User", "type": "object", "properties": {"name": {"type": "string"}}, "required": ["name"]}`)

	v, _ := newValidator(t, dir)

	result, found := v.Validate("user", "v1.0.0", map[string]any{"name": "ada"})
	if !found {
		t.Fatal("schema not found")
	}
	if !result.Valid {
		t.Errorf("Valid = false, errors = %v", result.Errors)
	}
	if result.Schema != "user:v1.0.0" {
		t.Errorf("Schema = %q, want user:v1.0.0", result.Schema)
	}
	if result.SchemaTitle != "User" {
		t.Errorf("SchemaTitle = %q, want User", result.SchemaTitle)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want empty", result.Errors)
	}
}

func TestValidate_InvalidPayloadReportsErrors(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "user", "v1.0.0.json",
		`{"type": "object", "properties": {"name": {"type": "string"}}, "required": ["name"]}`)

	v, _ := newValidator(t, dir)

	result, found := v.Validate("user", "latest", map[string]any{"name": float64(42)})
	if !found {
		t.Fatal("schema not found")
	}
	if result.Valid {
		t.Error("Valid = true, want false")
	}
	if len(result.Errors) == 0 {
		t.Fatal("Errors empty, want at least one")
	}
	if !strings.Contains(result.Errors[0], "/name") {
		t.Errorf("Errors[0] = %q, want instance path /name", result.Errors[0])
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v, _ := newValidator(t, t.TempDir())

	if _, found := v.Validate("ghost", "latest", map[string]any{}); found {
		t.Error("found = true for unknown schema, want false")
	}
}

func TestValidate_CrossSchemaReference(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "user", "v1.0.0.json",
		`{"$id": "/schemas/user", "type": "object", "properties": {"name": {"type": "string"}}, "required": ["name"]}`)
	writeSchema(t, dir, "widget", "v1.0.0.json",
		`{"type": "object", "properties": {"owner": {"$ref": "/schemas/user"}}}`)

	v, _ := newValidator(t, dir)

	result, found := v.Validate("widget", "latest", map[string]any{
		"owner": map[string]any{"name": "ada"},
	})
	if !found {
		t.Fatal("schema not found")
	}
	if !result.Valid {
		t.Errorf("Valid = false, errors = %v", result.Errors)
	}

	result, _ = v.Validate("widget", "latest", map[string]any{
		"owner": map[string]any{},
	})
	if result.Valid {
		t.Error("Valid = true for payload violating referenced schema")
	}
}

func TestValidate_CachePurgedOnInvalidate(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "user", "v1.0.0.json",
		`{"type": "object", "properties": {"age": {"type": "integer"}}}`)

	v, ix := newValidator(t, dir)

	result, _ := v.Validate("user", "latest", map[string]any{"age": float64(3)})
	if !result.Valid {
		t.Fatalf("initial validation failed: %v", result.Errors)
	}

	// Tighten the schema on disk, then invalidate.
	writeSchema(t, dir, "user", "v1.0.0.json",
		`{"type": "object", "properties": {"age": {"type": "integer", "maximum": 1}}}`)
	ix.Invalidate()

	result, _ = v.Validate("user", "latest", map[string]any{"age": float64(3)})
	if result.Valid {
		t.Error("Valid = true after schema tightened, compiled cache was not purged")
	}
}
