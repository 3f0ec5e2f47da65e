package schema_test

import (
	"reflect"
	"testing"

	"github.com/artpar/schemagate/domain/schema"
)

const baseURL = "http://h"

func TestNormalizeIdentifiers_RootedID(t *testing.T) {
	doc := map[string]any{"$id": "/widget"}

	got := schema.NormalizeIdentifiers(doc, "widget", "v1.0.0", baseURL)

	m := got.(map[string]any)
	if m["$id"] != "http://h/widget" {
		t.Errorf("$id = %v, want http://h/widget", m["$id"])
	}
}

func TestNormalizeIdentifiers_RelativeIDReplaced(t *testing.T) {
	doc := map[string]any{"$id": "widget.json"}

	got := schema.NormalizeIdentifiers(doc, "widget", "v1.0.0", baseURL)

	m := got.(map[string]any)
	if m["$id"] != "http://h/schemas/widget/v1.0.0" {
		t.Errorf("$id = %v, want http://h/schemas/widget/v1.0.0", m["$id"])
	}
}

func TestNormalizeIdentifiers_AbsoluteIDUnchanged(t *testing.T) {
	doc := map[string]any{"$id": "https://example.com/widget"}

	got := schema.NormalizeIdentifiers(doc, "widget", "v1.0.0", baseURL)

	m := got.(map[string]any)
	if m["$id"] != "https://example.com/widget" {
		t.Errorf("$id = %v, want unchanged", m["$id"])
	}
}

func TestNormalizeIdentifiers_RefsRewrittenEverywhere(t *testing.T) {
	doc := map[string]any{
		"$id": "/widget",
		"properties": map[string]any{
			"owner": map[string]any{"$ref": "user"},
			"tags": []any{
				map[string]any{"$ref": "/schemas/tag/v1.0.0"},
				map[string]any{"$ref": "http://other.example/tag"},
			},
		},
	}

	got := schema.NormalizeIdentifiers(doc, "widget", "v1.0.0", baseURL).(map[string]any)

	props := got["properties"].(map[string]any)
	owner := props["owner"].(map[string]any)
	if owner["$ref"] != "http://h/schemas/user" {
		t.Errorf("bare ref = %v, want http://h/schemas/user", owner["$ref"])
	}

	tags := props["tags"].([]any)
	if ref := tags[0].(map[string]any)["$ref"]; ref != "http://h/schemas/tag/v1.0.0" {
		t.Errorf("rooted ref = %v, want http://h/schemas/tag/v1.0.0", ref)
	}
	if ref := tags[1].(map[string]any)["$ref"]; ref != "http://other.example/tag" {
		t.Errorf("absolute ref = %v, want unchanged", ref)
	}
}

func TestNormalizeIdentifiers_InputNotMutated(t *testing.T) {
	doc := map[string]any{
		"$id": "/widget",
		"properties": map[string]any{
			"owner": map[string]any{"$ref": "user"},
		},
	}
	want := map[string]any{
		"$id": "/widget",
		"properties": map[string]any{
			"owner": map[string]any{"$ref": "user"},
		},
	}

	schema.NormalizeIdentifiers(doc, "widget", "v1.0.0", baseURL)

	if !reflect.DeepEqual(doc, want) {
		t.Errorf("input mutated: %v", doc)
	}
}

func TestNormalizeIdentifiers_ScalarPassthrough(t *testing.T) {
	if got := schema.NormalizeIdentifiers(true, "x", "v1.0.0", baseURL); got != true {
		t.Errorf("scalar = %v, want true", got)
	}
}

func TestNewRecord_FieldsFromDocument(t *testing.T) {
	doc := map[string]any{
		"$id":         "http://h/schemas/widget/v1.0.0",
		"title":       "Widget",
		"description": "A widget.",
		"deprecated":  true,
	}

	rec := schema.NewRecord("widget", "v1.0.0", "/tmp/widget/v1.0.0.json", baseURL, doc)

	if rec.Identifier != "http://h/schemas/widget/v1.0.0" {
		t.Errorf("Identifier = %q", rec.Identifier)
	}
	if rec.Title != "Widget" || rec.Description != "A widget." || !rec.Deprecated {
		t.Errorf("record fields = %+v", rec)
	}
	if rec.Key.Major != 1 {
		t.Errorf("Key = %v, want major 1", rec.Key)
	}
}

func TestNewRecord_Defaults(t *testing.T) {
	rec := schema.NewRecord("widget", "v2.0.0", "p", baseURL, map[string]any{"type": "object"})

	if rec.Title != "widget" {
		t.Errorf("Title = %q, want family name", rec.Title)
	}
	if rec.Identifier != "http://h/schemas/widget/v2.0.0" {
		t.Errorf("Identifier = %q, want canonical URL", rec.Identifier)
	}
	if rec.Deprecated {
		t.Error("Deprecated = true, want default false")
	}
}
