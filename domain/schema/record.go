// Package schema defines the in-memory representation of a discovered
// schema version and the identifier normalization applied at load time.
package schema

import (
	"fmt"

	"github.com/artpar/schemagate/domain/version"
)

// Record is one discovered schema version. Records are immutable after
// construction; the document is never mutated in place.
type Record struct {
	// Name is the schema family identifier (directory name).
	Name string

	// Version is the stored version string, e.g. "v1.2.3".
	Version string

	// Key is the parsed ordering key for Version.
	Key version.Key

	// Path is the on-disk location the document was loaded from.
	Path string

	// Identifier is the absolute URL assigned to the schema's $id.
	// It is the record's canonical lookup key for reference resolution.
	Identifier string

	// Document is the parsed schema body.
	Document any

	Title       string
	Description string
	Deprecated  bool
}

// NewRecord builds a record from a normalized document. Title defaults to
// the family name and the identifier to the canonical registry URL when the
// document does not carry its own.
func NewRecord(name, versionStr, path, baseURL string, doc any) Record {
	key, _ := version.Parse(versionStr)

	rec := Record{
		Name:       name,
		Version:    versionStr,
		Key:        key,
		Path:       path,
		Identifier: CanonicalIdentifier(baseURL, name, versionStr),
		Document:   doc,
		Title:      name,
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return rec
	}

	if id, ok := m["$id"].(string); ok && id != "" {
		rec.Identifier = id
	}
	if title, ok := m["title"].(string); ok && title != "" {
		rec.Title = title
	}
	if desc, ok := m["description"].(string); ok {
		rec.Description = desc
	}
	if dep, ok := m["deprecated"].(bool); ok {
		rec.Deprecated = dep
	}

	return rec
}

// CanonicalIdentifier is the registry URL assigned to a schema version
// that does not declare an absolute $id of its own.
func CanonicalIdentifier(baseURL, name, versionStr string) string {
	return fmt.Sprintf("%s/schemas/%s/%s", baseURL, name, versionStr)
}
