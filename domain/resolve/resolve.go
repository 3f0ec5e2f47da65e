// Package resolve inlines $ref indirections in JSON Schema documents.
//
// Resolution is a pure tree transform over a fully materialized lookup
// table of identifier → document. Circular references and lookup failures
// never abort the walk; they are replaced with inline $comment marker
// nodes so callers always get back a complete structure.
package resolve

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds the number of nested $ref expansions on one
// branch. Cycle detection catches loops; the depth bound catches
// pathological non-cyclic chains.
const DefaultMaxDepth = 64

// Options configures a Resolver.
type Options struct {
	// MaxDepth is the maximum number of nested $ref expansions on a
	// single branch. Zero means DefaultMaxDepth.
	MaxDepth int

	// StripPrefixes are internal placeholder URL prefixes removed from
	// the resolved document's top-level $id, e.g.
	// "http://testserver/schemas/". Cosmetic post-processing for
	// externally visible output.
	StripPrefixes []string
}

// Resolver inlines references against a fixed lookup table. It borrows
// the table for the duration of each Resolve call and never mutates it.
type Resolver struct {
	lookup map[string]any
	opts   Options
}

// New creates a resolver over the given identifier → document table.
func New(lookup map[string]any, opts Options) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Resolver{lookup: lookup, opts: opts}
}

// Resolve returns a deep copy of doc with every $ref replaced by its
// fully inlined target. The input document and the lookup table are
// left untouched.
func (r *Resolver) Resolve(doc any) any {
	resolved := r.resolveNode(doc, make(map[string]bool), 0)
	return stripInternalID(resolved, r.opts.StripPrefixes)
}

// resolveNode walks one node. The active set holds the references
// currently being expanded on this path; it reflects the live recursion
// stack, not the whole call, so sibling branches may reuse a reference
// once a branch fully completes.
func (r *Resolver) resolveNode(node any, active map[string]bool, depth int) any {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			return r.expandRef(ref, active, depth)
		}

		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = r.resolveNode(value, active, depth)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = r.resolveNode(item, active, depth)
		}
		return result

	default:
		return node
	}
}

func (r *Resolver) expandRef(ref string, active map[string]bool, depth int) any {
	if active[ref] {
		return circularMarker(ref)
	}
	if depth >= r.opts.MaxDepth {
		return failureMarker(ref, fmt.Errorf("max resolution depth %d exceeded", r.opts.MaxDepth))
	}

	target, ok := r.lookup[ref]
	if !ok {
		return failureMarker(ref, fmt.Errorf("schema not found"))
	}

	active[ref] = true
	resolved := r.resolveNode(target, active, depth+1)
	delete(active, ref)

	return resolved
}

func circularMarker(ref string) map[string]any {
	return map[string]any{
		"$comment": fmt.Sprintf("Circular reference avoided: %s", ref),
	}
}

func failureMarker(ref string, err error) map[string]any {
	return map[string]any{
		"$comment": fmt.Sprintf("Reference resolution failed: %s: %v", ref, err),
	}
}

// stripInternalID removes internal placeholder host prefixes from the
// top-level $id of a resolved document.
func stripInternalID(doc any, prefixes []string) any {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	id, ok := m["$id"].(string)
	if !ok {
		return doc
	}

	for _, prefix := range prefixes {
		if strings.Contains(id, prefix) {
			m["$id"] = strings.Replace(id, prefix, "", 1)
			break
		}
	}
	return doc
}
