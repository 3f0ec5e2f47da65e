package schema

import "strings"

// NormalizeIdentifiers rewrites a document's $id and every $ref into
// absolute URLs under baseURL so the resolver can use them as exact-match
// lookup keys. A new document is returned; the input is never mutated.
//
// The top-level $id is rewritten as follows: values starting with "/" are
// prefixed with baseURL; values that are not already http(s) URLs are
// replaced entirely with the canonical registry URL for (name, version).
// Every $ref string in the tree gets the same "/" prefixing, and bare
// values are treated as schema family names and rewritten to
// baseURL/schemas/{value}.
func NormalizeIdentifiers(doc any, name, versionStr, baseURL string) any {
	m, ok := doc.(map[string]any)
	if !ok {
		return normalizeRefs(doc, baseURL)
	}

	normalized := make(map[string]any, len(m))
	for k, v := range m {
		normalized[k] = v
	}

	if id, ok := normalized["$id"].(string); ok {
		switch {
		case strings.HasPrefix(id, "/"):
			normalized["$id"] = baseURL + id
		case !strings.HasPrefix(id, "http"):
			normalized["$id"] = CanonicalIdentifier(baseURL, name, versionStr)
		}
	}

	return normalizeRefs(normalized, baseURL)
}

// normalizeRefs walks the tree rewriting every $ref string, producing new
// maps and slices throughout so callers can keep reusing the original.
func normalizeRefs(node any, baseURL string) any {
	switch v := node.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			if key == "$ref" {
				if ref, ok := value.(string); ok {
					result[key] = normalizeRef(ref, baseURL)
					continue
				}
			}
			result[key] = normalizeRefs(value, baseURL)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = normalizeRefs(item, baseURL)
		}
		return result

	default:
		return node
	}
}

func normalizeRef(ref, baseURL string) string {
	switch {
	case strings.HasPrefix(ref, "/"):
		return baseURL + ref
	case !strings.HasPrefix(ref, "http"):
		// A bare value is a schema family name on the same registry.
		return baseURL + "/schemas/" + ref
	default:
		return ref
	}
}
