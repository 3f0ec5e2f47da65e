package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// ExportResult describes one exported schema family.
type ExportResult struct {
	Name    string
	Version string
	Path    string
}

// Export writes the fully resolved, URL-sanitized document of every
// family's latest version to {outDir}/{family}.json, ready for an
// external documentation renderer to consume. Families that fail to
// resolve are logged and skipped; a partial export is not an error.
func (s *SchemaService) Export(outDir string) ([]ExportResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	s.mu.RLock()
	prefixes := s.opts.StripPrefixes
	s.mu.RUnlock()

	var exported []ExportResult
	for _, summary := range s.List() {
		rec, resolved, ok := s.Resolve(summary.Name, summary.LatestVersion)
		if !ok {
			s.logger.Warn().Str("schema", summary.Name).Msg("schema disappeared during export, skipping")
			continue
		}

		sanitized := sanitizeURLs(resolved, prefixes)

		data, err := json.MarshalIndent(sanitized, "", "  ")
		if err != nil {
			s.logger.Warn().Err(err).Str("schema", summary.Name).Msg("cannot marshal resolved schema, skipping")
			continue
		}

		path := filepath.Join(outDir, summary.Name+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return exported, fmt.Errorf("write %s: %w", path, err)
		}

		s.logger.Info().Str("schema", summary.Name).Str("path", path).Msg("schema exported")
		exported = append(exported, ExportResult{
			Name:    summary.Name,
			Version: rec.Version,
			Path:    path,
		})
	}

	return exported, nil
}

// sanitizeURLs strips internal host prefixes from every $id and $ref in
// the tree, not just the root. Exported documents must not leak
// registry-internal URLs.
func sanitizeURLs(node any, prefixes []string) any {
	switch v := node.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			if key == "$id" || key == "$ref" {
				if s, ok := value.(string); ok {
					result[key] = stripPrefixes(s, prefixes)
					continue
				}
			}
			result[key] = sanitizeURLs(value, prefixes)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = sanitizeURLs(item, prefixes)
		}
		return result

	default:
		return node
	}
}

func stripPrefixes(s string, prefixes []string) string {
	for _, prefix := range prefixes {
		if prefix != "" {
			s = strings.ReplaceAll(s, prefix, "")
		}
	}
	return s
}
