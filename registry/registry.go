// Package registry discovers and indexes versioned schema documents from
// a directory tree. The index owns all discovered records and serves
// lookups by family name and version selector; reference resolution
// borrows snapshots of it via AllAsMap.
package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/domain/schema"
	"github.com/artpar/schemagate/domain/version"
)

// Latest is the version selector for the highest-ordered non-deprecated
// version of a family.
const Latest = "latest"

// Config contains dependencies for an Index.
type Config struct {
	// Dir is the schemas storage root: {dir}/{family}/v{x}.{y}.{z}.json.
	Dir string

	// BaseURL is embedded into every normalized identifier. It is part
	// of the cache key: changing it invalidates the index.
	BaseURL string

	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// Index is the schema registry. Discovery results are cached until the
// base URL changes, Invalidate is called, or the storage tree changes
// while a watcher is running.
type Index struct {
	mu      sync.RWMutex
	dir     string
	baseURL string
	cache   map[string][]schema.Record
	cached  bool

	onInvalidate []func()

	logger  zerolog.Logger
	metrics *metrics.Collector

	watcher *watcher
}

// New creates an empty index. Records are populated on first access.
func New(cfg Config) *Index {
	return &Index{
		dir:     cfg.Dir,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// BaseURL returns the base URL identifiers are currently built under.
func (ix *Index) BaseURL() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.baseURL
}

// SetBaseURL updates the base URL used for identifier normalization.
// Cached records embed the old base URL in their identifiers, so the
// cache is invalidated — but only when the URL actually changes, to
// keep per-request callers from thrashing the cache.
func (ix *Index) SetBaseURL(url string) {
	url = strings.TrimSuffix(url, "/")

	ix.mu.Lock()
	if ix.baseURL == url {
		ix.mu.Unlock()
		return
	}
	ix.baseURL = url
	ix.cache = nil
	ix.cached = false
	listeners := append([]func(){}, ix.onInvalidate...)
	ix.mu.Unlock()

	if ix.metrics != nil {
		ix.metrics.CacheInvalidations.Inc()
	}
	ix.logger.Debug().Str("base_url", url).Msg("base url changed, schema cache invalidated")

	for _, fn := range listeners {
		fn()
	}
}

// Invalidate drops the cached discovery results. The next access rescans
// the storage root.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.cache = nil
	ix.cached = false
	listeners := append([]func(){}, ix.onInvalidate...)
	ix.mu.Unlock()

	if ix.metrics != nil {
		ix.metrics.CacheInvalidations.Inc()
	}

	for _, fn := range listeners {
		fn()
	}
}

// OnInvalidate registers a callback invoked whenever the cache is
// dropped (base URL change, explicit invalidation, or storage change).
func (ix *Index) OnInvalidate(fn func()) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.onInvalidate = append(ix.onInvalidate, fn)
}

// Discover returns the mapping of family name to its version-ordered
// records, scanning storage on first call and serving the cache after.
// A missing storage root yields an empty result and is not cached, so
// the registry recovers once the directory appears.
func (ix *Index) Discover() map[string][]schema.Record {
	ix.mu.RLock()
	if ix.cached {
		defer ix.mu.RUnlock()
		return ix.cache
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.cached {
		return ix.cache
	}

	families, found := ix.scan()
	if !found {
		return families
	}

	ix.cache = families
	ix.cached = true
	return families
}

// scan walks the storage root. Callers hold the write lock. The second
// return value is false when the root itself is missing.
func (ix *Index) scan() (map[string][]schema.Record, bool) {
	families := make(map[string][]schema.Record)

	entries, err := os.ReadDir(ix.dir)
	if err != nil {
		ix.logger.Warn().Err(err).Str("dir", ix.dir).Msg("schemas directory not found")
		return families, false
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		records := ix.scanFamily(name, filepath.Join(ix.dir, name))
		if len(records) > 0 {
			families[name] = records
		}
	}

	if ix.metrics != nil {
		total := 0
		for _, recs := range families {
			total += len(recs)
		}
		ix.metrics.DiscoveryRuns.Inc()
		ix.metrics.SchemaFamilies.Set(float64(len(families)))
		ix.metrics.SchemaVersions.Set(float64(total))
	}

	ix.logger.Info().Int("families", len(families)).Msg("schema discovery complete")
	return families, true
}

// scanFamily loads every valid version file of one family. Malformed
// filenames and unparseable JSON are logged and skipped; they never
// abort discovery of sibling files.
func (ix *Index) scanFamily(name, dir string) []schema.Record {
	entries, err := os.ReadDir(dir)
	if err != nil {
		ix.logger.Warn().Err(err).Str("family", name).Msg("cannot read family directory")
		return nil
	}

	var records []schema.Record
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(fileName, "v") || !strings.HasSuffix(fileName, ".json") {
			continue
		}

		stem := strings.TrimSuffix(fileName, ".json")
		if !version.MatchesFilename(stem) {
			ix.skip("invalid_version")
			ix.logger.Warn().Str("family", name).Str("file", fileName).Msg("invalid version filename, skipping")
			continue
		}

		path := filepath.Join(dir, fileName)
		data, err := os.ReadFile(path)
		if err != nil {
			ix.skip("read_error")
			ix.logger.Warn().Err(err).Str("file", path).Msg("cannot read schema file, skipping")
			continue
		}

		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			ix.skip("malformed_json")
			ix.logger.Warn().Err(err).Str("file", path).Msg("malformed schema file, skipping")
			continue
		}

		normalized := schema.NormalizeIdentifiers(doc, name, stem, ix.baseURL)
		records = append(records, schema.NewRecord(name, stem, path, ix.baseURL, normalized))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Key.Less(records[j].Key)
	})

	return records
}

func (ix *Index) skip(reason string) {
	if ix.metrics != nil {
		ix.metrics.DiscoverySkipped.WithLabelValues(reason).Inc()
	}
}

// Get returns the record for a family and version selector. The selector
// is either an exact stored version string or Latest. Latest prefers the
// highest-ordered non-deprecated record and falls back to the highest
// overall when every version is deprecated.
func (ix *Index) Get(name, selector string) (schema.Record, bool) {
	versions, ok := ix.Discover()[name]
	if !ok || len(versions) == 0 {
		return schema.Record{}, false
	}

	if selector == Latest {
		for i := len(versions) - 1; i >= 0; i-- {
			if !versions[i].Deprecated {
				return versions[i], true
			}
		}
		return versions[len(versions)-1], true
	}

	for _, rec := range versions {
		if rec.Version == selector {
			return rec, true
		}
	}
	return schema.Record{}, false
}

// Exists reports whether a family (and optionally a specific version)
// is known to the registry.
func (ix *Index) Exists(name, selector string) bool {
	if selector == "" {
		_, ok := ix.Discover()[name]
		return ok
	}
	_, ok := ix.Get(name, selector)
	return ok
}

// Families returns all discovered family names in sorted order.
func (ix *Index) Families() []string {
	all := ix.Discover()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Versions returns the ordered records of one family, oldest first.
func (ix *Index) Versions(name string) []schema.Record {
	return ix.Discover()[name]
}

// AllAsMap flattens every discovered record into identifier → document,
// the lookup table handed to the reference resolver and the validator's
// external-reference store. Duplicate identifiers keep the last writer
// in discovery order; collisions are logged.
func (ix *Index) AllAsMap() map[string]any {
	all := ix.Discover()

	table := make(map[string]any)
	for _, records := range all {
		for _, rec := range records {
			if _, exists := table[rec.Identifier]; exists {
				ix.logger.Warn().Str("identifier", rec.Identifier).Msg("identifier collision, keeping last discovered document")
			}
			table[rec.Identifier] = rec.Document
		}
	}
	return table
}
