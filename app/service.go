// Package app provides the use-case services layered over the registry:
// listing, fetching, full reference resolution, payload validation, and
// schema export.
package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/domain/resolve"
	"github.com/artpar/schemagate/domain/schema"
	"github.com/artpar/schemagate/registry"
)

// FamilySummary is one row of the registry listing.
type FamilySummary struct {
	Name          string `json:"name"`
	LatestVersion string `json:"latest_version"`
	TotalVersions int    `json:"total_versions"`
}

// SchemaService serves schema lookups and fully resolved documents.
type SchemaService struct {
	index   *registry.Index
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu   sync.RWMutex
	opts resolve.Options
}

// NewSchemaService creates a schema service over the given index.
func NewSchemaService(index *registry.Index, opts resolve.Options, logger zerolog.Logger, m *metrics.Collector) *SchemaService {
	return &SchemaService{
		index:   index,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// SetOptions replaces the resolver options. Used by config hot reload;
// takes effect on the next resolution.
func (s *SchemaService) SetOptions(opts resolve.Options) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

// List returns a summary of every discovered family, sorted by name.
func (s *SchemaService) List() []FamilySummary {
	names := s.index.Families()

	summaries := make([]FamilySummary, 0, len(names))
	for _, name := range names {
		latest, ok := s.index.Get(name, registry.Latest)
		if !ok {
			continue
		}
		summaries = append(summaries, FamilySummary{
			Name:          name,
			LatestVersion: latest.Version,
			TotalVersions: len(s.index.Versions(name)),
		})
	}
	return summaries
}

// Get returns the record for a family and version selector.
func (s *SchemaService) Get(name, selector string) (schema.Record, bool) {
	return s.index.Get(name, selector)
}

// Resolve returns a record together with its fully resolved document:
// every $ref inlined, cycles and lookup failures replaced with marker
// nodes, internal host prefixes stripped from the top-level $id.
func (s *SchemaService) Resolve(name, selector string) (schema.Record, any, bool) {
	rec, ok := s.index.Get(name, selector)
	if !ok {
		return schema.Record{}, nil, false
	}

	s.mu.RLock()
	opts := s.opts
	s.mu.RUnlock()

	start := time.Now()
	resolver := resolve.New(s.index.AllAsMap(), opts)
	resolved := resolver.Resolve(rec.Document)

	if s.metrics != nil {
		s.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Debug().
		Str("schema", rec.Name).
		Str("version", rec.Version).
		Dur("took", time.Since(start)).
		Msg("schema fully resolved")

	return rec, resolved, true
}
