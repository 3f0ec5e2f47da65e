package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/registry"
)

// ValidationResult is the outcome of validating one payload against a
// named schema version.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Schema      string   `json:"schema"`
	SchemaTitle string   `json:"schema_title"`
	Errors      []string `json:"errors"`
}

// Validator validates JSON payloads against registry schemas using a
// Draft 2020-12 compiler seeded with the registry's full lookup table as
// its external-reference store. Compiled schemas are cached per
// identifier; identifiers embed the base URL, so a base URL change keys
// new entries, and the cache is purged whenever the index invalidates.
type Validator struct {
	index   *registry.Index
	logger  zerolog.Logger
	metrics *metrics.Collector
	printer *message.Printer

	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewValidator creates a validator bound to an index. The validator
// purges its compiled-schema cache whenever the index is invalidated.
func NewValidator(index *registry.Index, logger zerolog.Logger, m *metrics.Collector) *Validator {
	v := &Validator{
		index:    index,
		logger:   logger,
		metrics:  m,
		printer:  message.NewPrinter(language.English),
		compiled: make(map[string]*jsonschema.Schema),
	}
	index.OnInvalidate(v.Purge)
	return v
}

// Purge drops all compiled schemas. The next validation recompiles
// against fresh discovery results.
func (v *Validator) Purge() {
	v.mu.Lock()
	v.compiled = make(map[string]*jsonschema.Schema)
	v.mu.Unlock()
}

// Validate checks payload against the (name, selector) schema. The
// second return value is false when the schema is unknown; every other
// failure is reported inside the result, never as a hard error.
func (v *Validator) Validate(name, selector string, payload any) (ValidationResult, bool) {
	rec, ok := v.index.Get(name, selector)
	if !ok {
		return ValidationResult{}, false
	}

	result := ValidationResult{
		Schema:      fmt.Sprintf("%s:%s", name, selector),
		SchemaTitle: rec.Title,
		Errors:      []string{},
	}

	sch, err := v.schemaFor(rec.Identifier)
	if err != nil {
		v.logger.Warn().Err(err).Str("schema", rec.Identifier).Msg("schema compilation failed")
		v.count("compile_error")
		result.Errors = append(result.Errors, fmt.Sprintf("schema compilation failed: %v", err))
		return result, true
	}

	if err := sch.Validate(payload); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			result.Errors = flattenErrors(ve, v.printer, nil)
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
		v.count("invalid")
		return result, true
	}

	result.Valid = true
	v.count("valid")
	return result, true
}

func (v *Validator) count(outcome string) {
	if v.metrics != nil {
		v.metrics.ValidationsTotal.WithLabelValues(outcome).Inc()
	}
}

// schemaFor returns the compiled schema for an identifier, compiling and
// caching on first use.
func (v *Validator) schemaFor(identifier string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	sch, ok := v.compiled[identifier]
	v.mu.RUnlock()
	if ok {
		return sch, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)

	for id, doc := range v.index.AllAsMap() {
		if err := compiler.AddResource(id, doc); err != nil {
			v.logger.Warn().Err(err).Str("identifier", id).Msg("cannot add schema resource")
		}
	}

	sch, err := compiler.Compile(identifier)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.compiled[identifier] = sch
	v.mu.Unlock()

	return sch, nil
}

// flattenErrors turns the validator's cause tree into flat
// "<instance path>: <message>" strings, leaves only.
func flattenErrors(err *jsonschema.ValidationError, printer *message.Printer, out []string) []string {
	if len(err.Causes) == 0 {
		loc := "/" + strings.Join(err.InstanceLocation, "/")
		return append(out, fmt.Sprintf("%s: %s", loc, err.ErrorKind.LocalizedString(printer)))
	}
	for _, cause := range err.Causes {
		out = flattenErrors(cause, printer, out)
	}
	return out
}
