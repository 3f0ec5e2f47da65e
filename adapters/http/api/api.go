// Package api provides the public HTTP API for the schema registry.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/app"
	"github.com/artpar/schemagate/registry"
)

// Handler serves the registry API endpoints.
type Handler struct {
	schemas   *app.SchemaService
	validator *app.Validator
	index     *registry.Index
	logger    zerolog.Logger
	metrics   *metrics.Collector
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Schemas   *app.SchemaService
	Validator *app.Validator
	Index     *registry.Index
	Logger    zerolog.Logger
	Metrics   *metrics.Collector
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		schemas:   deps.Schemas,
		validator: deps.Validator,
		index:     deps.Index,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(NewBaseURLMiddleware(h.index))
	if h.metrics != nil {
		r.Use(NewMetricsMiddleware(h.metrics))
	}

	r.Get("/", h.Root)
	r.Get("/healthz", h.Health)
	r.Get("/schemas", h.ListSchemas)
	r.Get("/schemas/{name}/{version}", h.GetSchema)
	r.Get("/schemas/{name}/{version}/fully-resolved", h.GetResolvedSchema)
	r.Get("/latest/{name}", h.GetLatest)
	r.Post("/validate", h.ValidatePayload)

	return r
}

// Root returns service identification and the available endpoints.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "schemagate",
		"endpoints": []string{
			"/schemas",
			"/schemas/{name}/{version}",
			"/schemas/{name}/{version}/fully-resolved",
			"/latest/{name}",
			"/validate",
		},
	})
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSchemas returns a summary of every schema family.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"schemas": h.schemas.List(),
	})
}

// GetSchema returns one schema version. The version selector is either
// an explicit version like "v1.2.3" or the literal "latest".
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	version := chi.URLParam(r, "version")

	rec, ok := h.schemas.Get(name, version)
	if !ok {
		writeError(w, http.StatusNotFound, "schema_not_found",
			"Schema '"+name+"' version '"+version+"' not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schema":  rec.Name,
		"version": rec.Version,
		"data":    rec.Document,
	})
}

// GetResolvedSchema returns one schema version with every reference
// recursively inlined.
func (h *Handler) GetResolvedSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	version := chi.URLParam(r, "version")

	rec, resolved, ok := h.schemas.Resolve(name, version)
	if !ok {
		writeError(w, http.StatusNotFound, "schema_not_found",
			"Schema '"+name+"' version '"+version+"' not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schema":         rec.Name,
		"version":        rec.Version,
		"fully_resolved": true,
		"data":           resolved,
	})
}

// GetLatest returns the latest version of a schema family.
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rec, ok := h.schemas.Get(name, registry.Latest)
	if !ok {
		writeError(w, http.StatusNotFound, "schema_not_found",
			"Schema '"+name+"' not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schema":         rec.Name,
		"latest_version": rec.Version,
		"title":          rec.Title,
		"data":           rec.Document,
	})
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	SchemaName string `json:"schema_name"`
	Version    string `json:"version"`
	Data       any    `json:"data"`
}

// ValidatePayload validates a JSON payload against a named schema version.
func (h *Handler) ValidatePayload(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.SchemaName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "schema_name is required")
		return
	}
	if req.Version == "" {
		req.Version = registry.Latest
	}

	result, found := h.validator.Validate(req.SchemaName, req.Version, req.Data)
	if !found {
		writeError(w, http.StatusNotFound, "schema_not_found",
			"Schema '"+req.SchemaName+"' version '"+req.Version+"' not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
