// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/http/api"
	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/app"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/domain/resolve"
	"github.com/artpar/schemagate/registry"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Holder     *config.Holder
	Index      *registry.Index
	Schemas    *app.SchemaService
	Validator  *app.Validator
	Metrics    *metrics.Collector
	HTTPServer *http.Server
}

// New creates and initializes the application from a loaded config.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	logger.Info().Msg("initializing schemagate")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	a.Index = registry.New(registry.Config{
		Dir:     cfg.Schemas.Dir,
		BaseURL: cfg.Schemas.BaseURL,
		Logger:  logger,
		Metrics: a.Metrics,
	})

	opts := resolve.Options{
		MaxDepth:      cfg.Resolver.MaxDepth,
		StripPrefixes: cfg.Resolver.StripPrefixes,
	}
	a.Schemas = app.NewSchemaService(a.Index, opts, logger, a.Metrics)
	a.Validator = app.NewValidator(a.Index, logger, a.Metrics)

	if cfg.Schemas.Watch {
		if err := a.Index.Watch(); err != nil {
			logger.Warn().Err(err).Msg("cannot watch schema storage, changes need manual reload")
		} else {
			logger.Info().Str("dir", cfg.Schemas.Dir).Msg("watching schema storage for changes")
		}
	}

	a.initHTTPServer()

	return a, nil
}

// NewWithHotReload creates the application with config file hot reload.
// The config file is watched for changes and SIGHUP triggers a reload;
// reloadable fields take effect on the next request.
func NewWithHotReload(path string) (*App, error) {
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"})

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, fmt.Errorf("config holder: %w", err)
	}

	a, err := New(holder.Get())
	if err != nil {
		return nil, err
	}
	a.Holder = holder

	holder.OnChange(func(cfg *config.Config) {
		a.applyReloadableConfig(cfg)
	})

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("cannot watch config file")
	}
	holder.WatchSignals()

	return a, nil
}

// applyReloadableConfig applies the fields that can change without a
// restart. See config.ReloadableFields.
func (a *App) applyReloadableConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	a.Schemas.SetOptions(resolve.Options{
		MaxDepth:      cfg.Resolver.MaxDepth,
		StripPrefixes: cfg.Resolver.StripPrefixes,
	})

	a.Logger.Info().Msg("reloadable configuration applied")
}

func (a *App) initHTTPServer() {
	handler := api.NewHandler(api.Deps{
		Schemas:   a.Schemas,
		Validator: a.Validator,
		Index:     a.Index,
		Logger:    a.Logger,
		Metrics:   a.Metrics,
	})

	router := handler.Router()
	if a.Metrics != nil {
		router.Handle(a.Config.Metrics.Path, promhttp.Handler())
	}

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until interrupted.
func (a *App) Run() error {
	// Warm the registry so startup failures surface immediately.
	families := a.Index.Discover()
	a.Logger.Info().
		Int("families", len(families)).
		Str("dir", a.Config.Schemas.Dir).
		Msg("schema registry ready")

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Holder != nil {
		a.Holder.Stop()
	}

	a.Index.StopWatch()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
