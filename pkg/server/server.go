// Package server provides the entry point for initializing the gateway:
// it loads configuration, picks the registry backend, wires the proxy
// and integration clients, and builds the HTTP handler.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/botgrid/gateway/internal/api"
	"github.com/botgrid/gateway/internal/api/handlers"
	"github.com/botgrid/gateway/internal/auth"
	"github.com/botgrid/gateway/internal/botproxy"
	"github.com/botgrid/gateway/internal/clementine"
	"github.com/botgrid/gateway/internal/config"
	"github.com/botgrid/gateway/internal/registry"
	"github.com/botgrid/gateway/internal/telemetry"
)

// Server holds the initialized gateway.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Registry is the bot record store.
	Registry registry.Registry

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush
	// telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all gateway components from the environment and
// returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the gateway with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	reg, err := newRegistry(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	verifier := auth.NewVerifier(cfg.Keycloak)
	gate := auth.NewGate(cfg.Keycloak.Enabled)
	if cfg.Keycloak.Enabled {
		log.Info().
			Str("url", cfg.Keycloak.URL()).
			Str("realm", cfg.Keycloak.Realm).
			Msg("identity verification enabled")
	} else {
		log.Info().Msg("identity verification disabled, all requests are anonymous and allowed")
	}

	h := handlers.New(
		reg,
		botproxy.NewClient(nil),
		clementine.NewClient(cfg.Clementine.URL, nil),
		gate,
	)

	return &Server{
		Handler:      api.NewRouter(h, verifier),
		Registry:     reg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// newRegistry selects Postgres when a database URL is configured,
// otherwise the in-memory registry.
func newRegistry(ctx context.Context, cfg config.DatabaseConfig) (registry.Registry, error) {
	if cfg.URL == "" {
		log.Info().Msg("in-memory bot registry initialized")
		return registry.NewMemoryRegistry(), nil
	}

	if err := registry.Migrate(cfg.URL, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	reg, err := registry.NewPostgresRegistry(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("postgres bot registry initialized")
	return reg, nil
}
