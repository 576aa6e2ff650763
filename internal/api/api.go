// Package api exposes the public v1 session endpoints over HTTP.
package api

import (
	"errors"

	"github.com/rs/zerolog"

	"orbitd/internal/session"
	"orbitd/internal/store"
)

// Config controls runtime behaviour for the HTTP layer.
type Config struct {
	AllowedOrigins []string
	// RateLimit is the per-client request budget per minute. Zero applies the
	// default.
	RateLimit int
}

const defaultRateLimit = 300

// API wires the session service, key validation, and configuration for the
// HTTP handlers.
type API struct {
	svc    *session.Service
	store  store.Store
	log    zerolog.Logger
	config Config
}

// New initialises the API layer with defaults applied to the configuration.
func New(svc *session.Service, st store.Store, log zerolog.Logger, cfg Config) (*API, error) {
	if svc == nil {
		return nil, errors.New("session service is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	return &API{svc: svc, store: st, log: log, config: cfg}, nil
}
