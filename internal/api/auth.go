package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"orbitd/internal/models"
	"orbitd/internal/store"
)

type ctxKey int

const apiKeyCtxKey ctxKey = iota

// requireKey validates the bearer API key against the addressed workspace
// before any core logic runs.
func (a *API) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID, err := workspaceIDFrom(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Missing workspace ID")
			return
		}

		authz := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Missing API key")
			return
		}

		key, err := a.store.ValidateKey(r.Context(), token, workspaceID)
		if errors.Is(err, store.ErrUnauthorized) {
			respondError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		if err != nil {
			a.log.Error().Err(err).Msg("key validation failed")
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyCtxKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// keyFromContext returns the validated API key attached by requireKey.
func keyFromContext(ctx context.Context) (*models.APIKey, bool) {
	key, ok := ctx.Value(apiKeyCtxKey).(*models.APIKey)
	return key, ok
}
