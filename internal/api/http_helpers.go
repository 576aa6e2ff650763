package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"orbitd/internal/session"
	"orbitd/internal/store"
)

// dateLayouts are the accepted timestamp forms: full RFC3339, the
// seconds-less variant calendar clients send, and bare dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondSuccess writes the success envelope merged with payload fields.
func respondSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	respondJSON(w, status, body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]any{"success": false, "error": msg})
}

// respondServiceError maps core errors onto the wire taxonomy. Store
// failures are logged and answered generically.
func (a *API) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, store.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "Invalid API key")
	default:
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func workspaceIDFrom(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "workspaceID"), 10, 64)
}

func sessionIDFrom(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "sessionID"))
}

// parseFlexID reads an identifier that external callers send either as a
// JSON number or as a decimal string. Ids can exceed 2^53, so the string
// form is the safe one; both are accepted. A JSON null yields (nil, nil).
func parseFlexID(raw json.RawMessage) (*int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	s = strings.Trim(s, `"`)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseFlexInt reads a small integer sent as a JSON number or numeric
// string (slot indexes arrive both ways from form clients).
func parseFlexInt(raw json.RawMessage) (*int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
